package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter/pkg/domain"
)

func TestNewSubscription(t *testing.T) {
	email, err := domain.ParseSubscriberEmail("ursula@example.com")
	require.NoError(t, err)
	name, err := domain.ParseSubscriberName("Ursula Le Guin")
	require.NoError(t, err)

	id := domain.NewSubscriptionID()
	now := time.Date(2026, 5, 1, 11, 0, 0, 0, time.FixedZone("CEST", 2*60*60))

	sub := NewSubscription(id, email, name, now)

	assert.Equal(t, id, sub.ID)
	assert.Equal(t, StatusPendingConfirmation, sub.Status)
	assert.Equal(t, time.UTC, sub.SubscribedAt.Location())
	assert.True(t, sub.SubscribedAt.Equal(now))

	event := sub.CreatedEvent()
	assert.Equal(t, id.String(), event.SubscriptionID)
	assert.Equal(t, "ursula@example.com", event.Email)
	assert.Equal(t, "Ursula Le Guin", event.Name)

	resp := sub.Response()
	assert.Equal(t, id.String(), resp.ID)
	assert.Equal(t, StatusPendingConfirmation, resp.Status)
}
