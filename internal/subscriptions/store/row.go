package store

import (
	"fmt"
	"time"

	"newsletter/internal/subscriptions/models"
	"newsletter/pkg/domain"
)

type subscriptionRow struct {
	ID           domain.SubscriptionID
	Email        string
	Name         string
	SubscribedAt time.Time
	Status       models.Status
}

// toModel re-parses stored fields so a row that bypassed validation surfaces
// as an error instead of an invalid Subscription.
func (r subscriptionRow) toModel() (*models.Subscription, error) {
	email, err := domain.ParseSubscriberEmail(r.Email)
	if err != nil {
		return nil, fmt.Errorf("stored subscription %s: %w", r.ID, err)
	}
	name, err := domain.ParseSubscriberName(r.Name)
	if err != nil {
		return nil, fmt.Errorf("stored subscription %s: %w", r.ID, err)
	}
	return &models.Subscription{
		ID:           r.ID,
		Email:        email,
		Name:         name,
		SubscribedAt: r.SubscribedAt.UTC(),
		Status:       r.Status,
	}, nil
}
