package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "newsletter/pkg/domain-errors"
)

func TestParseSubscriptionID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty string", "", true},
		{"not a uuid", "not-a-uuid", true},
		{"nil uuid", uuid.Nil.String(), true},
		{"sql injection attempt", "'; DROP TABLE subscriptions;--", true},
		{"valid lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
		{"valid uppercase", "550E8400-E29B-41D4-A716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseSubscriptionID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
				assert.True(t, id.IsNil())
				return
			}
			require.NoError(t, err)
			assert.False(t, id.IsNil())
		})
	}
}

func TestSubscriptionIDRoundTrip(t *testing.T) {
	id := NewSubscriptionID()
	parsed, err := ParseSubscriptionID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}
