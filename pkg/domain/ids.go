package domain

import (
	"github.com/google/uuid"

	dErrors "newsletter/pkg/domain-errors"
)

// SubscriptionID identifies a stored subscription. It is a distinct type so
// it cannot be mixed up with other UUIDs.
type SubscriptionID uuid.UUID

// NewSubscriptionID returns a fresh random ID.
func NewSubscriptionID() SubscriptionID {
	return SubscriptionID(uuid.New())
}

// ParseSubscriptionID parses an ID from external input (path parameters,
// stored rows).
//
// Errors: returns CodeBadRequest when the value is empty, malformed or the
// nil UUID.
func ParseSubscriptionID(s string) (SubscriptionID, error) {
	if s == "" {
		return SubscriptionID{}, dErrors.New(dErrors.CodeBadRequest, "subscription id cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return SubscriptionID{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid subscription id")
	}
	if parsed == uuid.Nil {
		return SubscriptionID{}, dErrors.New(dErrors.CodeBadRequest, "subscription id cannot be nil")
	}
	return SubscriptionID(parsed), nil
}

func (id SubscriptionID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether id is the zero UUID.
func (id SubscriptionID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}
