package models

import (
	"time"

	"newsletter/pkg/domain"
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
)

// Subscription is a stored newsletter signup.
type Subscription struct {
	ID           domain.SubscriptionID
	Email        domain.SubscriberEmail
	Name         domain.SubscriberName
	SubscribedAt time.Time
	Status       Status
}

// NewSubscription builds a pending subscription. Email and name can only be
// obtained through their parsers, so every Subscription holds validated data.
func NewSubscription(id domain.SubscriptionID, email domain.SubscriberEmail, name domain.SubscriberName, now time.Time) *Subscription {
	return &Subscription{
		ID:           id,
		Email:        email,
		Name:         name,
		SubscribedAt: now.UTC(),
		Status:       StatusPendingConfirmation,
	}
}

// EventTypeSubscriptionCreated is the outbox event type for new signups.
const EventTypeSubscriptionCreated = "subscription.created"

// SubscriptionCreated is published downstream once a subscription is stored.
type SubscriptionCreated struct {
	SubscriptionID string    `json:"subscription_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	SubscribedAt   time.Time `json:"subscribed_at"`
}

// CreatedEvent returns the event payload for sub.
func (s *Subscription) CreatedEvent() SubscriptionCreated {
	return SubscriptionCreated{
		SubscriptionID: s.ID.String(),
		Email:          s.Email.String(),
		Name:           s.Name.String(),
		SubscribedAt:   s.SubscribedAt,
	}
}

// SubscriptionResponse is the JSON body returned for a subscription.
type SubscriptionResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	SubscribedAt time.Time `json:"subscribed_at"`
	Status       Status    `json:"status"`
}

func (s *Subscription) Response() *SubscriptionResponse {
	return &SubscriptionResponse{
		ID:           s.ID.String(),
		Email:        s.Email.String(),
		Name:         s.Name.String(),
		SubscribedAt: s.SubscribedAt,
		Status:       s.Status,
	}
}
