package store

import (
	"context"
	"sync"

	"newsletter/internal/subscriptions/models"
	"newsletter/pkg/domain"
	"newsletter/pkg/platform/sentinel"
)

// InMemory keeps subscriptions in process memory. Emails are unique by exact
// byte value.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[domain.SubscriptionID]*models.Subscription
	byEmail map[string]domain.SubscriptionID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[domain.SubscriptionID]*models.Subscription),
		byEmail: make(map[string]domain.SubscriptionID),
	}
}

func (s *InMemory) Create(_ context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := sub.Email.String()
	if _, taken := s.byEmail[email]; taken {
		return sentinel.ErrAlreadyUsed
	}
	stored := *sub
	s.byID[sub.ID] = &stored
	s.byEmail[email] = sub.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.SubscriptionID) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *sub
	return &found, nil
}
