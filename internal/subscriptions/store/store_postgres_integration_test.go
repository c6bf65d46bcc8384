//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"newsletter/internal/subscriptions/models"
	"newsletter/internal/subscriptions/store"
	"newsletter/pkg/domain"
	"newsletter/pkg/platform/sentinel"
	"newsletter/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "outbox", "subscriptions"))
}

func (s *PostgresStoreSuite) newSubscription(email, name string) *models.Subscription {
	e, err := domain.ParseSubscriberEmail(email)
	s.Require().NoError(err)
	n, err := domain.ParseSubscriberName(name)
	s.Require().NoError(err)
	return models.NewSubscription(domain.NewSubscriptionID(), e, n, time.Now())
}

func (s *PostgresStoreSuite) TestCreateWritesOutboxEvent() {
	ctx := context.Background()
	sub := s.newSubscription("ursula@example.com", "Ursula Le Guin")
	s.Require().NoError(s.store.Create(ctx, sub))

	var (
		eventType string
		payload   []byte
	)
	err := s.postgres.DB.QueryRowContext(ctx,
		`SELECT event_type, payload FROM outbox WHERE aggregate_id = $1`, sub.ID.String(),
	).Scan(&eventType, &payload)
	s.Require().NoError(err)
	s.Equal(models.EventTypeSubscriptionCreated, eventType)
	s.Contains(string(payload), `"email": "ursula@example.com"`)
}

func (s *PostgresStoreSuite) TestRoundTripKeepsNameExactly() {
	ctx := context.Background()
	sub := s.newSubscription("zoe@example.com", "  Zoë 👨‍👩‍👧  ")
	s.Require().NoError(s.store.Create(ctx, sub))

	found, err := s.store.FindByID(ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal(sub.Name.String(), found.Name.String())
	s.WithinDuration(sub.SubscribedAt, found.SubscribedAt, time.Millisecond)
}

// TestConcurrentDuplicateEmail verifies the unique constraint lets exactly one
// signup through.
func (s *PostgresStoreSuite) TestConcurrentDuplicateEmail() {
	ctx := context.Background()
	const goroutines = 20

	var (
		wg        sync.WaitGroup
		created   atomic.Int32
		conflicts atomic.Int32
	)
	subs := make([]*models.Subscription, goroutines)
	for i := range subs {
		subs[i] = s.newSubscription("race@example.com", "Racer")
	}
	for _, sub := range subs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, sub)
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), created.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(context.Background(), domain.NewSubscriptionID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
