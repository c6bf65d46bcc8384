//go:build integration

package outbox_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"newsletter/internal/platform/config"
	"newsletter/internal/subscriptions/models"
	"newsletter/internal/subscriptions/outbox"
	"newsletter/internal/subscriptions/store"
	"newsletter/pkg/domain"
	"newsletter/pkg/testutil/containers"
)

type RelayIntegrationSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	redpanda  *containers.RedpandaContainer
	publisher *outbox.KafkaPublisher
	cfg       config.Kafka
}

func TestRelayIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RelayIntegrationSuite))
}

func (s *RelayIntegrationSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.redpanda = mgr.GetRedpanda(s.T())
	s.cfg = config.Kafka{
		Brokers:           []string{s.redpanda.Broker},
		Topic:             "subscriptions.created.it",
		Partitions:        1,
		ReplicationFactor: 1,
	}

	publisher, err := outbox.NewKafkaPublisher(s.cfg)
	s.Require().NoError(err)
	s.publisher = publisher
	s.Require().NoError(s.publisher.EnsureTopic(context.Background()))
	s.Require().NoError(s.publisher.EnsureTopic(context.Background()), "second call tolerates existing topic")
}

func (s *RelayIntegrationSuite) TearDownSuite() {
	if s.publisher != nil {
		s.publisher.Close()
	}
}

func (s *RelayIntegrationSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "outbox", "subscriptions"))
}

func (s *RelayIntegrationSuite) TestStoredSubscriptionReachesKafka() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	email, err := domain.ParseSubscriberEmail("ursula@example.com")
	s.Require().NoError(err)
	name, err := domain.ParseSubscriberName("Ursula Le Guin")
	s.Require().NoError(err)
	sub := models.NewSubscription(domain.NewSubscriptionID(), email, name, time.Now())
	s.Require().NoError(store.NewPostgres(s.postgres.DB).Create(ctx, sub))

	relay := outbox.NewRelay(outbox.NewPostgresStore(s.postgres.DB), s.publisher, time.Second, 10,
		outbox.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	n, err := relay.RunOnce(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = relay.RunOnce(ctx)
	s.Require().NoError(err)
	s.Zero(n, "published events are not leased again")

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.cfg.Brokers...),
		kgo.ConsumeTopics(s.cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	var event models.SubscriptionCreated
	s.Require().NoError(json.Unmarshal(records[0].Value, &event))
	s.Equal(sub.ID.String(), event.SubscriptionID)
	s.Equal("ursula@example.com", event.Email)
	s.Equal(sub.ID.String(), string(records[0].Key))
}
