package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Event is one row of the outbox table.
type Event struct {
	ID          uuid.UUID
	AggregateID uuid.UUID
	Type        string
	Payload     []byte
	CreatedAt   time.Time
	Attempts    int
}

// PostgresStore leases and settles outbox rows.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Lease claims up to limit unpublished events whose lease has expired and
// holds them until now+ttl. Concurrent relays skip rows another relay holds.
func (s *PostgresStore) Lease(ctx context.Context, limit int, now time.Time, ttl time.Duration) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
UPDATE outbox
SET lease_expires_at = $1, attempts = attempts + 1
WHERE id IN (
	SELECT id FROM outbox
	WHERE published_at IS NULL
	  AND (lease_expires_at IS NULL OR lease_expires_at <= $2)
	ORDER BY created_at
	LIMIT $3
	FOR UPDATE SKIP LOCKED
)
RETURNING id, aggregate_id, event_type, payload, created_at, attempts`,
		now.Add(ttl), now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("lease outbox events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.Type, &e.Payload, &e.CreatedAt, &e.Attempts); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", err)
	}

	// RETURNING does not preserve the subquery order.
	slices.SortFunc(events, func(a, b Event) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return events, nil
}

// MarkPublished settles events that reached the broker.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	_, err := s.db.ExecContext(ctx, `
UPDATE outbox
SET published_at = $1, lease_expires_at = NULL, last_error = NULL
WHERE id = ANY($2::uuid[])`, at, pq.Array(keys))
	if err != nil {
		return fmt.Errorf("mark outbox events published: %w", err)
	}
	return nil
}

// MarkFailed records the error and makes the event eligible again at retryAt.
func (s *PostgresStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string, retryAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE outbox
SET last_error = $2, lease_expires_at = $3
WHERE id = $1`, id, reason, retryAt)
	if err != nil {
		return fmt.Errorf("mark outbox event failed: %w", err)
	}
	return nil
}
