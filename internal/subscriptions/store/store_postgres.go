package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"newsletter/internal/subscriptions/models"
	"newsletter/pkg/domain"
	"newsletter/pkg/platform/sentinel"
	"newsletter/pkg/platform/tx"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Postgres persists subscriptions and their outbox events in one transaction.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, sub *models.Subscription) error {
	payload, err := json.Marshal(sub.CreatedEvent())
	if err != nil {
		return fmt.Errorf("marshal subscription event: %w", err)
	}

	err = tx.Run(ctx, s.db, func(ctx context.Context) error {
		exec := tx.Exec(ctx, s.db)
		_, err := exec.ExecContext(ctx, `
INSERT INTO subscriptions (id, email, name, subscribed_at, status)
VALUES ($1, $2, $3, $4, $5)`,
			uuid.UUID(sub.ID), sub.Email.String(), sub.Name.String(), sub.SubscribedAt, string(sub.Status),
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return sentinel.ErrAlreadyUsed
			}
			return fmt.Errorf("insert subscription: %w", err)
		}

		_, err = exec.ExecContext(ctx, `
INSERT INTO outbox (id, aggregate_id, event_type, payload, created_at)
VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), uuid.UUID(sub.ID), models.EventTypeSubscriptionCreated, payload, sub.SubscribedAt,
		)
		if err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}
		return nil
	})
	return classify(err)
}

func (s *Postgres) FindByID(ctx context.Context, id domain.SubscriptionID) (*models.Subscription, error) {
	var (
		rowID  uuid.UUID
		row    subscriptionRow
		status string
	)
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
SELECT id, email, name, subscribed_at, status
FROM subscriptions
WHERE id = $1`, uuid.UUID(id)).Scan(&rowID, &row.Email, &row.Name, &row.SubscribedAt, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, classify(fmt.Errorf("find subscription by id: %w", err))
	}
	row.ID = domain.SubscriptionID(rowID)
	row.Status = models.Status(status)
	return row.toModel()
}

// classify marks lost-connection errors as sentinel.ErrUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return err
}
