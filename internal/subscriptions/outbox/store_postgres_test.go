package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreLease(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	older, newer := uuid.New(), uuid.New()
	aggregate := uuid.New()

	mock.ExpectQuery("UPDATE outbox").
		WithArgs(now.Add(30*time.Second), now, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "aggregate_id", "event_type", "payload", "created_at", "attempts"}).
			AddRow(newer.String(), aggregate.String(), "subscription.created", []byte(`{}`), now.Add(-time.Second), 1).
			AddRow(older.String(), aggregate.String(), "subscription.created", []byte(`{}`), now.Add(-time.Minute), 2))

	events, err := NewPostgresStore(db).Lease(context.Background(), 50, now, 30*time.Second)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, older, events[0].ID, "events come back oldest first")
	assert.Equal(t, 2, events[0].Attempts)
	assert.Equal(t, aggregate, events[1].AggregateID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreMarkPublished(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.MarkPublished(context.Background(), nil, now), "no ids is a no-op")

	mock.ExpectExec("UPDATE outbox").
		WithArgs(now, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, store.MarkPublished(context.Background(), []uuid.UUID{uuid.New(), uuid.New()}, now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreMarkFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	id := uuid.New()

	mock.ExpectExec("UPDATE outbox").
		WithArgs(sqlmock.AnyArg(), "broker unavailable", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgresStore(db).MarkFailed(context.Background(), id, "broker unavailable", now))
	require.NoError(t, mock.ExpectationsWereMet())
}
