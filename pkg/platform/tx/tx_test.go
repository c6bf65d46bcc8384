package tx

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO things").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = Run(context.Background(), db, func(ctx context.Context) error {
			_, ok := From(ctx)
			assert.True(t, ok)
			_, err := Exec(ctx, db).ExecContext(ctx, "INSERT INTO things VALUES (1)")
			return err
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err = Run(context.Background(), db, func(context.Context) error { return boom })
		require.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reuses transaction from context", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		sqlTx, err := db.Begin()
		require.NoError(t, err)

		ctx := WithTx(context.Background(), sqlTx)
		called := false
		err = Run(ctx, db, func(inner context.Context) error {
			called = true
			got, _ := From(inner)
			assert.Same(t, sqlTx, got)
			return nil
		})
		require.NoError(t, err)
		assert.True(t, called)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestExecWithoutTxUsesDB(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	assert.Same(t, db, Exec(context.Background(), db))
}
