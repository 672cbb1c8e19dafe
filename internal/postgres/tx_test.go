package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-marketplace/internal/postgres"
	"github.com/ariefcatur/go-marketplace/internal/postgres/pgtest"
)

func TestMigrate_Idempotent(t *testing.T) {
	pool := pgtest.NewPool(t)
	require.NoError(t, postgres.Migrate(pool))
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	pool := pgtest.NewPool(t)
	ctx := context.Background()
	runner := postgres.TxRunner{Pool: pool}

	boom := errors.New("boom")
	err := runner.WithinTx(ctx, func(ctx context.Context) error {
		_, err := postgres.Conn(ctx, pool).Exec(ctx,
			`INSERT INTO products(id, title, price_cents) VALUES (gen_random_uuid(), 'lamp', 100)`)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestWithinTx_CommitAndNested(t *testing.T) {
	pool := pgtest.NewPool(t)
	ctx := context.Background()
	runner := postgres.TxRunner{Pool: pool}

	err := runner.WithinTx(ctx, func(ctx context.Context) error {
		return runner.WithinTx(ctx, func(ctx context.Context) error {
			_, err := postgres.Conn(ctx, pool).Exec(ctx,
				`INSERT INTO products(id, title, price_cents) VALUES (gen_random_uuid(), 'lamp', 100)`)
			return err
		})
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestDetach_LeavesTransaction(t *testing.T) {
	pool := pgtest.NewPool(t)
	runner := postgres.TxRunner{Pool: pool}

	err := runner.WithinTx(context.Background(), func(ctx context.Context) error {
		_, onPool := postgres.Conn(ctx, pool).(*pgxpool.Pool)
		assert.False(t, onPool)
		assert.Same(t, pool, postgres.Conn(postgres.Detach(ctx), pool))
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, postgres.Detach(ctx).Err())
}
