package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/postgres"
)

type PGRepo struct{ DB postgres.DBTX }

func (r *PGRepo) GetByUser(ctx context.Context, userID string) (*Cart, error) {
	return r.get(ctx, `SELECT id::text, user_id, items, created_at, updated_at FROM carts WHERE user_id = $1`, userID)
}

func (r *PGRepo) LockByUser(ctx context.Context, userID string) (*Cart, error) {
	return r.get(ctx, `SELECT id::text, user_id, items, created_at, updated_at FROM carts WHERE user_id = $1 FOR UPDATE`, userID)
}

func (r *PGRepo) get(ctx context.Context, query, userID string) (*Cart, error) {
	var (
		c     Cart
		items []byte
	)
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, query, userID).
		Scan(&c.ID, &c.UserID, &items, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("get cart: %w", err))
	}
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return nil, apperr.Storage(fmt.Errorf("decode cart items: %w", err))
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	return &c, nil
}

func (r *PGRepo) Create(ctx context.Context, c *Cart) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("encode cart items: %w", err)
	}
	tag, err := postgres.Conn(ctx, r.DB).Exec(ctx, `
		INSERT INTO carts(id, user_id, items, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING`,
		c.ID, c.UserID, string(items), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return apperr.Storage(fmt.Errorf("insert cart: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (r *PGRepo) Replace(ctx context.Context, c *Cart, expected time.Time) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("encode cart items: %w", err)
	}
	tag, err := postgres.Conn(ctx, r.DB).Exec(ctx, `
		UPDATE carts SET items = $2, updated_at = $3
		WHERE id = $1 AND updated_at = $4`,
		c.ID, string(items), c.UpdatedAt, expected)
	if err != nil {
		return apperr.Storage(fmt.Errorf("update cart: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}
