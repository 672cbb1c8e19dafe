package purchases

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/postgres"
)

type PGRepo struct{ DB *pgxpool.Pool }

// Insert writes the purchase and its items atomically, joining the
// transaction carried by ctx when there is one.
func (r *PGRepo) Insert(ctx context.Context, p *Purchase) error {
	return postgres.TxRunner{Pool: r.DB}.WithinTx(ctx, func(ctx context.Context) error {
		db := postgres.Conn(ctx, r.DB)
		if _, err := db.Exec(ctx, `
			INSERT INTO purchases(id, user_id, total_cents, purchase_date)
			VALUES ($1, $2, $3, $4)`,
			p.ID, p.UserID, p.TotalCents, p.PurchaseDate); err != nil {
			return apperr.Storage(fmt.Errorf("insert purchase: %w", err))
		}
		for i, it := range p.Items {
			if _, err := db.Exec(ctx, `
				INSERT INTO purchase_items(id, purchase_id, position, product_id, title, price_cents, quantity)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				it.ID, p.ID, i, it.ProductID, it.Title, it.PriceCents, it.Quantity); err != nil {
				return apperr.Storage(fmt.Errorf("insert purchase item: %w", err))
			}
		}
		return nil
	})
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Purchase, error) {
	db := postgres.Conn(ctx, r.DB)
	rows, err := db.Query(ctx, `
		SELECT id::text, user_id, total_cents, purchase_date
		FROM purchases WHERE user_id = $1
		ORDER BY purchase_date DESC, id`, userID)
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("list purchases: %w", err))
	}
	defer rows.Close()

	var (
		out   []Purchase
		ids   []string
		index = map[string]int{}
	)
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.TotalCents, &p.PurchaseDate); err != nil {
			return nil, apperr.Storage(err)
		}
		p.Items = []Item{}
		index[p.ID] = len(out)
		ids = append(ids, p.ID)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(err)
	}
	if len(out) == 0 {
		return out, nil
	}

	itemRows, err := db.Query(ctx, `
		SELECT purchase_id::text, id::text, product_id, title, price_cents, quantity
		FROM purchase_items WHERE purchase_id = ANY($1::uuid[])
		ORDER BY purchase_id, position`, ids)
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("list purchase items: %w", err))
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			pid string
			it  Item
		)
		if err := itemRows.Scan(&pid, &it.ID, &it.ProductID, &it.Title, &it.PriceCents, &it.Quantity); err != nil {
			return nil, apperr.Storage(err)
		}
		if i, ok := index[pid]; ok {
			out[i].Items = append(out[i].Items, it)
		}
	}
	return out, apperr.Storage(itemRows.Err())
}
