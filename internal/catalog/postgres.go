package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/postgres"
)

type Repo struct{ DB postgres.DBTX }

const productColumns = `id::text, title, description, category, price_cents, image_url, seller_id, created_at, updated_at`

func (r *Repo) FindByID(ctx context.Context, id string) (Product, error) {
	if err := ValidateID(id); err != nil {
		return Product{}, err
	}
	var p Product
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Title, &p.Description, &p.Category, &p.PriceCents, &p.ImageURL, &p.SellerID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, apperr.Storage(err)
	}
	return p, nil
}

// Upsert writes a product row. Product management lives outside this
// service; this feeds fixtures and local seeding.
func (r *Repo) Upsert(ctx context.Context, p Product) error {
	_, err := postgres.Conn(ctx, r.DB).Exec(ctx, `
		INSERT INTO products(id, title, description, category, price_cents, image_url, seller_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, description = EXCLUDED.description, category = EXCLUDED.category,
			price_cents = EXCLUDED.price_cents, image_url = EXCLUDED.image_url,
			seller_id = EXCLUDED.seller_id, updated_at = now()`,
		p.ID, p.Title, p.Description, p.Category, p.PriceCents, p.ImageURL, p.SellerID)
	return apperr.Storage(err)
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	_, err := postgres.Conn(ctx, r.DB).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return apperr.Storage(err)
}
