package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vdeck/vdeck-orders/internal/orders"
)

type Catalog struct{ DB *pgxpool.Pool }

var _ orders.Catalog = (*Catalog)(nil)

func (c *Catalog) CreateProduct(ctx context.Context, p *orders.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return c.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, category, description, images, stock, price_cents, best_seller)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Category, p.Description, p.Images, p.Stock, p.PriceCents, p.BestSeller,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (c *Catalog) GetProduct(ctx context.Context, productID string) (*orders.Product, error) {
	var p orders.Product
	err := c.DB.QueryRow(ctx, `
		SELECT id, name, category, description, images, stock, price_cents, best_seller, created_at, updated_at
		FROM products WHERE id=$1`, productID,
	).Scan(&p.ID, &p.Name, &p.Category, &p.Description, &p.Images, &p.Stock,
		&p.PriceCents, &p.BestSeller, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Catalog) ListProducts(ctx context.Context) ([]orders.Product, error) {
	rows, err := c.DB.Query(ctx, `
		SELECT id, name, category, description, images, stock, price_cents, best_seller, created_at, updated_at
		FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Product
	for rows.Next() {
		var p orders.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Description, &p.Images, &p.Stock,
			&p.PriceCents, &p.BestSeller, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (c *Catalog) DeleteProduct(ctx context.Context, productID string) error {
	ct, err := c.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, productID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return orders.ErrProductNotFound
	}
	return nil
}
