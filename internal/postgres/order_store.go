package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vdeck/vdeck-orders/internal/orders"
)

type OrderStore struct{ DB *pgxpool.Pool }

var _ orders.OrderStore = (*OrderStore)(nil)

func (s *OrderStore) Create(ctx context.Context, o *orders.Order) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, fullname, gcash, address, total_cents, payment_proof_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		o.ID, o.Customer.FullName, o.Customer.GCash, o.Customer.Address,
		o.TotalCents, o.PaymentProofURL, string(o.Status),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, qty, unit_price_cents)
			VALUES ($1, $2, $3, $4)`,
			o.ID, it.ProductID, it.Quantity, it.UnitPriceCents,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *OrderStore) Get(ctx context.Context, orderID string) (*orders.Order, error) {
	var o orders.Order
	var status string
	err := s.DB.QueryRow(ctx, `
		SELECT id, fullname, gcash, address, total_cents, payment_proof_url, status, created_at, updated_at
		FROM orders WHERE id=$1`, orderID,
	).Scan(&o.ID, &o.Customer.FullName, &o.Customer.GCash, &o.Customer.Address,
		&o.TotalCents, &o.PaymentProofURL, &status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = orders.Status(status)

	rows, err := s.DB.Query(ctx, `
		SELECT product_id, qty, unit_price_cents FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it orders.LineItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitPriceCents); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

// UpdateStatus lets the database arbitrate the transition: the WHERE
// clause only matches rows whose current status may move to the target,
// so of two concurrent Pending->Cancelled attempts exactly one wins.
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID string, to orders.Status) error {
	froms := allowedFrom(to)
	if len(froms) == 0 {
		return orders.ErrInvalidTransition
	}
	ct, err := s.DB.Exec(ctx, `
		UPDATE orders SET status=$2, updated_at=now()
		WHERE id=$1 AND status = ANY($3)`, orderID, string(to), froms)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := s.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, orderID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return orders.ErrOrderNotFound
	}
	return orders.ErrInvalidTransition
}

func allowedFrom(to orders.Status) []string {
	var out []string
	for _, from := range []orders.Status{orders.StatusPending, orders.StatusCancelled, orders.StatusFulfilled} {
		if orders.CanTransition(from, to) {
			out = append(out, string(from))
		}
	}
	return out
}

func (s *OrderStore) ListRecent(ctx context.Context, limit int) ([]orders.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.Query(ctx, `
		SELECT id, fullname, gcash, address, total_cents, payment_proof_url, status, created_at, updated_at
		FROM orders ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Order
	for rows.Next() {
		var o orders.Order
		var status string
		if err := rows.Scan(&o.ID, &o.Customer.FullName, &o.Customer.GCash, &o.Customer.Address,
			&o.TotalCents, &o.PaymentProofURL, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Status = orders.Status(status)
		out = append(out, o)
	}
	return out, rows.Err()
}
