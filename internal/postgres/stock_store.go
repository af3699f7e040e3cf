package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vdeck/vdeck-orders/internal/orders"
)

// StockStore keeps the counters in the products table. The conditional
// decrement is a single guarded UPDATE, so concurrent callers serialize
// on the row and no interleaving can drive stock negative. No SELECT
// FOR UPDATE, no read-check-write window.
type StockStore struct{ DB *pgxpool.Pool }

var _ orders.StockStore = (*StockStore)(nil)

func (s *StockStore) TryDecrement(ctx context.Context, productID string, qty int) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`, productID, qty)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 1 {
		return true, nil
	}
	// Guard refused: either the product is unknown or stock is short.
	var exists bool
	if err := s.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id=$1)`, productID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, orders.ErrProductNotFound
	}
	return false, nil
}

func (s *StockStore) Increment(ctx context.Context, productID string, qty int) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return orders.ErrProductNotFound
	}
	return nil
}

func (s *StockStore) Stock(ctx context.Context, productID string) (int, error) {
	var stock int
	err := s.DB.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, orders.ErrProductNotFound
	}
	if err != nil {
		return 0, err
	}
	return stock, nil
}

// ReservationLog rows live in the reservations table; the release claim
// is the same guarded-UPDATE trick keyed on status.
type ReservationLog struct{ DB *pgxpool.Pool }

var _ orders.ReservationLog = (*ReservationLog)(nil)

func (r *ReservationLog) Add(ctx context.Context, orderID, productID string, qty int) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO reservations(order_id, product_id, qty, status)
		VALUES ($1, $2, $3, 'RESERVED')
		ON CONFLICT (order_id, product_id) DO NOTHING`, orderID, productID, qty)
	return err
}

func (r *ReservationLog) Release(ctx context.Context, orderID, productID string) (int, bool, error) {
	var qty int
	err := r.DB.QueryRow(ctx, `
		UPDATE reservations SET status='RELEASED'
		WHERE order_id=$1 AND product_id=$2 AND status='RESERVED'
		RETURNING qty`, orderID, productID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return qty, true, nil
}
