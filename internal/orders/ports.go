package orders

import "context"

// StockStore holds the per-product counters. TryDecrement and Increment
// are the only two mutations; both must be atomic at the storage layer
// (conditional update or equivalent), never an application-held lock
// spanning I/O.
type StockStore interface {
	// TryDecrement subtracts qty iff the current stock covers it and
	// reports whether it did. Insufficiency is a false return, not an
	// error. Returns ErrProductNotFound for unknown ids.
	TryDecrement(ctx context.Context, productID string, qty int) (bool, error)

	// Increment adds qty back unconditionally. Used only to compensate
	// a prior successful decrement.
	Increment(ctx context.Context, productID string, qty int) error

	Stock(ctx context.Context, productID string) (int, error)
}

// OrderStore persists order records. UpdateStatus enforces the
// transition table and is the serialization point for concurrent
// cancellations.
type OrderStore interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, orderID string) (*Order, error)
	UpdateStatus(ctx context.Context, orderID string, to Status) error
	ListRecent(ctx context.Context, limit int) ([]Order, error)
}

// ReservationLog records which lines of an order still hold reserved
// stock. Release claims a row exactly once; only the claimant may
// increment stock back, which is what makes restoration idempotent.
type ReservationLog interface {
	Add(ctx context.Context, orderID, productID string, qty int) error

	// Release flips (orderID, productID) from RESERVED to RELEASED and
	// returns the reserved qty. claimed is false when the row was
	// already released or never existed.
	Release(ctx context.Context, orderID, productID string) (qty int, claimed bool, err error)
}

// Catalog is the product surface the thin HTTP adapter needs. Stock is
// read through it but only ever mutated through StockStore.
type Catalog interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, productID string) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}
