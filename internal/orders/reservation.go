package orders

import (
	"context"
	"errors"
	"log"
	"sort"
)

// Coordinator turns N independent single-key stock decrements into one
// all-or-nothing reservation: a canonical decrement order prevents
// deadlock under per-key locking, and explicit compensation restores
// atomicity when a later step fails.
type Coordinator struct {
	Stock   StockStore
	Log     ReservationLog
	Backoff Backoff
}

func NewCoordinator(stock StockStore, rlog ReservationLog) *Coordinator {
	return &Coordinator{Stock: stock, Log: rlog, Backoff: DefaultBackoff}
}

// dedupe collapses repeated product ids by summing quantities and
// returns the result sorted by product id. Two decrements against the
// same product from one request would break the lock-ordering
// discipline, and the sort is the deadlock-avoidance mechanism itself.
func dedupe(items []LineItem) []LineItem {
	byID := make(map[string]int, len(items))
	for _, it := range items {
		byID[it.ProductID] += it.Quantity
	}
	out := make([]LineItem, 0, len(byID))
	for id, qty := range byID {
		out = append(out, LineItem{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Reserve decrements stock for every line or for none. On any shortage
// or storage error partway through, every decrement that already landed
// is rolled back before the error is returned.
func (c *Coordinator) Reserve(ctx context.Context, orderID string, items []LineItem) error {
	plan := dedupe(items)

	done := make([]LineItem, 0, len(plan))
	for _, it := range plan {
		ok, err := c.Stock.TryDecrement(ctx, it.ProductID, it.Quantity)
		if err != nil {
			if rbErr := c.rollback(ctx, orderID, done); rbErr != nil {
				return rbErr
			}
			if errors.Is(err, ErrProductNotFound) {
				return err
			}
			return &StorageError{Op: "stock.decrement", Err: err}
		}
		if !ok {
			avail, aerr := c.Stock.Stock(ctx, it.ProductID)
			if aerr != nil {
				// the shortage still stands; report it with a zero
				// snapshot rather than masking it with a read error
				log.Printf("stock snapshot failed: product=%s: %v", it.ProductID, aerr)
			}
			if rbErr := c.rollback(ctx, orderID, done); rbErr != nil {
				return rbErr
			}
			return &InsufficientStockError{ProductID: it.ProductID, Requested: it.Quantity, Available: avail}
		}
		if err := c.Log.Add(ctx, orderID, it.ProductID, it.Quantity); err != nil {
			// The decrement landed without a ledger row; put it back
			// directly, then unwind the rest through the ledger. A
			// failed credit outranks the ledger error: stock is durably
			// short until an operator intervenes.
			if cbErr := c.creditBack(ctx, orderID, it.ProductID, it.Quantity); cbErr != nil {
				return cbErr
			}
			if rbErr := c.rollback(ctx, orderID, done); rbErr != nil {
				return rbErr
			}
			return &StorageError{Op: "reservation.add", Err: err}
		}
		done = append(done, it)
	}
	return nil
}

// Restore credits back every line of the order that still holds a
// reservation. Already-released lines are skipped via the ledger claim,
// so the call is idempotent and safe to retry after a partial failure.
func (c *Coordinator) Restore(ctx context.Context, orderID string, items []LineItem) error {
	return c.rollback(ctx, orderID, dedupe(items))
}

func (c *Coordinator) rollback(ctx context.Context, orderID string, items []LineItem) error {
	// Compensation must run even when the caller's deadline already
	// fired; a lost increment is worse than a slow response.
	ctx = context.WithoutCancel(ctx)
	for _, it := range items {
		var qty int
		var claimed bool
		err := c.Backoff.retry(ctx, func() error {
			var rerr error
			qty, claimed, rerr = c.Log.Release(ctx, orderID, it.ProductID)
			return rerr
		})
		if err != nil {
			return &CompensationError{OrderID: orderID, ProductID: it.ProductID, Qty: it.Quantity, Err: err}
		}
		if !claimed {
			continue // released by an earlier attempt
		}
		if err := c.creditBack(ctx, orderID, it.ProductID, qty); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) creditBack(ctx context.Context, orderID, productID string, qty int) error {
	err := c.Backoff.retry(ctx, func() error {
		return c.Stock.Increment(ctx, productID, qty)
	})
	if err != nil {
		log.Printf("compensation exhausted: order=%s product=%s qty=%d: %v", orderID, productID, qty, err)
		return &CompensationError{OrderID: orderID, ProductID: productID, Qty: qty, Err: err}
	}
	return nil
}
