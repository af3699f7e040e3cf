package orders

import (
	"context"
	"errors"
)

// CancellationService restores the stock of a pending order and moves
// it to Cancelled. The guarded status transition is the serialization
// point: it is claimed before any stock moves, so neither a duplicate
// cancel nor a concurrent fulfilment can win the order once restoration
// has begun. The reservation ledger keeps the per-item restoration from
// ever running twice.
type CancellationService struct {
	Orders OrderStore
	Coord  *Coordinator
}

func NewCancellationService(store OrderStore, coord *Coordinator) *CancellationService {
	return &CancellationService{Orders: store, Coord: coord}
}

func (s *CancellationService) Cancel(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusPending {
		return s.refuse(ctx, o)
	}

	// Transition first, restore second. Once Cancelled lands, a late
	// Pending→Fulfilled is refused by the transition table, so the
	// increments below can never be credited against a fulfilled order.
	if err := s.Orders.UpdateStatus(ctx, orderID, StatusCancelled); err != nil {
		if !errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		// Lost the race to a duplicate cancel or to fulfilment.
		cur, gerr := s.Orders.Get(ctx, orderID)
		if gerr != nil {
			return nil, gerr
		}
		return s.refuse(ctx, cur)
	}

	if err := s.Coord.Restore(ctx, orderID, o.Items); err != nil {
		return nil, err
	}
	o.Status = StatusCancelled
	return o, nil
}

// refuse reports InvalidTransition for an order this call cannot win.
// A Cancelled order may still hold RESERVED ledger rows when the cancel
// that claimed the transition died mid-restoration, so those are swept
// back before refusing; the ledger claim keeps the sweep from crediting
// anything a finished cancel already restored.
func (s *CancellationService) refuse(ctx context.Context, o *Order) (*Order, error) {
	if o.Status == StatusCancelled {
		if err := s.Coord.Restore(ctx, o.ID, o.Items); err != nil {
			return nil, err
		}
	}
	return nil, ErrInvalidTransition
}
