package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// PlaceRequest carries everything the buyer submits. The payment proof
// has already been stored by the transport layer; only its URL travels
// through the core.
type PlaceRequest struct {
	Customer        Customer
	Items           []LineItem
	TotalCents      int
	PaymentProofURL string
}

// PlacementService validates a request, reserves stock and persists the
// order, guaranteeing an all-or-nothing outcome: either the order is
// visible with its stock durably decremented, or no inventory moved.
type PlacementService struct {
	Orders OrderStore
	Coord  *Coordinator
}

func NewPlacementService(store OrderStore, coord *Coordinator) *PlacementService {
	return &PlacementService{Orders: store, Coord: coord}
}

func (s *PlacementService) Place(ctx context.Context, req PlaceRequest) (*Order, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	// The id is assigned before reservation so the ledger rows can be
	// keyed by it; the order record itself is only created after the
	// whole reservation succeeds. Reserve-then-persist: a rejected
	// request must never leave a visible order behind.
	o := &Order{
		ID:              uuid.NewString(),
		Customer:        req.Customer,
		Items:           req.Items,
		TotalCents:      req.TotalCents,
		PaymentProofURL: req.PaymentProofURL,
		Status:          StatusPending,
	}

	if err := s.Coord.Reserve(ctx, o.ID, req.Items); err != nil {
		return nil, err
	}

	if err := s.Orders.Create(ctx, o); err != nil {
		// Order creation sits inside the same all-or-nothing unit as
		// the reservation: give the stock back before surfacing.
		if rbErr := s.Coord.Restore(ctx, o.ID, req.Items); rbErr != nil {
			return nil, rbErr
		}
		return nil, &StorageError{Op: "orders.create", Err: err}
	}
	return o, nil
}

func validate(req PlaceRequest) error {
	switch {
	case strings.TrimSpace(req.Customer.FullName) == "":
		return &InvalidRequestError{Field: "fullname", Reason: "required"}
	case strings.TrimSpace(req.Customer.GCash) == "":
		return &InvalidRequestError{Field: "gcash", Reason: "required"}
	case strings.TrimSpace(req.Customer.Address) == "":
		return &InvalidRequestError{Field: "address", Reason: "required"}
	case len(req.Items) == 0:
		return &InvalidRequestError{Field: "items", Reason: "must not be empty"}
	}
	sum := 0
	for _, it := range req.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			return &InvalidRequestError{Field: "items.product_id", Reason: "required"}
		}
		if it.Quantity <= 0 {
			return &InvalidRequestError{Field: "items.quantity", Reason: "must be positive"}
		}
		if it.UnitPriceCents < 0 {
			return &InvalidRequestError{Field: "items.unit_price_cents", Reason: "must not be negative"}
		}
		sum += it.Quantity * it.UnitPriceCents
	}
	if req.TotalCents < 0 {
		return &InvalidRequestError{Field: "total_cents", Reason: "must not be negative"}
	}
	if req.TotalCents != sum {
		return &InvalidRequestError{Field: "total_cents", Reason: "does not match item sum"}
	}
	return nil
}
