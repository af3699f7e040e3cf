// Package memstore implements the storage ports on plain maps. It backs
// the test suite and small deployments; the stock counters use one
// mutex per product, so the coordinator's canonical decrement order is
// exactly what keeps concurrent reservations deadlock-free here.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vdeck/vdeck-orders/internal/orders"
)

type productEntry struct {
	mu sync.Mutex
	p  orders.Product
}

type reservationKey struct {
	orderID   string
	productID string
}

type Store struct {
	mu           sync.RWMutex
	products     map[string]*productEntry
	ordersByID   map[string]orders.Order
	reservations map[reservationKey]orders.Reservation
}

func New() *Store {
	return &Store{
		products:     make(map[string]*productEntry),
		ordersByID:   make(map[string]orders.Order),
		reservations: make(map[reservationKey]orders.Reservation),
	}
}

var (
	_ orders.StockStore     = (*Store)(nil)
	_ orders.OrderStore     = (*Store)(nil)
	_ orders.ReservationLog = (*Store)(nil)
	_ orders.Catalog        = (*Store)(nil)
)

func (s *Store) product(id string) (*productEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.products[id]
	return e, ok
}

// StockStore

func (s *Store) TryDecrement(ctx context.Context, productID string, qty int) (bool, error) {
	e, ok := s.product(productID)
	if !ok {
		return false, orders.ErrProductNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.p.Stock < qty {
		return false, nil
	}
	e.p.Stock -= qty
	e.p.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *Store) Increment(ctx context.Context, productID string, qty int) error {
	e, ok := s.product(productID)
	if !ok {
		return orders.ErrProductNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.p.Stock += qty
	e.p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) Stock(ctx context.Context, productID string) (int, error) {
	e, ok := s.product(productID)
	if !ok {
		return 0, orders.ErrProductNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.p.Stock, nil
}

// OrderStore

func (s *Store) Create(ctx context.Context, o *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	s.ordersByID[o.ID] = *o
	return nil
}

func (s *Store) Get(ctx context.Context, orderID string) (*orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.ordersByID[orderID]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	cp := o
	return &cp, nil
}

func (s *Store) UpdateStatus(ctx context.Context, orderID string, to orders.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.ordersByID[orderID]
	if !ok {
		return orders.ErrOrderNotFound
	}
	if !orders.CanTransition(o.Status, to) {
		return orders.ErrInvalidTransition
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	s.ordersByID[orderID] = o
	return nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]orders.Order, 0, len(s.ordersByID))
	for _, o := range s.ordersByID {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ReservationLog

func (s *Store) Add(ctx context.Context, orderID, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := reservationKey{orderID, productID}
	if _, exists := s.reservations[k]; exists {
		return nil // replay of the same line
	}
	s.reservations[k] = orders.Reservation{
		OrderID:   orderID,
		ProductID: productID,
		Qty:       qty,
		Status:    orders.ReservationReserved,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *Store) Release(ctx context.Context, orderID, productID string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := reservationKey{orderID, productID}
	r, ok := s.reservations[k]
	if !ok || r.Status != orders.ReservationReserved {
		return 0, false, nil
	}
	r.Status = orders.ReservationReleased
	s.reservations[k] = r
	return r.Qty, true, nil
}

// Catalog

func (s *Store) CreateProduct(ctx context.Context, p *orders.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.products[p.ID] = &productEntry{p: *p}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, productID string) (*orders.Product, error) {
	e, ok := s.product(productID)
	if !ok {
		return nil, orders.ErrProductNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := e.p
	return &cp, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]orders.Product, error) {
	s.mu.RLock()
	entries := make([]*productEntry, 0, len(s.products))
	for _, e := range s.products {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]orders.Product, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.p)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeleteProduct(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[productID]; !ok {
		return orders.ErrProductNotFound
	}
	delete(s.products, productID)
	return nil
}
