package orders_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdeck/vdeck-orders/internal/memstore"
	"github.com/vdeck/vdeck-orders/internal/orders"
)

func newPlacement(store *memstore.Store) *orders.PlacementService {
	return orders.NewPlacementService(store, newCoordinator(store))
}

func validRequest(items ...orders.LineItem) orders.PlaceRequest {
	total := 0
	for _, it := range items {
		total += it.Quantity * it.UnitPriceCents
	}
	return orders.PlaceRequest{
		Customer:   orders.Customer{FullName: "Maria Cruz", GCash: "09171234567", Address: "12 Rizal St"},
		Items:      items,
		TotalCents: total,
	}
}

func TestPlace_HappyPath(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	seed(t, store, "a", 5)
	svc := newPlacement(store)

	o, err := svc.Place(ctx, validRequest(orders.LineItem{ProductID: "a", Quantity: 3, UnitPriceCents: 100}))
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, 300, o.TotalCents)
	assert.False(t, o.CreatedAt.IsZero())

	assert.Equal(t, 2, stockOf(t, store, "a"))

	persisted, err := store.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, persisted.ID)
	assert.Equal(t, "Maria Cruz", persisted.Customer.FullName)
}

func TestPlace_Validation(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	seed(t, store, "a", 5)
	svc := newPlacement(store)

	item := orders.LineItem{ProductID: "a", Quantity: 1, UnitPriceCents: 100}

	cases := []struct {
		name   string
		mutate func(*orders.PlaceRequest)
		field  string
	}{
		{"missing fullname", func(r *orders.PlaceRequest) { r.Customer.FullName = " " }, "fullname"},
		{"missing gcash", func(r *orders.PlaceRequest) { r.Customer.GCash = "" }, "gcash"},
		{"missing address", func(r *orders.PlaceRequest) { r.Customer.Address = "" }, "address"},
		{"empty items", func(r *orders.PlaceRequest) { r.Items = nil }, "items"},
		{"zero quantity", func(r *orders.PlaceRequest) { r.Items[0].Quantity = 0 }, "items.quantity"},
		{"negative quantity", func(r *orders.PlaceRequest) { r.Items[0].Quantity = -2 }, "items.quantity"},
		{"blank product id", func(r *orders.PlaceRequest) { r.Items[0].ProductID = "" }, "items.product_id"},
		{"negative price", func(r *orders.PlaceRequest) { r.Items[0].UnitPriceCents = -1 }, "items.unit_price_cents"},
		{"negative total", func(r *orders.PlaceRequest) { r.TotalCents = -5 }, "total_cents"},
		{"total mismatch", func(r *orders.PlaceRequest) { r.TotalCents = 1 }, "total_cents"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest(item)
			tc.mutate(&req)
			_, err := svc.Place(ctx, req)
			var invalid *orders.InvalidRequestError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tc.field, invalid.Field)
			// validation happens before any mutation
			assert.Equal(t, 5, stockOf(t, store, "a"))
		})
	}
}

func TestPlace_InsufficientStock_NoOrderNoLeak(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	seed(t, store, "a", 5)
	seed(t, store, "b", 0)
	svc := newPlacement(store)

	_, err := svc.Place(ctx, validRequest(
		orders.LineItem{ProductID: "a", Quantity: 2, UnitPriceCents: 100},
		orders.LineItem{ProductID: "b", Quantity: 1, UnitPriceCents: 200},
	))
	var short *orders.InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, "b", short.ProductID)

	// first item's stock is exactly what it was before the call
	assert.Equal(t, 5, stockOf(t, store, "a"))

	recent, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent, "no order record may exist after a failed placement")
}

// failingOrders rejects Create to prove the reservation is compensated
// when order persistence fails.
type failingOrders struct{ orders.OrderStore }

func (f *failingOrders) Create(ctx context.Context, o *orders.Order) error {
	return errors.New("store unavailable")
}

func TestPlace_OrderCreateFails_Compensates(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	seed(t, store, "a", 5)

	svc := orders.NewPlacementService(&failingOrders{OrderStore: store}, newCoordinator(store))

	_, err := svc.Place(ctx, validRequest(orders.LineItem{ProductID: "a", Quantity: 3, UnitPriceCents: 100}))
	var storageErr *orders.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "orders.create", storageErr.Op)

	assert.Equal(t, 5, stockOf(t, store, "a"))
}

// Spec scenario: stock 5, place 3, place 3 again -> shortfall {3, 2},
// cancel the first -> stock back to 5.
func TestPlaceAndCancel_Scenario(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	seed(t, store, "a", 5)
	coord := newCoordinator(store)
	place := orders.NewPlacementService(store, coord)
	cancel := orders.NewCancellationService(store, coord)

	first, err := place.Place(ctx, validRequest(orders.LineItem{ProductID: "a", Quantity: 3, UnitPriceCents: 100}))
	require.NoError(t, err)
	assert.Equal(t, 2, stockOf(t, store, "a"))

	_, err = place.Place(ctx, validRequest(orders.LineItem{ProductID: "a", Quantity: 3, UnitPriceCents: 100}))
	var short *orders.InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, "a", short.ProductID)
	assert.Equal(t, 3, short.Requested)
	assert.Equal(t, 2, short.Available)
	assert.Equal(t, 2, stockOf(t, store, "a"))

	_, err = cancel.Cancel(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stockOf(t, store, "a"))
}

// K concurrent unit placements against stock S: at most S succeed and
// the final counter equals S minus the successes.
func TestPlace_ConcurrentNoOversell(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	const stock = 20
	const callers = 100
	seed(t, store, "a", stock)
	svc := newPlacement(store)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Place(ctx, validRequest(orders.LineItem{ProductID: "a", Quantity: 1, UnitPriceCents: 50}))
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			var short *orders.InsufficientStockError
			assert.ErrorAs(t, err, &short)
		}()
	}
	wg.Wait()

	assert.Equal(t, stock, successes)
	assert.Equal(t, 0, stockOf(t, store, "a"))
}
