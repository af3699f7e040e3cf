package orders

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	Stock       int       `json:"stock"`
	PriceCents  int       `json:"price_cents"`
	BestSeller  bool      `json:"best_seller"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Customer is the contact/address block captured with every order.
type Customer struct {
	FullName string `json:"fullname"`
	GCash    string `json:"gcash"`
	Address  string `json:"address"`
}

// LineItem snapshots the unit price at order time; it is never re-read
// from the catalog afterwards.
type LineItem struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int    `json:"unit_price_cents"`
}

type Order struct {
	ID              string     `json:"id"`
	Customer        Customer   `json:"customer"`
	Items           []LineItem `json:"items"`
	TotalCents      int        `json:"total_cents"`
	PaymentProofURL string     `json:"payment_proof_url,omitempty"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Reservation is one ledger row per reserved line. Restoration claims
// the row (RESERVED -> RELEASED) before incrementing stock, so a retried
// or duplicate restore can never credit the same line twice.
type Reservation struct {
	OrderID   string
	ProductID string
	Qty       int
	Status    string // RESERVED | RELEASED
	CreatedAt time.Time
}

const (
	ReservationReserved = "RESERVED"
	ReservationReleased = "RELEASED"
)
