package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/vdeck/vdeck-orders/internal/kafka"
	"github.com/vdeck/vdeck-orders/internal/orders"
	"github.com/vdeck/vdeck-orders/internal/redisx"
	"github.com/vdeck/vdeck-orders/internal/uploads"
)

const maxUploadBytes = 10 << 20

// Publisher is the slice of kafkax.Producer the handlers need.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type PlaceOrderReq struct {
	ExternalID      string            `json:"external_id,omitempty"`
	FullName        string            `json:"fullname"`
	GCash           string            `json:"gcash"`
	Address         string            `json:"address"`
	Items           []orders.LineItem `json:"items"`
	TotalCents      int               `json:"total_cents"`
	PaymentProofURL string            `json:"payment_proof_url,omitempty"`
}

type PlaceOrderResp struct {
	Order      *orders.Order `json:"order"`
	Idempotent bool          `json:"idempotent"`
}

type OrdersHandler struct {
	Placement *orders.PlacementService
	Cancel    *orders.CancellationService
	Store     orders.OrderStore
	Proofs    uploads.Store
	Redis     *redis.Client // optional

	ProducerPlaced    Publisher // optional
	ProducerCancelled Publisher
	ProducerRejected  Publisher

	Service string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.placeOrder)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the core error taxonomy onto status codes.
func writeErr(w http.ResponseWriter, err error) {
	var invalid *orders.InvalidRequestError
	var short *orders.InsufficientStockError
	var comp *orders.CompensationError
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid request", "field": invalid.Field, "reason": invalid.Reason,
		})
	case errors.As(err, &short):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "insufficient stock",
			"product_id": short.ProductID,
			"requested":  short.Requested,
			"available":  short.Available,
		})
	case errors.Is(err, orders.ErrOrderNotFound), errors.Is(err, orders.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &comp):
		// stock is durably short; make the failure loud
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodePlaceRequest(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Fast-path idempotency: a replayed external_id returns the order
	// it created the first time.
	if req.ExternalID != "" && h.Redis != nil {
		idemKey := fmt.Sprintf(redisx.KeyIdemOrderPlace, req.ExternalID)
		if orderID, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && orderID != "" {
			if o, err := h.Store.Get(ctx, orderID); err == nil {
				writeJSON(w, http.StatusOK, PlaceOrderResp{Order: o, Idempotent: true})
				return
			}
		}
	}

	o, err := h.Placement.Place(ctx, orders.PlaceRequest{
		Customer:        orders.Customer{FullName: req.FullName, GCash: req.GCash, Address: req.Address},
		Items:           req.Items,
		TotalCents:      req.TotalCents,
		PaymentProofURL: req.PaymentProofURL,
	})
	if err != nil {
		h.publishRejected(err)
		writeErr(w, err)
		return
	}

	if h.Redis != nil {
		if req.ExternalID != "" {
			idemKey := fmt.Sprintf(redisx.KeyIdemOrderPlace, req.ExternalID)
			_ = h.Redis.Set(ctx, idemKey, o.ID, redisx.TTLIdempotency).Err()
		}
		statusKey := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
		_ = h.Redis.Set(ctx, statusKey, `{"status":"Pending"}`, redisx.TTLStatusCache).Err()
	}

	h.publish(h.ProducerPlaced, orders.EventOrderPlaced, o.ID, r.Header.Get("X-Request-Id"),
		orders.OrderPlacedPayload{OrderID: o.ID, Customer: o.Customer, Items: o.Items, TotalCents: o.TotalCents})

	writeJSON(w, http.StatusCreated, PlaceOrderResp{Order: o})
}

// decodePlaceRequest accepts plain JSON or multipart form data with a
// paymentProof file. The proof is stored before any stock is touched;
// if storing it fails the request is rejected as invalid, never
// half-placed.
func (h *OrdersHandler) decodePlaceRequest(r *http.Request) (PlaceOrderReq, error) {
	var req PlaceOrderReq

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return req, &orders.InvalidRequestError{Field: "body", Reason: "malformed multipart form"}
		}
		req.ExternalID = r.FormValue("external_id")
		req.FullName = r.FormValue("fullname")
		req.GCash = r.FormValue("gcash")
		req.Address = r.FormValue("address")
		if items := r.FormValue("items"); items != "" {
			if err := json.Unmarshal([]byte(items), &req.Items); err != nil {
				return req, &orders.InvalidRequestError{Field: "items", Reason: "invalid json"}
			}
		}
		if _, err := fmt.Sscanf(r.FormValue("total_cents"), "%d", &req.TotalCents); err != nil {
			return req, &orders.InvalidRequestError{Field: "total_cents", Reason: "not a number"}
		}

		file, hdr, err := r.FormFile("paymentProof")
		if err == nil {
			defer file.Close()
			data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
			if err != nil {
				return req, &orders.InvalidRequestError{Field: "paymentProof", Reason: "unreadable upload"}
			}
			url, err := h.Proofs.Store(r.Context(), data, "orders", hdr.Filename)
			if err != nil {
				return req, &orders.InvalidRequestError{Field: "paymentProof", Reason: "upload failed"}
			}
			req.PaymentProofURL = url
		}
		return req, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, &orders.InvalidRequestError{Field: "body", Reason: "invalid json"}
	}
	return req, nil
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Cancel.Cancel(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}

	if h.Redis != nil {
		statusKey := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
		_ = h.Redis.Set(ctx, statusKey, `{"status":"Cancelled"}`, redisx.TTLStatusCache).Err()
	}

	h.publish(h.ProducerCancelled, orders.EventOrderCancelled, o.ID, r.Header.Get("X-Request-Id"),
		orders.OrderCancelledPayload{OrderID: o.ID, Items: o.Items})

	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Store.Get(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getOrderStatus answers from the redis cache when it can.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	o, err := h.Store.Get(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	body := map[string]any{"status": o.Status}
	b, _ := json.Marshal(body)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Store.ListRecent(ctx, 100)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) publish(p Publisher, eventType, orderID, trace string, payload any) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) publishRejected(err error) {
	var short *orders.InsufficientStockError
	if !errors.As(err, &short) {
		return
	}
	h.publish(h.ProducerRejected, orders.EventStockRejected, "", "",
		orders.StockRejectedPayload{
			Reason: "OUT_OF_STOCK",
			Details: []orders.StockRejectedDetail{
				{ProductID: short.ProductID, Required: short.Requested, Available: short.Available},
			},
		})
}
