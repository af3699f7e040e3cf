// Package fulfill consumes order.placed events and moves orders from
// Pending to Fulfilled. Stock stays decremented; Fulfilled is terminal.
package fulfill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/vdeck/vdeck-orders/internal/kafka"
	"github.com/vdeck/vdeck-orders/internal/orders"
	"github.com/vdeck/vdeck-orders/internal/redisx"
)

// Publisher is what the service needs from a kafka producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Orders      orders.OrderStore
	Redis       *redis.Client // optional; dedup and status cache skip when nil
	Producer    Publisher     // publishes order.fulfilled
	ServiceName string
}

// HandleOrderPlaced is wired as the consumer handler.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil // ignore
	}

	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, "fulfill", env.EventID)
		if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		return err
	}

	err = s.Orders.UpdateStatus(ctx, p.OrderID, orders.StatusFulfilled)
	switch {
	case errors.Is(err, orders.ErrInvalidTransition):
		return nil // replayed event or already cancelled; nothing to do
	case errors.Is(err, orders.ErrOrderNotFound):
		return nil
	case err != nil:
		return err
	}

	if s.Redis != nil {
		skey := fmt.Sprintf(redisx.KeyOrderStatus, p.OrderID)
		_ = s.Redis.Set(ctx, skey, `{"status":"Fulfilled"}`, redisx.TTLStatusCache).Err()
	}

	if s.Producer != nil {
		ev := orders.Envelope{
			EventID:       uuid.NewString(),
			EventType:     orders.EventOrderFulfilled,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      s.ServiceName,
			TraceID:       env.TraceID,
			CorrelationID: p.OrderID,
			Payload:       kafkax.MustMarshal(orders.OrderFulfilledPayload{OrderID: p.OrderID}),
		}
		s.Producer.Publish(orders.PartitionKey(p.OrderID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderFulfilled)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}
	return nil
}
