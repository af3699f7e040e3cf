package kafka

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler must return nil only when the message was processed and the
// offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	topic   string
	workers int
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, topic: topic, workers: workers}
}

// eventType reads the x-event-type header every producer in this system
// attaches to its envelopes. Messages without it (foreign producers,
// hand-published test records) fall back to the topic name.
func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "x-event-type" {
			return string(h.Value)
		}
	}
	return m.Topic
}

func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 1024)
	errs := make(chan error, c.workers)

	for i := 0; i < c.workers; i++ {
		go func() {
			for m := range jobs {
				if err := h(ctx, m); err != nil {
					errs <- fmt.Errorf("handle %s partition=%d offset=%d: %w",
						eventType(m), m.Partition, m.Offset, err)
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					errs <- fmt.Errorf("commit partition=%d offset=%d: %w", m.Partition, m.Offset, err)
				}
			}
		}()
	}

	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			close(jobs)
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			close(jobs)
			return nil
		}

		// drain worker errors without blocking the dispatcher
		select {
		case e := <-errs:
			log.Printf("consumer %s: %v", c.topic, e)
			time.Sleep(200 * time.Millisecond)
		default:
		}
	}
}
