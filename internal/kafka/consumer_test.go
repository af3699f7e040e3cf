package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestEventType_FromHeader(t *testing.T) {
	m := kafka.Message{
		Topic: "order.placed",
		Headers: []kafka.Header{
			{Key: "x-event-version", Value: []byte("1")},
			{Key: "x-event-type", Value: []byte("OrderPlaced")},
		},
	}
	assert.Equal(t, "OrderPlaced", eventType(m))
}

func TestEventType_FallsBackToTopic(t *testing.T) {
	m := kafka.Message{Topic: "order.placed"}
	assert.Equal(t, "order.placed", eventType(m))
}
