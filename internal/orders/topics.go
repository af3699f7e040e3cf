package orders

const (
	TopicOrderPlaced    = "order.placed"
	TopicOrderCancelled = "order.cancelled"
	TopicOrderFulfilled = "order.fulfilled"
	TopicStockRejected  = "order.stock.rejected"
)

// Partition key = order_id so all events of one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
