package orders

import "strconv"

const (
	TopicOrderCreated  = "dispatch.order.created"
	TopicOrderClaimed  = "dispatch.order.claimed"
	TopicOrderReleased = "dispatch.order.released"
)

var AllTopics = []string{TopicOrderCreated, TopicOrderClaimed, TopicOrderReleased}

// TopicFor memetakan event type ke topic.
func TopicFor(eventType string) string {
	switch eventType {
	case EventOrderClaimed:
		return TopicOrderClaimed
	case EventOrderReleased:
		return TopicOrderReleased
	}
	return TopicOrderCreated
}

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID int64) []byte { return []byte(strconv.FormatInt(orderID, 10)) }
