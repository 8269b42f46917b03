package kafka

import (
	"time"
)

// Config holds producer configuration.
type Config struct {
	Brokers  []string
	ClientID string

	BatchSize    int
	BatchTimeout time.Duration
	// RequiredAcks: 0 none, 1 leader, -1 all in-sync replicas.
	RequiredAcks int
}

// Topics names the streams this service publishes. Ordering is per key
// within a topic, so every event about one order rides the orders topic
// keyed by order ID.
var Topics = struct {
	OrdersEvents     string
	InventoryEvents  string
	ExceptionsEvents string
}{
	OrdersEvents:     "wms.fulfillment.orders.events",
	InventoryEvents:  "wms.fulfillment.inventory.events",
	ExceptionsEvents: "wms.fulfillment.exceptions.events",
}
