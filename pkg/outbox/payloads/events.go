package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storeorders/pkg/enums"
)

// DivisionEvent carries the lifecycle events of one division: assigned,
// confirmed, declined, and the completion of all divisions of an original.
type DivisionEvent struct {
	Kind            enums.OutboxEventType `json:"kind"`
	OriginalOrderID string                `json:"original_order_id"`
	DivisionID      uuid.UUID             `json:"division_id"`
	StoreName       string                `json:"store_name"`
	StoreID         *uuid.UUID            `json:"store_id,omitempty"`
	Reason          string                `json:"reason,omitempty"`
	CustomerPhone   *string               `json:"customer_phone,omitempty"`
}

// OrderEvent covers lifecycle changes of a single order row.
type OrderEvent struct {
	Kind            enums.OutboxEventType `json:"kind"`
	OrderID         uuid.UUID             `json:"order_id"`
	OrderCode       *string               `json:"order_code,omitempty"`
	OriginalOrderID string                `json:"original_order_id,omitempty"`
	StoreID         *uuid.UUID            `json:"store_id,omitempty"`
	StoreName       string                `json:"store_name,omitempty"`
	Status          enums.OrderStatus     `json:"status"`
	TotalAmount     decimal.Decimal       `json:"total_amount"`
	StoreNames      []string              `json:"store_names,omitempty"`
	Reason          string                `json:"reason,omitempty"`
	CustomerPhone   *string               `json:"customer_phone,omitempty"`
}
