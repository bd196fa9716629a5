package enums

// OrderStatus tracks the fulfilment lifecycle of an original or division order.
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "pending"
	OrderStatusAssigned         OrderStatus = "assigned"
	OrderStatusPreparing        OrderStatus = "preparing"
	OrderStatusReady            OrderStatus = "ready"
	OrderStatusDelivered        OrderStatus = "delivered"
	OrderStatusCancelled        OrderStatus = "cancelled"
	OrderStatusReturned         OrderStatus = "returned"
	OrderStatusRejected         OrderStatus = "rejected"
	OrderStatusCustomerRejected OrderStatus = "customer_rejected"
)

var orderStatuses = closedSet[OrderStatus]{
	OrderStatusPending,
	OrderStatusAssigned,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturned,
	OrderStatusRejected,
	OrderStatusCustomerRejected,
}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool { return orderStatuses.has(s) }

// IsTerminal reports whether no further store action applies.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned, OrderStatusCustomerRejected:
		return true
	}
	return false
}

func ParseOrderStatus(raw string) (OrderStatus, error) {
	return orderStatuses.parse("order status", raw)
}
