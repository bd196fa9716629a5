package orders

import (
	"github.com/angelmondragon/storeorders/internal/divisions"
	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/enums"
	"github.com/angelmondragon/storeorders/pkg/outbox"
	"github.com/angelmondragon/storeorders/pkg/outbox/payloads"
)

func orderEvent(order *models.Order, kind enums.OutboxEventType, reason string, actor *outbox.ActorRef) outbox.DomainEvent {
	payload := payloads.OrderEvent{
		Kind:          kind,
		OrderID:       order.ID,
		OrderCode:     order.OrderCode,
		StoreID:       order.AssignedStoreID,
		StoreName:     order.StoreName(),
		Status:        order.OrderStatus,
		TotalAmount:   order.TotalAmount,
		StoreNames:    order.Items.StoreNames(),
		Reason:        reason,
		CustomerPhone: order.CustomerPhone,
	}
	if ref, ok := divisions.OriginalRef(order); ok {
		payload.OriginalOrderID = ref
	}
	return outbox.DomainEvent{
		EventType:     kind,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data:          payload,
	}
}

func divisionEvent(order *models.Order, kind enums.OutboxEventType, reason string, actor *outbox.ActorRef) outbox.DomainEvent {
	payload := payloads.DivisionEvent{
		Kind:          kind,
		DivisionID:    order.ID,
		StoreName:     order.StoreName(),
		StoreID:       order.AssignedStoreID,
		Reason:        reason,
		CustomerPhone: order.CustomerPhone,
	}
	if ref, ok := divisions.OriginalRef(order); ok {
		payload.OriginalOrderID = ref
	}
	return outbox.DomainEvent{
		EventType:     kind,
		AggregateType: enums.AggregateDivision,
		AggregateID:   order.ID,
		Actor:         actor,
		Data:          payload,
	}
}
