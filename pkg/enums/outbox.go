package enums

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateDivision     OutboxAggregateType = "division"
	AggregateNotification OutboxAggregateType = "notification"
)

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderAssigned         OutboxEventType = "order_assigned"
	EventDivisionAssigned      OutboxEventType = "division_assigned"
	EventDivisionConfirmed     OutboxEventType = "division_confirmed"
	EventDivisionDeclined      OutboxEventType = "division_declined"
	EventAllDivisionsCompleted OutboxEventType = "all_divisions_completed"
	EventOrderDelivered        OutboxEventType = "order_delivered"
	EventOrderReturned         OutboxEventType = "order_returned"
	EventOrderCustomerRejected OutboxEventType = "order_customer_rejected"
)

var outboxEventTypes = closedSet[OutboxEventType]{
	EventOrderCreated,
	EventOrderAssigned,
	EventDivisionAssigned,
	EventDivisionConfirmed,
	EventDivisionDeclined,
	EventAllDivisionsCompleted,
	EventOrderDelivered,
	EventOrderReturned,
	EventOrderCustomerRejected,
}

func (e OutboxEventType) IsValid() bool { return outboxEventTypes.has(e) }

// OutboxDLQErrorReason records why the publisher gave up on an outbox row.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts: publishing kept failing until the attempt budget ran out.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable: Pub/Sub rejected the message permanently.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// OutboxDLQReasonUnresolvable: the row's event type or envelope could not be decoded.
	OutboxDLQReasonUnresolvable OutboxDLQErrorReason = "unresolvable"
)
