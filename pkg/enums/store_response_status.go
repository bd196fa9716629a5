package enums

// StoreResponseStatus is a store's answer to the division it was assigned.
// Two spellings exist per outcome: available/accepted confirm, unavailable/rejected decline.
type StoreResponseStatus string

const (
	StoreResponsePending          StoreResponseStatus = "pending"
	StoreResponseAvailable        StoreResponseStatus = "available"
	StoreResponseUnavailable      StoreResponseStatus = "unavailable"
	StoreResponseAccepted         StoreResponseStatus = "accepted"
	StoreResponseRejected         StoreResponseStatus = "rejected"
	StoreResponseCustomerRejected StoreResponseStatus = "customer_rejected"
)

var storeResponseStatuses = closedSet[StoreResponseStatus]{
	StoreResponsePending,
	StoreResponseAvailable,
	StoreResponseUnavailable,
	StoreResponseAccepted,
	StoreResponseRejected,
	StoreResponseCustomerRejected,
}

func (s StoreResponseStatus) String() string { return string(s) }

func (s StoreResponseStatus) IsValid() bool { return storeResponseStatuses.has(s) }

// IsConfirmed reports whether the store agreed to fulfil the division.
func (s StoreResponseStatus) IsConfirmed() bool {
	return s == StoreResponseAvailable || s == StoreResponseAccepted
}

// IsDeclined reports whether the store refused the division.
func (s StoreResponseStatus) IsDeclined() bool {
	return s == StoreResponseUnavailable || s == StoreResponseRejected
}

func ParseStoreResponseStatus(raw string) (StoreResponseStatus, error) {
	return storeResponseStatuses.parse("store response status", raw)
}

// StoreDecision is the action a store submits when answering a division.
type StoreDecision string

const (
	StoreDecisionConfirm StoreDecision = "confirm"
	StoreDecisionDecline StoreDecision = "decline"
)

var storeDecisions = closedSet[StoreDecision]{StoreDecisionConfirm, StoreDecisionDecline}

func (d StoreDecision) IsValid() bool { return storeDecisions.has(d) }
