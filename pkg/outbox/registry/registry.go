// Package registry knows every outbox event type: which aggregate emits it,
// which topic carries it, and how each envelope version decodes.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/storeorders/pkg/config"
	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/enums"
	"github.com/angelmondragon/storeorders/pkg/outbox"
	"github.com/angelmondragon/storeorders/pkg/outbox/payloads"
)

// DecoderFunc turns the data of an envelope into its typed payload value.
type DecoderFunc func(data json.RawMessage) (any, error)

type catalogEntry struct {
	aggregate enums.OutboxAggregateType
	decode    DecoderFunc
}

// catalog lists the v1 shape of every event the order services emit.
var catalog = map[enums.OutboxEventType]catalogEntry{
	enums.EventDivisionAssigned:      {enums.AggregateDivision, decodeAs[payloads.DivisionEvent]},
	enums.EventDivisionConfirmed:     {enums.AggregateDivision, decodeAs[payloads.DivisionEvent]},
	enums.EventDivisionDeclined:      {enums.AggregateDivision, decodeAs[payloads.DivisionEvent]},
	enums.EventAllDivisionsCompleted: {enums.AggregateOrder, decodeAs[payloads.DivisionEvent]},
	enums.EventOrderCreated:          {enums.AggregateOrder, decodeAs[payloads.OrderEvent]},
	enums.EventOrderAssigned:         {enums.AggregateOrder, decodeAs[payloads.OrderEvent]},
	enums.EventOrderDelivered:        {enums.AggregateOrder, decodeAs[payloads.OrderEvent]},
	enums.EventOrderReturned:         {enums.AggregateOrder, decodeAs[payloads.OrderEvent]},
	enums.EventOrderCustomerRejected: {enums.AggregateOrder, decodeAs[payloads.OrderEvent]},
}

func decodeAs[T any](data json.RawMessage) (any, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry holds payload decoders keyed by event type and envelope
// version. Consumers use it to skip versions they do not understand.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[decoderKey]DecoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: map[decoderKey]DecoderFunc{}}
}

// NewOrderEventDecoders returns the v1 decoders of every cataloged event.
func NewOrderEventDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	for eventType, entry := range catalog {
		reg.Register(eventType, 1, entry.decode)
	}
	return reg
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decode DecoderFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[decoderKey{eventType, version}] = decode
}

func (r *DecoderRegistry) Has(eventType enums.OutboxEventType, version int) bool {
	_, ok := r.lookup(eventType, version)
	return ok
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	decode, ok := r.lookup(eventType, version)
	if !ok {
		return nil, fmt.Errorf("no decoder for %s@v%d", eventType, version)
	}
	return decode(data)
}

func (r *DecoderRegistry) lookup(eventType enums.OutboxEventType, version int) (DecoderFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decode, ok := r.decoders[decoderKey{eventType, version}]
	return decode, ok
}

// EventDescriptor is the routing of one event type.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row checked against the catalog, with its
// envelope and typed payload.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row that no amount of retrying will publish.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

// EventRegistry resolves outbox rows for the publisher.
type EventRegistry struct {
	routes   map[enums.OutboxEventType]EventDescriptor
	decoders *DecoderRegistry
}

// NewEventRegistry routes every cataloged event to the orders topic, so a
// single subscription observes them in publish order.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	reg := &EventRegistry{
		routes:   make(map[enums.OutboxEventType]EventDescriptor, len(catalog)),
		decoders: NewOrderEventDecoders(),
	}
	for eventType, entry := range catalog {
		reg.routes[eventType] = EventDescriptor{
			EventType:     eventType,
			AggregateType: entry.aggregate,
			Topic:         cfg.OrdersTopic,
		}
	}
	return reg, nil
}

// Topics returns the distinct topics in sorted order.
func (r *EventRegistry) Topics() []string {
	set := map[string]bool{}
	for _, route := range r.routes {
		set[route.Topic] = true
	}
	topics := make([]string, 0, len(set))
	for topic := range set {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// Resolve checks the row against its route and decodes the payload. Every
// failure is a NonRetryableError.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	route, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	case route.AggregateType != event.AggregateType:
		return nil, NewNonRetryableError(fmt.Errorf("%s belongs to %s aggregates, row has %s", event.EventType, route.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(fmt.Errorf("%s: missing aggregate_id", event.EventType))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload, err := r.decoders.Decode(event.EventType, envelope.Version, envelope.Data)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: route, Envelope: envelope, Payload: payload}, nil
}
