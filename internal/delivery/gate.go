// Package delivery decides whether a store may deliver or return an order.
// A division is only deliverable once its own store confirmed it and every
// sibling division of the same original order has been accepted.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storeorders/internal/completion"
	"github.com/angelmondragon/storeorders/internal/divisions"
	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/enums"
	pkgerrors "github.com/angelmondragon/storeorders/pkg/errors"
	"github.com/angelmondragon/storeorders/pkg/i18n"
	"github.com/angelmondragon/storeorders/pkg/logger"
	"github.com/angelmondragon/storeorders/pkg/metrics"
)

// DefaultPollAfter is how long clients wait before asking the gate again.
const DefaultPollAfter = 30 * time.Second

// Reason names why an order can or cannot be delivered.
type Reason string

const (
	ReasonReady                Reason = "ready"
	ReasonAwaitingConfirmation Reason = "awaiting_confirmation"
	ReasonStoreDeclined        Reason = "store_declined"
	ReasonCustomerRejected     Reason = "customer_rejected"
	ReasonClosed               Reason = "closed"
	ReasonAwaitingSiblings     Reason = "awaiting_siblings"
)

// Message is the gate outcome in displayable form.
type Message struct {
	CanDeliver bool   `json:"canDeliver"`
	Reason     Reason `json:"reason"`
	Label      string `json:"label"`
}

// CanDeliver reports whether order may be delivered or returned. verdict is
// the completion of the order's original and is ignored for non-divisions.
func CanDeliver(order *models.Order, verdict *completion.Verdict) bool {
	if order == nil || order.OrderStatus.IsTerminal() {
		return false
	}
	if !order.ResponseStatus().IsConfirmed() {
		return false
	}
	if !divisions.IsDivisionOrder(order) {
		return true
	}
	return verdict != nil && verdict.Status == enums.CompletionCompleted
}

// DeliveryStatusMessage explains the CanDeliver outcome. When siblings block
// delivery the label is the verdict's own status label.
func DeliveryStatusMessage(ctx context.Context, order *models.Order, verdict *completion.Verdict) Message {
	switch {
	case order == nil:
		return Message{Reason: ReasonAwaitingConfirmation, Label: i18n.Sprintf(ctx, i18n.KeyAwaitingConfirmation)}
	case order.OrderStatus == enums.OrderStatusCustomerRejected ||
		order.ResponseStatus() == enums.StoreResponseCustomerRejected:
		return Message{Reason: ReasonCustomerRejected, Label: i18n.Sprintf(ctx, i18n.KeyCustomerRejected)}
	case order.OrderStatus.IsTerminal():
		return Message{Reason: ReasonClosed, Label: i18n.Sprintf(ctx, i18n.KeyAlreadyClosed)}
	case order.ResponseStatus().IsDeclined():
		return Message{Reason: ReasonStoreDeclined, Label: i18n.Sprintf(ctx, i18n.KeyStoreDeclined)}
	case !order.ResponseStatus().IsConfirmed():
		return Message{Reason: ReasonAwaitingConfirmation, Label: i18n.Sprintf(ctx, i18n.KeyAwaitingConfirmation)}
	}

	if CanDeliver(order, verdict) {
		return Message{CanDeliver: true, Reason: ReasonReady, Label: i18n.Sprintf(ctx, i18n.KeyReadyForDelivery)}
	}
	label := i18n.Sprintf(ctx, i18n.KeyNoDivisions)
	if verdict != nil {
		label = verdict.StatusLabel
	}
	return Message{Reason: ReasonAwaitingSiblings, Label: label}
}

// OrderReader loads a single order.
type OrderReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// CompletionComputer computes the verdict of an original order.
type CompletionComputer interface {
	ComputeCompletion(ctx context.Context, ref string) completion.Verdict
}

// Decision is the result of evaluating the gate for one order.
type Decision struct {
	Order            *models.Order       `json:"-"`
	OrderID          uuid.UUID           `json:"orderId"`
	IsDivision       bool                `json:"isDivision"`
	OriginalOrderRef string              `json:"originalOrderRef,omitempty"`
	Verdict          *completion.Verdict `json:"verdict,omitempty"`
	CanDeliver       bool                `json:"canDeliver"`
	Message          Message             `json:"message"`
	PollAfter        time.Duration       `json:"-"`
	PollAfterSeconds int                 `json:"pollAfterSeconds"`
}

// Gate evaluates the delivery gate. Every call recomputes the verdict.
type Gate struct {
	orders     OrderReader
	completion CompletionComputer
	logg       *logger.Logger
	metrics    *metrics.OrderMetrics
	pollAfter  time.Duration
}

// NewGate wires the gate. A non-positive pollAfter falls back to DefaultPollAfter.
func NewGate(orders OrderReader, completion CompletionComputer, logg *logger.Logger, m *metrics.OrderMetrics, pollAfter time.Duration) (*Gate, error) {
	if orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if completion == nil {
		return nil, fmt.Errorf("completion computer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pollAfter <= 0 {
		pollAfter = DefaultPollAfter
	}
	return &Gate{orders: orders, completion: completion, logg: logg, metrics: m, pollAfter: pollAfter}, nil
}

// Evaluate loads the order, computes its sibling verdict when it is a
// division, and reports whether it can be delivered now.
func (g *Gate) Evaluate(ctx context.Context, orderID uuid.UUID) (*Decision, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := g.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	decision := &Decision{
		Order:            order,
		OrderID:          order.ID,
		IsDivision:       divisions.IsDivisionOrder(order),
		PollAfter:        g.pollAfter,
		PollAfterSeconds: int(g.pollAfter / time.Second),
	}
	if ref, ok := divisions.OriginalRef(order); ok {
		decision.OriginalOrderRef = ref
		verdict := g.completion.ComputeCompletion(ctx, ref)
		decision.Verdict = &verdict
	}
	decision.CanDeliver = CanDeliver(order, decision.Verdict)
	decision.Message = DeliveryStatusMessage(ctx, order, decision.Verdict)
	g.metrics.IncGateDecision(decision.CanDeliver)

	if !decision.CanDeliver {
		logCtx := g.logg.WithOrderID(ctx, order.ID.String())
		g.logg.Debug(g.logg.WithField(logCtx, "gate_reason", string(decision.Message.Reason)), "delivery gate closed")
	}
	return decision, nil
}
