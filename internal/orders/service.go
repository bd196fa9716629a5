package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storeorders/internal/completion"
	"github.com/angelmondragon/storeorders/internal/delivery"
	"github.com/angelmondragon/storeorders/internal/divisions"
	"github.com/angelmondragon/storeorders/internal/stores"
	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/enums"
	pkgerrors "github.com/angelmondragon/storeorders/pkg/errors"
	"github.com/angelmondragon/storeorders/pkg/logger"
	"github.com/angelmondragon/storeorders/pkg/outbox"
	"github.com/angelmondragon/storeorders/pkg/outbox/payloads"
	"github.com/angelmondragon/storeorders/pkg/pagination"
	"github.com/angelmondragon/storeorders/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (bool, error)
}

type storeResolver interface {
	GetByID(ctx context.Context, id uuid.UUID) (*stores.StoreDTO, error)
	ResolveByName(ctx context.Context, name string) (*models.Store, error)
}

type completionComputer interface {
	ComputeCompletion(ctx context.Context, ref string) completion.Verdict
}

type deliveryGate interface {
	Evaluate(ctx context.Context, orderID uuid.UUID) (*delivery.Decision, error)
}

// Service drives an order through creation, assignment, splitting, store
// responses and delivery.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	AssignOrder(ctx context.Context, input AssignOrderInput) (*OrderDTO, error)
	SplitOrder(ctx context.Context, orderID uuid.UUID) (*SplitResult, error)
	Respond(ctx context.Context, input RespondInput) (*OrderDTO, error)
	MarkDelivered(ctx context.Context, input StoreActionInput) (*OrderDTO, error)
	MarkReturned(ctx context.Context, input StoreActionInput) (*OrderDTO, error)
	CustomerReject(ctx context.Context, input CustomerRejectInput) (*OrderDTO, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*OrderList, error)
}

// CreateOrderInput carries a customer's order.
type CreateOrderInput struct {
	OrderCode       *string
	CustomerName    *string
	CustomerPhone   *string
	CustomerAddress *string
	CustomerNotes   *string
	Items           types.OrderItems
	Actor           *outbox.ActorRef
}

// AssignOrderInput hands an order to one store.
type AssignOrderInput struct {
	OrderID uuid.UUID
	StoreID uuid.UUID
	Actor   *outbox.ActorRef
}

// RespondInput is a store's confirmation or decline of its order.
type RespondInput struct {
	OrderID  uuid.UUID
	Decision enums.StoreDecision
	Reason   string
	Actor    *outbox.ActorRef
}

// StoreActionInput covers deliver and return. Reason is required for returns.
type StoreActionInput struct {
	OrderID uuid.UUID
	Reason  string
	Actor   *outbox.ActorRef
}

// CustomerRejectInput records that the customer refused the order.
type CustomerRejectInput struct {
	OrderID uuid.UUID
	Reason  string
	Actor   *outbox.ActorRef
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Outbox     outboxPublisher
	Stores     storeResolver
	Completion completionComputer
	Gate       deliveryGate
	Splitter   Splitter
	Logger     *logger.Logger
	AutoSplit  bool
}

type service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	stores     storeResolver
	completion completionComputer
	gate       deliveryGate
	splitter   Splitter
	logg       *logger.Logger
	autoSplit  bool
	now        func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("store resolver required")
	}
	if params.Completion == nil {
		return nil, fmt.Errorf("completion computer required")
	}
	if params.Gate == nil {
		return nil, fmt.Errorf("delivery gate required")
	}
	if params.Splitter == nil {
		return nil, fmt.Errorf("splitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       params.Repository,
		tx:         params.Tx,
		outbox:     params.Outbox,
		stores:     params.Stores,
		completion: params.Completion,
		gate:       params.Gate,
		splitter:   params.Splitter,
		logg:       params.Logger,
		autoSplit:  params.AutoSplit,
		now:        time.Now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	if err := validateItems(input.Items); err != nil {
		return nil, err
	}
	code := trimmedPtr(input.OrderCode)
	// the code is embedded in the split marker, which ends at whitespace
	if code != nil && strings.IndexFunc(*code, unicode.IsSpace) >= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order code must not contain whitespace")
	}

	total := input.Items.Total()
	order := &models.Order{
		ID:              uuid.New(),
		OrderCode:       code,
		CustomerName:    trimmedPtr(input.CustomerName),
		CustomerPhone:   trimmedPtr(input.CustomerPhone),
		CustomerAddress: trimmedPtr(input.CustomerAddress),
		CustomerNotes:   trimmedPtr(input.CustomerNotes),
		Items:           input.Items,
		TotalAmount:     total,
		Subtotal:        total,
		OrderStatus:     enums.OrderStatusPending,
	}

	storeNames := input.Items.StoreNames()
	multiStore := len(storeNames) > 1
	if !multiStore {
		name := storeNames[0]
		order.MainStoreName = &name
		store, err := s.stores.ResolveByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if store != nil {
			pending := enums.StoreResponsePending
			order.AssignedStoreID = &store.ID
			order.MainStoreName = &store.Name
			order.OrderStatus = enums.OrderStatusAssigned
			order.StoreResponseStatus = &pending
		}
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := repo.CreateLineItems(ctx, BuildLineItems(order.ID, input.Items)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order line items")
		}
		if err := s.outbox.Emit(ctx, tx, orderEvent(order, enums.EventOrderCreated, "", input.Actor)); err != nil {
			return err
		}
		if order.AssignedStoreID != nil {
			return s.outbox.Emit(ctx, tx, orderEvent(order, enums.EventOrderAssigned, "", input.Actor))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"stores":      len(storeNames),
		"total_price": total.String(),
	})
	s.logg.Info(logCtx, "order created")

	result := &CreateOrderResult{}
	if multiStore && s.autoSplit {
		split, splitErr := s.splitter.SplitOrder(ctx, order.ID)
		result.Split = split
		if splitErr != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "error", splitErr.Error()), "automatic split did not complete")
		}
		if split != nil && split.Success {
			result.Order = FromModel(order)
			return result, nil
		}
	}

	created, err := s.Get(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	result.Order = created
	return result, nil
}

func (s *service) AssignOrder(ctx context.Context, input AssignOrderInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	store, err := s.stores.GetByID(ctx, input.StoreID)
	if err != nil {
		return nil, err
	}
	if !store.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store is not active")
	}

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.OrderStatus.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed")
		}
		if current := order.ResponseStatus(); current != "" && current != enums.StoreResponsePending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "store already responded to this order")
		}
		if order.AssignedStoreID != nil && *order.AssignedStoreID == store.ID {
			updated = order
			return nil
		}

		pending := enums.StoreResponsePending
		name := store.Name
		updates := map[string]any{
			"assigned_store_id":     store.ID,
			"main_store_name":       name,
			"order_status":          enums.OrderStatusAssigned,
			"store_response_status": pending,
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign order")
		}
		order.AssignedStoreID = &store.ID
		order.MainStoreName = &name
		order.OrderStatus = enums.OrderStatusAssigned
		order.StoreResponseStatus = &pending
		updated = order

		return s.outbox.Emit(ctx, tx, orderEvent(order, enums.EventOrderAssigned, "", input.Actor))
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) SplitOrder(ctx context.Context, orderID uuid.UUID) (*SplitResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.splitter.SplitOrder(ctx, orderID)
}

func (s *service) Respond(ctx context.Context, input RespondInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Decision.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be confirm or decline")
	}
	reason := strings.TrimSpace(input.Reason)
	if input.Decision == enums.StoreDecisionDecline && reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}

	var (
		updated *models.Order
		changed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := authorizeStore(order, input.Actor); err != nil {
			return err
		}
		if order.OrderStatus.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed")
		}

		current := order.ResponseStatus()
		if (input.Decision == enums.StoreDecisionConfirm && current.IsConfirmed()) ||
			(input.Decision == enums.StoreDecisionDecline && current.IsDeclined()) {
			updated = order
			return nil
		}
		if current != "" && current != enums.StoreResponsePending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "store already responded to this order")
		}

		now := s.now().UTC()
		target := enums.StoreResponseAvailable
		kind := enums.EventDivisionConfirmed
		updates := map[string]any{"store_response_at": now}
		if input.Decision == enums.StoreDecisionDecline {
			target = enums.StoreResponseUnavailable
			kind = enums.EventDivisionDeclined
			updates["rejection_reason"] = reason
			updates["order_status"] = enums.OrderStatusRejected
			order.RejectionReason = &reason
			order.OrderStatus = enums.OrderStatusRejected
		}
		updates["store_response_status"] = target
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record store response")
		}
		order.StoreResponseStatus = &target
		order.StoreResponseAt = &now
		updated = order
		changed = true

		return s.outbox.Emit(ctx, tx, divisionEvent(order, kind, reason, input.Actor))
	})
	if err != nil {
		return nil, err
	}

	if changed {
		logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, updated.ID.String()), map[string]any{
			"decision":   string(input.Decision),
			"store_name": updated.StoreName(),
		})
		s.logg.Info(logCtx, "store responded to order")
		if input.Decision == enums.StoreDecisionConfirm {
			s.emitCompletionIfDone(ctx, updated, input.Actor)
		}
	}
	return FromModel(updated), nil
}

// emitCompletionIfDone records all_divisions_completed once per original
// when the confirmation just applied completed it. Failures are logged; the
// confirmation itself is already committed.
func (s *service) emitCompletionIfDone(ctx context.Context, division *models.Order, actor *outbox.ActorRef) {
	ref, ok := divisions.OriginalRef(division)
	if !ok {
		return
	}
	logCtx := s.logg.WithOriginalRef(ctx, ref)
	verdict := s.completion.ComputeCompletion(ctx, ref)
	if verdict.Status != enums.CompletionCompleted {
		return
	}

	aggregateID := uuid.Nil
	if division.OriginalOrderID != nil {
		aggregateID = *division.OriginalOrderID
	} else if parsed, err := uuid.Parse(ref); err == nil {
		aggregateID = parsed
	}
	if aggregateID == uuid.Nil {
		s.logg.Warn(logCtx, "original order id unknown; completion event skipped")
		return
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventAllDivisionsCompleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   aggregateID,
		Actor:         actor,
		Data: payloads.DivisionEvent{
			Kind:            enums.EventAllDivisionsCompleted,
			OriginalOrderID: ref,
			DivisionID:      division.ID,
			StoreName:       division.StoreName(),
			StoreID:         division.AssignedStoreID,
			CustomerPhone:   division.CustomerPhone,
		},
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.outbox.EmitIfNotExists(ctx, tx, event)
		return err
	})
	if err != nil {
		s.logg.Error(logCtx, "failed to queue completion event", err)
	}
}

func (s *service) MarkDelivered(ctx context.Context, input StoreActionInput) (*OrderDTO, error) {
	return s.closeOrder(ctx, input, enums.OrderStatusDelivered, enums.EventOrderDelivered)
}

func (s *service) MarkReturned(ctx context.Context, input StoreActionInput) (*OrderDTO, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason required")
	}
	return s.closeOrder(ctx, input, enums.OrderStatusReturned, enums.EventOrderReturned)
}

// closeOrder moves a confirmed order to delivered or returned once the delivery
// gate is open.
func (s *service) closeOrder(ctx context.Context, input StoreActionInput, target enums.OrderStatus, kind enums.OutboxEventType) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	reason := strings.TrimSpace(input.Reason)

	decision, err := s.gate.Evaluate(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeStore(decision.Order, input.Actor); err != nil {
		return nil, err
	}
	if err := checkClosable(decision.Order); err != nil {
		return nil, err
	}
	if !decision.CanDeliver {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, decision.Message.Label).WithDetails(map[string]any{
			"reason":  decision.Message.Reason,
			"verdict": decision.Verdict,
		})
	}

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := checkClosable(order); err != nil {
			return err
		}

		now := s.now().UTC()
		updates := map[string]any{"order_status": target}
		if target == enums.OrderStatusDelivered {
			updates["completed_at"] = now
			order.CompletedAt = &now
		} else {
			updates["return_reason"] = reason
			order.ReturnReason = &reason
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.OrderStatus = target
		updated = order

		return s.outbox.Emit(ctx, tx, orderEvent(order, kind, reason, input.Actor))
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(s.logg.WithOrderID(ctx, updated.ID.String()), "order_status", string(target)), "order closed by store")
	return FromModel(updated), nil
}

func (s *service) CustomerReject(ctx context.Context, input CustomerRejectInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	reason := strings.TrimSpace(input.Reason)

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.OrderStatus == enums.OrderStatusCustomerRejected {
			updated = order
			return nil
		}
		if order.OrderStatus.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed")
		}

		response := enums.StoreResponseCustomerRejected
		updates := map[string]any{
			"order_status":          enums.OrderStatusCustomerRejected,
			"store_response_status": response,
		}
		if reason != "" {
			updates["rejection_reason"] = reason
			order.RejectionReason = &reason
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record customer rejection")
		}
		order.OrderStatus = enums.OrderStatusCustomerRejected
		order.StoreResponseStatus = &response
		updated = order

		return s.outbox.Emit(ctx, tx, orderEvent(order, enums.EventOrderCustomerRejected, reason, input.Actor))
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*OrderList, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, err
	}
	rows, next, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	list := &OrderList{Orders: make([]OrderDTO, 0, len(rows))}
	for i := range rows {
		list.Orders = append(list.Orders, *FromModel(&rows[i]))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func loadOrder(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// authorizeStore lets admins act on any order and stores only on their own.
func authorizeStore(order *models.Order, actor *outbox.ActorRef) error {
	if actor != nil && actor.Role == enums.ActorRoleAdmin {
		return nil
	}
	if actor == nil || actor.StoreID == nil || *actor.StoreID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
	}
	if order.AssignedStoreID == nil || *order.AssignedStoreID != *actor.StoreID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to store")
	}
	return nil
}

func checkClosable(order *models.Order) error {
	if order.OrderStatus == enums.OrderStatusCustomerRejected {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order was rejected by the customer")
	}
	if order.OrderStatus.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed")
	}
	if !order.ResponseStatus().IsConfirmed() {
		return pkgerrors.New(pkgerrors.CodeValidation, "store must confirm the order first")
	}
	return nil
}

func validateItems(items types.OrderItems) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for i, item := range items {
		if strings.TrimSpace(item.ProductName) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: product name required", i))
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: quantity must be positive", i))
		}
		if item.UnitPrice.IsNegative() || (item.DiscountedPrice != nil && item.DiscountedPrice.IsNegative()) {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: prices must not be negative", i))
		}
	}
	return nil
}

// BuildLineItems turns JSON items into line item rows stamped with orderID.
func BuildLineItems(orderID uuid.UUID, items types.OrderItems) []models.OrderLineItem {
	rows := make([]models.OrderLineItem, 0, len(items))
	for _, item := range items {
		rows = append(rows, models.OrderLineItem{
			ID:              uuid.New(),
			OrderID:         orderID,
			ProductName:     strings.TrimSpace(item.ProductName),
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			DiscountedPrice: item.DiscountedPrice,
			TotalPrice:      item.LineTotal(),
			StoreName:       item.StoreKey(),
		})
	}
	return rows
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
