package orders

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storeorders/api/middleware"
	"github.com/angelmondragon/storeorders/api/responses"
	"github.com/angelmondragon/storeorders/api/validators"
	"github.com/angelmondragon/storeorders/internal/completion"
	"github.com/angelmondragon/storeorders/internal/delivery"
	internalorders "github.com/angelmondragon/storeorders/internal/orders"
	"github.com/angelmondragon/storeorders/pkg/enums"
	pkgerrors "github.com/angelmondragon/storeorders/pkg/errors"
	"github.com/angelmondragon/storeorders/pkg/logger"
	"github.com/angelmondragon/storeorders/pkg/outbox"
	"github.com/angelmondragon/storeorders/pkg/types"
)

const maxReasonLength = 500

// CompletionReader exposes the completion views served by the API.
type CompletionReader interface {
	ComputeCompletion(ctx context.Context, ref string) completion.Verdict
	GetDivisionsWithCompletion(ctx context.Context, ref string) completion.DivisionsWithCompletion
}

// DeliveryEvaluator evaluates the delivery gate for one order.
type DeliveryEvaluator interface {
	Evaluate(ctx context.Context, orderID uuid.UUID) (*delivery.Decision, error)
}

type createOrderRequest struct {
	OrderCode       *string          `json:"order_code" validate:"omitempty,max=64"`
	CustomerName    *string          `json:"customer_name" validate:"omitempty,max=200"`
	CustomerPhone   *string          `json:"customer_phone" validate:"omitempty,max=32"`
	CustomerAddress *string          `json:"customer_address" validate:"omitempty,max=500"`
	CustomerNotes   *string          `json:"customer_notes" validate:"omitempty,max=1000"`
	Items           types.OrderItems `json:"items" validate:"required,min=1,dive"`
}

type assignRequest struct {
	StoreID string `json:"store_id" validate:"required,uuid"`
}

type respondRequest struct {
	Decision string `json:"decision" validate:"required,oneof=confirm decline"`
	Reason   string `json:"reason" validate:"max=500"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// Create records a customer order. Multi-store orders are split right away
// when auto split is on.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		phone := req.CustomerPhone
		if actor.Role == enums.ActorRoleCustomer {
			tokenPhone := middleware.CustomerPhoneFromContext(r.Context())
			phone = &tokenPhone
		}

		result, err := svc.CreateOrder(r.Context(), internalorders.CreateOrderInput{
			OrderCode:       req.OrderCode,
			CustomerName:    req.CustomerName,
			CustomerPhone:   phone,
			CustomerAddress: req.CustomerAddress,
			CustomerNotes:   req.CustomerNotes,
			Items:           req.Items,
			Actor:           actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, result)
	}
}

// List returns the orders visible to the caller. Stores only see orders
// assigned to them and customers only see their own.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.PageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := buildListFilters(r, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order after checking the caller may see it.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := ensureVisible(r.Context(), actor, order); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Split divides a multi-store original into per-store divisions.
func Split(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}

		result, err := svc.SplitOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Assign hands a single-store order to a store.
func Assign(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req assignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AssignOrder(r.Context(), internalorders.AssignOrderInput{
			OrderID: orderID,
			StoreID: uuid.MustParse(req.StoreID),
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Completion reports how far the stores behind an original order have got.
// Stores only see originals they hold a division of.
func Completion(reader CompletionReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "completion service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ref, err := validators.PathParam(r, "ref")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.Role != enums.ActorRoleStore {
			responses.WriteSuccess(w, reader.ComputeCompletion(r.Context(), ref))
			return
		}
		view := reader.GetDivisionsWithCompletion(r.Context(), ref)
		if !holdsDivision(view.Divisions, actor.StoreID) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "original order has no division for store"))
			return
		}
		responses.WriteSuccess(w, view.Completion)
	}
}

// Divisions lists the divisions of an original order with the completion verdict.
func Divisions(reader CompletionReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "completion service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ref, err := validators.PathParam(r, "ref")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view := reader.GetDivisionsWithCompletion(r.Context(), ref)
		if actor.Role == enums.ActorRoleStore {
			if !holdsDivision(view.Divisions, actor.StoreID) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "original order has no division for store"))
				return
			}
			view.Divisions = redactSiblings(view.Divisions, actor.StoreID)
		}
		responses.WriteSuccess(w, view)
	}
}

// DeliveryGate tells a store whether it may hand the order over yet.
func DeliveryGate(gate DeliveryEvaluator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gate == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery gate unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		decision, err := gate.Evaluate(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if decision.Order != nil && actor.Role == enums.ActorRoleStore && !ownedBy(decision.Order.AssignedStoreID, actor.StoreID) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to store"))
			return
		}
		if decision.PollAfterSeconds > 0 && !decision.CanDeliver {
			w.Header().Set("Retry-After", strconv.Itoa(decision.PollAfterSeconds))
		}
		responses.WriteSuccess(w, decision)
	}
}

// Respond records a store's confirm or decline.
func Respond(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req respondRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Respond(r.Context(), internalorders.RespondInput{
			OrderID:  orderID,
			Decision: enums.StoreDecision(req.Decision),
			Reason:   validators.SanitizeString(req.Reason, maxReasonLength),
			Actor:    actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Deliver closes a confirmed order as delivered. Division orders only pass
// once every store behind the original has accepted.
func Deliver(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return storeAction(svc, logg, internalorders.Service.MarkDelivered)
}

// Return closes a confirmed order as returned. A reason is required.
func Return(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return storeAction(svc, logg, internalorders.Service.MarkReturned)
}

func storeAction(svc internalorders.Service, logg *logger.Logger, action func(internalorders.Service, context.Context, internalorders.StoreActionInput) (*internalorders.OrderDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req reasonRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := action(svc, r.Context(), internalorders.StoreActionInput{
			OrderID: orderID,
			Reason:  validators.SanitizeString(req.Reason, maxReasonLength),
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// CustomerReject records that the customer refused the order.
func CustomerReject(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req reasonRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if actor.Role == enums.ActorRoleCustomer {
			current, err := svc.Get(r.Context(), orderID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if err := ensureVisible(r.Context(), actor, current); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.CustomerReject(r.Context(), internalorders.CustomerRejectInput{
			OrderID: orderID,
			Reason:  validators.SanitizeString(req.Reason, maxReasonLength),
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func requireActor(r *http.Request) (*outbox.ActorRef, error) {
	actor := middleware.ActorFromContext(r.Context())
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return actor, nil
}

func buildListFilters(r *http.Request, actor *outbox.ActorRef) (internalorders.ListFilters, error) {
	q := r.URL.Query()
	var filters internalorders.ListFilters

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(q.Get("response_status")); raw != "" {
		status, err := enums.ParseStoreResponseStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid response_status filter")
		}
		filters.ResponseStatus = &status
	}
	divisionsOnly, err := validators.QueryFlag(r, "divisions_only")
	if err != nil {
		return filters, err
	}
	filters.DivisionsOnly = divisionsOnly

	switch actor.Role {
	case enums.ActorRoleAdmin:
		if raw := strings.TrimSpace(q.Get("store_id")); raw != "" {
			storeID, err := uuid.Parse(raw)
			if err != nil {
				return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store_id filter")
			}
			filters.StoreID = &storeID
		}
		filters.CustomerPhone = strings.TrimSpace(q.Get("customer_phone"))
	case enums.ActorRoleStore:
		if actor.StoreID == nil {
			return filters, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
		}
		filters.StoreID = actor.StoreID
	case enums.ActorRoleCustomer:
		phone := middleware.CustomerPhoneFromContext(r.Context())
		if phone == "" {
			return filters, pkgerrors.New(pkgerrors.CodeForbidden, "customer phone missing")
		}
		filters.CustomerPhone = phone
	default:
		return filters, pkgerrors.New(pkgerrors.CodeForbidden, "role not allowed")
	}
	return filters, nil
}

// ensureVisible hides orders that belong to another store or customer.
func ensureVisible(ctx context.Context, actor *outbox.ActorRef, order *internalorders.OrderDTO) error {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return nil
	case enums.ActorRoleStore:
		if ownedBy(order.AssignedStoreID, actor.StoreID) {
			return nil
		}
	case enums.ActorRoleCustomer:
		phone := middleware.CustomerPhoneFromContext(ctx)
		if phone != "" && order.CustomerPhone != nil && strings.TrimSpace(*order.CustomerPhone) == phone {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func ownedBy(assigned, storeID *uuid.UUID) bool {
	return assigned != nil && storeID != nil && *assigned == *storeID
}

func holdsDivision(divs []completion.DivisionInfo, storeID *uuid.UUID) bool {
	for i := range divs {
		if ownedBy(divs[i].AssignedStoreID, storeID) {
			return true
		}
	}
	return false
}

// redactSiblings hides other stores' decline reasons from a store caller.
func redactSiblings(divs []completion.DivisionInfo, storeID *uuid.UUID) []completion.DivisionInfo {
	out := make([]completion.DivisionInfo, len(divs))
	for i, d := range divs {
		if !ownedBy(d.AssignedStoreID, storeID) {
			d.RejectionReason = nil
		}
		out[i] = d
	}
	return out
}
