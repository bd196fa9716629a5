package orders_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storeorders/internal/completion"
	"github.com/angelmondragon/storeorders/internal/delivery"
	"github.com/angelmondragon/storeorders/internal/orders"
	"github.com/angelmondragon/storeorders/internal/splitter"
	"github.com/angelmondragon/storeorders/internal/stores"
	dbpkg "github.com/angelmondragon/storeorders/pkg/db"
	"github.com/angelmondragon/storeorders/pkg/db/dbtest"
	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/enums"
	pkgerrors "github.com/angelmondragon/storeorders/pkg/errors"
	"github.com/angelmondragon/storeorders/pkg/logger"
	"github.com/angelmondragon/storeorders/pkg/outbox"
	"github.com/angelmondragon/storeorders/pkg/pagination"
	"github.com/angelmondragon/storeorders/pkg/types"
)

type harness struct {
	db     *gorm.DB
	repo   orders.Repository
	svc    orders.Service
	gate   *delivery.Gate
	stores map[string]*models.Store
}

func newHarness(t *testing.T, storeNames ...string) *harness {
	t.Helper()
	db := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})

	storeRepo := stores.NewRepository(db)
	h := &harness{db: db, repo: orders.NewRepository(db), stores: map[string]*models.Store{}}
	for _, name := range storeNames {
		store, err := storeRepo.Create(context.Background(), stores.CreateStoreDTO{Name: name})
		require.NoError(t, err)
		h.stores[name] = store
	}
	storeSvc, err := stores.NewService(storeRepo)
	require.NoError(t, err)

	tx := dbpkg.Wrap(db)
	outboxSvc := outbox.NewService(outbox.NewRepository(db), logg)
	completionSvc, err := completion.NewService(h.repo, logg, nil)
	require.NoError(t, err)
	h.gate, err = delivery.NewGate(h.repo, completionSvc, logg, nil, 0)
	require.NoError(t, err)
	split, err := splitter.New(splitter.Params{
		Repository: h.repo,
		Tx:         tx,
		Outbox:     outboxSvc,
		Stores:     storeSvc,
		Logger:     logg,
	})
	require.NoError(t, err)

	h.svc, err = orders.NewService(orders.ServiceParams{
		Repository: h.repo,
		Tx:         tx,
		Outbox:     outboxSvc,
		Stores:     storeSvc,
		Completion: completionSvc,
		Gate:       h.gate,
		Splitter:   split,
		Logger:     logg,
		AutoSplit:  true,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) actor(name string) *outbox.ActorRef {
	id := h.stores[name].ID
	return &outbox.ActorRef{UserID: uuid.New(), StoreID: &id, Role: enums.ActorRoleStore}
}

func (h *harness) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.db.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func (h *harness) divisionsByStore(t *testing.T, ref string) map[string]models.Order {
	t.Helper()
	rows, err := h.repo.FindDivisionCandidates(context.Background(), ref)
	require.NoError(t, err)
	byStore := map[string]models.Order{}
	for _, row := range rows {
		byStore[row.StoreName()] = row
	}
	return byStore
}

func item(name, store string, qty int, price int64) types.OrderItem {
	return types.OrderItem{ProductName: name, Quantity: qty, UnitPrice: decimal.NewFromInt(price), StoreName: store}
}

func strPtr(v string) *string { return &v }

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, code), "expected %s, got %v", code, err)
}

func TestMultiStoreOrderDeliversOnlyAfterEveryDivisionConfirms(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "A", "B")

	created, err := h.svc.CreateOrder(ctx, orders.CreateOrderInput{
		OrderCode:     strPtr("O1"),
		CustomerPhone: strPtr("+15550100"),
		Items: types.OrderItems{
			item("Tea", "A", 2, 5),
			item("Bread", "B", 1, 4),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, created.Split)
	assert.True(t, created.Split.Success)
	assert.Equal(t, 2, created.Split.SuccessfulSplits)

	_, err = h.svc.Get(ctx, created.Order.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	divs := h.divisionsByStore(t, "O1")
	require.Len(t, divs, 2)
	divA, divB := divs["A"], divs["B"]

	_, err = h.svc.Respond(ctx, orders.RespondInput{OrderID: divA.ID, Decision: enums.StoreDecisionConfirm, Actor: h.actor("A")})
	require.NoError(t, err)

	decision, err := h.gate.Evaluate(ctx, divA.ID)
	require.NoError(t, err)
	assert.False(t, decision.CanDeliver)
	assert.Equal(t, delivery.ReasonAwaitingSiblings, decision.Message.Reason)
	require.NotNil(t, decision.Verdict)
	assert.Equal(t, enums.CompletionIncomplete, decision.Verdict.Status)
	assert.Equal(t, 50, decision.Verdict.CompletionPercentage)

	_, err = h.svc.MarkDelivered(ctx, orders.StoreActionInput{OrderID: divA.ID, Actor: h.actor("A")})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Zero(t, h.countEvents(t, enums.EventAllDivisionsCompleted))

	_, err = h.svc.Respond(ctx, orders.RespondInput{OrderID: divB.ID, Decision: enums.StoreDecisionConfirm, Actor: h.actor("B")})
	require.NoError(t, err)
	_, err = h.svc.Respond(ctx, orders.RespondInput{OrderID: divB.ID, Decision: enums.StoreDecisionConfirm, Actor: h.actor("B")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.countEvents(t, enums.EventAllDivisionsCompleted))

	decision, err = h.gate.Evaluate(ctx, divA.ID)
	require.NoError(t, err)
	assert.True(t, decision.CanDeliver)
	assert.True(t, decision.Verdict.IsComplete)

	delivered, err := h.svc.MarkDelivered(ctx, orders.StoreActionInput{OrderID: divA.ID, Actor: h.actor("A")})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, delivered.OrderStatus)
	assert.NotNil(t, delivered.CompletedAt)

	_, err = h.svc.MarkDelivered(ctx, orders.StoreActionInput{OrderID: divA.ID, Actor: h.actor("A")})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Equal(t, int64(1), h.countEvents(t, enums.EventOrderDelivered))
}

func TestDeclinedSiblingBlocksDelivery(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "A", "B")

	_, err := h.svc.CreateOrder(ctx, orders.CreateOrderInput{
		OrderCode: strPtr("O2"),
		Items:     types.OrderItems{item("Tea", "A", 1, 5), item("Bread", "B", 1, 4)},
	})
	require.NoError(t, err)
	divs := h.divisionsByStore(t, "O2")

	_, err = h.svc.Respond(ctx, orders.RespondInput{OrderID: divs["B"].ID, Decision: enums.StoreDecisionDecline, Actor: h.actor("B")})
	requireCode(t, err, pkgerrors.CodeValidation)

	declined, err := h.svc.Respond(ctx, orders.RespondInput{OrderID: divs["B"].ID, Decision: enums.StoreDecisionDecline, Reason: "out of stock", Actor: h.actor("B")})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRejected, declined.OrderStatus)
	require.NotNil(t, declined.RejectionReason)
	assert.Equal(t, "out of stock", *declined.RejectionReason)

	_, err = h.svc.Respond(ctx, orders.RespondInput{OrderID: divs["A"].ID, Decision: enums.StoreDecisionConfirm, Actor: h.actor("A")})
	require.NoError(t, err)

	decision, err := h.gate.Evaluate(ctx, divs["A"].ID)
	require.NoError(t, err)
	assert.False(t, decision.CanDeliver)
	assert.Equal(t, enums.CompletionPartiallyCompleted, decision.Verdict.Status)
	assert.Zero(t, h.countEvents(t, enums.EventAllDivisionsCompleted))
}

func TestSameOrderCodeKeepsOriginalsApart(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "A", "B")

	first, err := h.svc.CreateOrder(ctx, orders.CreateOrderInput{
		OrderCode: strPtr("SHARED"),
		Items:     types.OrderItems{item("Tea", "A", 1, 5), item("Bread", "B", 1, 4)},
	})
	require.NoError(t, err)
	second, err := h.svc.CreateOrder(ctx, orders.CreateOrderInput{
		OrderCode: strPtr("SHARED"),
		Items:     types.OrderItems{item("Milk", "A", 1, 3), item("Jam", "B", 1, 6)},
	})
	require.NoError(t, err)

	firstDivs := h.divisionsByStore(t, first.Order.ID.String())
	secondDivs := h.divisionsByStore(t, second.Order.ID.String())
	require.Len(t, firstDivs, 2)
	require.Len(t, secondDivs, 2)
	assert.NotEqual(t, firstDivs["A"].ID, secondDivs["A"].ID)

	_, err = h.svc.Respond(ctx, orders.RespondInput{OrderID: secondDivs["B"].ID, Decision: enums.StoreDecisionDecline, Reason: "closed", Actor: h.actor("B")})
	require.NoError(t, err)
	_, err = h.svc.Respond(ctx, orders.RespondInput{OrderID: firstDivs["A"].ID, Decision: enums.StoreDecisionConfirm, Actor: h.actor("A")})
	require.NoError(t, err)
	_, err = h.svc.Respond(ctx, orders.RespondInput{OrderID: firstDivs["B"].ID, Decision: enums.StoreDecisionConfirm, Actor: h.actor("B")})
	require.NoError(t, err)

	decision, err := h.gate.Evaluate(ctx, firstDivs["A"].ID)
	require.NoError(t, err)
	assert.True(t, decision.CanDeliver)
	assert.Equal(t, first.Order.ID.String(), decision.OriginalOrderRef)
	require.NotNil(t, decision.Verdict)
	assert.Equal(t, 2, decision.Verdict.TotalDivisions)
	assert.Equal(t, 2, decision.Verdict.AcceptedDivisions)
	assert.Equal(t, enums.CompletionCompleted, decision.Verdict.Status)
	assert.Equal(t, int64(1), h.countEvents(t, enums.EventAllDivisionsCompleted))

	decision, err = h.gate.Evaluate(ctx, secondDivs["A"].ID)
	require.NoError(t, err)
	assert.False(t, decision.CanDeliver)
	assert.Equal(t, 2, decision.Verdict.TotalDivisions)

	_, err = h.svc.CreateOrder(ctx, orders.CreateOrderInput{
		OrderCode: strPtr("SH ARED"),
		Items:     types.OrderItems{item("Tea", "A", 1, 5)},
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestSingleStoreOrderLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "A", "B")

	created, err := h.svc.CreateOrder(ctx, orders.CreateOrderInput{
		CustomerName: strPtr("  Sam  "),
		Items:        types.OrderItems{item("Tea", "A", 2, 5), item("Milk", "A", 1, 3)},
	})
	require.NoError(t, err)
	assert.Nil(t, created.Split)
	order := created.Order
	assert.Equal(t, enums.OrderStatusAssigned, order.OrderStatus)
	require.NotNil(t, order.AssignedStoreID)
	assert.Equal(t, h.stores["A"].ID, *order.AssignedStoreID)
	assert.Equal(t, "Sam", *order.CustomerName)
	assert.True(t, decimal.NewFromInt(13).Equal(order.TotalAmount))
	assert.Len(t, order.LineItems, 2)
	assert.Equal(t, int64(1), h.countEvents(t, enums.EventOrderCreated))
	assert.Equal(t, int64(1), h.countEvents(t, enums.EventOrderAssigned))

	_, err = h.svc.MarkDelivered(ctx, orders.StoreActionInput{OrderID: order.ID, Actor: h.actor("A")})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.Respond(ctx, orders.RespondInput{OrderID: order.ID, Decision: enums.StoreDecisionConfirm, Actor: h.actor("B")})
	requireCode(t, err, pkgerrors.CodeForbidden)

	confirmed, err := h.svc.Respond(ctx, orders.RespondInput{OrderID: order.ID, Decision: enums.StoreDecisionConfirm, Actor: h.actor("A")})
	require.NoError(t, err)
	assert.Equal(t, enums.StoreResponseAvailable, *confirmed.StoreResponseStatus)
	assert.NotNil(t, confirmed.StoreResponseAt)

	_, err = h.svc.Respond(ctx, orders.RespondInput{OrderID: order.ID, Decision: enums.StoreDecisionDecline, Reason: "changed mind", Actor: h.actor("A")})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = h.svc.MarkReturned(ctx, orders.StoreActionInput{OrderID: order.ID, Actor: h.actor("A")})
	requireCode(t, err, pkgerrors.CodeValidation)

	returned, err := h.svc.MarkReturned(ctx, orders.StoreActionInput{OrderID: order.ID, Reason: "customer absent", Actor: h.actor("A")})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReturned, returned.OrderStatus)
	require.NotNil(t, returned.ReturnReason)
	assert.Equal(t, "customer absent", *returned.ReturnReason)
}

func TestCustomerRejectIsIdempotentAndBlocksDelivery(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "A")

	created, err := h.svc.CreateOrder(ctx, orders.CreateOrderInput{Items: types.OrderItems{item("Tea", "A", 1, 5)}})
	require.NoError(t, err)
	id := created.Order.ID

	_, err = h.svc.Respond(ctx, orders.RespondInput{OrderID: id, Decision: enums.StoreDecisionConfirm, Actor: h.actor("A")})
	require.NoError(t, err)

	rejected, err := h.svc.CustomerReject(ctx, orders.CustomerRejectInput{OrderID: id, Reason: "too late"})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCustomerRejected, rejected.OrderStatus)

	_, err = h.svc.CustomerReject(ctx, orders.CustomerRejectInput{OrderID: id})
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.countEvents(t, enums.EventOrderCustomerRejected))

	_, err = h.svc.MarkDelivered(ctx, orders.StoreActionInput{OrderID: id, Actor: h.actor("A")})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestAssignOrderAndList(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "A", "B")

	created, err := h.svc.CreateOrder(ctx, orders.CreateOrderInput{Items: types.OrderItems{item("Tea", "Nowhere", 1, 5)}})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, created.Order.OrderStatus)
	assert.Nil(t, created.Order.AssignedStoreID)

	admin := &outbox.ActorRef{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
	assigned, err := h.svc.AssignOrder(ctx, orders.AssignOrderInput{OrderID: created.Order.ID, StoreID: h.stores["B"].ID, Actor: admin})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAssigned, assigned.OrderStatus)
	assert.Equal(t, "B", *assigned.MainStoreName)

	_, err = h.svc.AssignOrder(ctx, orders.AssignOrderInput{OrderID: created.Order.ID, StoreID: h.stores["B"].ID, Actor: admin})
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.countEvents(t, enums.EventOrderAssigned))

	storeID := h.stores["B"].ID
	list, err := h.svc.List(ctx, orders.ListFilters{StoreID: &storeID}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, created.Order.ID, list.Orders[0].ID)

	_, err = h.svc.CreateOrder(ctx, orders.CreateOrderInput{})
	requireCode(t, err, pkgerrors.CodeValidation)
}
