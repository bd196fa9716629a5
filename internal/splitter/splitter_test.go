package splitter

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storeorders/internal/orders"
	"github.com/angelmondragon/storeorders/internal/stores"
	dbpkg "github.com/angelmondragon/storeorders/pkg/db"
	"github.com/angelmondragon/storeorders/pkg/db/dbtest"
	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/enums"
	pkgerrors "github.com/angelmondragon/storeorders/pkg/errors"
	"github.com/angelmondragon/storeorders/pkg/logger"
	"github.com/angelmondragon/storeorders/pkg/outbox"
	"github.com/angelmondragon/storeorders/pkg/types"
)

type fixture struct {
	db       *gorm.DB
	repo     orders.Repository
	storeSvc stores.Service
	stores   map[string]*models.Store
	logs     *bytes.Buffer
}

func newFixture(t *testing.T, storeNames ...string) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	storeRepo := stores.NewRepository(db)
	f := &fixture{
		db:     db,
		repo:   orders.NewRepository(db),
		stores: map[string]*models.Store{},
		logs:   &bytes.Buffer{},
	}
	for _, name := range storeNames {
		store, err := storeRepo.Create(context.Background(), stores.CreateStoreDTO{Name: name})
		require.NoError(t, err)
		f.stores[name] = store
	}
	svc, err := stores.NewService(storeRepo)
	require.NoError(t, err)
	f.storeSvc = svc
	return f
}

func (f *fixture) splitter(t *testing.T, repo orders.Repository) *Splitter {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: f.logs})
	s, err := New(Params{
		Repository: repo,
		Tx:         dbpkg.Wrap(f.db),
		Outbox:     outbox.NewService(outbox.NewRepository(f.db), logg),
		Stores:     f.storeSvc,
		Logger:     logg,
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) createOriginal(t *testing.T, code string, items types.OrderItems) *models.Order {
	t.Helper()
	phone := "+15550100"
	order := &models.Order{
		ID:            uuid.New(),
		OrderCode:     &code,
		CustomerPhone: &phone,
		Items:         items,
		TotalAmount:   items.Total(),
		Subtotal:      items.Total(),
		OrderStatus:   enums.OrderStatusPending,
	}
	require.NoError(t, f.repo.Create(context.Background(), order))
	return order
}

func (f *fixture) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func twoStoreItems() types.OrderItems {
	discounted := money("8")
	return types.OrderItems{
		{ProductName: "Bread", Quantity: 2, UnitPrice: money("10"), DiscountedPrice: &discounted, StoreName: "A"},
		{ProductName: "Milk", Quantity: 1, UnitPrice: money("5"), StoreName: "B"},
	}
}

type failingRepo struct {
	orders.Repository
	failStore string
}

func (f *failingRepo) WithTx(tx *gorm.DB) orders.Repository {
	return &failingRepo{Repository: f.Repository.WithTx(tx), failStore: f.failStore}
}

func (f *failingRepo) Create(ctx context.Context, order *models.Order) error {
	if order.StoreName() == f.failStore {
		return errors.New("insert rejected")
	}
	return f.Repository.Create(ctx, order)
}

func TestGroupByStore(t *testing.T) {
	items := types.OrderItems{
		{ProductName: "a1", Quantity: 1, UnitPrice: money("2"), StoreName: "A"},
		{ProductName: "n1", Quantity: 3, UnitPrice: money("1"), StoreName: " "},
		{ProductName: "a2", Quantity: 2, UnitPrice: money("1.5"), StoreName: "A "},
	}
	buckets := GroupByStore(items)
	require.Len(t, buckets, 2)
	assert.Equal(t, "A", buckets[0].StoreName)
	assert.Len(t, buckets[0].Items, 2)
	assert.True(t, buckets[0].Subtotal.Equal(money("5")))
	assert.Equal(t, types.UnknownStoreName, buckets[1].StoreName)
	assert.True(t, buckets[1].Subtotal.Equal(money("3")))

	assert.True(t, ShouldSplit(items))
	assert.False(t, ShouldSplit(items[:1]))
}

func TestSplitOrderCreatesDivisionsAndDeletesOriginal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A", "B")
	original := f.createOriginal(t, "O1", twoStoreItems())

	result, err := f.splitter(t, f.repo).SplitOrder(ctx, original.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.TotalStores)
	assert.Equal(t, 2, result.SuccessfulSplits)
	require.Len(t, result.PerStore, 2)

	_, err = f.repo.FindByID(ctx, original.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	rows, err := f.repo.FindDivisionCandidates(ctx, "O1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byStore := map[string]models.Order{}
	for _, row := range rows {
		byStore[row.StoreName()] = row
	}
	a := byStore["A"]
	assert.True(t, a.TotalAmount.Equal(money("16")))
	assert.Equal(t, enums.OrderStatusAssigned, a.OrderStatus)
	assert.Equal(t, f.stores["A"].ID, *a.AssignedStoreID)
	assert.Equal(t, enums.StoreResponsePending, a.ResponseStatus())
	assert.Equal(t, "split from original order O1", a.DetailsText())
	assert.Equal(t, original.ID, *a.OriginalOrderID)
	assert.Equal(t, "+15550100", *a.CustomerPhone)
	assert.True(t, byStore["B"].TotalAmount.Equal(money("5")))

	lines, err := f.repo.FindLineItems(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "A", lines[0].StoreName)
	assert.True(t, lines[0].TotalPrice.Equal(money("16")))

	assert.EqualValues(t, 2, f.countEvents(t, enums.EventDivisionAssigned))
}

func TestSplitOrderPartialFailureKeepsOriginalAndRetries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A", "B")
	original := f.createOriginal(t, "O1", twoStoreItems())

	result, err := f.splitter(t, &failingRepo{Repository: f.repo, failStore: "B"}).SplitOrder(ctx, original.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePartialFailure))
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.SuccessfulSplits)
	require.Len(t, result.PerStore, 2)
	assert.True(t, result.PerStore[0].Success)
	assert.False(t, result.PerStore[1].Success)
	assert.Contains(t, result.PerStore[1].Error, "insert rejected")

	kept, err := f.repo.FindByID(ctx, original.ID)
	require.NoError(t, err)
	assert.Len(t, kept.Items, 2)
	assert.EqualValues(t, 1, f.countEvents(t, enums.EventDivisionAssigned))

	retry, err := f.splitter(t, f.repo).SplitOrder(ctx, original.ID)
	require.NoError(t, err)
	assert.True(t, retry.Success)
	assert.Equal(t, 2, retry.SuccessfulSplits)
	assert.Equal(t, warnAlreadyCreated, retry.PerStore[0].Warning)
	assert.Equal(t, *result.PerStore[0].DivisionID, *retry.PerStore[0].DivisionID)

	rows, err := f.repo.FindDivisionCandidates(ctx, "O1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.EqualValues(t, 2, f.countEvents(t, enums.EventDivisionAssigned))
	_, err = f.repo.FindByID(ctx, original.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSplitOrderKeepsUnknownAndMissingStores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A")
	original := f.createOriginal(t, "O7", types.OrderItems{
		{ProductName: "x", Quantity: 1, UnitPrice: money("1"), StoreName: "A"},
		{ProductName: "y", Quantity: 1, UnitPrice: money("2"), StoreName: "Ghost"},
		{ProductName: "z", Quantity: 1, UnitPrice: money("3")},
	})

	result, err := f.splitter(t, f.repo).SplitOrder(ctx, original.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.PerStore, 3)
	assert.Empty(t, result.PerStore[0].Warning)
	assert.Equal(t, warnStoreNotFound, result.PerStore[1].Warning)
	assert.Equal(t, types.UnknownStoreName, result.PerStore[2].StoreName)

	ghost, err := f.repo.FindByID(ctx, *result.PerStore[1].DivisionID)
	require.NoError(t, err)
	assert.Nil(t, ghost.AssignedStoreID)
	assert.Equal(t, enums.OrderStatusPending, ghost.OrderStatus)
	assert.Contains(t, f.logs.String(), warnStoreNotFound)
}

func TestSplitOrderPreconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.splitter(t, f.repo)

	_, err := s.SplitOrder(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	empty := f.createOriginal(t, "O2", nil)
	_, err = s.SplitOrder(ctx, empty.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
