package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storeorders/internal/divisions"
	"github.com/angelmondragon/storeorders/pkg/db/dbtest"
	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/enums"
	"github.com/angelmondragon/storeorders/pkg/pagination"
)

func newDivisionRow(ref string, parent *uuid.UUID, store string) *models.Order {
	details := divisions.Marker(ref)
	return &models.Order{
		ID:              uuid.New(),
		Details:         &details,
		MainStoreName:   &store,
		OriginalOrderID: parent,
		TotalAmount:     decimal.NewFromInt(1),
		Subtotal:        decimal.NewFromInt(1),
		OrderStatus:     enums.OrderStatusAssigned,
	}
}

func TestFindDivisionCandidatesByMarkerAndParent(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	parent := uuid.New()
	require.NoError(t, repo.Create(ctx, newDivisionRow("O1", nil, "A")))
	require.NoError(t, repo.Create(ctx, newDivisionRow("O12", nil, "B")))
	require.NoError(t, repo.Create(ctx, newDivisionRow(parent.String(), &parent, "C")))

	detached := newDivisionRow("O9", &parent, "D")
	detached.Details = nil
	require.NoError(t, repo.Create(ctx, detached))

	rows, err := repo.FindDivisionCandidates(ctx, "O1")
	require.NoError(t, err)
	assert.Len(t, rows, 2, "substring refs are returned as candidates")

	rows, err = repo.FindDivisionCandidates(ctx, parent.String())
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = repo.FindDivisionCandidates(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFindDivisionCandidatesEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	require.NoError(t, repo.Create(ctx, newDivisionRow("O1", nil, "A")))

	rows, err := repo.FindDivisionCandidates(ctx, "O%")
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = repo.FindDivisionCandidates(ctx, "O_")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFindDivisionByStoreIgnoresCase(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	parent := uuid.New()
	row := newDivisionRow("O1", &parent, "Corner Shop")
	require.NoError(t, repo.Create(ctx, row))

	found, err := repo.FindDivisionByStore(ctx, parent, "corner shop")
	require.NoError(t, err)
	assert.Equal(t, row.ID, found.ID)

	_, err = repo.FindDivisionByStore(ctx, uuid.New(), "corner shop")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFindUnlinkedDivisions(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	parent := uuid.New()
	require.NoError(t, repo.Create(ctx, newDivisionRow("O1", nil, "A")))
	require.NoError(t, repo.Create(ctx, newDivisionRow("O1", &parent, "B")))
	require.NoError(t, repo.Create(ctx, &models.Order{ID: uuid.New(), OrderStatus: enums.OrderStatusPending}))

	rows, err := repo.FindUnlinkedDivisions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].StoreName())
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	order := &models.Order{ID: uuid.New(), OrderStatus: enums.OrderStatusPending}
	require.NoError(t, repo.Create(ctx, order))
	require.NoError(t, repo.CreateLineItems(ctx, []models.OrderLineItem{{
		OrderID:     order.ID,
		ProductName: "Tea",
		Quantity:    1,
		UnitPrice:   decimal.NewFromInt(3),
		TotalPrice:  decimal.NewFromInt(3),
		StoreName:   "A",
	}}))

	require.NoError(t, repo.Update(ctx, order.ID, map[string]any{"order_status": enums.OrderStatusAssigned}))
	loaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAssigned, loaded.OrderStatus)
	require.Len(t, loaded.LineItems, 1)

	assert.ErrorIs(t, repo.Update(ctx, uuid.New(), map[string]any{"order_status": enums.OrderStatusAssigned}), gorm.ErrRecordNotFound)

	require.NoError(t, repo.Delete(ctx, order.ID))
	_, err = repo.FindByID(ctx, order.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	items, err := repo.FindLineItems(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.ErrorIs(t, repo.Delete(ctx, order.ID), gorm.ErrRecordNotFound)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	repo := NewRepository(db)

	storeID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		order := &models.Order{ID: uuid.New(), OrderStatus: enums.OrderStatusAssigned, AssignedStoreID: &storeID, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.Create(ctx, order))
		ids = append(ids, order.ID)
	}
	require.NoError(t, repo.Create(ctx, &models.Order{ID: uuid.New(), OrderStatus: enums.OrderStatusPending}))

	page, next, err := repo.List(ctx, ListFilters{StoreID: &storeID}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	page, next, err = repo.List(ctx, ListFilters{StoreID: &storeID}, pagination.Params{Limit: 2, Cursor: pagination.EncodeCursor(*next)})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Nil(t, next)
	assert.Equal(t, ids[0], page[0].ID)

	_, _, err = repo.List(ctx, ListFilters{}, pagination.Params{Cursor: "not-base64!"})
	assert.Error(t, err)
}

func TestFindOriginalByCodeSkipsDivisions(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	code := "O5"
	division := newDivisionRow(code, nil, "A")
	division.OrderCode = &code
	require.NoError(t, repo.Create(ctx, division))

	_, err := repo.FindOriginalByCode(ctx, code)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	original := &models.Order{ID: uuid.New(), OrderCode: &code, OrderStatus: enums.OrderStatusPending}
	require.NoError(t, repo.Create(ctx, original))

	found, err := repo.FindOriginalByCode(ctx, " O5 ")
	require.NoError(t, err)
	assert.Equal(t, original.ID, found.ID)
}
