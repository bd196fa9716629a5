package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storeorders/pkg/db/dbtest"
	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/enums"
)

func TestRepositoryScopesByRecipient(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	storeA, storeB := uuid.New(), uuid.New()
	phone := "+15550100"
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []models.Notification{
		{RecipientRole: enums.ActorRoleStore, StoreID: &storeA, Type: enums.NotificationTypeNewOrder, Title: "a1", Message: "m", CreatedAt: base},
		{RecipientRole: enums.ActorRoleStore, StoreID: &storeA, Type: enums.NotificationTypeNewOrder, Title: "a2", Message: "m", CreatedAt: base.Add(time.Minute)},
		{RecipientRole: enums.ActorRoleStore, StoreID: &storeB, Type: enums.NotificationTypeNewOrder, Title: "b1", Message: "m", CreatedAt: base},
		{RecipientRole: enums.ActorRoleCustomer, CustomerPhone: &phone, Type: enums.NotificationTypeOrderDelivered, Title: "c1", Message: "m", CreatedAt: base},
		{RecipientRole: enums.ActorRoleAdmin, Type: enums.NotificationTypeNewOrder, Title: "admin", Message: "m", CreatedAt: base},
	}
	require.NoError(t, repo.CreateBatch(ctx, rows))

	recipientA := Recipient{Role: enums.ActorRoleStore, StoreID: &storeA}
	page, next, err := repo.List(ctx, listQuery{Recipient: recipientA, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a2", page[0].Title)
	require.NotNil(t, next)

	page, next, err = repo.List(ctx, listQuery{Recipient: recipientA, Limit: 1, Cursor: next})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a1", page[0].Title)
	assert.Nil(t, next)

	customer, _, err := repo.List(ctx, listQuery{Recipient: Recipient{Role: enums.ActorRoleCustomer, CustomerPhone: phone}})
	require.NoError(t, err)
	require.Len(t, customer, 1)
	assert.Equal(t, "c1", customer[0].Title)

	admin, _, err := repo.List(ctx, listQuery{Recipient: Recipient{Role: enums.ActorRoleAdmin}})
	require.NoError(t, err)
	require.Len(t, admin, 1)

	found, err := repo.MarkRead(ctx, Recipient{Role: enums.ActorRoleStore, StoreID: &storeB}, rows[0].ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, found)

	firstRead := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	found, err = repo.MarkRead(ctx, recipientA, rows[0].ID, firstRead)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.MarkRead(ctx, recipientA, rows[0].ID, firstRead.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, found)

	count, err := repo.MarkAllRead(ctx, recipientA, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	unread, _, err := repo.List(ctx, listQuery{Recipient: recipientA, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)

	all, _, err := repo.List(ctx, listQuery{Recipient: recipientA})
	require.NoError(t, err)
	for _, n := range all {
		if n.ID == rows[0].ID {
			require.NotNil(t, n.ReadAt)
			assert.True(t, firstRead.Equal(*n.ReadAt))
		}
	}
}

func TestRepositoryDeleteReadBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateBatch(ctx, []models.Notification{
		{RecipientRole: enums.ActorRoleAdmin, Type: enums.NotificationTypeNewOrder, Title: "old", Message: "m", ReadAt: &old},
		{RecipientRole: enums.ActorRoleAdmin, Type: enums.NotificationTypeNewOrder, Title: "recent", Message: "m", ReadAt: &recent},
		{RecipientRole: enums.ActorRoleAdmin, Type: enums.NotificationTypeNewOrder, Title: "unread", Message: "m"},
	}))

	deleted, err := repo.DeleteReadBefore(ctx, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, _, err := repo.List(ctx, listQuery{Recipient: Recipient{Role: enums.ActorRoleAdmin}})
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}
