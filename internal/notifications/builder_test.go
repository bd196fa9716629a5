package notifications

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/angelmondragon/storeorders/pkg/enums"
	"github.com/angelmondragon/storeorders/pkg/i18n"
	"github.com/angelmondragon/storeorders/pkg/outbox/payloads"
)

func TestBuildDivisionAssigned(t *testing.T) {
	ctx := context.Background()
	storeID := uuid.New()
	divisionID := uuid.New()

	notes := Build(ctx, enums.EventDivisionAssigned, payloads.DivisionEvent{
		OriginalOrderID: "O1",
		DivisionID:      divisionID,
		StoreName:       "A",
		StoreID:         &storeID,
	})
	require.Len(t, notes, 1)
	assert.Equal(t, enums.ActorRoleStore, notes[0].RecipientRole)
	assert.Equal(t, storeID, *notes[0].StoreID)
	assert.Equal(t, divisionID, *notes[0].OrderID)
	assert.Equal(t, "/orders/"+divisionID.String(), *notes[0].Link)

	notes = Build(ctx, enums.EventDivisionAssigned, &payloads.DivisionEvent{OriginalOrderID: "O1", DivisionID: divisionID, StoreName: "Ghost"})
	require.Len(t, notes, 1)
	assert.Equal(t, enums.ActorRoleAdmin, notes[0].RecipientRole)
	assert.Contains(t, notes[0].Message, `"Ghost"`)
	assert.Equal(t, "/admin/orders/"+divisionID.String(), *notes[0].Link)
}

func TestBuildDeclinedNotifiesAdminAndCustomer(t *testing.T) {
	ctx := context.Background()
	phone := " +15550100 "
	notes := Build(ctx, enums.EventDivisionDeclined, payloads.DivisionEvent{
		OriginalOrderID: "O1",
		DivisionID:      uuid.New(),
		StoreName:       "B",
		Reason:          "out of stock",
		CustomerPhone:   &phone,
	})
	require.Len(t, notes, 2)
	assert.Equal(t, enums.ActorRoleAdmin, notes[0].RecipientRole)
	assert.Contains(t, notes[0].Message, "Reason: out of stock")
	assert.Equal(t, enums.ActorRoleCustomer, notes[1].RecipientRole)
	assert.Equal(t, "+15550100", *notes[1].CustomerPhone)
	assert.Equal(t, enums.NotificationTypeDivisionDeclined, notes[1].Type)
}

func TestBuildCompletionWithoutCustomer(t *testing.T) {
	ctx := context.Background()
	notes := Build(ctx, enums.EventAllDivisionsCompleted, payloads.DivisionEvent{OriginalOrderID: "O1"})
	require.Len(t, notes, 1)
	assert.Equal(t, enums.NotificationTypeOrderCompleted, notes[0].Type)
	assert.Nil(t, notes[0].OrderID)
	assert.Contains(t, notes[0].Message, "O1")
}

func TestBuildOrderEvents(t *testing.T) {
	ctx := context.Background()
	code := "O7"
	storeID := uuid.New()
	orderID := uuid.New()

	created := Build(ctx, enums.EventOrderCreated, payloads.OrderEvent{OrderID: orderID, OrderCode: &code, StoreNames: []string{"A", "B"}})
	require.Len(t, created, 1)
	assert.Contains(t, created[0].Message, "across 2 stores: A, B")

	assert.Empty(t, Build(ctx, enums.EventOrderAssigned, payloads.OrderEvent{OrderID: orderID}))

	rejected := Build(ctx, enums.EventOrderCustomerRejected, payloads.OrderEvent{OrderID: orderID, StoreID: &storeID})
	require.Len(t, rejected, 2)
	assert.Equal(t, enums.ActorRoleStore, rejected[1].RecipientRole)
	assert.Contains(t, rejected[1].Message, orderID.String())

	returned := Build(ctx, enums.EventOrderReturned, payloads.OrderEvent{OrderID: orderID, OrderCode: &code, StoreName: "A", Reason: "absent"})
	require.Len(t, returned, 1)
	assert.Equal(t, "A returned order O7. Reason: absent", returned[0].Message)
}

func TestBuildUnknownPayload(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, Build(ctx, enums.EventOrderCreated, map[string]string{}))
	assert.Nil(t, Build(ctx, enums.EventOrderCreated, payloads.DivisionEvent{}))
	assert.Nil(t, Build(ctx, enums.EventDivisionAssigned, (*payloads.DivisionEvent)(nil)))
}

func TestBuildRendersArabic(t *testing.T) {
	arabic := i18n.WithLanguage(context.Background(), language.Arabic)
	code := "O7"

	notes := Build(arabic, enums.EventOrderReturned, payloads.OrderEvent{OrderID: uuid.New(), OrderCode: &code, StoreName: "A", Reason: "absent"})
	require.Len(t, notes, 1)
	assert.Equal(t, "تم إرجاع الطلب", notes[0].Title)
	assert.Equal(t, "أرجع المتجر A الطلب O7. السبب: absent", notes[0].Message)

	notes = Build(arabic, enums.EventAllDivisionsCompleted, payloads.DivisionEvent{OriginalOrderID: "O1"})
	require.Len(t, notes, 1)
	assert.Equal(t, "أكدت جميع المتاجر الطلب O1. الطلب جاهز للتوصيل.", notes[0].Message)
}
