package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("customer_rejected")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCustomerRejected, status)

	_, err = ParseOrderStatus("Delivered")
	assert.EqualError(t, err, `invalid order status "Delivered"`)
}

func TestStoreResponseSpellings(t *testing.T) {
	for _, s := range []StoreResponseStatus{StoreResponseAvailable, StoreResponseAccepted} {
		assert.True(t, s.IsConfirmed(), s)
		assert.False(t, s.IsDeclined(), s)
	}
	for _, s := range []StoreResponseStatus{StoreResponseUnavailable, StoreResponseRejected} {
		assert.True(t, s.IsDeclined(), s)
	}
	assert.False(t, StoreResponsePending.IsConfirmed())
	assert.False(t, StoreResponseCustomerRejected.IsDeclined())

	_, err := ParseStoreResponseStatus("maybe")
	assert.Error(t, err)
}

func TestClosedSets(t *testing.T) {
	assert.True(t, ActorRoleSystem.IsValid())
	assert.False(t, ActorRole("owner").IsValid())
	assert.True(t, NotificationTypeCustomerRejected.IsValid())
	assert.True(t, EventAllDivisionsCompleted.IsValid())
	assert.False(t, OutboxEventType("order_teleported").IsValid())
	assert.True(t, StoreDecisionDecline.IsValid())
	assert.False(t, StoreDecision("ignore").IsValid())
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCustomerRejected.IsTerminal())
	assert.False(t, OrderStatusRejected.IsTerminal())
	assert.False(t, OrderStatusReady.IsTerminal())
}
