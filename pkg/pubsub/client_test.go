package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/storeorders/pkg/config"
)

func TestQualify(t *testing.T) {
	c := &Client{projectID: "orders-prod"}

	assert.Equal(t, "projects/orders-prod/topics/orders", c.qualify(kindTopic, "orders"))
	assert.Equal(t, "projects/other/topics/orders", c.qualify(kindTopic, "projects/other/topics/orders"))
	assert.Equal(t, "projects/orders-prod/subscriptions/notify", c.qualify(kindSubscription, " notify "))
	// a topic path is not a valid subscription name
	assert.Equal(t, "projects/orders-prod/subscriptions/projects/other/topics/orders",
		c.qualify(kindSubscription, "projects/other/topics/orders"))
	assert.Empty(t, c.qualify(kindSubscription, ""))
	assert.Empty(t, (&Client{}).qualify(kindTopic, "orders"))
}

func TestNilClientIsInert(t *testing.T) {
	var c *Client
	assert.Empty(t, c.qualify(kindTopic, "orders"))
	assert.Nil(t, c.Publisher("orders"))
	assert.Nil(t, c.OrdersPublisher())
	assert.Nil(t, c.NotificationSubscription())
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Ping(context.Background()), errNotInitialized)
	assert.ErrorIs(t, c.RequireTopics(context.Background(), "orders"), errNotInitialized)
}

func TestNonBlank(t *testing.T) {
	assert.Empty(t, nonBlank([]string{"", "  "}))
	assert.Equal(t, []string{"a", "b"}, nonBlank([]string{" a", "", "b "}))
}

func TestClientOptionsPreferInlineCredentials(t *testing.T) {
	assert.Empty(t, clientOptions(config.GCPConfig{}))
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/key.json"}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/key.json"}), 1)
}
