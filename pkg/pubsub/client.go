// Package pubsub owns the Google Pub/Sub v2 client shared by the outbox
// publisher and the notifications worker.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storeorders/pkg/config"
	"github.com/angelmondragon/storeorders/pkg/logger"
)

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

var errNotInitialized = errors.New("pubsub client not initialized")

// Client resolves short topic and subscription IDs against one project and
// remembers which of them the process depends on, so Ping can re-check them.
type Client struct {
	raw       *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	required  []resource
}

type resource struct {
	kind string
	name string
}

// NewClient dials Pub/Sub. Call RequireTopics or RequireSubscriptions
// afterwards to fail fast on missing infrastructure.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errors.New("gcp project id is required")
	}
	raw, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "gcp_project", projectID), "pubsub client initialized")
	}
	return &Client{raw: raw, projectID: projectID, cfg: cfg}, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if inline := strings.TrimSpace(gcp.CredentialsJSON); inline != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(inline))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// RequireTopics checks the topics exist and adds them to the Ping set.
func (c *Client) RequireTopics(ctx context.Context, names ...string) error {
	return c.require(ctx, kindTopic, names)
}

// RequireSubscriptions checks the subscriptions exist and adds them to the Ping set.
func (c *Client) RequireSubscriptions(ctx context.Context, names ...string) error {
	return c.require(ctx, kindSubscription, names)
}

func (c *Client) require(ctx context.Context, kind string, names []string) error {
	if c == nil || c.raw == nil {
		return errNotInitialized
	}
	wanted := nonBlank(names)
	if len(wanted) == 0 {
		return fmt.Errorf("at least one %s name is required", strings.TrimSuffix(kind, "s"))
	}
	for _, name := range wanted {
		res := resource{kind: kind, name: name}
		if err := c.check(ctx, res); err != nil {
			return err
		}
		c.required = append(c.required, res)
	}
	return nil
}

func (c *Client) check(ctx context.Context, res resource) error {
	full := c.qualify(res.kind, res.name)
	var err error
	switch res.kind {
	case kindTopic:
		_, err = c.raw.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
	default:
		_, err = c.raw.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
	}
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", res.kind, full)
	default:
		return fmt.Errorf("checking %s %q: %w", res.kind, full, err)
	}
}

// Ping re-checks every resource registered through Require*.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.raw == nil {
		return errNotInitialized
	}
	for _, res := range c.required {
		if err := c.check(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

// Subscription returns a subscriber for an ID or full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	full := c.qualify(kindSubscription, name)
	if full == "" || c.raw == nil {
		return nil
	}
	return c.raw.Subscriber(full)
}

// NotificationSubscription feeds the notifications worker.
func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.cfg.NotificationSubscription)
}

// Publisher returns a publisher for a topic ID or full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	full := c.qualify(kindTopic, name)
	if full == "" || c.raw == nil {
		return nil
	}
	return c.raw.Publisher(full)
}

// OrdersPublisher publishes order and division events.
func (c *Client) OrdersPublisher() *pubsub.Publisher {
	if c == nil {
		return nil
	}
	return c.Publisher(c.cfg.OrdersTopic)
}

func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

// qualify expands a short ID to projects/<project>/<kind>/<id>; full names
// pass through. It returns "" when no name can be built.
func (c *Client) qualify(kind, name string) string {
	name = strings.TrimSpace(name)
	if c == nil || name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	if c.projectID == "" {
		return ""
	}
	return "projects/" + c.projectID + "/" + kind + "/" + name
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
