package notifications

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/angelmondragon/storeorders/pkg/enums"
	"github.com/angelmondragon/storeorders/pkg/i18n"
	"github.com/angelmondragon/storeorders/pkg/logger"
	"github.com/angelmondragon/storeorders/pkg/outbox"
	"github.com/angelmondragon/storeorders/pkg/outbox/idempotency"
	"github.com/angelmondragon/storeorders/pkg/outbox/registry"
)

// ConsumerName scopes the dedupe markers of the notifications consumer.
const ConsumerName = "order-notifications"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type processedMarker interface {
	Claim(ctx context.Context, eventID uuid.UUID) (bool, error)
	Forget(ctx context.Context, eventID uuid.UUID) error
}

// ConsumerParams wires the notifications consumer.
type ConsumerParams struct {
	Repository   Repository
	Subscription receiver
	Idempotency  *idempotency.Dedupe
	Decoders     *registry.DecoderRegistry
	Logger       *logger.Logger
	// Language renders stored notification texts; English when unset.
	Language language.Tag
}

// Consumer turns order and division events into bell notifications.
type Consumer struct {
	repo         Repository
	subscription receiver
	idempotency  processedMarker
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
	lang         language.Tag
}

// NewConsumer builds the order notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Decoders == nil {
		return nil, fmt.Errorf("event decoders required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	lang := params.Language
	if lang == language.Und {
		lang = language.English
	}
	return &Consumer{
		repo:         params.Repository,
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		decoders:     params.Decoders,
		logg:         params.Logger,
		lang:         lang,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack     bool
	nack    bool
	created int
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	}
	logCtx := c.logg.WithFields(ctx, fields)

	envelope, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	if !c.decoders.Has(eventType, envelope.Version) {
		c.logg.Debug(logCtx, "skipping event without notifications")
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	first, err := c.idempotency.Claim(ctx, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !first {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}

	notes := Build(i18n.WithLanguage(ctx, c.lang), eventType, payload)
	if len(notes) == 0 {
		c.logg.Debug(logCtx, "event produced no notifications")
		return processResult{ack: true}
	}
	if err := c.repo.CreateBatch(ctx, notes); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		if err := c.idempotency.Forget(ctx, eventID); err != nil {
			c.logg.Error(logCtx, "failed to release idempotency marker", err)
		}
		return processResult{nack: true}
	}

	c.logg.Info(c.logg.WithField(logCtx, "notifications", len(notes)), "notifications recorded")
	return processResult{ack: true, created: len(notes)}
}
