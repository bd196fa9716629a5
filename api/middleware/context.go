package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storeorders/pkg/enums"
	"github.com/angelmondragon/storeorders/pkg/outbox"
)

type contextKey string

const (
	ctxUserID        contextKey = "user_id"
	ctxRole          contextKey = "actor_role"
	ctxStoreID       contextKey = "store_id"
	ctxCustomerPhone contextKey = "customer_phone"
)

func UserIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxUserID)
}

func RoleFromContext(ctx context.Context) enums.ActorRole {
	return enums.ActorRole(stringFromContext(ctx, ctxRole))
}

func StoreIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxStoreID)
}

func CustomerPhoneFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxCustomerPhone)
}

// ActorFromContext rebuilds the authenticated actor attached by Auth.
// It returns nil when the request carries no valid user.
func ActorFromContext(ctx context.Context) *outbox.ActorRef {
	userID, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return nil
	}
	actor := &outbox.ActorRef{UserID: userID, Role: RoleFromContext(ctx)}
	if raw := StoreIDFromContext(ctx); raw != "" {
		if storeID, err := uuid.Parse(raw); err == nil {
			actor.StoreID = &storeID
		}
	}
	return actor
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return withValue(ctx, ctxUserID, userID)
}

func WithRole(ctx context.Context, role enums.ActorRole) context.Context {
	return withValue(ctx, ctxRole, string(role))
}

// WithStoreID injects the store identifier into the context for downstream handlers.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	return withValue(ctx, ctxStoreID, storeID)
}

func WithCustomerPhone(ctx context.Context, phone string) context.Context {
	return withValue(ctx, ctxCustomerPhone, phone)
}

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
