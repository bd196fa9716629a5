package middleware

import (
	"net/http"

	"github.com/angelmondragon/storeorders/api/responses"
	"github.com/angelmondragon/storeorders/pkg/auth"
	"github.com/angelmondragon/storeorders/pkg/config"
	pkgerrors "github.com/angelmondragon/storeorders/pkg/errors"
	"github.com/angelmondragon/storeorders/pkg/logger"
)

// Auth requires a valid bearer token and seeds the request context with the
// caller's identity.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := auth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithRole(WithUserID(r.Context(), claims.UserID.String()), claims.Role)
			fields := map[string]any{"user_id": claims.UserID.String(), "actor_role": string(claims.Role)}
			if claims.StoreID != nil {
				ctx = WithStoreID(ctx, claims.StoreID.String())
				fields["store_id"] = claims.StoreID.String()
			}
			if claims.CustomerPhone != "" {
				ctx = WithCustomerPhone(ctx, claims.CustomerPhone)
			}
			if logg != nil {
				ctx = logg.WithFields(ctx, fields)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
