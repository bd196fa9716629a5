// Package auth verifies the bearer tokens issued by the identity service.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storeorders/pkg/config"
	"github.com/angelmondragon/storeorders/pkg/enums"
)

const clockSkew = 30 * time.Second

var signingMethod = jwt.SigningMethodHS256

// AccessTokenClaims is the bearer token payload. StoreID is set for store
// staff and CustomerPhone for customers.
type AccessTokenClaims struct {
	UserID        uuid.UUID       `json:"user_id"`
	Role          enums.ActorRole `json:"role"`
	StoreID       *uuid.UUID      `json:"store_id,omitempty"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims pass; jwt calls it while parsing.
func (c AccessTokenClaims) Validate() error {
	switch c.Role {
	case enums.ActorRoleAdmin:
	case enums.ActorRoleStore:
		if c.StoreID == nil || *c.StoreID == uuid.Nil {
			return errors.New("store role requires store_id")
		}
	case enums.ActorRoleCustomer:
		if strings.TrimSpace(c.CustomerPhone) == "" {
			return errors.New("customer role requires customer_phone")
		}
	default:
		return fmt.Errorf("invalid actor role %q", c.Role)
	}
	return nil
}

// AccessTokenPayload is what a caller supplies to MintAccessToken.
type AccessTokenPayload struct {
	UserID        uuid.UUID
	Role          enums.ActorRole
	StoreID       *uuid.UUID
	CustomerPhone string
	JTI           string
}

// MintAccessToken signs a token valid for cfg.ExpirationMinutes from now.
// Production tokens come from the identity service; tests and local tooling
// mint their own.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errors.New("jwt secret is required")
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := AccessTokenClaims{
		UserID:        payload.UserID,
		Role:          payload.Role,
		StoreID:       payload.StoreID,
		CustomerPhone: strings.TrimSpace(payload.CustomerPhone),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
		},
	}
	if err := claims.Validate(); err != nil {
		return "", err
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry, then the role
// specific claims.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)

	claims := &AccessTokenClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value. A bare
// token without the scheme is accepted.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if strings.EqualFold(header, "bearer") {
		return ""
	}
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return header
}
