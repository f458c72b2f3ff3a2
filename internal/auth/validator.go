package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/onpaj/heblo-mcp/internal/config"
)

// Validator verifies inbound bearer tokens against the tenant's
// published signing keys and produces the per-request UserContext.
type Validator struct {
	audience string
	issuer   string
	keys     *JWKSCache
}

// NewValidator creates a validator for the configured tenant. The
// expected audience is the application client ID; the expected issuer
// is the tenant's v2.0 issuer URL.
func NewValidator(cfg config.Config, client *http.Client) *Validator {
	return &Validator{
		audience: cfg.ClientID,
		issuer:   cfg.IssuerURL(),
		keys:     NewJWKSCache(cfg.JWKSURL(), time.Duration(cfg.JWKSCacheTTLSeconds)*time.Second, client),
	}
}

// Validate verifies the token's signature, expiry, audience and issuer
// and returns the user context carried by its claims. Each failure mode
// maps to a distinct sentinel error (see errors.go).
func (v *Validator) Validate(ctx context.Context, rawToken string) (*UserContext, error) {
	key, err := v.signingKeyFor(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(rawToken, claims,
		func(t *jwt.Token) (interface{}, error) { return key, nil },
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.audience),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}

	email, _ := claims["preferred_username"].(string)
	if email == "" {
		email, _ = claims["email"].(string)
	}
	objectID, _ := claims["oid"].(string)
	tenantID, _ := claims["tid"].(string)

	return &UserContext{
		Email:    email,
		TenantID: tenantID,
		ObjectID: objectID,
		Token:    rawToken,
	}, nil
}

// signingKeyFor reads the token header without verifying the signature,
// obtains the current key set, and selects the key matching the header's
// kid. A token without a kid falls back to the first available key.
func (v *Validator) signingKeyFor(ctx context.Context, rawToken string) (interface{}, error) {
	unverified, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return nil, validationError(ErrMalformedToken, "")
	}

	keys, err := v.keys.Keys(ctx)
	if err != nil {
		return nil, err
	}

	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return keys[0].Key, nil
	}
	for _, key := range keys {
		if key.KeyID == kid {
			return key.Key, nil
		}
	}
	return nil, validationError(ErrUnknownSigningKey, "")
}

// mapJWTError translates golang-jwt failures into this package's
// sentinel validation errors. Anything unrecognized becomes a catch-all
// ValidationError carrying the library's message.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return validationError(ErrTokenExpired, "")
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return validationError(ErrInvalidAudience, "")
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return validationError(ErrInvalidIssuer, "")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return validationError(ErrInvalidSignature, "")
	case errors.Is(err, jwt.ErrTokenMalformed):
		return validationError(ErrMalformedToken, "")
	default:
		return &ValidationError{Detail: err.Error()}
	}
}
