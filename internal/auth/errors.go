package auth

import (
	"errors"
	"fmt"
)

// FlowInitiationError indicates the device-code flow could not be
// started, e.g. the provider response lacked a user code.
type FlowInitiationError struct {
	// Description is the provider's error description, when available.
	Description string
	Err         error
}

// Error implements the error interface.
func (e *FlowInitiationError) Error() string {
	if e.Description != "" {
		return "failed to create device flow: " + e.Description
	}
	return "failed to create device flow"
}

// Unwrap returns the underlying error for error chain inspection.
func (e *FlowInitiationError) Unwrap() error {
	return e.Err
}

// AuthenticationError indicates the device-code flow started but did not
// complete: the user denied the request, the flow timed out, or the
// provider rejected it.
type AuthenticationError struct {
	// Description is the provider's error description, when available.
	Description string
	Err         error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if e.Description != "" {
		return "authentication failed: " + e.Description
	}
	return "authentication failed"
}

// Unwrap returns the underlying error for error chain inspection.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// NoCachedTokenError indicates silent token acquisition is impossible:
// either no credential was ever cached, or the cached credential could
// not be refreshed. Err distinguishes the two (nil means no credential).
type NoCachedTokenError struct {
	Err error
}

// Error implements the error interface.
func (e *NoCachedTokenError) Error() string {
	msg := "no cached authentication token found, please run 'heblo-mcp login' to authenticate"
	if e.Err != nil {
		msg = "cached token could not be refreshed, please run 'heblo-mcp login' to re-authenticate: " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *NoCachedTokenError) Unwrap() error {
	return e.Err
}

// Sentinel errors for the distinct bearer-token validation failure
// modes. Callers match them with errors.Is; the middleware returns their
// message in the 401 body.
var (
	ErrTokenExpired      = errors.New("token expired, please refresh your authentication")
	ErrInvalidAudience   = errors.New("token not valid for this service: invalid audience")
	ErrInvalidIssuer     = errors.New("token not valid for this service: invalid issuer")
	ErrInvalidSignature  = errors.New("invalid token signature")
	ErrMalformedToken    = errors.New("invalid token format, expected a JWT bearer token")
	ErrUnknownSigningKey = errors.New("unable to find matching signing key in JWKS")
	ErrKeySetUnavailable = errors.New("unable to fetch signing keys")
)

// ValidationError wraps one of the sentinel validation errors (or a
// catch-all cause) with optional detail. errors.Is matches the sentinel
// through Unwrap.
type ValidationError struct {
	Kind   error
	Detail string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Kind == nil {
		return "token validation failed: " + e.Detail
	}
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Detail)
}

// Unwrap returns the sentinel this validation error wraps.
func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func validationError(kind error, detail string) *ValidationError {
	return &ValidationError{Kind: kind, Detail: detail}
}
