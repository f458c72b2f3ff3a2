package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/onpaj/heblo-mcp/pkg/logging"
)

// bypassPaths are served without bearer authentication: the health
// check, and the OAuth proxy endpoints which manage their own trust
// boundary.
var bypassPaths = map[string]bool{
	"/":          true,
	"/authorize": true,
	"/callback":  true,
	"/token":     true,
}

// Middleware enforces bearer-token authentication on inbound requests.
// Validation failures are fully absorbed here as 401 responses; they
// never reach the wrapped handler.
type Middleware struct {
	validator *Validator
}

// NewMiddleware creates the inbound auth middleware.
func NewMiddleware(validator *Validator) *Middleware {
	return &Middleware{validator: validator}
}

// Wrap returns a handler that authenticates every request before
// passing it on with the validated UserContext attached.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bypassPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			writeUnauthorized(w, "Authentication required. Please provide Bearer token.")
			return
		}

		user, err := m.validator.Validate(r.Context(), token)
		if err != nil {
			logging.Debug("Auth", "Rejected inbound request to %s: %v", r.URL.Path, err)
			writeUnauthorized(w, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), user)))
	})
}

// extractBearerToken pulls the token out of the Authorization header.
// Returns "" when the header is absent or not a bearer credential.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// writeUnauthorized sends the machine-readable 401 body. No stack
// traces or internals beyond the validation message.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
