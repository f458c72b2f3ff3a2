package auth

import (
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareBypassPaths(t *testing.T) {
	m := NewMiddleware(newTestValidator(t, nil))
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	for _, path := range []string{"/", "/authorize", "/callback", "/token"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusTeapot, rec.Code, "bypass path must skip auth")
		})
	}
}

func TestMiddlewareMissingToken(t *testing.T) {
	m := NewMiddleware(newTestValidator(t, nil))
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached without a token")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"bearer without token", "Bearer "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/sse", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "Authentication required. Please provide Bearer token.", body["error"])
		})
	}
}

func TestMiddlewareInvalidToken(t *testing.T) {
	key := generateKey(t)
	m := NewMiddleware(newTestValidator(t, map[string]*rsa.PublicKey{"kid-1": &key.PublicKey}))
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached with an invalid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/sse", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "invalid token format")
}

func TestMiddlewareAttachesUserContext(t *testing.T) {
	key := generateKey(t)
	m := NewMiddleware(newTestValidator(t, map[string]*rsa.PublicKey{"kid-1": &key.PublicKey}))

	var seen *UserContext
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/sse", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, key, "kid-1", validClaims()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "user@example.com", seen.Email)
	assert.NotEmpty(t, seen.Token)
}

func TestMiddlewareCaseInsensitiveBearer(t *testing.T) {
	key := generateKey(t)
	m := NewMiddleware(newTestValidator(t, map[string]*rsa.PublicKey{"kid-1": &key.PublicKey}))
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/sse", nil)
	req.Header.Set("Authorization", "bearer "+signToken(t, key, "kid-1", validClaims()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
