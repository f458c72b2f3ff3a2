package auth

import (
	"context"
	"io"
	"net/http"

	"github.com/onpaj/heblo-mcp/pkg/logging"
)

// TokenProvider supplies a bearer token for an outbound request.
// DeviceAuthenticator satisfies it in stdio mode.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// DeviceTokenTransport authenticates outbound API requests with a token
// from the local device-flow credential cache. A 401 response triggers
// one fresh token acquisition and one resend.
type DeviceTokenTransport struct {
	Base     http.RoundTripper
	Provider TokenProvider
}

// RoundTrip implements http.RoundTripper.
func (t *DeviceTokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Provider.Token(req.Context())
	if err != nil {
		return nil, err
	}

	resp, err := t.base().RoundTrip(withBearer(req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if !rewindable(req) {
		return resp, nil
	}
	drain(resp)

	logging.Debug("Auth", "Outbound request got 401, retrying once with a fresh token")
	token, err = t.Provider.Token(req.Context())
	if err != nil {
		return nil, err
	}
	return t.base().RoundTrip(withBearer(req, token))
}

func (t *DeviceTokenTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// UserTokenTransport authenticates outbound API requests with the
// validated inbound user's token, taken from the request context in SSE
// mode. Requests without a user context (e.g. the OAuth proxy's own
// upstream calls) pass through unmodified.
type UserTokenTransport struct {
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *UserTokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	user, ok := UserFromContext(req.Context())
	if !ok {
		return t.base().RoundTrip(req)
	}

	resp, err := t.base().RoundTrip(withBearer(req, user.Token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if !rewindable(req) {
		return resp, nil
	}
	drain(resp)

	// The per-request context is the only token source in this mode, so
	// the retry presents the same credential: it covers transient
	// rejections, not expiry.
	logging.Debug("Auth", "Outbound request got 401, retrying once")
	return t.base().RoundTrip(withBearer(req, user.Token))
}

func (t *UserTokenTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// withBearer clones the request (RoundTrippers must not mutate their
// input) and sets the Authorization header. The body, when present, is
// re-materialized via GetBody so the clone can be sent independently.
func withBearer(req *http.Request, token string) *http.Request {
	clone := req.Clone(req.Context())
	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err == nil {
			clone.Body = body
		}
	}
	clone.Header.Set("Authorization", "Bearer "+token)
	return clone
}

// rewindable reports whether the request body can be replayed for a
// retry. Bodyless requests always can.
func rewindable(req *http.Request) bool {
	return req.Body == nil || req.GetBody != nil
}

// drain discards and closes a response body so the underlying
// connection can be reused before the retry.
func drain(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}
}
