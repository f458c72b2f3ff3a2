package oauth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/onpaj/heblo-mcp/pkg/logging"
)

const (
	// DefaultStateTTL is how long a pending authorization may wait for
	// its provider callback.
	DefaultStateTTL = 10 * time.Minute

	// DefaultCodeTTL is how long a minted proxy code stays redeemable.
	DefaultCodeTTL = 5 * time.Minute

	// proxyCodeBytes is the entropy of a minted proxy code; 32 bytes
	// encode to 43 base64url characters.
	proxyCodeBytes = 32
)

// OAuthState is a pending authorization request, stored between
// /authorize and /callback and keyed by the client's state parameter.
type OAuthState struct {
	CodeChallenge       string
	CodeChallengeMethod string
	RedirectURI         string
	Scope               string
	CreatedAt           time.Time
}

// ProxyCode maps a locally minted authorization code to the upstream
// access token it stands in for, stored between /callback and /token.
type ProxyCode struct {
	AccessToken   string
	CodeChallenge string
	CreatedAt     time.Time
}

// SessionStore is the in-memory state shared by the OAuth proxy
// endpoints. One mutex guards both maps so that expiry check, read and
// removal are a single atomic unit; a state or code is consumable
// exactly once. Expired entries are swept lazily on access to the map
// they live in, not by a background timer.
//
// Single-instance only: sessions do not survive a restart and cannot be
// shared across replicas.
type SessionStore struct {
	mu     sync.Mutex
	states map[string]OAuthState
	codes  map[string]ProxyCode

	stateTTL time.Duration
	codeTTL  time.Duration

	// now is replaceable in tests to simulate clock advance.
	now func() time.Time
}

// NewSessionStore creates a store with the default TTLs (state 600s,
// proxy code 300s).
func NewSessionStore() *SessionStore {
	return &SessionStore{
		states:   make(map[string]OAuthState),
		codes:    make(map[string]ProxyCode),
		stateTTL: DefaultStateTTL,
		codeTTL:  DefaultCodeTTL,
		now:      time.Now,
	}
}

// StoreState records a pending authorization keyed by the client's
// state parameter. A repeated state overwrites the previous entry, so a
// state maps to at most one live authorization.
func (s *SessionStore) StoreState(state string, data OAuthState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepStatesLocked()
	data.CreatedAt = s.now()
	s.states[state] = data
}

// ConsumeState atomically looks up and removes the pending
// authorization for the given state. An expired or unknown state
// behaves as absent.
func (s *SessionStore) ConsumeState(state string) (OAuthState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepStatesLocked()
	data, ok := s.states[state]
	if !ok {
		return OAuthState{}, false
	}
	delete(s.states, state)
	return data, true
}

// CreateCode mints a random proxy code bound to the upstream access
// token and the PKCE challenge from the originating authorization.
func (s *SessionStore) CreateCode(accessToken, codeChallenge string) (string, error) {
	raw := make([]byte, proxyCodeBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate proxy code: %w", err)
	}
	code := base64.RawURLEncoding.EncodeToString(raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepCodesLocked()
	s.codes[code] = ProxyCode{
		AccessToken:   accessToken,
		CodeChallenge: codeChallenge,
		CreatedAt:     s.now(),
	}
	return code, nil
}

// ExchangeCode atomically removes the proxy code and, when the PKCE
// verifier matches the recorded challenge, returns the upstream access
// token. Unknown code, expired code and verifier mismatch are
// indistinguishable to the caller; in every case the code is gone and
// cannot be replayed.
func (s *SessionStore) ExchangeCode(code, codeVerifier string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepCodesLocked()
	data, ok := s.codes[code]
	if !ok {
		return "", false
	}
	delete(s.codes, code)

	challenge := ChallengeS256(codeVerifier)
	if subtle.ConstantTimeCompare([]byte(challenge), []byte(data.CodeChallenge)) != 1 {
		return "", false
	}
	return data.AccessToken, true
}

// sweepStatesLocked removes expired states. Caller must hold s.mu.
func (s *SessionStore) sweepStatesLocked() {
	now := s.now()
	removed := 0
	for state, data := range s.states {
		if now.Sub(data.CreatedAt) > s.stateTTL {
			delete(s.states, state)
			removed++
		}
	}
	if removed > 0 {
		logging.Debug("OAuth", "Swept %d expired authorization states", removed)
	}
}

// sweepCodesLocked removes expired proxy codes. Caller must hold s.mu.
func (s *SessionStore) sweepCodesLocked() {
	now := s.now()
	removed := 0
	for code, data := range s.codes {
		if now.Sub(data.CreatedAt) > s.codeTTL {
			delete(s.codes, code)
			removed++
		}
	}
	if removed > 0 {
		logging.Debug("OAuth", "Swept %d expired proxy codes", removed)
	}
}
