package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/onpaj/heblo-mcp/pkg/logging"
)

// maxJWKSResponseBytes bounds the JWKS response body read.
const maxJWKSResponseBytes = 1 << 20

// SigningKey is one public key from the provider's key set.
type SigningKey struct {
	KeyID string
	Key   *rsa.PublicKey
}

// jwksDocument matches the provider's key-set JSON.
type jwksDocument struct {
	Keys []jwkEntry `json:"keys"`
}

type jwkEntry struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSCache fetches the identity provider's signing keys and caches
// them for a TTL. On refresh failure a previously cached set is served
// (stale keys still verify valid tokens); only a cold cache surfaces
// the fetch error.
type JWKSCache struct {
	url    string
	ttl    time.Duration
	client *http.Client

	mu        sync.Mutex
	keys      []SigningKey
	fetchedAt time.Time

	// now is replaceable in tests to simulate TTL expiry.
	now func() time.Time
}

// NewJWKSCache creates a cache for the key set at url. A nil client
// falls back to a default with a 10 second timeout.
func NewJWKSCache(url string, ttl time.Duration, client *http.Client) *JWKSCache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &JWKSCache{
		url:    url,
		ttl:    ttl,
		client: client,
		now:    time.Now,
	}
}

// Keys returns the current key set, fetching when the cache is cold or
// past its TTL. The lock is never held across the network call.
func (c *JWKSCache) Keys(ctx context.Context) ([]SigningKey, error) {
	c.mu.Lock()
	if c.keys != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		keys := c.keys
		c.mu.Unlock()
		return keys, nil
	}
	c.mu.Unlock()

	fetched, err := c.fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		if c.keys != nil {
			logging.Warn("Auth", "JWKS refresh failed, serving stale key set: %v", err)
			return c.keys, nil
		}
		return nil, validationError(ErrKeySetUnavailable, err.Error())
	}

	c.keys = fetched
	c.fetchedAt = c.now()
	logging.Debug("Auth", "JWKS refreshed, %d signing keys cached", len(fetched))
	return fetched, nil
}

// fetch retrieves and parses the key set.
func (c *JWKSCache) fetch(ctx context.Context) ([]SigningKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSResponseBytes))
	if err != nil {
		return nil, err
	}

	var doc jwksDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JWKS document: %w", err)
	}

	var keys []SigningKey
	for _, entry := range doc.Keys {
		if entry.Kty != "RSA" {
			continue
		}
		key, err := rsaPublicKeyFromJWK(entry)
		if err != nil {
			logging.Warn("Auth", "Skipping unparsable JWKS entry kid=%s: %v", entry.Kid, err)
			continue
		}
		keys = append(keys, SigningKey{KeyID: entry.Kid, Key: key})
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("JWKS document contained no usable RSA keys")
	}
	return keys, nil
}

// rsaPublicKeyFromJWK builds an rsa.PublicKey from the base64url
// modulus and exponent members of a JWK.
func rsaPublicKeyFromJWK(entry jwkEntry) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(entry.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(entry.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 0 {
		return nil, fmt.Errorf("non-positive exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
