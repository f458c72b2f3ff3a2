package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/onpaj/heblo-mcp/pkg/logging"
)

// CachedCredential is the serialized form of the local credential cache.
type CachedCredential struct {
	// AccessToken is the bearer token for API calls.
	AccessToken string `json:"access_token"`

	// RefreshToken enables silent renewal after the access token
	// expires.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`

	// Expiry is when the access token expires.
	Expiry time.Time `json:"expiry,omitempty"`

	// Account is a display hint for the signed-in account (the device
	// flow produces exactly one).
	Account string `json:"account,omitempty"`

	// CreatedAt is when the credential was cached.
	CreatedAt time.Time `json:"created_at"`
}

// ToOAuth2Token converts the credential to an oauth2.Token for use with
// a refreshing TokenSource.
func (c *CachedCredential) ToOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// NewCachedCredential builds a credential record from an oauth2 token.
func NewCachedCredential(token *oauth2.Token, account string) *CachedCredential {
	return &CachedCredential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
		Account:      account,
		CreatedAt:    time.Now(),
	}
}

// TokenCache persists a single credential record to a file.
//
// SECURITY: the cache file holds live credentials. It is written with
// 0600 permissions and its directory is created with 0700. Token values
// are never logged.
type TokenCache struct {
	mu   sync.Mutex
	path string

	// lastWritten is the serialized form most recently read from or
	// written to disk, so unchanged state does not trigger a rewrite.
	lastWritten []byte
}

// NewTokenCache creates a cache backed by the file at path. The file is
// not touched until Save is called.
func NewTokenCache(path string) *TokenCache {
	return &TokenCache{path: path}
}

// Path returns the cache file location.
func (c *TokenCache) Path() string {
	return c.path
}

// Load reads the cached credential. A missing, unreadable or corrupt
// file is treated as an empty cache, never as a fatal condition.
func (c *TokenCache) Load() *CachedCredential {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path) // #nosec G304 -- path comes from configuration
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Auth", "Failed to read token cache %s: %v", c.path, err)
		}
		return nil
	}

	var cred CachedCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		logging.Warn("Auth", "Token cache %s is corrupt, treating as empty: %v", c.path, err)
		return nil
	}

	c.lastWritten = data
	return &cred
}

// Save persists the credential, writing only when the serialized form
// differs from what is already on disk.
func (c *TokenCache) Save(cred *CachedCredential) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	if bytes.Equal(data, c.lastWritten) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token cache directory: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}

	c.lastWritten = data
	logging.Debug("Auth", "Token cache updated at %s", c.path)
	return nil
}

// Clear removes the cache file.
func (c *TokenCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastWritten = nil
	err := os.Remove(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
