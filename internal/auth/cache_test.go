package auth

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestTokenCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	cache := NewTokenCache(path)

	require.Nil(t, cache.Load(), "empty cache loads as nil")

	cred := NewCachedCredential(&oauth2.Token{
		AccessToken:  "access-123",
		RefreshToken: "refresh-456",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Truncate(time.Second),
	}, "user@example.com")
	require.NoError(t, cache.Save(cred))

	loaded := NewTokenCache(path).Load()
	require.NotNil(t, loaded)
	assert.Equal(t, "access-123", loaded.AccessToken)
	assert.Equal(t, "refresh-456", loaded.RefreshToken)
	assert.Equal(t, "user@example.com", loaded.Account)
}

func TestTokenCacheFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file mode semantics differ on windows")
	}

	path := filepath.Join(t.TempDir(), "sub", "tokens.json")
	cache := NewTokenCache(path)
	require.NoError(t, cache.Save(&CachedCredential{AccessToken: "a"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())
}

func TestTokenCacheCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	assert.Nil(t, NewTokenCache(path).Load(), "corrupt cache loads as empty, not fatal")
}

func TestTokenCacheSkipsUnchangedWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	cache := NewTokenCache(path)

	cred := &CachedCredential{AccessToken: "stable", CreatedAt: time.Unix(1700000000, 0).UTC()}
	require.NoError(t, cache.Save(cred))

	// Scribble on the file behind the cache's back. If the second Save
	// short-circuits on unchanged content, the scribble survives.
	require.NoError(t, os.WriteFile(path, []byte("sentinel"), 0o600))
	require.NoError(t, cache.Save(cred))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sentinel", string(data))
}

func TestTokenCacheClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	cache := NewTokenCache(path)

	require.NoError(t, cache.Clear(), "clearing a missing cache is not an error")

	require.NoError(t, cache.Save(&CachedCredential{AccessToken: "a"}))
	require.NoError(t, cache.Clear())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Nil(t, cache.Load())
}
