package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) *Cache {
	t.Helper()
	return NewCache(filepath.Join(t.TempDir(), ".omnify", "credentials.json"))
}

func TestCache_SaveLoadRoundTrip(t *testing.T) {
	c := newCache(t)

	require.NoError(t, c.Save(Credentials{
		Token:     "tok-123",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}))

	creds, err := c.Load()
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "tok-123", creds.Token)
}

func TestCache_LoadMissing(t *testing.T) {
	creds, err := newCache(t).Load()
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestCache_ExpiredTokenIsDropped(t *testing.T) {
	c := newCache(t)
	require.NoError(t, c.Save(Credentials{
		Token:     "stale",
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	creds, err := c.Load()
	require.NoError(t, err)
	assert.Nil(t, creds)

	// The stale file is removed, not just ignored.
	creds, err = c.Load()
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestCache_NoExpiryMeansValid(t *testing.T) {
	c := newCache(t)
	require.NoError(t, c.Save(Credentials{Token: "forever"}))

	creds, err := c.Load()
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "forever", creds.Token)
}

func TestCache_FilePermissions(t *testing.T) {
	c := newCache(t)
	require.NoError(t, c.Save(Credentials{Token: "secret"}))

	info, err := os.Stat(c.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCache_Clear(t *testing.T) {
	c := newCache(t)
	require.NoError(t, c.Save(Credentials{Token: "tok"}))
	require.NoError(t, c.Clear())
	require.NoError(t, c.Clear(), "clearing an empty cache is not an error")

	creds, err := c.Load()
	require.NoError(t, err)
	assert.Nil(t, creds)
}
