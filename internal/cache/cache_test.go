package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpabel/rez/version"
)

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "contexts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCacheRoundTrip(t *testing.T) {
	c := openTemp(t)
	key := []byte("k1")

	got, err := c.Get(key)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Put(key, []byte("payload")))
	got, err = c.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, c.Put(key, []byte("replaced")))
	got, err = c.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("replaced"), got)
}

func TestKeyIgnoresRequestOrder(t *testing.T) {
	a, err := version.ParseRequirements([]string{"foo->=1", "!bar-2.0"})
	require.NoError(t, err)
	b, err := version.ParseRequirements([]string{"!bar-2.0", "foo->=1"})
	require.NoError(t, err)
	assert.Equal(t, Key(a), Key(b))
}

func TestKeyDistinguishesRequests(t *testing.T) {
	a, err := version.ParseRequirements([]string{"foo->=1"})
	require.NoError(t, err)
	b, err := version.ParseRequirements([]string{"foo->=2"})
	require.NoError(t, err)
	assert.NotEqual(t, Key(a), Key(b))

	// Polarity is part of the key.
	c, err := version.ParseRequirements([]string{"!foo->=1"})
	require.NoError(t, err)
	assert.NotEqual(t, Key(a), Key(c))
}
