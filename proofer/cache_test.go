package proofer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCachePutGet(t *testing.T) {
	c, err := NewCache(8, time.Minute)
	require.NoError(t, err)

	c.Put("a", []byte("value"))
	got, ok := c.Get("a")
	require.Equal(t, true, ok)
	require.Equal(t, []byte("value"), got)

	_, ok = c.Get("missing")
	require.Equal(t, false, ok)
}

func TestCacheInvalidate(t *testing.T) {
	c, err := NewCache(8, time.Minute)
	require.NoError(t, err)

	c.Put("a", []byte("value"))
	c.Invalidate("a")
	_, ok := c.Get("a")
	require.Equal(t, false, ok)
}

func TestCacheWorkerGate(t *testing.T) {
	c, err := NewCache(8, time.Minute)
	require.NoError(t, err)

	c.BeginWorker()
	c.Put("a", []byte("value"))
	_, ok := c.Get("a")
	require.Equal(t, false, ok)

	c.EndWorker()
	c.Put("a", []byte("value"))
	_, ok = c.Get("a")
	require.Equal(t, true, ok)
}

func TestCacheExpiry(t *testing.T) {
	c, err := NewCache(8, -time.Second)
	require.NoError(t, err)
	c.Put("a", []byte("value"))
	_, ok := c.Get("a")
	require.Equal(t, false, ok)

	c.Cleanup()
	_, ok = c.Get("a")
	require.Equal(t, false, ok)
}

func TestContextLocalCacheMigratesOnFree(t *testing.T) {
	c, err := NewCache(8, time.Minute)
	require.NoError(t, err)

	pc, err := NewContext("eth_getLogs", []byte(`[{}]`), 1, 0, c)
	require.NoError(t, err)
	pc.cachePut("k", []byte("v"))

	_, ok := c.Get("k")
	require.Equal(t, false, ok)

	pc.Free()
	got, ok := c.Get("k")
	require.Equal(t, true, ok)
	require.Equal(t, []byte("v"), got)
}
