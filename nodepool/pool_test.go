package nodepool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolPick(t *testing.T) {
	pool, err := NewPool([]string{"http://a", "http://b", "http://c"})
	require.NoError(t, err)

	idx, node, err := pool.Pick(0, 0)
	require.NoError(t, err)
	require.Equal(t, 0, idx)
	require.Equal(t, "http://a", node.URL)

	// Excluding the first node moves on to the next.
	idx, node, err = pool.Pick(1<<0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, idx)
	require.Equal(t, "http://b", node.URL)

	// All excluded.
	_, _, err = pool.Pick(0b111, 0)
	require.Equal(t, ErrNoNode, err)
}

func TestPoolPickPreferred(t *testing.T) {
	pool, err := NewPool([]string{"http://a", "http://b"})
	require.NoError(t, err)
	pool.SetClientType(1, ClientLodestar)

	idx, _, err := pool.Pick(0, ClientLodestar)
	require.NoError(t, err)
	require.Equal(t, 1, idx)

	// A preferred node that is excluded falls back to plain order.
	idx, _, err = pool.Pick(1<<1, ClientLodestar)
	require.NoError(t, err)
	require.Equal(t, 0, idx)
}

func TestPoolSizeCap(t *testing.T) {
	urls := make([]string, 17)
	for i := range urls {
		urls[i] = "http://node"
	}
	_, err := NewPool(urls)
	require.Error(t, err)
}
