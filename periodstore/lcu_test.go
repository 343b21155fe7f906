package periodstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetLightClientUpdatesCacheHit(t *testing.T) {
	s := testStore(t, nil)

	dir := filepath.Join(s.Base(), "42")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileLCU), []byte("LCU_PAYLOAD"), 0o644))

	out, err := s.GetLightClientUpdates(context.Background(), 42, 1)
	require.NoError(t, err)
	require.Equal(t, []byte("LCU_PAYLOAD"), out)
}

func TestGetLightClientUpdatesMissingWithoutNodes(t *testing.T) {
	s := testStore(t, nil)

	_, err := s.GetLightClientUpdates(context.Background(), 7, 1)
	require.Error(t, err)
}

func TestGetLightClientUpdatesOrdering(t *testing.T) {
	s := testStore(t, nil)

	for p, payload := range map[uint64]string{10: "AAA", 11: "BBB", 12: "CCC"} {
		require.NoError(t, s.WriteFile(p, FileLCU, []byte(payload)))
	}
	out, err := s.GetLightClientUpdates(context.Background(), 10, 3)
	require.NoError(t, err)
	require.Equal(t, "AAABBBCCC", string(out))
}

func TestGetLightClientUpdatesZeroCount(t *testing.T) {
	s := testStore(t, nil)
	_, err := s.GetLightClientUpdates(context.Background(), 1, 0)
	require.Error(t, err)
}
