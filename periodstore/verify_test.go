package periodstore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corpus-core/colibri/encoding/ssz"
)

func TestVerifyBlocksRoots(t *testing.T) {
	s := testStore(t, nil)

	// Mainnet offset: the first historical summary covers the bellatrix
	// activation period.
	offset := s.Spec().HistoricalOffsetPeriod()
	period := offset
	head := offset + 2

	content := make([]byte, SlotsPerPeriod*32)
	for i := range content {
		content[i] = byte(i)
	}
	require.NoError(t, s.WriteFile(period, FileBlocks, content))

	root, err := ssz.BlocksVectorRoot(content)
	require.NoError(t, err)

	historical := fmt.Sprintf(
		`{"data":{"historical_summaries":[{"block_summary_root":"%#x","state_summary_root":"%#x"}]}}`,
		root, [32]byte{})
	require.NoError(t, s.WriteFile(head, FileHistorical, []byte(historical)))

	stats, err := s.VerifyBlocksRoots(head)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Verified)
	require.Equal(t, 0, stats.Failed)

	got, ok := s.BlocksRoot(period)
	require.Equal(t, true, ok)
	require.Equal(t, root, got)

	// A second pass skips the already marked period.
	stats, err = s.VerifyBlocksRoots(head)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Verified)
	require.Equal(t, 1, stats.Skipped)
}

func TestVerifyBlocksRootsMismatch(t *testing.T) {
	s := testStore(t, nil)

	offset := s.Spec().HistoricalOffsetPeriod()
	period := offset
	head := offset + 1

	content := make([]byte, 64)
	require.NoError(t, s.WriteFile(period, FileBlocks, content))
	historical := fmt.Sprintf(
		`{"data":{"historical_summaries":[{"block_summary_root":"%#x","state_summary_root":"%#x"}]}}`,
		fillRoot(0xEE), [32]byte{})
	require.NoError(t, s.WriteFile(head, FileHistorical, []byte(historical)))

	stats, err := s.VerifyBlocksRoots(head)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Failed)
	_, ok := s.BlocksRoot(period)
	require.Equal(t, false, ok)
}

func TestBlocksVectorRootPadding(t *testing.T) {
	full := make([]byte, SlotsPerPeriod*32)
	short := make([]byte, 32)
	copy(full[:32], short)

	a, err := ssz.BlocksVectorRoot(full)
	require.NoError(t, err)
	b, err := ssz.BlocksVectorRoot(short)
	require.NoError(t, err)
	require.Equal(t, a, b)
}
