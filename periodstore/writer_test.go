package periodstore

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corpus-core/colibri/chain"
	"github.com/corpus-core/colibri/config"
	"github.com/corpus-core/colibri/types"
)

func testStore(t *testing.T, cfg *config.Config) *Store {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	if cfg.PeriodStore == "" {
		cfg.PeriodStore = t.TempDir()
	}
	spec, err := chain.SpecOf(chain.Mainnet)
	require.NoError(t, err)
	s, err := Open(cfg, spec, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func fillRoot(b byte) [32]byte {
	var out [32]byte
	for i := range out {
		out[i] = b
	}
	return out
}

func TestSingleHeadWrite(t *testing.T) {
	s := testStore(t, nil)

	root := fillRoot(0xA5)
	parent := fillRoot(0x5A)
	hdr := types.BeaconHeader{Slot: 16507, ParentRoot: parent}
	flat := hdr.MarshalFlat()

	s.OnHead(16507, root, flat)
	s.Drain()

	blocksFile := filepath.Join(s.Base(), "2", FileBlocks)
	raw, err := os.ReadFile(blocksFile)
	require.NoError(t, err)
	idx := 16507 % SlotsPerPeriod
	require.Equal(t, int(idx*32+32), len(raw))
	require.Equal(t, root[:], raw[idx*32:idx*32+32])

	headers, err := os.ReadFile(filepath.Join(s.Base(), "2", FileHeaders))
	require.NoError(t, err)
	require.Equal(t, flat[:], headers[idx*112:idx*112+112])
	require.Equal(t, uint64(16507), binary.LittleEndian.Uint64(headers[idx*112:]))
}

func TestRewriteSameSlotLastWins(t *testing.T) {
	s := testStore(t, nil)

	first := fillRoot(0x01)
	second := fillRoot(0x02)
	hdr := types.BeaconHeader{Slot: 100}
	s.OnHead(100, first, hdr.MarshalFlat())
	s.OnHead(100, second, hdr.MarshalFlat())
	s.Drain()

	blk, err := s.ReadBlock(100)
	require.NoError(t, err)
	require.Equal(t, second, blk.Root)
}

func TestSetBlockRoundTrip(t *testing.T) {
	s := testStore(t, nil)

	root := fillRoot(0x42)
	hdr := types.BeaconHeader{Slot: 8192 + 17, ProposerIndex: 3, ParentRoot: fillRoot(0x43)}
	flat := hdr.MarshalFlat()
	s.SetBlock(8192+17, root, flat, false)
	s.Drain()

	blk, err := s.ReadBlock(8192 + 17)
	require.NoError(t, err)
	require.Equal(t, root, blk.Root)
	require.Equal(t, flat, blk.Header)
	require.Equal(t, fillRoot(0x43), blk.ParentRoot)
}

func TestWriteCreatesPeriodZeroDir(t *testing.T) {
	s := testStore(t, nil)

	hdr := types.BeaconHeader{Slot: 5}
	s.SetBlock(5, fillRoot(0x05), hdr.MarshalFlat(), false)
	s.Drain()

	_, err := os.Stat(filepath.Join(s.Base(), "0", FileBlocks))
	require.NoError(t, err)
}
