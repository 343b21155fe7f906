package runtime

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corpus-core/colibri/chain"
	"github.com/corpus-core/colibri/config"
	"github.com/corpus-core/colibri/nodepool"
	"github.com/corpus-core/colibri/proofer"
	"github.com/corpus-core/colibri/types"
)

// syntheticUpdateFrame builds a structurally valid framed light client
// update whose finalized header sits in the given period.
func syntheticUpdateFrame(t *testing.T, period uint64) []byte {
	t.Helper()
	const fixedLen = 25152
	payload := make([]byte, fixedLen+2*types.FlatHeaderLen)
	binary.LittleEndian.PutUint32(payload[0:], fixedLen)
	binary.LittleEndian.PutUint32(payload[24788:], fixedLen+types.FlatHeaderLen)

	attested := types.BeaconHeader{Slot: period*8192 + 100}
	finalized := types.BeaconHeader{Slot: period * 8192}
	att := attested.MarshalFlat()
	fin := finalized.MarshalFlat()
	copy(payload[fixedLen:], att[:])
	copy(payload[fixedLen+types.FlatHeaderLen:], fin[:])
	binary.LittleEndian.PutUint64(payload[25144:], period*8192+101)

	frame := &types.UpdateFrame{ForkDigest: [4]byte{0x6a, 0x95, 0xa1, 0xa9}, Payload: payload}
	return frame.AppendFrame(nil)
}

func testDriver(t *testing.T, internal InternalHandler) *Driver {
	t.Helper()
	pools, err := nodepool.NewSet(config.Default())
	require.NoError(t, err)
	return NewDriver(pools, 5*time.Second, internal)
}

func TestDriverRunsSyncProof(t *testing.T) {
	frames := syntheticUpdateFrame(t, 1392)
	driver := testDriver(t, func(_ context.Context, url string) ([]byte, error) {
		require.Equal(t, "period_store/lcu?start=1392&count=1", url)
		return frames, nil
	})

	pc, err := proofer.NewContext("eth_proof_sync", []byte(`[1392]`), chain.Mainnet, 0, nil)
	require.NoError(t, err)
	defer pc.Free()

	raw, err := driver.Run(context.Background(), pc)
	require.NoError(t, err)

	var req types.C4Request
	require.NoError(t, req.UnmarshalSSZ(raw))
	require.Equal(t, types.ProofSync, req.Proof.Selector)
	require.Equal(t, uint64(1392), req.Proof.Sync.Period)
	require.Equal(t, frames, req.Proof.Sync.Updates)
	require.NotNil(t, req.SyncData)
	require.Equal(t, uint64(1392*8192+101), req.SyncData.SignatureSlot)
}

func TestDriverUnsupportedMethod(t *testing.T) {
	driver := testDriver(t, nil)
	pc, err := proofer.NewContext("eth_unknownMethod", []byte(`[]`), chain.Mainnet, 0, nil)
	require.NoError(t, err)
	defer pc.Free()

	_, err = driver.Run(context.Background(), pc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Unsupported method")
}

func TestDriverUnsupportedChain(t *testing.T) {
	_, err := proofer.NewContext("eth_getLogs", []byte(`[{}]`), chain.ID(555), 0, nil)
	require.Error(t, err)
}

func TestDriverSyncSubsetForRollups(t *testing.T) {
	driver := testDriver(t, nil)
	// eth_proof_sync is not part of the rollup family's method table.
	pc, err := proofer.NewContext("eth_proof_sync", []byte(`[1]`), chain.Optimism, 0, nil)
	require.NoError(t, err)
	defer pc.Free()

	_, err = driver.Run(context.Background(), pc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Unsupported method")
}
