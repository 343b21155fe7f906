package periodstore

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corpus-core/colibri/beacon"
	"github.com/corpus-core/colibri/chain"
	"github.com/corpus-core/colibri/config"
	"github.com/corpus-core/colibri/nodepool"
	"github.com/corpus-core/colibri/types"
)

// TestBackfillParentFixup exercises the reorg/fill repair: a head whose
// parent is missing on disk triggers a header fetch, phantom rows for the
// skipped slots and the real parent row.
func TestBackfillParentFixup(t *testing.T) {
	parentRoot := fillRoot(0xBB)
	parentParent := fillRoot(0xCC)
	parentSlot := uint64(5)
	headSlot := uint64(10)

	mux := http.NewServeMux()
	mux.HandleFunc("/eth/v1/beacon/headers/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, fmt.Sprintf("%#x", parentRoot)) {
			http.Error(w, "Header not found", http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"data":{"root":"%#x","header":{"message":{
			"slot":"%d","proposer_index":"1",
			"parent_root":"%#x","state_root":"%#x","body_root":"%#x"}}}}`,
			parentRoot, parentSlot, parentParent, fillRoot(0x01), fillRoot(0x02))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	pool, err := nodepool.NewPool([]string{server.URL})
	require.NoError(t, err)
	client := beacon.NewClient(pool, 5*time.Second)

	cfg := config.Default()
	cfg.PeriodStore = t.TempDir()
	cfg.PeriodBackfillMaxPeriods = 1
	spec, err := chain.SpecOf(chain.Mainnet)
	require.NoError(t, err)
	s, err := Open(cfg, spec, client)
	require.NoError(t, err)
	defer s.Close()

	// Phantom ancestry below the parent keeps the walker off the network.
	zeroHeader := [types.FlatHeaderLen]byte{}
	for slot := uint64(0); slot < parentSlot; slot++ {
		s.SetBlock(slot, parentParent, zeroHeader, true)
	}
	s.Drain()

	headHeader := types.BeaconHeader{Slot: headSlot, ParentRoot: parentRoot}
	s.OnHead(headSlot, fillRoot(0xAA), headHeader.MarshalFlat())

	parentHeader := types.BeaconHeader{
		Slot:          parentSlot,
		ProposerIndex: 1,
		ParentRoot:    parentParent,
		StateRoot:     fillRoot(0x01),
		BodyRoot:      fillRoot(0x02),
	}
	wantFlat := parentHeader.MarshalFlat()

	require.Eventually(t, func() bool {
		blk, err := s.ReadBlock(parentSlot)
		if err != nil || blk.Root != parentRoot {
			return false
		}
		return blk.Header == wantFlat
	}, 5*time.Second, 20*time.Millisecond)

	// Every skipped slot carries the committing parent root and a zero
	// header.
	require.Eventually(t, func() bool {
		for slot := parentSlot + 1; slot < headSlot; slot++ {
			blk, err := s.ReadBlock(slot)
			if err != nil || blk.Root != parentRoot || !blk.HeaderIsZero() {
				return false
			}
		}
		return true
	}, 5*time.Second, 20*time.Millisecond)
}
