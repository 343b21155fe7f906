package beacon

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corpus-core/colibri/nodepool"
	"github.com/corpus-core/colibri/types"
)

func TestWatcherResolvesHeadEvents(t *testing.T) {
	root := "0x" + fmt.Sprintf("%064x", 0xA5)
	parent := "0x" + fmt.Sprintf("%064x", 0x5A)

	mux := http.NewServeMux()
	mux.HandleFunc("/eth/v1/events", func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		require.Equal(t, true, ok)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "event: head\ndata: {\"slot\":\"16507\",\"block\":%q}\n\n", root)
		flusher.Flush()
		fmt.Fprintf(w, "event: finalized_checkpoint\ndata: {\"block\":%q,\"epoch\":\"512\"}\n\n", root)
		flusher.Flush()
		time.Sleep(200 * time.Millisecond)
	})
	mux.HandleFunc("/eth/v1/beacon/headers/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"root":%q,"header":{"message":{
			"slot":"16507","proposer_index":"9",
			"parent_root":%q,"state_root":%q,"body_root":%q}}}}`,
			root, parent, parent, parent)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	pool, err := nodepool.NewPool([]string{server.URL})
	require.NoError(t, err)
	client := NewClient(pool, 5*time.Second)

	heads := make(chan uint64, 4)
	finals := make(chan uint64, 4)
	var gotHeader [types.FlatHeaderLen]byte
	watcher := NewWatcher(client, server.URL,
		func(slot uint64, _ [32]byte, header [types.FlatHeaderLen]byte) {
			gotHeader = header
			heads <- slot
		},
		func(epoch uint64, _ [32]byte) { finals <- epoch })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)
	defer watcher.Stop()

	select {
	case slot := <-heads:
		require.Equal(t, uint64(16507), slot)
	case <-time.After(5 * time.Second):
		t.Fatal("head event never arrived")
	}
	select {
	case epoch := <-finals:
		require.Equal(t, uint64(512), epoch)
	case <-time.After(5 * time.Second):
		t.Fatal("finalized event never arrived")
	}

	var hdr types.BeaconHeader
	require.NoError(t, hdr.UnmarshalFlat(gotHeader[:]))
	require.Equal(t, uint64(16507), hdr.Slot)
	require.Equal(t, uint64(9), hdr.ProposerIndex)
}
