package periodstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeMaster serves a manifest and period store files the way a master
// instance does.
func fakeMaster(t *testing.T, files map[uint64]map[string][]byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/period_store", func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.ParseUint(r.URL.Query().Get("start"), 10, 64)
		var entries []*ManifestEntry
		for period, perFile := range files {
			if period < start {
				continue
			}
			for _, name := range knownFiles {
				if data, ok := perFile[name]; ok {
					entries = append(entries, &ManifestEntry{
						Period: period, Filename: name, Length: uint32(len(data)),
					})
				}
			}
		}
		raw, err := EncodeManifest(entries)
		require.NoError(t, err)
		_, _ = w.Write(raw)
	})
	mux.HandleFunc("/period_store/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/period_store/"), "/", 2)
		period, _ := strconv.ParseUint(parts[0], 10, 64)
		data, ok := files[period][parts[1]]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if off := r.URL.Query().Get("offset"); off != "" {
			n, _ := strconv.ParseInt(off, 10, 64)
			if n > int64(len(data)) {
				n = int64(len(data))
			}
			data = data[n:]
		}
		_, _ = w.Write(data)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFullSyncMirrorsMaster(t *testing.T) {
	files := map[uint64]map[string][]byte{
		1: {
			FileBlocks:     make([]byte, 128),
			FileLCU:        []byte("update-frame"),
			FileBlocksRoot: make([]byte, 32),
			FileProofG16:   []byte("proof"),
		},
	}
	master := fakeMaster(t, files)

	s := testStore(t, nil)
	sync := NewFullSync(s, master.URL)
	sync.OnFinalized(context.Background())

	for name, want := range files[1] {
		got, err := s.ReadFile(1, name)
		require.NoError(t, err, name)
		require.Equal(t, want, got, name)
	}
}

func TestFullSyncResumesPartialFile(t *testing.T) {
	payload := []byte("0123456789abcdef")
	files := map[uint64]map[string][]byte{
		2: {FileLCU: payload},
	}
	master := fakeMaster(t, files)

	s := testStore(t, nil)
	require.NoError(t, s.WriteFile(2, FileLCU, payload[:6]))

	sync := NewFullSync(s, master.URL)
	sync.OnFinalized(context.Background())

	got, err := s.ReadFile(2, FileLCU)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestFullSyncSkipsCompleteFiles(t *testing.T) {
	payload := []byte("stable")
	files := map[uint64]map[string][]byte{
		3: {FileLCU: payload},
	}
	master := fakeMaster(t, files)

	s := testStore(t, nil)
	require.NoError(t, s.WriteFile(3, FileLCU, payload))
	info, err := os.Stat(s.FilePath(3, FileLCU))
	require.NoError(t, err)
	before := info.ModTime()

	sync := NewFullSync(s, master.URL)
	sync.OnFinalized(context.Background())

	info, err = os.Stat(s.FilePath(3, FileLCU))
	require.NoError(t, err)
	require.Equal(t, before, info.ModTime())
}
