// Package httpapi exposes the core's HTTP surface: light client update
// aggregation, period store artifact serving with ranged reads, and the
// SSZ manifest consumed by full-sync slaves.
package httpapi

import (
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/corpus-core/colibri/periodstore"
)

var log = logrus.WithField("prefix", "httpapi")

// Server routes the period store endpoints.
type Server struct {
	store *periodstore.Store
}

// NewServer wraps a period store; a nil store serves 503s.
func NewServer(store *periodstore.Store) *Server {
	return &Server{store: store}
}

// Register mounts the handlers on a mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/eth/v1/beacon/light_client/updates", s.handleUpdates)
	mux.HandleFunc("/period_store", s.handleManifest)
	mux.HandleFunc("/period_store/", s.handleFile)
	mux.HandleFunc("/health", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleUpdates serves the aggregated framed updates of a period range.
func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "period store not configured", http.StatusServiceUnavailable)
		return
	}
	start, err1 := strconv.ParseUint(r.URL.Query().Get("start_period"), 10, 64)
	count, err2 := strconv.ParseUint(r.URL.Query().Get("count"), 10, 64)
	if err1 != nil || err2 != nil || count == 0 {
		http.Error(w, "start_period and count are required", http.StatusBadRequest)
		return
	}
	out, err := s.store.GetLightClientUpdates(r.Context(), start, count)
	if err != nil {
		log.WithError(err).Warn("Update aggregation failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(out)
}

// handleManifest serves the SSZ manifest for full-sync slaves.
func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "period store not configured", http.StatusServiceUnavailable)
		return
	}
	if r.URL.Query().Get("manifest") != "1" {
		http.Error(w, "manifest=1 required", http.StatusBadRequest)
		return
	}
	start, _ := strconv.ParseUint(r.URL.Query().Get("start"), 10, 64)
	entries, err := s.store.BuildManifest(start)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	raw, err := periodstore.EncodeManifest(entries)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(raw)
}

// handleFile serves one period store artifact, optionally from an offset.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "period store not configured", http.StatusServiceUnavailable)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/period_store/")
	if strings.Contains(rest, "..") {
		http.Error(w, "invalid path", http.StatusForbidden)
		return
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		http.Error(w, "expected /period_store/<period>/<file>", http.StatusBadRequest)
		return
	}
	period, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		http.Error(w, "invalid period", http.StatusBadRequest)
		return
	}
	f, err := os.Open(s.store.FilePath(period, parts[1]))
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	defer f.Close()
	if off := r.URL.Query().Get("offset"); off != "" {
		n, err := strconv.ParseInt(off, 10, 64)
		if err != nil || n < 0 {
			http.Error(w, "invalid offset", http.StatusBadRequest)
			return
		}
		if _, err := f.Seek(n, io.SeekStart); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	if strings.HasSuffix(parts[1], ".json") {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	_, _ = io.Copy(w, f)
}
