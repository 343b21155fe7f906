// Package periodstore is the append-by-slot, on-disk database of beacon
// block roots, truncated headers, light client updates and zk proof
// artifacts, organized in 8192-slot periods. A single writer goroutine
// serializes all blocks.ssz and headers.ssz writes; the backfill walker
// trails the head and repairs history through the same queue. Whole
// artifacts (WriteFile, full-sync downloads) are written outside that queue.
package periodstore

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/beacon"
	"github.com/corpus-core/colibri/chain"
	"github.com/corpus-core/colibri/config"
	"github.com/corpus-core/colibri/types"
)

// Fixed artifact names inside a period directory. Unknown siblings are
// ignored during scans.
const (
	FileBlocks     = "blocks.ssz"
	FileHeaders    = "headers.ssz"
	FileLCU        = "lcu.ssz"
	FileLCB        = "lcb.ssz"
	FileHistorical = "historical_root.json"
	FileBlocksRoot = "blocks_root.bin"
	FileSync       = "sync.ssz"
	FileProofG16   = "zk_proof_g16.bin"
	FilePub        = "zk_pub.bin"
	FileVK         = "zk_vk.bin"
	FileProofRaw   = "zk_proof.bin"
	FileVKRaw      = "zk_vk_raw.bin"
	FileProofSSZ   = "zk_proof.ssz"
)

// knownFiles are the artifacts the manifest and full-sync consider.
var knownFiles = []string{
	FileBlocks, FileHeaders, FileLCU, FileLCB, FileHistorical,
	FileBlocksRoot, FileSync, FileProofG16, FilePub, FileVK,
	FileProofRaw, FileVKRaw, FileProofSSZ,
}

// SlotsPerPeriod mirrors the chain constant for the mainnet-family specs
// this store serves.
const SlotsPerPeriod = 8192

// Block is one period store row.
type Block struct {
	Slot       uint64
	Root       [32]byte
	Header     [types.FlatHeaderLen]byte
	ParentRoot [32]byte
}

// HeaderIsZero reports a phantom row: a slot recorded without a block.
func (b *Block) HeaderIsZero() bool {
	return b.Header == [types.FlatHeaderLen]byte{}
}

// Store is the period database plus its writer queue and backfill state.
type Store struct {
	spec   *chain.Spec
	cfg    *config.Config
	base   string
	client *beacon.Client

	queue      chan *writeTask
	queueDepth atomic.Int64
	writerWG   sync.WaitGroup

	mu       sync.Mutex
	current  *periodData
	previous *periodData

	index *Index

	lastHeadSlot      atomic.Uint64
	lastWrittenSlot   atomic.Uint64
	lastHeadPeriod    uint64
	lastCheckedPeriod uint64

	backfill backfillState

	// FinalizedHook runs on every finalized checkpoint with the finalized
	// period; the prover (or the full-sync slave) hangs off it.
	FinalizedHook func(period uint64)

	shutdown atomic.Bool
}

// Open prepares the store under cfg.PeriodStore and starts the writer.
func Open(cfg *config.Config, spec *chain.Spec, client *beacon.Client) (*Store, error) {
	if cfg.PeriodStore == "" {
		return nil, errors.New("period_store not configured")
	}
	if err := os.MkdirAll(cfg.PeriodStore, 0o755); err != nil {
		return nil, errors.Wrap(err, "create period store base")
	}
	s := &Store{
		spec:   spec,
		cfg:    cfg,
		base:   cfg.PeriodStore,
		client: client,
		queue:  make(chan *writeTask, 4096),
		index:  NewIndex(),
	}
	// Period 0 is a valid directory; the lazily cached check must not
	// treat it as already created.
	s.lastCheckedPeriod = ^uint64(0)
	if err := s.scan(); err != nil {
		return nil, err
	}
	s.writerWG.Add(1)
	go s.writerLoop()
	return s, nil
}

// Close drains the write queue and stops the writer.
func (s *Store) Close() {
	s.shutdown.Store(true)
	close(s.queue)
	s.writerWG.Wait()
}

// ShuttingDown reports the process-wide graceful shutdown flag; every
// schedule entry point checks it and returns silently.
func (s *Store) ShuttingDown() bool { return s.shutdown.Load() }

// Base returns the store's base directory.
func (s *Store) Base() string { return s.base }

// Spec returns the chain spec the store is organized by.
func (s *Store) Spec() *chain.Spec { return s.spec }

func (s *Store) periodDir(period uint64) string {
	return filepath.Join(s.base, strconv.FormatUint(period, 10))
}

// FilePath resolves an artifact path inside a period directory.
func (s *Store) FilePath(period uint64, name string) string {
	return filepath.Join(s.periodDir(period), name)
}

// ensureDir creates a period directory, caching the last checked period so
// the head path stats the filesystem once per period.
func (s *Store) ensureDir(period uint64) error {
	if atomic.LoadUint64(&s.lastCheckedPeriod) == period {
		return nil
	}
	if err := os.MkdirAll(s.periodDir(period), 0o755); err != nil {
		return errors.Wrapf(err, "create period dir %d", period)
	}
	atomic.StoreUint64(&s.lastCheckedPeriod, period)
	s.index.OnPeriodDir(period)
	return nil
}

// scan populates the period index from the numeric directory names.
func (s *Store) scan() error {
	entries, err := os.ReadDir(s.base)
	if err != nil {
		return errors.Wrap(err, "scan period store")
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p, err := strconv.ParseUint(e.Name(), 10, 64)
		if err != nil {
			// Unknown siblings are ignored.
			continue
		}
		s.index.OnPeriodDir(p)
	}
	return nil
}

// HasFile reports whether an artifact exists and is non-empty.
func (s *Store) HasFile(period uint64, name string) bool {
	info, err := os.Stat(s.FilePath(period, name))
	return err == nil && info.Size() > 0
}

// ReadFile reads a whole artifact.
func (s *Store) ReadFile(period uint64, name string) ([]byte, error) {
	return os.ReadFile(s.FilePath(period, name))
}

// WriteFile writes an artifact through a temp file rename.
func (s *Store) WriteFile(period uint64, name string, data []byte) error {
	if err := s.ensureDir(period); err != nil {
		return err
	}
	tmp := s.FilePath(period, name) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		syncErrorsTotal.Inc()
		return errors.Wrapf(err, "write %s for period %d", name, period)
	}
	if err := os.Rename(tmp, s.FilePath(period, name)); err != nil {
		syncErrorsTotal.Inc()
		return errors.Wrapf(err, "publish %s for period %d", name, period)
	}
	return nil
}

// Index exposes the period index.
func (s *Store) Index() *Index { return s.index }

// OnFinalized is the finalized checkpoint entry point: it refreshes the
// historical summaries opportunistically and fires the finalized hook with
// the checkpoint's period.
func (s *Store) OnFinalized(epoch uint64, _ [32]byte) {
	if s.shutdown.Load() {
		return
	}
	period := s.spec.PeriodOfEpoch(epoch)
	if !s.cfg.SlaveMode() && !s.HasFile(period, FileHistorical) {
		go func() {
			if err := s.FetchHistoricalSummaries(context.Background(), period); err != nil {
				log.WithError(err).Warn("Historical summaries refresh failed")
			}
		}()
	}
	if hook := s.FinalizedHook; hook != nil {
		hook(period)
	}
}

// ReadBlock reads one row from disk through the slab cache.
func (s *Store) ReadBlock(slot uint64) (*Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pd, err := s.slabFor(s.spec.PeriodOf(slot))
	if err != nil {
		return nil, err
	}
	return pd.block(slot), nil
}
