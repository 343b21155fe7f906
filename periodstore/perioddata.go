package periodstore

import (
	"os"

	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/types"
)

// periodData is one in-memory period slab: the full blocks and headers
// files of a period. At most two slabs are resident (current and
// previous); the writer mutates them in place when a write task lands in
// a cached period.
type periodData struct {
	period  uint64
	blocks  []byte // 8192 * 32
	headers []byte // 8192 * 112
}

func newPeriodData(period uint64) *periodData {
	return &periodData{
		period:  period,
		blocks:  make([]byte, SlotsPerPeriod*32),
		headers: make([]byte, SlotsPerPeriod*types.FlatHeaderLen),
	}
}

// loadPeriodData reads the period's files; short or missing files leave
// the remainder zeroed.
func (s *Store) loadPeriodData(period uint64) (*periodData, error) {
	pd := newPeriodData(period)
	for _, f := range []struct {
		name string
		dst  []byte
	}{
		{FileBlocks, pd.blocks},
		{FileHeaders, pd.headers},
	} {
		raw, err := os.ReadFile(s.FilePath(period, f.name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "load %s of period %d", f.name, period)
		}
		copy(f.dst, raw)
	}
	return pd, nil
}

// slabFor returns the cached slab for a period, loading it with an
// LRU-style swap of current and previous. Caller holds s.mu.
func (s *Store) slabFor(period uint64) (*periodData, error) {
	if s.current != nil && s.current.period == period {
		return s.current, nil
	}
	if s.previous != nil && s.previous.period == period {
		return s.previous, nil
	}
	pd, err := s.loadPeriodData(period)
	if err != nil {
		return nil, err
	}
	s.previous = s.current
	s.current = pd
	// A freshly loaded period with missing light client data gets its
	// fetches scheduled alongside.
	s.scheduleLightClientData(period)
	return pd, nil
}

// cachedSlab returns a resident slab without loading. Caller holds s.mu.
func (s *Store) cachedSlab(period uint64) *periodData {
	if s.current != nil && s.current.period == period {
		return s.current
	}
	if s.previous != nil && s.previous.period == period {
		return s.previous
	}
	return nil
}

// block assembles the row at slot from the slab.
func (pd *periodData) block(slot uint64) *Block {
	idx := slot % SlotsPerPeriod
	b := &Block{Slot: slot}
	copy(b.Root[:], pd.blocks[idx*32:])
	copy(b.Header[:], pd.headers[idx*types.FlatHeaderLen:])
	copy(b.ParentRoot[:], b.Header[16:48])
	return b
}

// set updates the slab in place; only the writer calls this.
func (pd *periodData) set(slot uint64, root [32]byte, header [types.FlatHeaderLen]byte) {
	idx := slot % SlotsPerPeriod
	copy(pd.blocks[idx*32:], root[:])
	copy(pd.headers[idx*types.FlatHeaderLen:], header[:])
}

// scheduleLightClientData fetches lcu.ssz when absent, and lcb.ssz when a
// verified anchor exists for the prior period. Runs detached so slab loads
// never block on the network.
func (s *Store) scheduleLightClientData(period uint64) {
	if s.shutdown.Load() || s.client == nil || s.cfg.SlaveMode() {
		return
	}
	needLCU := !s.HasFile(period, FileLCU)
	needLCB := !s.HasFile(period, FileLCB) && period > 0 && s.HasFile(period-1, FileProofG16)
	if !needLCU && !needLCB {
		return
	}
	go func() {
		if needLCU {
			if err := s.fetchLCU(period); err != nil {
				log.WithError(err).WithField("period", period).Warn("Light client update fetch failed")
			}
		}
		if needLCB {
			if err := s.fetchLCB(period); err != nil {
				log.WithError(err).WithField("period", period).Warn("Bootstrap fetch failed")
			}
		}
	}()
}
