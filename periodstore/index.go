package periodstore

import (
	"sort"
	"sync"
)

// Index is the sorted, deduplicated list of known period numbers with a
// sticky gap flag: once a gap is observed the flag stays set, since a gap
// in the directory sequence is a fatal integrity signal.
type Index struct {
	mu      sync.Mutex
	periods []uint64
	hasGaps bool
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{}
}

// OnPeriodDir ingests a period directory observation.
func (ix *Index) OnPeriodDir(period uint64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	i := sort.Search(len(ix.periods), func(i int) bool { return ix.periods[i] >= period })
	if i < len(ix.periods) && ix.periods[i] == period {
		return
	}
	ix.periods = append(ix.periods, 0)
	copy(ix.periods[i+1:], ix.periods[i:])
	ix.periods[i] = period
	ix.recheckGaps()
}

// recheckGaps sets the sticky flag when the sequence is not contiguous.
// Caller holds ix.mu.
func (ix *Index) recheckGaps() {
	if ix.hasGaps {
		return
	}
	for i := 1; i < len(ix.periods); i++ {
		if ix.periods[i] > ix.periods[i-1]+1 {
			ix.hasGaps = true
			indexGapsGauge.Set(1)
			log.WithField("after", ix.periods[i-1]).WithField("next", ix.periods[i]).
				Error("Period directory sequence has a gap")
			return
		}
	}
}

// HasGaps reports the sticky gap flag.
func (ix *Index) HasGaps() bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.hasGaps
}

// Periods returns a copy of the known period numbers in order.
func (ix *Index) Periods() []uint64 {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return append([]uint64{}, ix.periods...)
}

// Latest returns the highest known period and whether any exists.
func (ix *Index) Latest() (uint64, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if len(ix.periods) == 0 {
		return 0, false
	}
	return ix.periods[len(ix.periods)-1], true
}
