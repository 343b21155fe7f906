package periodstore

import (
	"context"
	"runtime"
	"time"

	"github.com/corpus-core/colibri/types"
)

// backfillState tracks the tail walker. The walker is a sliding window:
// it always trails the most recent head by at most the configured number
// of periods, restarting itself when the head runs ahead.
type backfillState struct {
	running   bool
	done      bool
	startSlot uint64
	endSlot   uint64
	startedTS time.Time
	restart   *Block
}

// backfillCheck runs after a head write completes with an empty queue. It
// starts the walker, or requests a restart when the head outran the
// current run by more than 100 slots.
func (s *Store) backfillCheck(head *Block) {
	if s.shutdown.Load() || s.cfg.PeriodBackfillMaxPeriods == 0 || s.client == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bf := &s.backfill
	if bf.running {
		if head.Slot > bf.startSlot+100 {
			bf.restart = head
		}
		return
	}
	if bf.done && head.Slot <= bf.startSlot+100 {
		return
	}
	window := SlotsPerPeriod * s.cfg.PeriodBackfillMaxPeriods
	end := uint64(0)
	if aligned := head.Slot - head.Slot%SlotsPerPeriod; aligned > window {
		end = aligned - window
	}
	bf.running = true
	bf.done = false
	bf.startSlot = head.Slot
	bf.endSlot = end
	bf.startedTS = time.Now()
	go s.runBackfill(*head)
}

func (s *Store) runBackfill(head Block) {
	current := head
	scanned := 0
	for {
		if s.shutdown.Load() {
			s.finishBackfill(false)
			return
		}
		s.mu.Lock()
		end := s.backfill.endSlot
		restart := s.backfill.restart
		s.backfill.restart = nil
		s.mu.Unlock()

		// A newer head slides the window: the new run only needs to reach
		// the old start.
		if restart != nil {
			s.mu.Lock()
			s.backfill.endSlot = s.backfill.startSlot
			s.backfill.startSlot = restart.Slot
			s.mu.Unlock()
			current = *restart
			continue
		}
		if current.Slot == 0 || current.Slot-1 <= end {
			s.finishBackfill(true)
			return
		}

		next, fetched, ok := s.backfillStep(&current)
		if !ok {
			s.finishBackfill(false)
			return
		}
		current = *next
		scanned++
		if scanned%100 == 0 {
			// Yield back to the scheduler between scan batches.
			runtime.Gosched()
		}
		if fetched && s.cfg.PeriodBackfillDelayMS > 0 {
			time.Sleep(time.Duration(s.cfg.PeriodBackfillDelayMS) * time.Millisecond)
		}
	}
}

// backfillStep descends from current to its parent, repairing rows on the
// way. Returns the new current, whether a network fetch happened, and
// whether the walk may continue.
func (s *Store) backfillStep(current *Block) (*Block, bool, bool) {
	for slot := current.Slot - 1; ; slot-- {
		s.mu.Lock()
		pd, err := s.slabFor(s.spec.PeriodOf(slot))
		var disk *Block
		if err == nil {
			disk = pd.block(slot)
		}
		s.mu.Unlock()
		if err != nil {
			log.WithError(err).WithField("slot", slot).Error("Backfill slab load failed")
			return nil, false, false
		}

		if disk.Root == current.ParentRoot {
			if !disk.HeaderIsZero() {
				return disk, false, true
			}
			// Phantom row: the committing root repeats across empty
			// slots, keep descending to the real parent.
			if slot == 0 {
				return disk, false, true
			}
			continue
		}

		// Unwritten slot or reorg repair: resolve the exact parent.
		hdr, err := s.client.GetHeaderByRoot(context.Background(), current.ParentRoot)
		if err != nil {
			log.WithError(err).WithField("slot", slot).Warn("Backfill parent fetch failed")
			return nil, true, false
		}
		parent := Block{
			Slot:       hdr.Header.Slot,
			Root:       hdr.Root,
			Header:     hdr.Header.MarshalFlat(),
			ParentRoot: hdr.Header.ParentRoot,
		}
		// The parent's own row, then phantom rows for every skipped slot
		// committing to the same root.
		s.SetBlock(parent.Slot, parent.Root, parent.Header, true)
		for ps := parent.Slot + 1; ps < current.Slot; ps++ {
			s.SetBlock(ps, parent.Root, [types.FlatHeaderLen]byte{}, true)
		}
		return &parent, true, true
	}
}

func (s *Store) finishBackfill(completed bool) {
	s.mu.Lock()
	bf := &s.backfill
	bf.running = false
	bf.done = completed
	start, end, began := bf.startSlot, bf.endSlot, bf.startedTS
	s.mu.Unlock()
	if !completed {
		return
	}
	log.WithFields(map[string]interface{}{
		"start_slot": start,
		"end_slot":   end,
		"duration":   time.Since(began).String(),
	}).Info("Backfill completed")

	// With history in place, completed periods covered by a known
	// historical summary can be verified.
	headPeriod := s.spec.PeriodOf(start)
	if s.HasFile(headPeriod, FileHistorical) {
		if _, err := s.VerifyBlocksRoots(headPeriod); err != nil {
			log.WithError(err).Warn("Blocks root verification failed")
		}
	}
}
