package periodstore

import (
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/types"
)

// writeTask writes exactly two file ranges: the 32-byte root and the
// 112-byte header at the task's slot offset. Head and backfill tasks share
// one FIFO queue, so a backfill write can never overtake a head write for
// the same slot.
type writeTask struct {
	block    Block
	backfill bool
}

// OnHead is the head path entry point: it derives the period, makes sure
// the directory exists and appends the write to the queue.
func (s *Store) OnHead(slot uint64, root [32]byte, header [types.FlatHeaderLen]byte) {
	if s.shutdown.Load() {
		return
	}
	s.lastHeadSlot.Store(slot)
	if err := s.ensureDir(s.spec.PeriodOf(slot)); err != nil {
		syncErrorsTotal.Inc()
		log.WithError(err).Error("Head write dropped")
		return
	}
	var parent [32]byte
	copy(parent[:], header[16:48])
	s.enqueue(&writeTask{block: Block{Slot: slot, Root: root, Header: header, ParentRoot: parent}})
}

// SetBlock enqueues a row write and returns without waiting for it; used by
// tests and the backfill parent and phantom fill.
func (s *Store) SetBlock(slot uint64, root [32]byte, header [types.FlatHeaderLen]byte, backfill bool) {
	if s.shutdown.Load() {
		return
	}
	if err := s.ensureDir(s.spec.PeriodOf(slot)); err != nil {
		syncErrorsTotal.Inc()
		return
	}
	var parent [32]byte
	copy(parent[:], header[16:48])
	s.enqueue(&writeTask{
		block:    Block{Slot: slot, Root: root, Header: header, ParentRoot: parent},
		backfill: backfill,
	})
}

func (s *Store) enqueue(t *writeTask) {
	s.queueDepth.Add(1)
	queueDepthGauge.Inc()
	s.queue <- t
}

// Drain blocks until the queue is empty; test and shutdown helper.
func (s *Store) Drain() {
	for s.queueDepth.Load() > 0 {
		time.Sleep(time.Millisecond)
	}
}

func (s *Store) writerLoop() {
	defer s.writerWG.Done()
	for task := range s.queue {
		if err := s.runWrite(task); err != nil {
			syncErrorsTotal.Inc()
			log.WithError(err).WithField("slot", task.block.Slot).Error("Period write failed")
		}
		s.queueDepth.Add(-1)
		queueDepthGauge.Dec()
		// The queue tail decides whether this completion may kick the
		// backfill walker or a queued backfill task is still ahead.
		if len(s.queue) == 0 && !s.shutdown.Load() && !task.backfill {
			s.backfillCheck(&task.block)
		}
	}
}

// runWrite performs the two strided writes. Files are opened read-write
// and never truncated; a rewrite of the same slot wins by overwriting.
func (s *Store) runWrite(task *writeTask) error {
	period := s.spec.PeriodOf(task.block.Slot)
	idx := task.block.Slot % SlotsPerPeriod

	if err := writeAt(s.FilePath(period, FileBlocks), int64(idx*32), task.block.Root[:]); err != nil {
		return err
	}
	if err := writeAt(s.FilePath(period, FileHeaders), int64(idx*types.FlatHeaderLen), task.block.Header[:]); err != nil {
		return err
	}

	s.mu.Lock()
	if pd := s.cachedSlab(period); pd != nil {
		pd.set(task.block.Slot, task.block.Root, task.block.Header)
	}
	crossed := !task.backfill && s.lastHeadPeriod != 0 && period > s.lastHeadPeriod
	if !task.backfill {
		s.lastHeadPeriod = period
	}
	s.mu.Unlock()

	if task.backfill {
		backfilledSlotsTotal.Inc()
	} else {
		writtenSlotsTotal.Inc()
		s.lastWrittenSlot.Store(task.block.Slot)
		lastSlotGauge.Set(float64(task.block.Slot))
		lastSlotTSGauge.Set(float64(time.Now().Unix()))
	}
	if head := s.lastHeadSlot.Load(); head > task.block.Slot {
		lagSlotsGauge.Set(float64(head - task.block.Slot))
	} else {
		lagSlotsGauge.Set(0)
	}

	// Crossing into a new period leaves the previous one complete; its
	// light client update is refreshed in the background.
	if crossed {
		s.scheduleLightClientData(period - 1)
	}
	return nil
}

func writeAt(path string, off int64, data []byte) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	if _, err := f.WriteAt(data, off); err != nil {
		return errors.Wrapf(err, "write %s at %d", path, off)
	}
	return nil
}
