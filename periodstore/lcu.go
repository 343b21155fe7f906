package periodstore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/types"
)

// GetLightClientUpdates returns the concatenated framed updates for count
// consecutive periods starting at start. Cached periods are served from
// lcu.ssz; missing periods are fetched serially, appended in order and
// written back to disk in the background.
func (s *Store) GetLightClientUpdates(ctx context.Context, start, count uint64) ([]byte, error) {
	if count == 0 {
		return nil, errors.New("count must be positive")
	}
	cached := make([][]byte, count)
	for i := uint64(0); i < count; i++ {
		raw, err := s.ReadFile(start+i, FileLCU)
		if err == nil && len(raw) > 0 {
			cached[i] = raw
		}
	}
	var out []byte
	for i := uint64(0); i < count; i++ {
		if cached[i] != nil {
			out = append(out, cached[i]...)
			continue
		}
		period := start + i
		if s.client == nil {
			return nil, errors.Errorf("update for period %d not cached and no beacon nodes configured", period)
		}
		raw, err := s.client.GetLightClientUpdates(ctx, period, 1)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch update for period %d", period)
		}
		out = append(out, raw...)
		go func(p uint64, data []byte) {
			if s.shutdown.Load() {
				return
			}
			if err := s.WriteFile(p, FileLCU, data); err != nil {
				log.WithError(err).WithField("period", p).Warn("Caching light client update failed")
			}
		}(period, raw)
	}
	return out, nil
}

// fetchLCU refreshes the cached update of one period.
func (s *Store) fetchLCU(period uint64) error {
	if s.shutdown.Load() {
		return nil
	}
	raw, err := s.client.GetLightClientUpdates(context.Background(), period, 1)
	if err != nil {
		return err
	}
	return s.WriteFile(period, FileLCU, raw)
}

// fetchLCB resolves the bootstrap for a period. Without a trusted
// checkpoint hash, the period's own update names the finalized header
// whose root anchors the bootstrap; the header must belong to the period.
func (s *Store) fetchLCB(period uint64) error {
	if s.shutdown.Load() {
		return nil
	}
	raw, err := s.ReadFile(period, FileLCU)
	if err != nil || len(raw) == 0 {
		if raw, err = s.client.GetLightClientUpdates(context.Background(), period, 1); err != nil {
			return errors.Wrapf(err, "update for period %d", period)
		}
	}
	frames, err := types.ParseFrames(raw)
	if err != nil || len(frames) == 0 {
		return errors.Wrapf(types.ErrBadFrame, "lcu of period %d", period)
	}
	update, err := types.ParseUpdate(frames[0].Payload)
	if err != nil {
		return errors.Wrapf(err, "lcu of period %d", period)
	}
	if got := s.spec.PeriodOf(update.FinalizedHeader.Slot); got != period {
		return errors.Errorf("finalized header of period %d belongs to period %d", period, got)
	}
	root, err := update.FinalizedHeader.HashTreeRoot()
	if err != nil {
		return errors.Wrap(err, "finalized header root")
	}
	return s.FetchBootstrap(period, root)
}

// FetchBootstrap fetches and caches the bootstrap for a known finalized
// checkpoint root.
func (s *Store) FetchBootstrap(period uint64, root [32]byte) error {
	raw, err := s.client.GetBootstrap(context.Background(), root)
	if err != nil {
		return errors.Wrapf(err, "bootstrap %#x", root)
	}
	return s.WriteFile(period, FileLCB, raw)
}
