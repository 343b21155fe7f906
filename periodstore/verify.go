package periodstore

import (
	"context"
	"encoding/hex"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/encoding/ssz"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type historicalSummary struct {
	BlockSummaryRoot string `json:"block_summary_root"`
	StateSummaryRoot string `json:"state_summary_root"`
}

type historicalResponse struct {
	Data struct {
		HistoricalSummaries []historicalSummary `json:"historical_summaries"`
	} `json:"data"`
}

// VerifyStats aggregates one verification pass.
type VerifyStats struct {
	Verified int
	Skipped  int
	Failed   int
}

// FetchHistoricalSummaries pulls the summaries JSON and stores it in the
// head period's directory for later verification passes.
func (s *Store) FetchHistoricalSummaries(ctx context.Context, headPeriod uint64) error {
	if s.shutdown.Load() || s.client == nil {
		return nil
	}
	raw, err := s.client.GetHistoricalSummaries(ctx)
	if err != nil {
		return errors.Wrap(err, "historical summaries")
	}
	return s.WriteFile(headPeriod, FileHistorical, raw)
}

// VerifyBlocksRoots checks every completed period not yet marked against
// the historical summaries recorded for headPeriod. A period is marked by
// writing its computed root into blocks_root.bin, only after the on-disk
// blocks vector hashes to the summary's block_summary_root.
func (s *Store) VerifyBlocksRoots(headPeriod uint64) (*VerifyStats, error) {
	raw, err := s.ReadFile(headPeriod, FileHistorical)
	if err != nil {
		return nil, errors.Wrapf(err, "historical summaries of period %d", headPeriod)
	}
	var resp historicalResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(err, "parse historical summaries")
	}
	summaries := resp.Data.HistoricalSummaries
	offset := s.spec.HistoricalOffsetPeriod()

	stats := &VerifyStats{}
	for _, period := range s.index.Periods() {
		if period >= headPeriod {
			continue
		}
		if s.HasFile(period, FileBlocksRoot) || !s.HasFile(period, FileBlocks) {
			stats.Skipped++
			continue
		}
		if period < offset || period-offset >= uint64(len(summaries)) {
			stats.Skipped++
			continue
		}
		want, err := parseSummaryRoot(summaries[period-offset].BlockSummaryRoot)
		if err != nil {
			stats.Failed++
			continue
		}
		content, err := s.ReadFile(period, FileBlocks)
		if err != nil {
			stats.Failed++
			continue
		}
		got, err := ssz.BlocksVectorRoot(content)
		if err != nil || got != want {
			stats.Failed++
			periodsFailedTotal.Inc()
			log.WithField("period", period).Error("Blocks root mismatch against historical summary")
			continue
		}
		if err := s.WriteFile(period, FileBlocksRoot, got[:]); err != nil {
			stats.Failed++
			continue
		}
		stats.Verified++
		periodsVerifiedTotal.Inc()
	}
	return stats, nil
}

func parseSummaryRoot(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil || len(raw) != 32 {
		return out, errors.Errorf("invalid summary root %q", s)
	}
	copy(out[:], raw)
	return out, nil
}

// BlocksRoot returns the recorded verified root of a period, if present.
func (s *Store) BlocksRoot(period uint64) ([32]byte, bool) {
	raw, err := os.ReadFile(s.FilePath(period, FileBlocksRoot))
	if err != nil || len(raw) != 32 {
		return [32]byte{}, false
	}
	var out [32]byte
	copy(out[:], raw)
	return out, true
}
