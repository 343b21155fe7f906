package prover

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corpus-core/colibri/chain"
	"github.com/corpus-core/colibri/config"
	"github.com/corpus-core/colibri/periodstore"
)

func testService(t *testing.T, cfg *config.Config, fn SyncProofFn) *Service {
	t.Helper()
	if cfg.PeriodStore == "" {
		cfg.PeriodStore = t.TempDir()
	}
	spec, err := chain.SpecOf(chain.Mainnet)
	require.NoError(t, err)
	store, err := periodstore.Open(cfg, spec, nil)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return New(store, cfg, fn)
}

func TestOnFinalizedPeriodWithoutKeyIsNoop(t *testing.T) {
	cfg := config.Default()
	s := testService(t, cfg, nil)

	s.OnFinalizedPeriod(100)
	require.Equal(t, uint64(0), s.Stats().TotalFailure)
	require.Equal(t, uint64(0), s.LastVerifiedPeriod())
}

func TestOnFinalizedPeriodRecordsMissingInputs(t *testing.T) {
	cfg := config.Default()
	cfg.PeriodProverKeyFile = "/nonexistent/key"
	generated := false
	s := testService(t, cfg, func(_ context.Context, period uint64) ([]byte, error) {
		generated = true
		// Large enough to pass the truncation guard.
		return make([]byte, 2048), nil
	})

	s.OnFinalizedPeriod(100)

	// sync.ssz was generated through the proofer, but the recursion
	// inputs of the previous period are absent, so the run fails early.
	require.Equal(t, true, generated)
	require.Equal(t, true, s.store.HasFile(101, periodstore.FileSync))
	require.Equal(t, uint64(1), s.Stats().TotalFailure)
	require.Equal(t, uint64(0), s.LastVerifiedPeriod())
}

func TestOnFinalizedPeriodSkipsVerifiedTarget(t *testing.T) {
	cfg := config.Default()
	cfg.PeriodProverKeyFile = "/nonexistent/key"
	s := testService(t, cfg, nil)
	s.advance(200)

	s.OnFinalizedPeriod(150)
	require.Equal(t, uint64(0), s.Stats().TotalFailure)
}
