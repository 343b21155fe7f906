package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	raw := `
period_store: /var/lib/colibri
period_backfill_max_periods: 4
beacon_nodes: "http://beacon-a, http://beacon-b"
rpc_nodes:
  - http://rpc-a
stream_beacon_events: true
`
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/colibri", cfg.PeriodStore)
	require.Equal(t, uint64(4), cfg.PeriodBackfillMaxPeriods)
	require.Equal(t, NodeList{"http://beacon-a", "http://beacon-b"}, cfg.BeaconNodes)
	require.Equal(t, NodeList{"http://rpc-a"}, cfg.RPCNodes)
	require.Equal(t, true, cfg.StreamBeaconEvents)
	require.Equal(t, false, cfg.SlaveMode())
}

func TestDefaultBackfillWindow(t *testing.T) {
	require.Equal(t, uint64(2), Default().PeriodBackfillMaxPeriods)
}

func TestValidateNodeCap(t *testing.T) {
	cfg := Default()
	for i := 0; i < 17; i++ {
		cfg.BeaconNodes = append(cfg.BeaconNodes, "http://n")
	}
	require.Error(t, cfg.Validate())
}

func TestValidateMasterAndKeyExclusive(t *testing.T) {
	cfg := Default()
	cfg.PeriodMasterURL = "http://master"
	cfg.PeriodProverKeyFile = "/etc/key"
	require.Error(t, cfg.Validate())

	cfg.PeriodProverKeyFile = ""
	require.NoError(t, cfg.Validate())
	require.Equal(t, true, cfg.SlaveMode())
}
