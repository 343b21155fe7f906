// Package config defines the runtime options recognized by the proof
// service core. Options are populated programmatically by the host or
// loaded from a YAML file.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// MaxNodes caps every upstream node pool.
const MaxNodes = 16

// Config is the full option set consumed by the core subsystems.
type Config struct {
	// PeriodStore is the base directory of the on-disk period database.
	// Empty disables the period store.
	PeriodStore string `yaml:"period_store"`

	// PeriodMasterURL switches the instance into slave mode: the local
	// store mirrors the master instead of fetching and proving itself.
	PeriodMasterURL string `yaml:"period_master_url"`

	// PeriodBackfillMaxPeriods is the backfill window in periods behind
	// the head. 0 disables backfill.
	PeriodBackfillMaxPeriods uint64 `yaml:"period_backfill_max_periods"`

	// PeriodBackfillDelayMS paces backfill header fetches against public
	// API rate limits.
	PeriodBackfillDelayMS uint64 `yaml:"period_backfill_delay_ms"`

	// PeriodProverKeyFile points at the SP1 private key; required for
	// local proof generation.
	PeriodProverKeyFile string `yaml:"period_prover_key_file"`

	// PeriodFullSync enables the slave full-sync loop.
	PeriodFullSync bool `yaml:"period_full_sync"`

	// StreamBeaconEvents starts the head watcher on the first beacon node.
	StreamBeaconEvents bool `yaml:"stream_beacon_events"`

	// EthLogsCacheBlocks is accepted for compatibility; the core does not
	// consume it.
	EthLogsCacheBlocks uint64 `yaml:"eth_logs_cache_blocks"`

	// ZKProofsDir is accepted for compatibility; the core does not consume
	// it, and proof artifacts always land in the period directories.
	ZKProofsDir string `yaml:"zk_proofs_dir"`

	// Memcached connection options, passed through to the host cache.
	MemcachedHost string `yaml:"memcached_host"`
	MemcachedPort uint16 `yaml:"memcached_port"`
	MemcachedPool uint16 `yaml:"memcached_pool"`

	// Upstream node pools, comma separated in YAML form.
	RPCNodes    NodeList `yaml:"rpc_nodes"`
	BeaconNodes NodeList `yaml:"beacon_nodes"`
	ProverNodes NodeList `yaml:"prover_nodes"`
}

// NodeList is a bounded list of upstream endpoints.
type NodeList []string

// UnmarshalYAML accepts either a sequence or a comma separated scalar.
func (n *NodeList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var seq []string
	if err := unmarshal(&seq); err == nil {
		*n = seq
		return nil
	}
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	if raw == "" {
		*n = nil
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	*n = parts
	return nil
}

// Default returns a config with the defaults the service ships with.
func Default() *Config {
	return &Config{
		PeriodBackfillMaxPeriods: 2,
	}
}

// LoadFile reads a YAML config file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the structural limits of the option set.
func (c *Config) Validate() error {
	for name, list := range map[string]NodeList{
		"rpc_nodes":    c.RPCNodes,
		"beacon_nodes": c.BeaconNodes,
		"prover_nodes": c.ProverNodes,
	} {
		if len(list) > MaxNodes {
			return errors.Errorf("%s: %d entries exceeds the maximum of %d", name, len(list), MaxNodes)
		}
	}
	if c.PeriodProverKeyFile != "" && c.PeriodMasterURL != "" {
		return errors.New("period_prover_key_file and period_master_url are mutually exclusive")
	}
	return nil
}

// SlaveMode reports whether the instance mirrors a master period store.
func (c *Config) SlaveMode() bool { return c.PeriodMasterURL != "" }
