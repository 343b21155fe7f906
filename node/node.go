// Package node assembles the core subsystems behind one handle: the node
// pools, the period store with its head watcher, the prover (or full-sync
// slave) and the proofer runtime.
package node

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/corpus-core/colibri/async"
	"github.com/corpus-core/colibri/beacon"
	"github.com/corpus-core/colibri/chain"
	"github.com/corpus-core/colibri/config"
	"github.com/corpus-core/colibri/httpapi"
	"github.com/corpus-core/colibri/nodepool"
	"github.com/corpus-core/colibri/periodstore"
	"github.com/corpus-core/colibri/proofer"
	"github.com/corpus-core/colibri/prover"
	"github.com/corpus-core/colibri/rpcreq"
	"github.com/corpus-core/colibri/runtime"
)

var log = logrus.WithField("prefix", "node")

// Node is an assembled service instance.
type Node struct {
	ChainID chain.ID
	Config  *config.Config

	Pools   *nodepool.Set
	Driver  *runtime.Driver
	Store   *periodstore.Store
	Prover  *prover.Service
	Watcher *beacon.Watcher
	Cache   *proofer.Cache

	cancel context.CancelFunc
}

// New wires a node for the given chain.
func New(cfg *config.Config, chainID chain.ID) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	spec, err := chain.SpecOf(chainID)
	if err != nil {
		return nil, err
	}
	pools, err := nodepool.NewSet(cfg)
	if err != nil {
		return nil, err
	}
	cache, err := proofer.NewCache(1024, 12*time.Second)
	if err != nil {
		return nil, err
	}
	n := &Node{ChainID: chainID, Config: cfg, Pools: pools, Cache: cache}

	if cfg.PeriodStore != "" {
		client := beacon.NewClient(pools.Pool(rpcreq.BeaconAPI), 30*time.Second)
		if n.Store, err = periodstore.Open(cfg, spec, client); err != nil {
			return nil, err
		}
	}

	n.Driver = runtime.NewDriver(pools, 30*time.Second, n.serveInternal)

	if n.Store != nil {
		switch {
		case cfg.SlaveMode():
			sync := periodstore.NewFullSync(n.Store, cfg.PeriodMasterURL)
			n.Store.FinalizedHook = func(uint64) {
				if cfg.PeriodFullSync {
					go sync.OnFinalized(context.Background())
				}
			}
		case cfg.PeriodProverKeyFile != "":
			n.Prover = prover.New(n.Store, cfg, n.syncProof)
			n.Store.FinalizedHook = n.Prover.OnFinalizedPeriod
		}
	}
	return n, nil
}

// Start launches the background loops.
func (n *Node) Start(ctx context.Context) error {
	ctx, n.cancel = context.WithCancel(ctx)
	async.RunEvery(ctx, time.Minute, n.Cache.Cleanup)
	if n.Config.StreamBeaconEvents && n.Store != nil {
		pool := n.Pools.Pool(rpcreq.BeaconAPI)
		if pool == nil {
			return errors.New("stream_beacon_events requires beacon_nodes")
		}
		client := beacon.NewClient(pool, 30*time.Second)
		n.Watcher = beacon.NewWatcher(client, pool.Node(0).URL, n.Store.OnHead, n.Store.OnFinalized)
		go n.Watcher.Run(ctx)
	}
	return nil
}

// Stop initiates graceful shutdown: schedule points go quiet, the write
// queue drains, in-flight work is orphaned.
func (n *Node) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	if n.Watcher != nil {
		n.Watcher.Stop()
	}
	if n.Store != nil {
		n.Store.Close()
	}
}

// RegisterHTTP mounts the core HTTP surface.
func (n *Node) RegisterHTTP(mux *http.ServeMux) {
	httpapi.NewServer(n.Store).Register(mux)
}

// Prove runs one RPC method through the proofer to completion.
func (n *Node) Prove(ctx context.Context, method string, params []byte, flags proofer.Flags) ([]byte, error) {
	pc, err := proofer.NewContext(method, params, n.ChainID, flags, n.Cache)
	if err != nil {
		return nil, err
	}
	defer pc.Free()
	return n.Driver.Run(ctx, pc)
}

// syncProof feeds the prover's sync.ssz generation through the built-in
// proofer.
func (n *Node) syncProof(ctx context.Context, period uint64) ([]byte, error) {
	params, err := jsonMarshalParams(period)
	if err != nil {
		return nil, err
	}
	return n.Prove(ctx, "eth_proof_sync", params, 0)
}

// serveInternal answers Kind=Internal data requests from the period store.
func (n *Node) serveInternal(ctx context.Context, url string) ([]byte, error) {
	if n.Store == nil {
		return nil, errors.New("period store not configured")
	}
	start, count, err := parseLCUQuery(url)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"start": start, "count": count}).Debug("Serving internal update request")
	return n.Store.GetLightClientUpdates(ctx, start, count)
}
