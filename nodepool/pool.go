// Package nodepool manages the configured upstream node lists and the
// exclude-mask based selection the retry loop cycles through.
package nodepool

import (
	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/config"
	"github.com/corpus-core/colibri/rpcreq"
)

// Client type bits advertised by upstream implementations; matched against
// a request's PreferredClientType.
const (
	ClientLighthouse uint32 = 1 << iota
	ClientLodestar
	ClientNimbus
	ClientPrysm
	ClientTeku
	ClientGeth
	ClientNethermind
	ClientErigon
)

// ErrNoNode is returned when every node of a pool is excluded.
var ErrNoNode = errors.New("all nodes excluded")

// Node is one upstream endpoint.
type Node struct {
	URL        string
	ClientType uint32
}

// Pool is a bounded ordered node list for one request kind.
type Pool struct {
	nodes []Node
}

// NewPool builds a pool from endpoint URLs, capped at config.MaxNodes.
func NewPool(urls []string) (*Pool, error) {
	if len(urls) > config.MaxNodes {
		return nil, errors.Errorf("pool of %d nodes exceeds maximum of %d", len(urls), config.MaxNodes)
	}
	p := &Pool{nodes: make([]Node, len(urls))}
	for i, u := range urls {
		p.nodes[i] = Node{URL: u}
	}
	return p, nil
}

// SetClientType records the advertised implementation of a node, learned
// from its version endpoint.
func (p *Pool) SetClientType(idx int, ct uint32) {
	if idx >= 0 && idx < len(p.nodes) {
		p.nodes[idx].ClientType = ct
	}
}

// Len returns the pool size.
func (p *Pool) Len() int { return len(p.nodes) }

// Node returns the node at idx.
func (p *Pool) Node(idx int) Node { return p.nodes[idx] }

// Pick selects the first non-excluded node, preferring nodes whose client
// type intersects preferred. Returns the node index.
func (p *Pool) Pick(excludeMask uint16, preferred uint32) (int, *Node, error) {
	if preferred != 0 {
		for i := range p.nodes {
			if excludeMask&(1<<uint(i)) != 0 {
				continue
			}
			if p.nodes[i].ClientType&preferred != 0 {
				return i, &p.nodes[i], nil
			}
		}
	}
	for i := range p.nodes {
		if excludeMask&(1<<uint(i)) == 0 {
			return i, &p.nodes[i], nil
		}
	}
	return -1, nil, ErrNoNode
}

// Set groups the pools by request kind.
type Set struct {
	pools map[rpcreq.Kind]*Pool
}

// NewSet wires the configured node lists into per-kind pools.
func NewSet(cfg *config.Config) (*Set, error) {
	rpc, err := NewPool(cfg.RPCNodes)
	if err != nil {
		return nil, errors.Wrap(err, "rpc_nodes")
	}
	beacon, err := NewPool(cfg.BeaconNodes)
	if err != nil {
		return nil, errors.Wrap(err, "beacon_nodes")
	}
	prover, err := NewPool(cfg.ProverNodes)
	if err != nil {
		return nil, errors.Wrap(err, "prover_nodes")
	}
	return &Set{pools: map[rpcreq.Kind]*Pool{
		rpcreq.ExecRPC:   rpc,
		rpcreq.BeaconAPI: beacon,
		rpcreq.RestAPI:   beacon,
		rpcreq.Prover:    prover,
	}}, nil
}

// Pool returns the pool serving a request kind, nil when unconfigured.
func (s *Set) Pool(kind rpcreq.Kind) *Pool {
	p := s.pools[kind]
	if p == nil || p.Len() == 0 {
		return nil
	}
	return p
}
