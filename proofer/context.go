// Package proofer is the stateless proof engine: one context per RPC
// call, re-entered by the host until it reports a terminal status. Each
// method builder pulls typed data through the request model, constructs
// Merkle and Patricia proofs and serializes an SSZ proof container.
package proofer

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/corpus-core/colibri/chain"
	"github.com/corpus-core/colibri/rpcreq"
)

var (
	log  = logrus.WithField("prefix", "proofer")
	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

// Status is the tri-state result of one Execute round.
type Status int

const (
	StatusSuccess Status = iota
	StatusError
	StatusPending
)

// Flags tune a context's execution.
type Flags uint32

const (
	// FlagNoCache bypasses the shared cache for this context.
	FlagNoCache Flags = 1 << iota
	// FlagWorkerRequired marks CPU-bound trie construction; while active
	// the shared cache is read-only.
	FlagWorkerRequired
	// FlagIncludeCode ships contract bytecode inside eth_call proofs.
	FlagIncludeCode
)

// ErrPending is the suspension sentinel: the builder registered at least
// one request the host has not answered yet.
var ErrPending = errors.New("pending requests")

// Context carries one RPC call through the execute-resume loop.
type Context struct {
	Method  string
	Params  []byte
	ChainID chain.ID
	Flags   Flags
	State   rpcreq.State

	// Proof holds the SSZ bundle once the builder completed.
	Proof []byte

	spec      *chain.Spec
	validated bool
	local     map[string][]byte
	global    *Cache
	freed     bool
}

// NewContext validates the chain gate and prepares a context.
func NewContext(method string, params []byte, chainID chain.ID, flags Flags, global *Cache) (*Context, error) {
	spec, err := chain.SpecOf(chainID)
	if err != nil {
		return nil, err
	}
	return &Context{
		Method:  method,
		Params:  params,
		ChainID: chainID,
		Flags:   flags,
		spec:    spec,
		local:   make(map[string][]byte),
		global:  global,
	}, nil
}

// Status derives the context's execute status.
func (c *Context) Status() Status {
	switch {
	case c.Proof != nil:
		return StatusSuccess
	case c.State.HasError():
		return StatusError
	default:
		return StatusPending
	}
}

// Free releases the context: outstanding requests are orphaned and local
// cache entries migrate into the shared cache.
func (c *Context) Free() {
	if c.freed {
		return
	}
	c.freed = true
	if c.global != nil && c.Flags&FlagNoCache == 0 {
		for k, v := range c.local {
			c.global.Put(k, v)
		}
	}
	c.local = nil
	c.State.Reset()
}

// cacheGet consults the local then the shared cache.
func (c *Context) cacheGet(key string) ([]byte, bool) {
	if v, ok := c.local[key]; ok {
		return v, true
	}
	if c.global == nil || c.Flags&FlagNoCache != 0 {
		return nil, false
	}
	v, ok := c.global.Get(key)
	if ok {
		c.local[key] = v
	}
	return v, ok
}

func (c *Context) cachePut(key string, v []byte) {
	if c.local != nil {
		c.local[key] = v
	}
}

// fetch registers (or re-polls) a request and returns its response, or
// ErrPending while the host has not completed it.
func (c *Context) fetch(req *rpcreq.Request) ([]byte, error) {
	req.ChainID = c.ChainID
	r := c.State.Add(req)
	if r.Error != "" {
		return nil, errors.New(r.Error)
	}
	if r.Response == nil {
		return nil, ErrPending
	}
	return r.Response, nil
}

// beaconGet fetches a beacon API path.
func (c *Context) beaconGet(path string, enc rpcreq.Encoding) ([]byte, error) {
	return c.fetch(&rpcreq.Request{
		Kind:     rpcreq.BeaconAPI,
		Method:   rpcreq.GET,
		Encoding: enc,
		URL:      path,
	})
}

// beaconGetPreferred fetches a beacon API path with a client preference.
func (c *Context) beaconGetPreferred(path string, enc rpcreq.Encoding, preferred uint32) ([]byte, error) {
	return c.fetch(&rpcreq.Request{
		Kind:                rpcreq.BeaconAPI,
		Method:              rpcreq.GET,
		Encoding:            enc,
		URL:                 path,
		PreferredClientType: preferred,
	})
}

// internal fetches from the host's internal data sources (period store).
func (c *Context) internal(url string) ([]byte, error) {
	return c.fetch(&rpcreq.Request{
		Kind:   rpcreq.Internal,
		Method: rpcreq.GET,
		URL:    url,
	})
}

type jsonRPCResponse struct {
	Result jsoniter.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// execCall issues a JSON-RPC call against the execution pool and unwraps
// the result.
func (c *Context) execCall(method string, params ...interface{}) (jsoniter.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	payload, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode rpc call")
	}
	body, err := c.fetch(&rpcreq.Request{
		Kind:     rpcreq.ExecRPC,
		Method:   rpcreq.POST,
		Encoding: rpcreq.EncodingJSON,
		Payload:  payload,
	})
	if err != nil {
		return nil, err
	}
	var resp jsonRPCResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrapf(err, "parse %s response", method)
	}
	if resp.Error != nil {
		return nil, errors.Errorf("%s: %s (%d)", method, resp.Error.Message, resp.Error.Code)
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil, errors.Errorf("%s: empty result", method)
	}
	return resp.Result, nil
}

// param returns the i-th raw positional parameter.
func (c *Context) param(i int) (jsoniter.RawMessage, error) {
	var params []jsoniter.RawMessage
	if err := json.Unmarshal(c.Params, &params); err != nil {
		return nil, errors.Wrap(err, "parse params")
	}
	if i >= len(params) {
		return nil, errors.Errorf("missing parameter %d", i)
	}
	return params[i], nil
}

// paramString returns the i-th parameter as a string.
func (c *Context) paramString(i int) (string, error) {
	raw, err := c.param(i)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.Wrapf(err, "parameter %d", i)
	}
	return s, nil
}

func cacheKey(parts ...interface{}) string {
	return fmt.Sprint(parts...)
}
