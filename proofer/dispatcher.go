package proofer

import (
	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/chain"
)

// builderFn runs one resume of a method builder. A nil return means the
// proof is complete; ErrPending suspends; anything else is terminal.
type builderFn func(c *Context) error

// The dispatch table, populated at startup: Ethereum execution serves the
// full method set, OP-style rollups the transaction, receipt, logs, block
// and eth_call subset.
var builders = map[chain.Family]map[string]builderFn{}

func registerBuilder(family chain.Family, method string, fn builderFn) {
	if builders[family] == nil {
		builders[family] = map[string]builderFn{}
	}
	builders[family][method] = fn
}

func init() {
	eth := []struct {
		method string
		fn     builderFn
		opToo  bool
	}{
		{"eth_getProof", buildAccount, false},
		{"eth_getBalance", buildAccount, false},
		{"eth_getTransactionCount", buildAccount, false},
		{"eth_getCode", buildAccount, false},
		{"eth_getStorageAt", buildAccount, false},
		{"eth_getTransactionByHash", buildTransaction, true},
		{"eth_getTransactionReceipt", buildReceipt, true},
		{"eth_getLogs", buildLogs, true},
		{"eth_getBlockByNumber", buildBlock, true},
		{"eth_getBlockByHash", buildBlock, true},
		{"eth_call", buildCall, true},
		{"eth_proof_sync", buildSync, false},
	}
	for _, e := range eth {
		registerBuilder(chain.FamilyEthereum, e.method, e.fn)
		if e.opToo {
			registerBuilder(chain.FamilyOptimism, e.method, e.fn)
		}
	}
}

// Execute runs one round of the execute-resume loop. SUCCESS iff the
// proof was populated, ERROR iff the state error is set, PENDING while
// requests await the host.
func Execute(c *Context) Status {
	if c.Proof != nil {
		return StatusSuccess
	}
	if c.State.HasError() {
		return StatusError
	}
	if !c.validated {
		if err := ValidateParams(c.Method, c.Params); err != nil {
			c.State.AddError(err.Error())
			return StatusError
		}
		c.validated = true
	}
	family := chain.FamilyOf(c.ChainID)
	fn := builders[family][c.Method]
	if fn == nil {
		c.State.AddError("Unsupported method: " + c.Method)
		return StatusError
	}
	switch err := fn(c); {
	case err == nil:
		if c.Proof == nil {
			c.State.AddError("builder completed without a proof")
			return StatusError
		}
		return StatusSuccess
	case errors.Is(err, ErrPending):
		return StatusPending
	default:
		c.State.AddError(err.Error())
		return StatusError
	}
}
