package proofer

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/beacon"
	"github.com/corpus-core/colibri/types"
)

// prestate is the debug_traceCall prestateTracer account shape.
type prestate struct {
	Balance string            `json:"balance"`
	Nonce   uint64            `json:"nonce"`
	Code    string            `json:"code"`
	Storage map[string]string `json:"storage"`
}

// buildCall proves an eth_call: the call is traced to find every touched
// account and storage slot, then each is proven with eth_getProof against
// the same state.
func buildCall(c *Context) error {
	callObj, err := c.param(0)
	if err != nil {
		return err
	}
	blockRef := "latest"
	if ref, err := c.paramString(1); err == nil {
		blockRef = ref
	}
	bi, err := c.beaconBlockForEth(blockRef)
	if err != nil {
		return err
	}
	blockNumber := fmt.Sprintf("0x%x", bi.Block.ExecBlockNumber())

	// State-affecting accesses from the tracer.
	traceResult, err := c.execCall("debug_traceCall", callObj, blockNumber,
		map[string]interface{}{"tracer": "prestateTracer"})
	if err != nil {
		return err
	}
	var touched map[string]prestate
	if err := json.Unmarshal(traceResult, &touched); err != nil {
		return errors.Wrap(err, "parse trace result")
	}
	if len(touched) > types.MaxCallAccounts {
		return errors.Errorf("call touches %d accounts, limit is %d", len(touched), types.MaxCallAccounts)
	}

	// The call result itself is the normalized data.
	callResult, err := c.execCall("eth_call", callObj, blockNumber)
	if err != nil {
		return err
	}

	proof := &types.CallProof{Header: bi.Header}
	for _, address := range sortedKeys(touched) {
		state := touched[address]
		slots := sortedKeys(state.Storage)
		result, err := c.execCall("eth_getProof", address, slots, blockNumber)
		if err != nil {
			return err
		}
		var resp proofResponse
		if err := json.Unmarshal(result, &resp); err != nil {
			return errors.Wrap(err, "parse eth_getProof response")
		}
		account := &types.AccountStateProof{}
		if err := copyAddress(account.Address[:], address); err != nil {
			return err
		}
		if account.AccountProof, err = decodeHexList(resp.AccountProof); err != nil {
			return err
		}
		if c.Flags&FlagIncludeCode != 0 && state.Code != "" {
			if account.Code, err = hexutilDecode(state.Code); err != nil {
				return errors.Wrap(err, "contract code")
			}
		}
		for _, sp := range resp.StorageProof {
			nodes, err := decodeHexList(sp.Proof)
			if err != nil {
				return err
			}
			entry := &types.StorageProof{Proof: nodes}
			if err := copyWord(entry.Key[:], sp.Key); err != nil {
				return err
			}
			account.StorageProofs = append(account.StorageProofs, entry)
		}
		proof.Accounts = append(proof.Accounts, account)
	}
	if proof.StateProof, err = bi.multiproof(
		beacon.PayloadStateRoot, beacon.PayloadBlockNumber, beacon.PayloadBlockHash,
	); err != nil {
		return err
	}

	var resultHex string
	if err := json.Unmarshal(callResult, &resultHex); err != nil {
		return errors.Wrap(err, "parse call result")
	}
	return c.finish(&types.C4Request{
		Version:  types.Version,
		Data:     types.Data{Selector: types.DataBytes, Bytes: []byte(resultHex)},
		Proof:    types.Proof{Selector: types.ProofCall, Call: proof},
		SyncData: bi.Sync,
	})
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
