package proofer

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/beacon"
	"github.com/corpus-core/colibri/types"
)

type proofResponse struct {
	AccountProof []string `json:"accountProof"`
	Balance      string   `json:"balance"`
	Nonce        string   `json:"nonce"`
	CodeHash     string   `json:"codeHash"`
	StorageHash  string   `json:"storageHash"`
	StorageProof []struct {
		Key   string   `json:"key"`
		Value string   `json:"value"`
		Proof []string `json:"proof"`
	} `json:"storageProof"`
}

func decodeHexList(items []string) ([][]byte, error) {
	out := make([][]byte, len(items))
	for i, s := range items {
		raw, err := hexutilDecode(s)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

// buildAccount serves every account-state method through eth_getProof:
// the account (and storage) Patricia proofs are taken verbatim, the
// beacon multiproof binds the execution state root into the body tree.
func buildAccount(c *Context) error {
	address, err := c.paramString(0)
	if err != nil {
		return err
	}
	var storageKeys []string
	blockParam := 1
	switch c.Method {
	case "eth_getProof":
		raw, err := c.param(1)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &storageKeys); err != nil {
			return errors.Wrap(err, "storage keys")
		}
		blockParam = 2
	case "eth_getStorageAt":
		key, err := c.paramString(1)
		if err != nil {
			return err
		}
		storageKeys = []string{key}
		blockParam = 2
	}
	blockRef := "latest"
	if ref, err := c.paramString(blockParam); err == nil {
		blockRef = ref
	}

	bi, err := c.beaconBlockForEth(blockRef)
	if err != nil {
		return err
	}
	blockNumber := fmt.Sprintf("0x%x", bi.Block.ExecBlockNumber())
	result, err := c.execCall("eth_getProof", address, storageKeys, blockNumber)
	if err != nil {
		return err
	}
	var resp proofResponse
	if err := json.Unmarshal(result, &resp); err != nil {
		return errors.Wrap(err, "parse eth_getProof response")
	}

	proof := &types.AccountProof{Header: bi.Header}
	if err := copyAddress(proof.Address[:], address); err != nil {
		return err
	}
	if proof.AccountProof, err = decodeHexList(resp.AccountProof); err != nil {
		return errors.Wrap(err, "account proof nodes")
	}
	for _, sp := range resp.StorageProof {
		nodes, err := decodeHexList(sp.Proof)
		if err != nil {
			return errors.Wrap(err, "storage proof nodes")
		}
		entry := &types.StorageProof{Proof: nodes}
		if err := copyWord(entry.Key[:], sp.Key); err != nil {
			return err
		}
		proof.StorageProofs = append(proof.StorageProofs, entry)
	}
	if proof.StateProof, err = bi.multiproof(
		beacon.PayloadStateRoot, beacon.PayloadBlockNumber, beacon.PayloadBlockHash,
	); err != nil {
		return err
	}

	data := accountData(c.Method, &resp)
	return c.finish(&types.C4Request{
		Version:  types.Version,
		Data:     data,
		Proof:    types.Proof{Selector: types.ProofAccount, Account: proof},
		SyncData: bi.Sync,
	})
}

// accountData normalizes the per-method result the verifier re-derives.
func accountData(method string, resp *proofResponse) types.Data {
	switch method {
	case "eth_getBalance":
		return types.Data{Selector: types.DataBytes, Bytes: []byte(resp.Balance)}
	case "eth_getTransactionCount":
		return types.Data{Selector: types.DataBytes, Bytes: []byte(resp.Nonce)}
	case "eth_getCode":
		return types.Data{Selector: types.DataBytes, Bytes: []byte(resp.CodeHash)}
	case "eth_getStorageAt":
		if len(resp.StorageProof) == 1 {
			return types.Data{Selector: types.DataBytes, Bytes: []byte(resp.StorageProof[0].Value)}
		}
	}
	return types.Data{Selector: types.DataNone}
}

// finish serializes the bundle and completes the context.
func (c *Context) finish(req *types.C4Request) error {
	raw, err := req.MarshalSSZ()
	if err != nil {
		return errors.Wrap(err, "encode proof bundle")
	}
	c.Proof = raw
	return nil
}

func hexutilDecode(s string) ([]byte, error) {
	if len(s) > 2 && len(s)%2 == 1 {
		// Quantities arrive without leading zero nibbles.
		s = "0x0" + s[2:]
	}
	return hexutil.Decode(s)
}

func copyAddress(dst []byte, s string) error {
	raw, err := hexutilDecode(s)
	if err != nil || len(raw) != 20 {
		return errors.Errorf("invalid address %q", s)
	}
	copy(dst, raw)
	return nil
}

func copyWord(dst []byte, s string) error {
	raw, err := hexutilDecode(s)
	if err != nil || len(raw) > 32 {
		return errors.Errorf("invalid storage key %q", s)
	}
	copy(dst[32-len(raw):], raw)
	return nil
}
