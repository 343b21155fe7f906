package proofer

import (
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/beacon"
	"github.com/corpus-core/colibri/types"
)

// buildBlock proves an execution block header: its RLP encoding bound to
// the beacon body through the payload blockHash and blockNumber leaves.
func buildBlock(c *Context) error {
	blockRef, err := c.paramString(0)
	if err != nil {
		return err
	}
	bi, err := c.beaconBlockForEth(blockRef)
	if err != nil {
		return err
	}

	method := "eth_getBlockByNumber"
	if c.Method == "eth_getBlockByHash" {
		method = "eth_getBlockByHash"
	}
	result, err := c.execCall(method, blockRef, false)
	if err != nil {
		return err
	}
	var header gethtypes.Header
	if err := header.UnmarshalJSON(result); err != nil {
		return errors.Wrap(err, "parse execution header")
	}
	encoded, err := rlp.EncodeToBytes(&header)
	if err != nil {
		return errors.Wrap(err, "encode execution header")
	}
	blockHash, err := bi.Block.ExecBlockHash()
	if err != nil {
		return err
	}
	if header.Hash() != common.Hash(blockHash) {
		return errors.Errorf("execution header hash %#x does not match payload %#x", header.Hash(), blockHash)
	}

	multi, err := bi.multiproof(beacon.PayloadBlockHash, beacon.PayloadBlockNumber)
	if err != nil {
		return err
	}
	proof := &types.BlockProof{
		BlockHeader: encoded,
		Proof:       multi,
		Header:      bi.Header,
	}
	return c.finish(&types.C4Request{
		Version:  types.Version,
		Data:     types.Data{Selector: types.DataHash, Hash: blockHash},
		Proof:    types.Proof{Selector: types.ProofBlock, Block: proof},
		SyncData: bi.Sync,
	})
}
