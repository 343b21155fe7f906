package proofer

import (
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/beacon"
	"github.com/corpus-core/colibri/types"
)

// blockReceipts fetches and re-encodes every receipt of a block into its
// consensus (EIP-2718) form, ready for trie construction.
func (c *Context) blockReceipts(blockNumber string) ([][]byte, error) {
	result, err := c.execCall("eth_getBlockReceipts", blockNumber)
	if err != nil {
		return nil, err
	}
	var rawReceipts []jsoniter.RawMessage
	if err := json.Unmarshal(result, &rawReceipts); err != nil {
		return nil, errors.Wrap(err, "parse block receipts")
	}
	encoded := make([][]byte, len(rawReceipts))
	for i, raw := range rawReceipts {
		var receipt gethtypes.Receipt
		if err := receipt.UnmarshalJSON(raw); err != nil {
			return nil, errors.Wrapf(err, "receipt %d", i)
		}
		if encoded[i], err = receipt.MarshalBinary(); err != nil {
			return nil, errors.Wrapf(err, "encode receipt %d", i)
		}
	}
	return encoded, nil
}

// buildReceipt proves a transaction receipt: the Patricia proof in the
// receipt trie, the parallel transaction trie proof binding the hash, and
// the body multiproof for the receipts root.
func buildReceipt(c *Context) error {
	txHash, err := c.paramString(0)
	if err != nil {
		return err
	}
	result, err := c.execCall("eth_getTransactionReceipt", txHash)
	if err != nil {
		return err
	}
	var ref txRefResponse
	if err := json.Unmarshal(result, &ref); err != nil {
		return errors.Wrap(err, "parse receipt")
	}
	if ref.BlockNumber == "" {
		return errors.Errorf("no receipt for %s", txHash)
	}
	index64, err := hexToUint64(ref.TransactionIndex)
	if err != nil {
		return err
	}
	index := uint32(index64)

	bi, err := c.beaconBlockForEth(ref.BlockNumber)
	if err != nil {
		return err
	}
	receipts, err := c.blockReceipts(ref.BlockNumber)
	if err != nil {
		return err
	}
	raws, _, err := payloadTransactions(bi.Block)
	if err != nil {
		return err
	}
	if int(index) >= len(receipts) || len(receipts) != len(raws) {
		return errors.Errorf("receipt index %d inconsistent with block content", index)
	}

	_, receiptProof, err := c.orderedTrieProof(receipts, index)
	if err != nil {
		return err
	}
	_, txProof, err := c.orderedTrieProof(raws, index)
	if err != nil {
		return err
	}
	multi, err := bi.multiproof(
		beacon.PayloadReceiptsRoot, beacon.PayloadBlockNumber, beacon.PayloadBlockHash,
	)
	if err != nil {
		return err
	}

	blockHash, err := bi.Block.ExecBlockHash()
	if err != nil {
		return err
	}
	proof := &types.ReceiptProof{
		TransactionIndex: index,
		BlockNumber:      bi.Block.ExecBlockNumber(),
		BlockHash:        blockHash,
		ReceiptProof:     receiptProof,
		TxProof:          txProof,
		Proof:            multi,
		Header:           bi.Header,
	}
	return c.finish(&types.C4Request{
		Version:  types.Version,
		Data:     types.Data{Selector: types.DataHash, Hash: txLeafHash(txHash)},
		Proof:    types.Proof{Selector: types.ProofReceipt, Receipt: proof},
		SyncData: bi.Sync,
	})
}
