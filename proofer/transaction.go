package proofer

import (
	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/beacon"
	"github.com/corpus-core/colibri/encoding/ssz"
	"github.com/corpus-core/colibri/types"
)

// maxPayloadTransactions is the SSZ limit of the payload transaction list.
const maxPayloadTransactions = 1 << 20

type txRefResponse struct {
	BlockNumber      string `json:"blockNumber"`
	BlockHash        string `json:"blockHash"`
	TransactionIndex string `json:"transactionIndex"`
}

// payloadTransactions decodes the payload's raw transactions and hashes
// each into its SSZ leaf.
func payloadTransactions(blk *beacon.Block) ([][]byte, [][32]byte, error) {
	txHexes := blk.Transactions()
	raws := make([][]byte, len(txHexes))
	leaves := make([][32]byte, len(txHexes))
	for i, h := range txHexes {
		raw, err := hexutilDecode(h)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "transaction %d", i)
		}
		raws[i] = raw
		root, err := types.ByteListRoot(raw, 1<<30)
		if err != nil {
			return nil, nil, err
		}
		leaves[i] = root
	}
	return raws, leaves, nil
}

// buildTransaction proves one transaction: the raw bytes, its Patricia
// proof in the block transaction trie and the SSZ branch of
// executionPayload.transactions[idx] into the body root.
func buildTransaction(c *Context) error {
	txHash, err := c.paramString(0)
	if err != nil {
		return err
	}
	result, err := c.execCall("eth_getTransactionByHash", txHash)
	if err != nil {
		return err
	}
	var ref txRefResponse
	if err := json.Unmarshal(result, &ref); err != nil {
		return errors.Wrap(err, "parse transaction")
	}
	if ref.BlockNumber == "" {
		return errors.Errorf("transaction %s is not included in a block", txHash)
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
	raws, leaves, err := payloadTransactions(bi.Block)
	if err != nil {
		return err
	}
	if int(index) >= len(raws) {
		return errors.Errorf("transaction index %d out of range", index)
	}

	_, txProof, err := c.orderedTrieProof(raws, index)
	if err != nil {
		return err
	}
	// The SSZ inclusion branch inside the transactions list, then the
	// body multiproof binding the list root, number and hash.
	_, listBranch, err := ssz.ListBranch(leaves, maxPayloadTransactions, uint64(index))
	if err != nil {
		return err
	}
	multi, err := bi.multiproof(
		beacon.PayloadTransactions, beacon.PayloadBlockNumber, beacon.PayloadBlockHash,
	)
	if err != nil {
		return err
	}

	blockHash, err := bi.Block.ExecBlockHash()
	if err != nil {
		return err
	}
	proof := &types.TransactionProof{
		TransactionIndex: index,
		BlockNumber:      bi.Block.ExecBlockNumber(),
		BlockHash:        blockHash,
		Transaction:      raws[index],
		TxProof:          txProof,
		Proof:            append(listBranch, multi...),
		Header:           bi.Header,
	}
	return c.finish(&types.C4Request{
		Version:  types.Version,
		Data:     types.Data{Selector: types.DataHash, Hash: txLeafHash(txHash)},
		Proof:    types.Proof{Selector: types.ProofTransaction, Transaction: proof},
		SyncData: bi.Sync,
	})
}

func txLeafHash(s string) [32]byte {
	var out [32]byte
	raw, err := hexutilDecode(s)
	if err == nil && len(raw) == 32 {
		copy(out[:], raw)
	}
	return out
}
