package proofer

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/beacon"
	"github.com/corpus-core/colibri/types"
)

type logEntry struct {
	BlockNumber      string `json:"blockNumber"`
	BlockHash        string `json:"blockHash"`
	TransactionIndex string `json:"transactionIndex"`
}

// buildLogs proves every receipt a log query touched, grouped per block:
// one beacon anchor and receipt-trie per block, one Patricia proof per
// touched transaction index.
func buildLogs(c *Context) error {
	filter, err := c.param(0)
	if err != nil {
		return err
	}
	result, err := c.execCall("eth_getLogs", filter)
	if err != nil {
		return err
	}
	var logs []logEntry
	if err := json.Unmarshal(result, &logs); err != nil {
		return errors.Wrap(err, "parse logs")
	}

	// Group touched transaction indexes by block, in block order.
	blockTxs := map[string]map[uint32]bool{}
	var blockNumbers []string
	for _, l := range logs {
		if blockTxs[l.BlockNumber] == nil {
			blockTxs[l.BlockNumber] = map[uint32]bool{}
			blockNumbers = append(blockNumbers, l.BlockNumber)
		}
		idx, err := hexToUint64(l.TransactionIndex)
		if err != nil {
			return err
		}
		blockTxs[l.BlockNumber][uint32(idx)] = true
	}
	sort.Slice(blockNumbers, func(i, j int) bool {
		a, _ := hexToUint64(blockNumbers[i])
		b, _ := hexToUint64(blockNumbers[j])
		return a < b
	})
	if len(blockNumbers) > types.MaxLogsBlocks {
		return errors.Errorf("log query touches %d blocks, limit is %d", len(blockNumbers), types.MaxLogsBlocks)
	}

	proof := &types.LogsProof{}
	var sync *types.SyncData
	for _, num := range blockNumbers {
		bi, err := c.beaconBlockForEth(num)
		if err != nil {
			return err
		}
		receipts, err := c.blockReceipts(num)
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
		blockProof := &types.LogsBlockProof{
			BlockNumber: bi.Block.ExecBlockNumber(),
			BlockHash:   blockHash,
			Proof:       multi,
			Header:      bi.Header,
		}
		indexes := make([]uint32, 0, len(blockTxs[num]))
		for idx := range blockTxs[num] {
			indexes = append(indexes, idx)
		}
		sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })
		for _, idx := range indexes {
			_, nodes, err := c.orderedTrieProof(receipts, idx)
			if err != nil {
				return err
			}
			blockProof.Receipts = append(blockProof.Receipts, &types.ReceiptEntry{
				TransactionIndex: idx,
				Proof:            nodes,
			})
		}
		proof.Blocks = append(proof.Blocks, blockProof)
		// The most recent block's aggregate anchors the whole bundle.
		sync = bi.Sync
	}
	if sync == nil {
		return errors.New("log query matched no blocks")
	}

	return c.finish(&types.C4Request{
		Version:  types.Version,
		Data:     types.Data{Selector: types.DataBytes, Bytes: result},
		Proof:    types.Proof{Selector: types.ProofLogs, Logs: proof},
		SyncData: sync,
	})
}
