package proofer

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/pkg/errors"
)

// proofList collects trie proof nodes in traversal order.
type proofList [][]byte

func (p *proofList) Put(_ []byte, value []byte) error {
	*p = append(*p, value)
	return nil
}

func (p *proofList) Delete([]byte) error {
	return errors.New("proof list does not support deletes")
}

// orderedTrieProof builds the Patricia trie over index-keyed items (the
// transaction and receipt tries) and proves one leaf. Construction is
// CPU-bound; contexts flagged worker-required run it with the shared
// cache gated read-only.
func (c *Context) orderedTrieProof(items [][]byte, index uint32) (common.Hash, [][]byte, error) {
	if c.Flags&FlagWorkerRequired != 0 && c.global != nil {
		c.global.BeginWorker()
		defer c.global.EndWorker()
	}
	if int(index) >= len(items) {
		return common.Hash{}, nil, errors.Errorf("index %d out of range (%d items)", index, len(items))
	}
	tr := trie.NewEmpty(triedb.NewDatabase(rawdb.NewMemoryDatabase(), nil))
	var keyBuf []byte
	for i, item := range items {
		keyBuf = rlp.AppendUint64(keyBuf[:0], uint64(i))
		tr.MustUpdate(keyBuf, item)
	}
	keyBuf = rlp.AppendUint64(keyBuf[:0], uint64(index))
	var proof proofList
	if err := tr.Prove(keyBuf, &proof); err != nil {
		return common.Hash{}, nil, errors.Wrap(err, "prove trie leaf")
	}
	return tr.Hash(), proof, nil
}
