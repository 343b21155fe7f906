package beacon

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/encoding/ssz"
	"github.com/corpus-core/colibri/types"
)

// Block is a parsed beacon block as served by /eth/v2/beacon/blocks.
type Block struct {
	Version       string
	Slot          uint64
	ProposerIndex uint64
	ParentRoot    [32]byte
	StateRoot     [32]byte

	body jsonBody
}

type signedBlockJSON struct {
	Version string `json:"version"`
	Data    struct {
		Message struct {
			Slot          suint    `json:"slot"`
			ProposerIndex suint    `json:"proposer_index"`
			ParentRoot    string   `json:"parent_root"`
			StateRoot     string   `json:"state_root"`
			Body          jsonBody `json:"body"`
		} `json:"message"`
	} `json:"data"`
}

// ParseBlock decodes a beacon block JSON response.
func ParseBlock(raw []byte) (*Block, error) {
	var resp signedBlockJSON
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(err, "parse beacon block")
	}
	msg := resp.Data.Message
	b := &Block{
		Version:       resp.Version,
		Slot:          uint64(msg.Slot),
		ProposerIndex: uint64(msg.ProposerIndex),
		body:          msg.Body,
	}
	var err error
	if b.ParentRoot, err = hexRoot(msg.ParentRoot); err != nil {
		return nil, err
	}
	if b.StateRoot, err = hexRoot(msg.StateRoot); err != nil {
		return nil, err
	}
	return b, nil
}

// GetBlock fetches and parses the beacon block at a slot or root ref.
func (c *Client) GetBlock(ctx context.Context, ref string) ([]byte, error) {
	return c.get(ctx, "/eth/v2/beacon/blocks/"+ref, 0, 0)
}

// BodyTree reconstructs the body Merkle tree; its root is the header's
// body_root.
func (b *Block) BodyTree() (*ssz.Tree, error) {
	return BodyTree(&b.body)
}

// Header assembles the beacon header once the body root is known.
func (b *Block) Header(bodyRoot [32]byte) types.BeaconHeader {
	return types.BeaconHeader{
		Slot:          b.Slot,
		ProposerIndex: b.ProposerIndex,
		ParentRoot:    b.ParentRoot,
		StateRoot:     b.StateRoot,
		BodyRoot:      bodyRoot,
	}
}

// ExecBlockNumber returns executionPayload.blockNumber.
func (b *Block) ExecBlockNumber() uint64 { return uint64(b.body.ExecutionPayload.BlockNumber) }

// ExecBlockHash returns executionPayload.blockHash.
func (b *Block) ExecBlockHash() ([32]byte, error) {
	return hexRoot(b.body.ExecutionPayload.BlockHash)
}

// ExecReceiptsRoot returns executionPayload.receiptsRoot.
func (b *Block) ExecReceiptsRoot() ([32]byte, error) {
	return hexRoot(b.body.ExecutionPayload.ReceiptsRoot)
}

// ExecStateRoot returns executionPayload.stateRoot.
func (b *Block) ExecStateRoot() ([32]byte, error) {
	return hexRoot(b.body.ExecutionPayload.StateRoot)
}

// Transactions returns the payload's raw transaction hex strings.
func (b *Block) Transactions() []string { return b.body.ExecutionPayload.Transactions }

// SyncAggregate returns the aggregate carried by this block, which
// attests to an ancestor; the anchor for a block is found in its child.
func (b *Block) SyncAggregate() (*types.SyncData, error) {
	bits, err := hexBytes(b.body.SyncAggregate.SyncCommitteeBits)
	if err != nil || len(bits) != 64 {
		return nil, errors.New("invalid sync committee bits")
	}
	sig, err := hexBytes(b.body.SyncAggregate.SyncCommitteeSignature)
	if err != nil || len(sig) != 96 {
		return nil, errors.New("invalid sync committee signature")
	}
	sd := &types.SyncData{Bits: bits, SignatureSlot: b.Slot}
	copy(sd.Signature[:], sig)
	return sd, nil
}

// BlockRefBySlot renders a slot into a block API ref.
func BlockRefBySlot(slot uint64) string { return fmt.Sprintf("%d", slot) }
