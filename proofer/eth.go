package proofer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/beacon"
	"github.com/corpus-core/colibri/encoding/ssz"
	"github.com/corpus-core/colibri/rpcreq"
	"github.com/corpus-core/colibri/types"
)

// maxSlotWalk bounds the forward walk over empty slots when mapping
// execution blocks (or signature carriers) to beacon blocks.
const maxSlotWalk = 8

// blockInfo is a resolved beacon block with everything the builders
// anchor proofs to.
type blockInfo struct {
	Block  *beacon.Block
	Tree   *ssz.Tree
	Header types.BeaconHeader
	Sync   *types.SyncData
}

func hexToUint64(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return 0, errors.Errorf("invalid quantity %q", s)
	}
	return v, nil
}

type execBlockRef struct {
	Hash                  string `json:"hash"`
	Number                string `json:"number"`
	ParentBeaconBlockRoot string `json:"parentBeaconBlockRoot"`
}

// beaconBlockForEth resolves an execution block reference to the beacon
// block embedding it. Symbolic refs resolve through the beacon head; a
// number or hash resolves through the execution block's parent beacon
// root, walking forward over empty slots until the payload hash matches.
func (c *Context) beaconBlockForEth(blockRef string) (*blockInfo, error) {
	var raw []byte
	var err error
	switch blockRef {
	case "latest", "safe", "pending", "":
		raw, err = c.resolveFromHead("head")
	case "finalized":
		raw, err = c.resolveFromHead("finalized")
	default:
		raw, err = c.resolveFromExec(blockRef)
	}
	if err != nil {
		return nil, err
	}
	return c.finishBlockInfo(raw)
}

// resolveFromHead maps a symbolic ref through the beacon headers API.
func (c *Context) resolveFromHead(ref string) ([]byte, error) {
	body, err := c.beaconGet("/eth/v1/beacon/headers/"+ref, rpcreq.EncodingJSON)
	if err != nil {
		return nil, err
	}
	slot, err := headerSlot(body)
	if err != nil {
		return nil, err
	}
	return c.beaconGet(fmt.Sprintf("/eth/v2/beacon/blocks/%d", slot), rpcreq.EncodingJSON)
}

type headerEnvelope struct {
	Data struct {
		Header struct {
			Message struct {
				Slot string `json:"slot"`
			} `json:"message"`
		} `json:"header"`
	} `json:"data"`
}

func headerSlot(body []byte) (uint64, error) {
	var env headerEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return 0, errors.Wrap(err, "parse header")
	}
	slot, err := strconv.ParseUint(env.Data.Header.Message.Slot, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse header slot")
	}
	return slot, nil
}

// resolveFromExec maps a number or hash through the execution client.
// Resolutions survive the context in the shared cache.
func (c *Context) resolveFromExec(blockRef string) ([]byte, error) {
	key := cacheKey("beaconblock:", c.ChainID, ":", blockRef)
	if raw, ok := c.cacheGet(key); ok {
		return raw, nil
	}
	raw, err := c.resolveFromExecUncached(blockRef)
	if err == nil {
		c.cachePut(key, raw)
	}
	return raw, err
}

func (c *Context) resolveFromExecUncached(blockRef string) ([]byte, error) {
	method, arg := "eth_getBlockByNumber", blockRef
	if len(strings.TrimPrefix(blockRef, "0x")) == 64 {
		method = "eth_getBlockByHash"
	}
	result, err := c.execCall(method, arg, false)
	if err != nil {
		return nil, err
	}
	var ref execBlockRef
	if err := json.Unmarshal(result, &ref); err != nil {
		return nil, errors.Wrap(err, "parse execution block")
	}
	if ref.ParentBeaconBlockRoot == "" {
		return nil, errors.Errorf("block %s predates beacon root recording", blockRef)
	}
	parentBody, err := c.beaconGet("/eth/v1/beacon/headers/"+ref.ParentBeaconBlockRoot, rpcreq.EncodingJSON)
	if err != nil {
		return nil, err
	}
	parentSlot, err := headerSlot(parentBody)
	if err != nil {
		return nil, err
	}
	// The embedding block sits at the first occupied slot after the
	// parent.
	for i := uint64(1); i <= maxSlotWalk; i++ {
		raw, err := c.beaconGet(fmt.Sprintf("/eth/v2/beacon/blocks/%d", parentSlot+i), rpcreq.EncodingJSON)
		if errors.Is(err, ErrPending) {
			return nil, err
		}
		if err != nil {
			// Empty slot; keep walking.
			continue
		}
		blk, err := beacon.ParseBlock(raw)
		if err != nil {
			return nil, err
		}
		hash, err := blk.ExecBlockHash()
		if err != nil {
			return nil, err
		}
		if fmt.Sprintf("%#x", hash) == strings.ToLower(ref.Hash) {
			return raw, nil
		}
	}
	return nil, errors.Errorf("no beacon block embeds execution block %s", blockRef)
}

// finishBlockInfo parses the block, rebuilds the body tree and resolves
// the sync committee attestation from the child block.
func (c *Context) finishBlockInfo(raw []byte) (*blockInfo, error) {
	blk, err := beacon.ParseBlock(raw)
	if err != nil {
		return nil, err
	}
	tree, err := blk.BodyTree()
	if err != nil {
		return nil, err
	}
	bi := &blockInfo{
		Block:  blk,
		Tree:   tree,
		Header: blk.Header(tree.Root()),
	}
	// The aggregate signing this block travels in the next block.
	for i := uint64(1); i <= maxSlotWalk; i++ {
		childRaw, err := c.beaconGet(fmt.Sprintf("/eth/v2/beacon/blocks/%d", blk.Slot+i), rpcreq.EncodingJSON)
		if errors.Is(err, ErrPending) {
			return nil, err
		}
		if err != nil {
			continue
		}
		child, err := beacon.ParseBlock(childRaw)
		if err != nil {
			return nil, err
		}
		if bi.Sync, err = child.SyncAggregate(); err != nil {
			return nil, err
		}
		break
	}
	if bi.Sync == nil {
		return nil, errors.Errorf("no sync aggregate found for slot %d", blk.Slot)
	}
	return bi, nil
}

// multiproof emits the deduplicated witness set for payload fields.
func (bi *blockInfo) multiproof(payloadFields ...int) ([][32]byte, error) {
	gindices := make([]uint64, len(payloadFields))
	for i, f := range payloadFields {
		gindices[i] = beacon.PayloadGIndex(f)
	}
	proof, _, err := bi.Tree.Multiproof(gindices)
	return proof, err
}
