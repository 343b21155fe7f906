package beacon

import (
	"encoding/binary"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corpus-core/colibri/encoding/ssz"
)

func zeros(n int) string {
	return "0x" + strings.Repeat("00", n)
}

func syntheticBlockJSON() []byte {
	return []byte(fmt.Sprintf(`{
		"version": "deneb",
		"data": {
			"message": {
				"slot": "9000000",
				"proposer_index": "123",
				"parent_root": %q,
				"state_root": %q,
				"body": {
					"randao_reveal": %q,
					"eth1_data": {"deposit_root": %q, "deposit_count": "100", "block_hash": %q},
					"graffiti": %q,
					"proposer_slashings": [],
					"attester_slashings": [],
					"attestations": [],
					"deposits": [],
					"voluntary_exits": [],
					"sync_aggregate": {"sync_committee_bits": %q, "sync_committee_signature": %q},
					"execution_payload": {
						"parent_hash": %q,
						"fee_recipient": %q,
						"state_root": %q,
						"receipts_root": %q,
						"logs_bloom": %q,
						"prev_randao": %q,
						"block_number": "19500000",
						"gas_limit": "30000000",
						"gas_used": "12000000",
						"timestamp": "1700000000",
						"extra_data": "0x626f6f73742d72656c6179",
						"base_fee_per_gas": "27000000000",
						"block_hash": %q,
						"transactions": ["0x02f87001", "0x02f87002"],
						"withdrawals": [
							{"index": "1", "validator_index": "7", "address": %q, "amount": "123"}
						],
						"blob_gas_used": "0",
						"excess_blob_gas": "0"
					},
					"bls_to_execution_changes": [],
					"blob_kzg_commitments": []
				}
			}
		}
	}`,
		zeros(32), zeros(32), zeros(96), zeros(32), zeros(32), zeros(32),
		zeros(64), zeros(96),
		zeros(32), zeros(20), zeros(32), zeros(32), zeros(256), zeros(32),
		"0x"+strings.Repeat("ab", 32), zeros(20)))
}

func TestParseBlock(t *testing.T) {
	blk, err := ParseBlock(syntheticBlockJSON())
	require.NoError(t, err)
	require.Equal(t, uint64(9000000), blk.Slot)
	require.Equal(t, uint64(123), blk.ProposerIndex)
	require.Equal(t, uint64(19500000), blk.ExecBlockNumber())

	hash, err := blk.ExecBlockHash()
	require.NoError(t, err)
	require.Equal(t, byte(0xab), hash[0])

	require.Equal(t, 2, len(blk.Transactions()))

	sd, err := blk.SyncAggregate()
	require.NoError(t, err)
	require.Equal(t, uint64(9000000), sd.SignatureSlot)
}

func TestBodyTreeMultiproof(t *testing.T) {
	blk, err := ParseBlock(syntheticBlockJSON())
	require.NoError(t, err)
	tree, err := blk.BodyTree()
	require.NoError(t, err)
	root := tree.Root()
	require.NotEqual(t, [32]byte{}, root)

	// Prove blockNumber and blockHash against the body root.
	gindices := []uint64{
		PayloadGIndex(PayloadBlockNumber),
		PayloadGIndex(PayloadBlockHash),
	}
	proof, order, err := tree.Multiproof(gindices)
	require.NoError(t, err)
	require.Equal(t, len(order), len(proof))

	var numberLeaf [32]byte
	binary.LittleEndian.PutUint64(numberLeaf[:8], 19500000)
	hashLeaf, err := blk.ExecBlockHash()
	require.NoError(t, err)

	leaves := map[uint64][32]byte{
		PayloadGIndex(PayloadBlockNumber): numberLeaf,
		PayloadGIndex(PayloadBlockHash):   hashLeaf,
	}
	require.Equal(t, true, ssz.VerifyMultiproof(root, proof, leaves))

	// A wrong leaf value must not verify.
	leaves[PayloadGIndex(PayloadBlockNumber)] = [32]byte{1}
	require.Equal(t, false, ssz.VerifyMultiproof(root, proof, leaves))
}

func TestBodyTreeDeterministic(t *testing.T) {
	blk, err := ParseBlock(syntheticBlockJSON())
	require.NoError(t, err)
	t1, err := blk.BodyTree()
	require.NoError(t, err)
	t2, err := blk.BodyTree()
	require.NoError(t, err)
	require.Equal(t, t1.Root(), t2.Root())
}
