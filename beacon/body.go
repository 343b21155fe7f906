package beacon

import (
	"encoding/hex"
	"strings"

	fastssz "github.com/ferranbt/fastssz"
	"github.com/pkg/errors"

	"github.com/corpus-core/colibri/encoding/ssz"
)

// Deneb beacon block body: 12 fields, padded to a 16-leaf tree. The
// execution payload is field 9 and itself a 17-field container padded to
// 32 leaves. Generalized indices compose as
// body_gindex(field) = 16+field, payload leaf = (16+9)*32 + field.
const (
	bodyLeafBase    = 16
	payloadField    = 9
	payloadLeafBase = (bodyLeafBase + payloadField) * 32
)

// Payload field indices used by the proof builders.
const (
	PayloadParentHash = iota
	PayloadFeeRecipient
	PayloadStateRoot
	PayloadReceiptsRoot
	PayloadLogsBloom
	PayloadPrevRandao
	PayloadBlockNumber
	PayloadGasLimit
	PayloadGasUsed
	PayloadTimestamp
	PayloadExtraData
	PayloadBaseFee
	PayloadBlockHash
	PayloadTransactions
	PayloadWithdrawals
	PayloadBlobGasUsed
	PayloadExcessBlobGas
)

// PayloadGIndex returns the body-tree generalized index of an execution
// payload field.
func PayloadGIndex(field int) uint64 { return payloadLeafBase + uint64(field) }

// BodyGIndex returns the generalized index of a top level body field.
func BodyGIndex(field int) uint64 { return bodyLeafBase + uint64(field) }

func hexBytes(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

func hexRoot(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hexBytes(s)
	if err != nil || len(raw) != 32 {
		return out, errors.Errorf("invalid root %q", s)
	}
	copy(out[:], raw)
	return out, nil
}

type jsonCheckpoint struct {
	Epoch suint  `json:"epoch"`
	Root  string `json:"root"`
}

type jsonAttestationData struct {
	Slot            suint          `json:"slot"`
	Index           suint          `json:"index"`
	BeaconBlockRoot string         `json:"beacon_block_root"`
	Source          jsonCheckpoint `json:"source"`
	Target          jsonCheckpoint `json:"target"`
}

type jsonAttestation struct {
	AggregationBits string              `json:"aggregation_bits"`
	Data            jsonAttestationData `json:"data"`
	Signature       string              `json:"signature"`
}

type jsonIndexedAttestation struct {
	AttestingIndices []suint             `json:"attesting_indices"`
	Data             jsonAttestationData `json:"data"`
	Signature        string              `json:"signature"`
}

type jsonSignedHeader struct {
	Message struct {
		Slot          suint  `json:"slot"`
		ProposerIndex suint  `json:"proposer_index"`
		ParentRoot    string `json:"parent_root"`
		StateRoot     string `json:"state_root"`
		BodyRoot      string `json:"body_root"`
	} `json:"message"`
	Signature string `json:"signature"`
}

type jsonProposerSlashing struct {
	SignedHeader1 jsonSignedHeader `json:"signed_header_1"`
	SignedHeader2 jsonSignedHeader `json:"signed_header_2"`
}

type jsonAttesterSlashing struct {
	Attestation1 jsonIndexedAttestation `json:"attestation_1"`
	Attestation2 jsonIndexedAttestation `json:"attestation_2"`
}

type jsonDeposit struct {
	Proof []string `json:"proof"`
	Data  struct {
		Pubkey                string `json:"pubkey"`
		WithdrawalCredentials string `json:"withdrawal_credentials"`
		Amount                suint  `json:"amount"`
		Signature             string `json:"signature"`
	} `json:"data"`
}

type jsonSignedVoluntaryExit struct {
	Message struct {
		Epoch          suint `json:"epoch"`
		ValidatorIndex suint `json:"validator_index"`
	} `json:"message"`
	Signature string `json:"signature"`
}

type jsonBLSChange struct {
	Message struct {
		ValidatorIndex     suint  `json:"validator_index"`
		FromBLSPubkey      string `json:"from_bls_pubkey"`
		ToExecutionAddress string `json:"to_execution_address"`
	} `json:"message"`
	Signature string `json:"signature"`
}

type jsonWithdrawal struct {
	Index          suint  `json:"index"`
	ValidatorIndex suint  `json:"validator_index"`
	Address        string `json:"address"`
	Amount         suint  `json:"amount"`
}

type jsonExecutionPayload struct {
	ParentHash    string           `json:"parent_hash"`
	FeeRecipient  string           `json:"fee_recipient"`
	StateRoot     string           `json:"state_root"`
	ReceiptsRoot  string           `json:"receipts_root"`
	LogsBloom     string           `json:"logs_bloom"`
	PrevRandao    string           `json:"prev_randao"`
	BlockNumber   suint            `json:"block_number"`
	GasLimit      suint            `json:"gas_limit"`
	GasUsed       suint            `json:"gas_used"`
	Timestamp     suint            `json:"timestamp"`
	ExtraData     string           `json:"extra_data"`
	BaseFeePerGas suint            `json:"base_fee_per_gas"`
	BlockHash     string           `json:"block_hash"`
	Transactions  []string         `json:"transactions"`
	Withdrawals   []jsonWithdrawal `json:"withdrawals"`
	BlobGasUsed   suint            `json:"blob_gas_used"`
	ExcessBlobGas suint            `json:"excess_blob_gas"`
}

type jsonBody struct {
	RandaoReveal string `json:"randao_reveal"`
	Eth1Data     struct {
		DepositRoot  string `json:"deposit_root"`
		DepositCount suint  `json:"deposit_count"`
		BlockHash    string `json:"block_hash"`
	} `json:"eth1_data"`
	Graffiti              string                    `json:"graffiti"`
	ProposerSlashings     []jsonProposerSlashing    `json:"proposer_slashings"`
	AttesterSlashings     []jsonAttesterSlashing    `json:"attester_slashings"`
	Attestations          []jsonAttestation         `json:"attestations"`
	Deposits              []jsonDeposit             `json:"deposits"`
	VoluntaryExits        []jsonSignedVoluntaryExit `json:"voluntary_exits"`
	SyncAggregate         SyncAggregateJSON         `json:"sync_aggregate"`
	ExecutionPayload      jsonExecutionPayload      `json:"execution_payload"`
	BLSToExecutionChanges []jsonBLSChange           `json:"bls_to_execution_changes"`
	BlobKZGCommitments    []string                  `json:"blob_kzg_commitments"`
}

// SyncAggregateJSON is the sync committee attestation as served over JSON.
type SyncAggregateJSON struct {
	SyncCommitteeBits      string `json:"sync_committee_bits"`
	SyncCommitteeSignature string `json:"sync_committee_signature"`
}

// subRoot runs one nested hash computation on a fresh hasher.
func subRoot(f func(hh *fastssz.Hasher) error) ([32]byte, error) {
	hh := fastssz.NewHasher()
	if err := f(hh); err != nil {
		return [32]byte{}, err
	}
	return hh.HashRoot()
}

func putHex(hh *fastssz.Hasher, s string, size int) error {
	raw, err := hexBytes(s)
	if err != nil || len(raw) != size {
		return errors.Errorf("invalid %d byte hex %q", size, s)
	}
	hh.PutBytes(raw)
	return nil
}

func hashCheckpoint(hh *fastssz.Hasher, c *jsonCheckpoint) error {
	idx := hh.Index()
	hh.PutUint64(uint64(c.Epoch))
	if err := putHex(hh, c.Root, 32); err != nil {
		return err
	}
	hh.Merkleize(idx)
	return nil
}

func hashAttestationData(hh *fastssz.Hasher, d *jsonAttestationData) error {
	idx := hh.Index()
	hh.PutUint64(uint64(d.Slot))
	hh.PutUint64(uint64(d.Index))
	if err := putHex(hh, d.BeaconBlockRoot, 32); err != nil {
		return err
	}
	if err := hashCheckpoint(hh, &d.Source); err != nil {
		return err
	}
	if err := hashCheckpoint(hh, &d.Target); err != nil {
		return err
	}
	hh.Merkleize(idx)
	return nil
}

func hashAttestation(hh *fastssz.Hasher, a *jsonAttestation) error {
	idx := hh.Index()
	bits, err := hexBytes(a.AggregationBits)
	if err != nil {
		return errors.Errorf("invalid aggregation bits %q", a.AggregationBits)
	}
	hh.PutBitlist(bits, 2048)
	if err := hashAttestationData(hh, &a.Data); err != nil {
		return err
	}
	if err := putHex(hh, a.Signature, 96); err != nil {
		return err
	}
	hh.Merkleize(idx)
	return nil
}

func hashIndexedAttestation(hh *fastssz.Hasher, a *jsonIndexedAttestation) error {
	idx := hh.Index()
	sub := hh.Index()
	for _, i := range a.AttestingIndices {
		hh.AppendUint64(uint64(i))
	}
	hh.FillUpTo32()
	hh.MerkleizeWithMixin(sub, uint64(len(a.AttestingIndices)), 2048/4)
	if err := hashAttestationData(hh, &a.Data); err != nil {
		return err
	}
	if err := putHex(hh, a.Signature, 96); err != nil {
		return err
	}
	hh.Merkleize(idx)
	return nil
}

func hashSignedHeader(hh *fastssz.Hasher, h *jsonSignedHeader) error {
	idx := hh.Index()
	sub := hh.Index()
	hh.PutUint64(uint64(h.Message.Slot))
	hh.PutUint64(uint64(h.Message.ProposerIndex))
	for _, r := range []string{h.Message.ParentRoot, h.Message.StateRoot, h.Message.BodyRoot} {
		if err := putHex(hh, r, 32); err != nil {
			return err
		}
	}
	hh.Merkleize(sub)
	if err := putHex(hh, h.Signature, 96); err != nil {
		return err
	}
	hh.Merkleize(idx)
	return nil
}

// hashList hashes a list of composite elements with the given limit.
func hashList[T any](hh *fastssz.Hasher, items []T, limit uint64, f func(*fastssz.Hasher, *T) error) error {
	idx := hh.Index()
	for i := range items {
		if err := f(hh, &items[i]); err != nil {
			return err
		}
	}
	hh.MerkleizeWithMixin(idx, uint64(len(items)), limit)
	return nil
}

// BodyTree reconstructs the Merkle tree of a block body from its JSON
// form: the 12 body field roots plus the expanded execution payload
// subtree, stitched at field 9.
func BodyTree(body *jsonBody) (*ssz.Tree, error) {
	roots := make([][32]byte, 12)
	var err error

	if roots[0], err = subRoot(func(hh *fastssz.Hasher) error {
		return putHex(hh, body.RandaoReveal, 96)
	}); err != nil {
		return nil, errors.Wrap(err, "randao_reveal")
	}
	if roots[1], err = subRoot(func(hh *fastssz.Hasher) error {
		idx := hh.Index()
		if err := putHex(hh, body.Eth1Data.DepositRoot, 32); err != nil {
			return err
		}
		hh.PutUint64(uint64(body.Eth1Data.DepositCount))
		if err := putHex(hh, body.Eth1Data.BlockHash, 32); err != nil {
			return err
		}
		hh.Merkleize(idx)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "eth1_data")
	}
	if roots[2], err = subRoot(func(hh *fastssz.Hasher) error {
		return putHex(hh, body.Graffiti, 32)
	}); err != nil {
		return nil, errors.Wrap(err, "graffiti")
	}
	if roots[3], err = subRoot(func(hh *fastssz.Hasher) error {
		return hashList(hh, body.ProposerSlashings, 16, func(hh *fastssz.Hasher, s *jsonProposerSlashing) error {
			idx := hh.Index()
			if err := hashSignedHeader(hh, &s.SignedHeader1); err != nil {
				return err
			}
			if err := hashSignedHeader(hh, &s.SignedHeader2); err != nil {
				return err
			}
			hh.Merkleize(idx)
			return nil
		})
	}); err != nil {
		return nil, errors.Wrap(err, "proposer_slashings")
	}
	if roots[4], err = subRoot(func(hh *fastssz.Hasher) error {
		return hashList(hh, body.AttesterSlashings, 2, func(hh *fastssz.Hasher, s *jsonAttesterSlashing) error {
			idx := hh.Index()
			if err := hashIndexedAttestation(hh, &s.Attestation1); err != nil {
				return err
			}
			if err := hashIndexedAttestation(hh, &s.Attestation2); err != nil {
				return err
			}
			hh.Merkleize(idx)
			return nil
		})
	}); err != nil {
		return nil, errors.Wrap(err, "attester_slashings")
	}
	if roots[5], err = subRoot(func(hh *fastssz.Hasher) error {
		return hashList(hh, body.Attestations, 128, hashAttestation)
	}); err != nil {
		return nil, errors.Wrap(err, "attestations")
	}
	if roots[6], err = subRoot(func(hh *fastssz.Hasher) error {
		return hashList(hh, body.Deposits, 16, func(hh *fastssz.Hasher, d *jsonDeposit) error {
			idx := hh.Index()
			sub := hh.Index()
			for _, p := range d.Proof {
				if err := putHex(hh, p, 32); err != nil {
					return err
				}
			}
			hh.Merkleize(sub)
			dataIdx := hh.Index()
			if err := putHex(hh, d.Data.Pubkey, 48); err != nil {
				return err
			}
			if err := putHex(hh, d.Data.WithdrawalCredentials, 32); err != nil {
				return err
			}
			hh.PutUint64(uint64(d.Data.Amount))
			if err := putHex(hh, d.Data.Signature, 96); err != nil {
				return err
			}
			hh.Merkleize(dataIdx)
			hh.Merkleize(idx)
			return nil
		})
	}); err != nil {
		return nil, errors.Wrap(err, "deposits")
	}
	if roots[7], err = subRoot(func(hh *fastssz.Hasher) error {
		return hashList(hh, body.VoluntaryExits, 16, func(hh *fastssz.Hasher, e *jsonSignedVoluntaryExit) error {
			idx := hh.Index()
			sub := hh.Index()
			hh.PutUint64(uint64(e.Message.Epoch))
			hh.PutUint64(uint64(e.Message.ValidatorIndex))
			hh.Merkleize(sub)
			if err := putHex(hh, e.Signature, 96); err != nil {
				return err
			}
			hh.Merkleize(idx)
			return nil
		})
	}); err != nil {
		return nil, errors.Wrap(err, "voluntary_exits")
	}
	if roots[8], err = subRoot(func(hh *fastssz.Hasher) error {
		idx := hh.Index()
		if err := putHex(hh, body.SyncAggregate.SyncCommitteeBits, 64); err != nil {
			return err
		}
		if err := putHex(hh, body.SyncAggregate.SyncCommitteeSignature, 96); err != nil {
			return err
		}
		hh.Merkleize(idx)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "sync_aggregate")
	}
	if roots[10], err = subRoot(func(hh *fastssz.Hasher) error {
		return hashList(hh, body.BLSToExecutionChanges, 16, func(hh *fastssz.Hasher, c *jsonBLSChange) error {
			idx := hh.Index()
			sub := hh.Index()
			hh.PutUint64(uint64(c.Message.ValidatorIndex))
			if err := putHex(hh, c.Message.FromBLSPubkey, 48); err != nil {
				return err
			}
			if err := putHex(hh, c.Message.ToExecutionAddress, 20); err != nil {
				return err
			}
			hh.Merkleize(sub)
			if err := putHex(hh, c.Signature, 96); err != nil {
				return err
			}
			hh.Merkleize(idx)
			return nil
		})
	}); err != nil {
		return nil, errors.Wrap(err, "bls_to_execution_changes")
	}
	if roots[11], err = subRoot(func(hh *fastssz.Hasher) error {
		idx := hh.Index()
		for _, c := range body.BlobKZGCommitments {
			if err := putHex(hh, c, 48); err != nil {
				return err
			}
		}
		hh.MerkleizeWithMixin(idx, uint64(len(body.BlobKZGCommitments)), 4096)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "blob_kzg_commitments")
	}

	payloadLeaves, err := payloadFieldRoots(&body.ExecutionPayload)
	if err != nil {
		return nil, err
	}

	tree := ssz.NewTree()
	for i, r := range roots {
		if i == payloadField {
			continue
		}
		tree.Set(BodyGIndex(i), r)
	}
	for i := 12; i < 16; i++ {
		tree.Set(BodyGIndex(i), [32]byte{})
	}
	for j := 0; j < 32; j++ {
		var r [32]byte
		if j < len(payloadLeaves) {
			r = payloadLeaves[j]
		}
		tree.Set(payloadLeafBase+uint64(j), r)
	}
	tree.Build()
	return tree, nil
}

// payloadFieldRoots computes the 17 execution payload field roots.
func payloadFieldRoots(p *jsonExecutionPayload) ([][32]byte, error) {
	roots := make([][32]byte, 17)
	var err error
	fixed := []struct {
		field int
		hex   string
		size  int
	}{
		{PayloadParentHash, p.ParentHash, 32},
		{PayloadFeeRecipient, p.FeeRecipient, 20},
		{PayloadStateRoot, p.StateRoot, 32},
		{PayloadReceiptsRoot, p.ReceiptsRoot, 32},
		{PayloadLogsBloom, p.LogsBloom, 256},
		{PayloadPrevRandao, p.PrevRandao, 32},
		{PayloadBlockHash, p.BlockHash, 32},
	}
	for _, f := range fixed {
		if roots[f.field], err = subRoot(func(hh *fastssz.Hasher) error {
			return putHex(hh, f.hex, f.size)
		}); err != nil {
			return nil, errors.Errorf("payload field %d: %v", f.field, err)
		}
	}
	for _, f := range []struct {
		field int
		v     uint64
	}{
		{PayloadBlockNumber, uint64(p.BlockNumber)},
		{PayloadGasLimit, uint64(p.GasLimit)},
		{PayloadGasUsed, uint64(p.GasUsed)},
		{PayloadTimestamp, uint64(p.Timestamp)},
		{PayloadBaseFee, uint64(p.BaseFeePerGas)},
		{PayloadBlobGasUsed, uint64(p.BlobGasUsed)},
		{PayloadExcessBlobGas, uint64(p.ExcessBlobGas)},
	} {
		roots[f.field] = uint64Chunk(f.v)
	}
	if roots[PayloadExtraData], err = subRoot(func(hh *fastssz.Hasher) error {
		raw, err := hexBytes(p.ExtraData)
		if err != nil {
			return errors.Errorf("invalid extra data %q", p.ExtraData)
		}
		idx := hh.Index()
		hh.AppendBytes32(raw)
		hh.MerkleizeWithMixin(idx, uint64(len(raw)), 1)
		return nil
	}); err != nil {
		return nil, err
	}
	if roots[PayloadTransactions], err = subRoot(func(hh *fastssz.Hasher) error {
		idx := hh.Index()
		for _, tx := range p.Transactions {
			raw, err := hexBytes(tx)
			if err != nil {
				return errors.New("invalid transaction hex")
			}
			elem := hh.Index()
			hh.AppendBytes32(raw)
			hh.MerkleizeWithMixin(elem, uint64(len(raw)), (1<<30)/32)
		}
		hh.MerkleizeWithMixin(idx, uint64(len(p.Transactions)), 1<<20)
		return nil
	}); err != nil {
		return nil, err
	}
	if roots[PayloadWithdrawals], err = subRoot(func(hh *fastssz.Hasher) error {
		return hashList(hh, p.Withdrawals, 16, func(hh *fastssz.Hasher, w *jsonWithdrawal) error {
			idx := hh.Index()
			hh.PutUint64(uint64(w.Index))
			hh.PutUint64(uint64(w.ValidatorIndex))
			if err := putHex(hh, w.Address, 20); err != nil {
				return err
			}
			hh.PutUint64(uint64(w.Amount))
			hh.Merkleize(idx)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return roots, nil
}

func uint64Chunk(v uint64) [32]byte {
	var out [32]byte
	for i := 0; i < 8; i++ {
		out[i] = byte(v >> (8 * i))
	}
	return out
}
