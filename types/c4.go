// Package types is the SSZ type catalog of the proof service: the
// C4Request container shipped to verifiers, the proof unions it selects
// from, and the truncated header and light client shapes shared with the
// period store.
package types

import (
	ssz "github.com/ferranbt/fastssz"
	bitfield "github.com/prysmaticlabs/go-bitfield"
)

// Version identifies the C4Request wire format: major, minor, patch and a
// domain byte separating chain families.
var Version = [4]byte{1, 0, 0, 1}

// DataType selects the variant of the normalized result data union.
type DataType uint8

const (
	DataNone DataType = iota
	DataHash
	DataUint
	DataBytes
)

// Data is the normalized, SSZ-shaped view of the RPC result the verifier
// re-derives from the proof. Encoded as an SSZ union.
type Data struct {
	Selector DataType
	Hash     [32]byte
	Value    uint64
	Bytes    []byte
}

func (d *Data) SizeSSZ() int {
	switch d.Selector {
	case DataHash:
		return 33
	case DataUint:
		return 9
	case DataBytes:
		return 1 + len(d.Bytes)
	}
	return 1
}

func (d *Data) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = append(dst, byte(d.Selector))
	switch d.Selector {
	case DataNone:
	case DataHash:
		dst = append(dst, d.Hash[:]...)
	case DataUint:
		dst = ssz.MarshalUint64(dst, d.Value)
	case DataBytes:
		if len(d.Bytes) > MaxBlobLen {
			return nil, ssz.ErrBytesLength
		}
		dst = append(dst, d.Bytes...)
	default:
		return nil, ssz.ErrSize
	}
	return dst, nil
}

func (d *Data) UnmarshalSSZ(buf []byte) error {
	if len(buf) < 1 {
		return ssz.ErrSize
	}
	d.Selector = DataType(buf[0])
	body := buf[1:]
	switch d.Selector {
	case DataNone:
		if len(body) != 0 {
			return ssz.ErrSize
		}
	case DataHash:
		if len(body) != 32 {
			return ssz.ErrSize
		}
		copy(d.Hash[:], body)
	case DataUint:
		if len(body) != 8 {
			return ssz.ErrSize
		}
		d.Value = ssz.UnmarshallUint64(body)
	case DataBytes:
		d.Bytes = append([]byte{}, body...)
	default:
		return ssz.ErrSize
	}
	return nil
}

func (d *Data) HashTreeRootWith(hh *ssz.Hasher) error {
	vidx := hh.Index()
	switch d.Selector {
	case DataNone:
		hh.PutUint8(0)
	case DataHash:
		hh.PutBytes(d.Hash[:])
	case DataUint:
		hh.PutUint64(d.Value)
	case DataBytes:
		elem := hh.Index()
		hh.AppendBytes32(d.Bytes)
		hh.MerkleizeWithMixin(elem, uint64(len(d.Bytes)), uint64((MaxBlobLen+31)/32))
	}
	hh.Merkleize(vidx)
	// Union mixin: root(value) with the selector chunk.
	hh.PutUint64(uint64(d.Selector))
	return nil
}

// ProofType selects the proof union variant.
type ProofType uint8

const (
	ProofNone ProofType = iota
	ProofAccount
	ProofTransaction
	ProofReceipt
	ProofLogs
	ProofCall
	ProofBlock
	ProofSync
)

// proofBody is implemented by every proof union variant.
type proofBody interface {
	SizeSSZ() int
	MarshalSSZTo(dst []byte) ([]byte, error)
	UnmarshalSSZ(buf []byte) error
	HashTreeRootWith(hh *ssz.Hasher) error
}

// Proof is the SSZ union of all proof container variants.
type Proof struct {
	Selector    ProofType
	Account     *AccountProof
	Transaction *TransactionProof
	Receipt     *ReceiptProof
	Logs        *LogsProof
	Call        *CallProof
	Block       *BlockProof
	Sync        *SyncProof
}

func (p *Proof) body() proofBody {
	switch p.Selector {
	case ProofAccount:
		return p.Account
	case ProofTransaction:
		return p.Transaction
	case ProofReceipt:
		return p.Receipt
	case ProofLogs:
		return p.Logs
	case ProofCall:
		return p.Call
	case ProofBlock:
		return p.Block
	case ProofSync:
		return p.Sync
	}
	return nil
}

func (p *Proof) SizeSSZ() int {
	if b := p.body(); b != nil {
		return 1 + b.SizeSSZ()
	}
	return 1
}

func (p *Proof) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = append(dst, byte(p.Selector))
	b := p.body()
	if b == nil {
		if p.Selector != ProofNone {
			return nil, ssz.ErrSize
		}
		return dst, nil
	}
	return b.MarshalSSZTo(dst)
}

func (p *Proof) UnmarshalSSZ(buf []byte) error {
	if len(buf) < 1 {
		return ssz.ErrSize
	}
	p.Selector = ProofType(buf[0])
	body := buf[1:]
	switch p.Selector {
	case ProofNone:
		if len(body) != 0 {
			return ssz.ErrSize
		}
		return nil
	case ProofAccount:
		p.Account = new(AccountProof)
	case ProofTransaction:
		p.Transaction = new(TransactionProof)
	case ProofReceipt:
		p.Receipt = new(ReceiptProof)
	case ProofLogs:
		p.Logs = new(LogsProof)
	case ProofCall:
		p.Call = new(CallProof)
	case ProofBlock:
		p.Block = new(BlockProof)
	case ProofSync:
		p.Sync = new(SyncProof)
	default:
		return ssz.ErrSize
	}
	return p.body().UnmarshalSSZ(body)
}

func (p *Proof) HashTreeRootWith(hh *ssz.Hasher) error {
	vidx := hh.Index()
	if b := p.body(); b != nil {
		if err := b.HashTreeRootWith(hh); err != nil {
			return err
		}
	} else {
		hh.PutUint8(0)
	}
	hh.Merkleize(vidx)
	hh.PutUint64(uint64(p.Selector))
	return nil
}

// SyncData carries the sync committee attestation anchoring the proof.
type SyncData struct {
	Bits          bitfield.Bitvector512
	Signature     [96]byte
	SignatureSlot uint64
}

const syncDataLen = 64 + 96 + 8

func (s *SyncData) SizeSSZ() int { return syncDataLen }

func (s *SyncData) MarshalSSZTo(dst []byte) ([]byte, error) {
	if len(s.Bits) != 64 {
		return nil, ssz.ErrBytesLength
	}
	dst = append(dst, s.Bits...)
	dst = append(dst, s.Signature[:]...)
	dst = ssz.MarshalUint64(dst, s.SignatureSlot)
	return dst, nil
}

func (s *SyncData) UnmarshalSSZ(buf []byte) error {
	if len(buf) != syncDataLen {
		return ssz.ErrSize
	}
	s.Bits = bitfield.Bitvector512(append([]byte{}, buf[:64]...))
	copy(s.Signature[:], buf[64:160])
	s.SignatureSlot = ssz.UnmarshallUint64(buf[160:168])
	return nil
}

func (s *SyncData) HashTreeRootWith(hh *ssz.Hasher) error {
	idx := hh.Index()
	if len(s.Bits) != 64 {
		return ssz.ErrBytesLength
	}
	hh.PutBytes(s.Bits)
	hh.PutBytes(s.Signature[:])
	hh.PutUint64(s.SignatureSlot)
	hh.Merkleize(idx)
	return nil
}

// C4Request is the self-contained proof bundle returned to the client:
// version, normalized data, the proof union and the sync committee anchor.
type C4Request struct {
	Version  [4]byte
	Data     Data
	Proof    Proof
	SyncData *SyncData
}

// c4FixedLen = version + three offsets.
const c4FixedLen = 16

func (r *C4Request) SizeSSZ() int {
	size := c4FixedLen + r.Data.SizeSSZ() + r.Proof.SizeSSZ() + 1
	if r.SyncData != nil {
		size += syncDataLen
	}
	return size
}

// MarshalSSZ encodes the request container.
func (r *C4Request) MarshalSSZ() ([]byte, error) {
	return r.MarshalSSZTo(make([]byte, 0, r.SizeSSZ()))
}

func (r *C4Request) MarshalSSZTo(dst []byte) ([]byte, error) {
	var err error
	dst = append(dst, r.Version[:]...)
	off := c4FixedLen
	dst = ssz.WriteOffset(dst, off)
	off += r.Data.SizeSSZ()
	dst = ssz.WriteOffset(dst, off)
	off += r.Proof.SizeSSZ()
	dst = ssz.WriteOffset(dst, off)
	if dst, err = r.Data.MarshalSSZTo(dst); err != nil {
		return nil, err
	}
	if dst, err = r.Proof.MarshalSSZTo(dst); err != nil {
		return nil, err
	}
	// The sync data union: 0 selects none, 1 the committee attestation.
	if r.SyncData == nil {
		return append(dst, 0), nil
	}
	dst = append(dst, 1)
	return r.SyncData.MarshalSSZTo(dst)
}

func (r *C4Request) UnmarshalSSZ(buf []byte) error {
	if len(buf) < c4FixedLen {
		return ssz.ErrSize
	}
	copy(r.Version[:], buf[:4])
	o1 := ssz.ReadOffset(buf[4:])
	o2 := ssz.ReadOffset(buf[8:])
	o3 := ssz.ReadOffset(buf[12:])
	if o1 != c4FixedLen || o2 < o1 || o3 < o2 || o3 > uint64(len(buf)) {
		return ssz.ErrOffset
	}
	if err := r.Data.UnmarshalSSZ(buf[o1:o2]); err != nil {
		return err
	}
	if err := r.Proof.UnmarshalSSZ(buf[o2:o3]); err != nil {
		return err
	}
	union := buf[o3:]
	if len(union) < 1 {
		return ssz.ErrSize
	}
	switch union[0] {
	case 0:
		if len(union) != 1 {
			return ssz.ErrSize
		}
		r.SyncData = nil
	case 1:
		r.SyncData = new(SyncData)
		return r.SyncData.UnmarshalSSZ(union[1:])
	default:
		return ssz.ErrSize
	}
	return nil
}

// HashTreeRoot computes the container root.
func (r *C4Request) HashTreeRoot() ([32]byte, error) {
	hh := ssz.NewHasher()
	if err := r.HashTreeRootWith(hh); err != nil {
		return [32]byte{}, err
	}
	return hh.HashRoot()
}

func (r *C4Request) HashTreeRootWith(hh *ssz.Hasher) error {
	idx := hh.Index()
	hh.PutBytes(r.Version[:])
	didx := hh.Index()
	if err := r.Data.HashTreeRootWith(hh); err != nil {
		return err
	}
	hh.Merkleize(didx)
	pidx := hh.Index()
	if err := r.Proof.HashTreeRootWith(hh); err != nil {
		return err
	}
	hh.Merkleize(pidx)
	sidx := hh.Index()
	if r.SyncData != nil {
		if err := r.SyncData.HashTreeRootWith(hh); err != nil {
			return err
		}
		hh.PutUint64(1)
	} else {
		hh.PutUint8(0)
		hh.PutUint64(0)
	}
	hh.Merkleize(sidx)
	hh.Merkleize(idx)
	return nil
}
