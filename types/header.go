package types

import (
	"encoding/binary"

	ssz "github.com/ferranbt/fastssz"
	"github.com/pkg/errors"
)

// FlatHeaderLen is the byte length of a truncated beacon header in the
// period store: slot | proposer_index | parent_root | state_root | body_root
// with little-endian integers.
const FlatHeaderLen = 112

// BeaconHeader is the beacon block header as carried inside proof
// containers and period store rows.
type BeaconHeader struct {
	Slot          uint64
	ProposerIndex uint64
	ParentRoot    [32]byte
	StateRoot     [32]byte
	BodyRoot      [32]byte
}

// ErrFlatHeaderSize signals a period store row of the wrong length.
var ErrFlatHeaderSize = errors.New("flat header must be 112 bytes")

// MarshalFlat writes the 112-byte period store representation.
func (h *BeaconHeader) MarshalFlat() [FlatHeaderLen]byte {
	var out [FlatHeaderLen]byte
	binary.LittleEndian.PutUint64(out[0:8], h.Slot)
	binary.LittleEndian.PutUint64(out[8:16], h.ProposerIndex)
	copy(out[16:48], h.ParentRoot[:])
	copy(out[48:80], h.StateRoot[:])
	copy(out[80:112], h.BodyRoot[:])
	return out
}

// UnmarshalFlat parses a 112-byte period store row.
func (h *BeaconHeader) UnmarshalFlat(buf []byte) error {
	if len(buf) != FlatHeaderLen {
		return ErrFlatHeaderSize
	}
	h.Slot = binary.LittleEndian.Uint64(buf[0:8])
	h.ProposerIndex = binary.LittleEndian.Uint64(buf[8:16])
	copy(h.ParentRoot[:], buf[16:48])
	copy(h.StateRoot[:], buf[48:80])
	copy(h.BodyRoot[:], buf[80:112])
	return nil
}

// IsZero reports whether the header is all zero, the marker for a slot
// without a block.
func (h *BeaconHeader) IsZero() bool {
	return h.Slot == 0 && h.ProposerIndex == 0 &&
		h.ParentRoot == [32]byte{} && h.StateRoot == [32]byte{} && h.BodyRoot == [32]byte{}
}

// SizeSSZ returns the SSZ encoded size of the header.
func (h *BeaconHeader) SizeSSZ() int { return FlatHeaderLen }

// MarshalSSZ encodes the header. The SSZ form matches the flat form.
func (h *BeaconHeader) MarshalSSZ() ([]byte, error) {
	return h.MarshalSSZTo(make([]byte, 0, FlatHeaderLen))
}

// MarshalSSZTo appends the SSZ encoding to dst.
func (h *BeaconHeader) MarshalSSZTo(dst []byte) ([]byte, error) {
	flat := h.MarshalFlat()
	return append(dst, flat[:]...), nil
}

// UnmarshalSSZ decodes the header.
func (h *BeaconHeader) UnmarshalSSZ(buf []byte) error {
	if len(buf) != FlatHeaderLen {
		return ssz.ErrSize
	}
	return h.UnmarshalFlat(buf)
}

// HashTreeRoot computes the SSZ merkle root of the header.
func (h *BeaconHeader) HashTreeRoot() ([32]byte, error) {
	hh := ssz.NewHasher()
	if err := h.HashTreeRootWith(hh); err != nil {
		return [32]byte{}, err
	}
	return hh.HashRoot()
}

// HashTreeRootWith hashes the header into hh.
func (h *BeaconHeader) HashTreeRootWith(hh *ssz.Hasher) error {
	idx := hh.Index()
	hh.PutUint64(h.Slot)
	hh.PutUint64(h.ProposerIndex)
	hh.PutBytes(h.ParentRoot[:])
	hh.PutBytes(h.StateRoot[:])
	hh.PutBytes(h.BodyRoot[:])
	hh.Merkleize(idx)
	return nil
}
