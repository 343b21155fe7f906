package types

import (
	"encoding/binary"

	"github.com/pkg/errors"
	bitfield "github.com/prysmaticlabs/go-bitfield"
)

// Light client update framing: every update travels as
// `uint32 length (LE) || 4-byte fork digest || SSZ(LightClientUpdate)`
// where length counts the digest plus the SSZ payload. The period store
// keeps frames verbatim, one frame per period.

// UpdateFrame is one framed light client update.
type UpdateFrame struct {
	ForkDigest [4]byte
	Payload    []byte
}

var (
	// ErrBadFrame signals a corrupt or truncated update frame.
	ErrBadFrame = errors.New("malformed light client update frame")
	// ErrBadUpdate signals an SSZ layout violation inside an update.
	ErrBadUpdate = errors.New("malformed light client update")
)

// EncodedLen returns the framed length of the update.
func (f *UpdateFrame) EncodedLen() int { return 8 + len(f.Payload) }

// AppendFrame appends the wire form of the update to dst.
func (f *UpdateFrame) AppendFrame(dst []byte) []byte {
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], uint32(4+len(f.Payload)))
	dst = append(dst, l[:]...)
	dst = append(dst, f.ForkDigest[:]...)
	return append(dst, f.Payload...)
}

// ParseFrames splits a concatenation of update frames.
func ParseFrames(buf []byte) ([]*UpdateFrame, error) {
	var out []*UpdateFrame
	for len(buf) > 0 {
		if len(buf) < 8 {
			return nil, ErrBadFrame
		}
		l := binary.LittleEndian.Uint32(buf)
		if l < 4 || uint64(l)+4 > uint64(len(buf)) {
			return nil, ErrBadFrame
		}
		f := &UpdateFrame{}
		copy(f.ForkDigest[:], buf[4:8])
		f.Payload = buf[8 : 4+l]
		out = append(out, f)
		buf = buf[4+l:]
	}
	return out, nil
}

// Fixed offsets of the post-Capella LightClientUpdate layout. The update
// container is: attested_header (offset), next_sync_committee (24624),
// next_sync_committee_branch (5 roots), finalized_header (offset),
// finality_branch (6 roots), sync_aggregate (160), signature_slot.
const (
	lcuAttestedOffsetPos  = 0
	lcuFinalizedOffsetPos = 4 + 24624 + 160
	lcuSyncAggregatePos   = lcuFinalizedOffsetPos + 4 + 192
	lcuSignatureSlotPos   = lcuSyncAggregatePos + 160
	lcuFixedLen           = lcuSignatureSlotPos + 8
)

// Update is the subset of a LightClientUpdate the service inspects.
type Update struct {
	AttestedHeader  BeaconHeader
	FinalizedHeader BeaconHeader
	SyncBits        bitfield.Bitvector512
	SyncSignature   [96]byte
	SignatureSlot   uint64
}

// ParseUpdate extracts the inspected fields from a raw SSZ update payload.
// Only the post-Capella layout (dynamic light client headers) is handled;
// earlier payloads surface as ErrBadUpdate.
func ParseUpdate(payload []byte) (*Update, error) {
	if len(payload) < lcuFixedLen {
		return nil, ErrBadUpdate
	}
	attOff := binary.LittleEndian.Uint32(payload[lcuAttestedOffsetPos:])
	finOff := binary.LittleEndian.Uint32(payload[lcuFinalizedOffsetPos:])
	if uint64(attOff) != lcuFixedLen || finOff < attOff ||
		uint64(finOff)+FlatHeaderLen > uint64(len(payload)) {
		return nil, ErrBadUpdate
	}
	u := &Update{}
	if err := u.AttestedHeader.UnmarshalFlat(payload[attOff : attOff+FlatHeaderLen]); err != nil {
		return nil, ErrBadUpdate
	}
	if err := u.FinalizedHeader.UnmarshalFlat(payload[finOff : finOff+FlatHeaderLen]); err != nil {
		return nil, ErrBadUpdate
	}
	agg := payload[lcuSyncAggregatePos:lcuSignatureSlotPos]
	u.SyncBits = bitfield.Bitvector512(append([]byte{}, agg[:64]...))
	copy(u.SyncSignature[:], agg[64:160])
	u.SignatureSlot = binary.LittleEndian.Uint64(payload[lcuSignatureSlotPos:])
	return u, nil
}

// SyncData converts the update's aggregate into the proof anchor form.
func (u *Update) SyncData() *SyncData {
	return &SyncData{
		Bits:          u.SyncBits,
		Signature:     u.SyncSignature,
		SignatureSlot: u.SignatureSlot,
	}
}
