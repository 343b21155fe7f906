package types

import (
	"testing"

	bitfield "github.com/prysmaticlabs/go-bitfield"
	"github.com/stretchr/testify/require"
)

func root(b byte) [32]byte {
	var out [32]byte
	for i := range out {
		out[i] = b
	}
	return out
}

func testSyncData() *SyncData {
	bits := bitfield.NewBitvector512()
	bits.SetBitAt(0, true)
	bits.SetBitAt(511, true)
	sd := &SyncData{Bits: bits, SignatureSlot: 123456}
	for i := range sd.Signature {
		sd.Signature[i] = byte(i)
	}
	return sd
}

func TestFlatHeaderRoundTrip(t *testing.T) {
	h := BeaconHeader{
		Slot:          16507,
		ProposerIndex: 42,
		ParentRoot:    root(0x5A),
		StateRoot:     root(0x11),
		BodyRoot:      root(0x22),
	}
	flat := h.MarshalFlat()
	var back BeaconHeader
	require.NoError(t, back.UnmarshalFlat(flat[:]))
	require.Equal(t, h, back)

	require.Error(t, back.UnmarshalFlat(flat[:100]))
}

func TestC4RequestRoundTripAccount(t *testing.T) {
	req := &C4Request{
		Version: Version,
		Data:    Data{Selector: DataBytes, Bytes: []byte("0x123")},
		Proof: Proof{
			Selector: ProofAccount,
			Account: &AccountProof{
				Address:      [20]byte{1, 2, 3},
				AccountProof: [][]byte{{0xf8, 0x51}, {0xf8, 0x71, 0xa0}},
				StorageProofs: []*StorageProof{
					{Key: root(0x01), Proof: [][]byte{{0xde, 0xad}}},
					{Key: root(0x02), Proof: nil},
				},
				StateProof: [][32]byte{root(0xAA), root(0xBB), root(0xCC)},
				Header: BeaconHeader{
					Slot:       99,
					ParentRoot: root(0x10),
					StateRoot:  root(0x20),
					BodyRoot:   root(0x30),
				},
			},
		},
		SyncData: testSyncData(),
	}
	raw, err := req.MarshalSSZ()
	require.NoError(t, err)
	require.Equal(t, req.SizeSSZ(), len(raw))

	var back C4Request
	require.NoError(t, back.UnmarshalSSZ(raw))
	require.Equal(t, req, &back)

	// Semantic equality extends to the tree root.
	r1, err := req.HashTreeRoot()
	require.NoError(t, err)
	r2, err := back.HashTreeRoot()
	require.NoError(t, err)
	require.Equal(t, r1, r2)
}

func TestC4RequestRoundTripTransaction(t *testing.T) {
	req := &C4Request{
		Version: Version,
		Data:    Data{Selector: DataHash, Hash: root(0x77)},
		Proof: Proof{
			Selector: ProofTransaction,
			Transaction: &TransactionProof{
				TransactionIndex: 5,
				BlockNumber:      19000000,
				BlockHash:        root(0x88),
				Transaction:      []byte{0x02, 0xf8, 0x72},
				TxProof:          [][]byte{{0x01}, {0x02, 0x03}},
				Proof:            [][32]byte{root(0x01)},
				Header:           BeaconHeader{Slot: 7},
			},
		},
	}
	raw, err := req.MarshalSSZ()
	require.NoError(t, err)
	var back C4Request
	require.NoError(t, back.UnmarshalSSZ(raw))
	require.Equal(t, req, &back)
}

func TestC4RequestRoundTripSync(t *testing.T) {
	req := &C4Request{
		Version: Version,
		Data:    Data{Selector: DataUint, Value: 1392},
		Proof: Proof{
			Selector: ProofSync,
			Sync:     &SyncProof{Period: 1392, Updates: []byte("frame-bytes")},
		},
		SyncData: testSyncData(),
	}
	raw, err := req.MarshalSSZ()
	require.NoError(t, err)
	var back C4Request
	require.NoError(t, back.UnmarshalSSZ(raw))
	require.Equal(t, req, &back)
}

func TestC4RequestRoundTripNone(t *testing.T) {
	req := &C4Request{Version: Version}
	raw, err := req.MarshalSSZ()
	require.NoError(t, err)
	var back C4Request
	require.NoError(t, back.UnmarshalSSZ(raw))
	require.Equal(t, req, &back)
}

func TestC4RequestRejectsBadOffsets(t *testing.T) {
	req := &C4Request{Version: Version}
	raw, err := req.MarshalSSZ()
	require.NoError(t, err)

	// Corrupt the first offset.
	raw[4] = 0xFF
	var back C4Request
	require.Error(t, back.UnmarshalSSZ(raw))
}

func TestUpdateFrameRoundTrip(t *testing.T) {
	frames := []*UpdateFrame{
		{ForkDigest: [4]byte{1, 2, 3, 4}, Payload: []byte("first")},
		{ForkDigest: [4]byte{5, 6, 7, 8}, Payload: []byte("second-update")},
	}
	var wire []byte
	for _, f := range frames {
		wire = f.AppendFrame(wire)
	}
	parsed, err := ParseFrames(wire)
	require.NoError(t, err)
	require.Equal(t, 2, len(parsed))
	for i := range frames {
		require.Equal(t, frames[i].ForkDigest, parsed[i].ForkDigest)
		require.Equal(t, frames[i].Payload, parsed[i].Payload)
	}

	_, err = ParseFrames(wire[:5])
	require.Error(t, err)
}
