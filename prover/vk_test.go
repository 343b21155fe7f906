package prover

import (
	"encoding/binary"
	"testing"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/stretchr/testify/require"
)

func encodeTestVK(icCount uint32) []byte {
	_, _, g1, g2 := bn254.Generators()
	g1raw := g1.RawBytes()
	g2raw := g2.RawBytes()

	out := make([]byte, 0, vkFixedLen+int(icCount)*64)
	var programHash [32]byte
	programHash[31] = 7
	out = append(out, programHash[:]...)
	out = append(out, g1raw[:]...)
	out = append(out, g2raw[:]...)
	out = append(out, g2raw[:]...)
	out = append(out, g2raw[:]...)
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], icCount)
	out = append(out, count[:]...)
	for i := uint32(0); i < icCount; i++ {
		out = append(out, g1raw[:]...)
	}
	return out
}

func TestParseVerifyingKey(t *testing.T) {
	vk, err := ParseVerifyingKey(encodeTestVK(3))
	require.NoError(t, err)
	require.Equal(t, 3, len(vk.IC))
	require.Equal(t, byte(7), vk.ProgramHash[31])

	// Beta arrives negated, ready for the pairing product.
	_, _, _, g2 := bn254.Generators()
	var neg bn254.G2Affine
	neg.Neg(&g2)
	require.Equal(t, neg, vk.NegBeta)
}

func TestParseVerifyingKeyRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"truncated", encodeTestVK(3)[:100]},
		{"too few ic", encodeTestVK(2)},
		{"trailing garbage", append(encodeTestVK(3), 0x00)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVerifyingKey(tt.raw)
			require.Error(t, err)
		})
	}
}
