package prover

import (
	"testing"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/stretchr/testify/require"
)

func testVK() *VerifyingKey {
	_, _, g1, g2 := bn254.Generators()
	var negG2 bn254.G2Affine
	negG2.Neg(&g2)
	vk := &VerifyingKey{
		Alpha:    g1,
		NegBeta:  negG2,
		NegGamma: negG2,
		NegDelta: negG2,
		IC:       []bn254.G1Affine{g1, g1, g1},
	}
	vk.ProgramHash[31] = 1
	return vk
}

func TestVerifyProofRejectsWrongLength(t *testing.T) {
	vk := testVK()
	require.Equal(t, false, VerifyProof(vk, make([]byte, 259), []byte("pub")))
	require.Equal(t, false, VerifyProof(vk, make([]byte, 261), []byte("pub")))
	require.Equal(t, false, VerifyProof(vk, nil, []byte("pub")))
}

func TestVerifyProofRejectsGarbagePoints(t *testing.T) {
	vk := testVK()
	proof := make([]byte, ProofLen)
	for i := range proof {
		proof[i] = 0xFF
	}
	require.Equal(t, false, VerifyProof(vk, proof, []byte("pub")))
}

func TestVerifyProofNilKey(t *testing.T) {
	require.Equal(t, false, VerifyProof(nil, make([]byte, ProofLen), nil))
}

func TestVerifyProofTooFewIC(t *testing.T) {
	vk := testVK()
	vk.IC = vk.IC[:2]
	require.Equal(t, false, VerifyProof(vk, make([]byte, ProofLen), nil))
}

func TestVerifyProofIdempotent(t *testing.T) {
	vk := testVK()
	// A structurally valid but cryptographically wrong proof: generator
	// points everywhere.
	_, _, g1, g2 := bn254.Generators()
	proof := make([]byte, 0, ProofLen)
	proof = append(proof, 0, 0, 0, 0)
	a := g1.RawBytes()
	proof = append(proof, a[:]...)
	b := g2.RawBytes()
	proof = append(proof, b[:]...)
	proof = append(proof, a[:]...)
	require.Equal(t, ProofLen, len(proof))

	first := VerifyProof(vk, proof, []byte("public"))
	second := VerifyProof(vk, proof, []byte("public"))
	require.Equal(t, first, second)
}

func TestHashPublicInputsMasksTopBits(t *testing.T) {
	v := hashPublicInputs([]byte("anything"))
	require.Equal(t, true, v.BitLen() <= 253)
}
