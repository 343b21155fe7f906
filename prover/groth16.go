// Package prover orchestrates the recursive zk proving pipeline: deciding
// per finalized period whether to (re)generate a Groth16 proof through the
// guest prover binary, and verifying proofs in-process over BN254.
package prover

import (
	"crypto/sha256"
	"math/big"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// ProofLen is the exact wire length of a Groth16 proof: a 4-byte selector
// prefix, A in G1 (64), B in G2 (128) and C in G1 (64).
const ProofLen = 260

// VerifyingKey is a registered Groth16 verification key. Beta, gamma and
// delta are stored negated, ready for the pairing product.
type VerifyingKey struct {
	ProgramHash [32]byte
	Alpha       bn254.G1Affine
	NegBeta     bn254.G2Affine
	NegGamma    bn254.G2Affine
	NegDelta    bn254.G2Affine
	IC          []bn254.G1Affine
}

func parseG1(buf []byte) (bn254.G1Affine, bool) {
	var p bn254.G1Affine
	if len(buf) != 64 {
		return p, false
	}
	if err := p.X.SetBytesCanonical(buf[:32]); err != nil {
		return p, false
	}
	if err := p.Y.SetBytesCanonical(buf[32:64]); err != nil {
		return p, false
	}
	if !p.IsOnCurve() {
		return p, false
	}
	return p, true
}

func parseG2(buf []byte) (bn254.G2Affine, bool) {
	var p bn254.G2Affine
	if len(buf) != 128 {
		return p, false
	}
	// Coordinates travel imaginary-part first.
	if err := p.X.A1.SetBytesCanonical(buf[0:32]); err != nil {
		return p, false
	}
	if err := p.X.A0.SetBytesCanonical(buf[32:64]); err != nil {
		return p, false
	}
	if err := p.Y.A1.SetBytesCanonical(buf[64:96]); err != nil {
		return p, false
	}
	if err := p.Y.A0.SetBytesCanonical(buf[96:128]); err != nil {
		return p, false
	}
	if !p.IsOnCurve() || !p.IsInSubGroup() {
		return p, false
	}
	return p, true
}

// hashPublicInputs reduces the public input bytes into the scalar field
// the way the circuit encodes them: SHA-256 with the top three bits
// masked, keeping the low 253 bits. The masking must match the prover's
// encoding exactly.
func hashPublicInputs(publicInputs []byte) *big.Int {
	h := sha256.Sum256(publicInputs)
	h[0] &= 0x1f
	return new(big.Int).SetBytes(h[:])
}

// VerifyProof checks a Groth16 proof against the registered key and the
// opaque public input bytes. Any parsing failure is a definitive false;
// the function has no hidden state and is idempotent.
func VerifyProof(vk *VerifyingKey, proof, publicInputs []byte) bool {
	if vk == nil || len(proof) != ProofLen || len(vk.IC) < 3 {
		return false
	}
	a, ok := parseG1(proof[4:68])
	if !ok {
		return false
	}
	b, ok := parseG2(proof[68:196])
	if !ok {
		return false
	}
	c, ok := parseG1(proof[196:260])
	if !ok {
		return false
	}

	pub := hashPublicInputs(publicInputs)
	vkey := new(big.Int).Mod(new(big.Int).SetBytes(vk.ProgramHash[:]), fr.Modulus())

	// L = IC[0] + vkey*IC[1] + pub*IC[2]
	var t1, t2, l bn254.G1Affine
	t1.ScalarMultiplication(&vk.IC[1], vkey)
	t2.ScalarMultiplication(&vk.IC[2], pub)
	l.Add(&vk.IC[0], &t1)
	l.Add(&l, &t2)

	// e(A,B) * e(C,-delta) * e(alpha,-beta) * e(L,-gamma) == 1
	ok, err := bn254.PairingCheck(
		[]bn254.G1Affine{a, c, vk.Alpha, l},
		[]bn254.G2Affine{b, vk.NegDelta, vk.NegBeta, vk.NegGamma},
	)
	return err == nil && ok
}
