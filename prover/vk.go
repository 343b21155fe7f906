package prover

import (
	"encoding/binary"
	"os"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/pkg/errors"
)

// Verification key wire layout, as published alongside proofs:
// program_hash[32] | alpha G1[64] | beta G2[128] | gamma G2[128] |
// delta G2[128] | ic_count u32 | IC G1[64]*ic_count.
const vkFixedLen = 32 + 64 + 3*128 + 4

// ErrBadVK signals an unparseable verification key.
var ErrBadVK = errors.New("malformed verification key")

// ParseVerifyingKey decodes a key and pre-negates beta, gamma and delta
// for the pairing product.
func ParseVerifyingKey(buf []byte) (*VerifyingKey, error) {
	if len(buf) < vkFixedLen {
		return nil, ErrBadVK
	}
	vk := &VerifyingKey{}
	copy(vk.ProgramHash[:], buf[:32])
	var ok bool
	if vk.Alpha, ok = parseG1(buf[32:96]); !ok {
		return nil, errors.Wrap(ErrBadVK, "alpha")
	}
	beta, ok := parseG2(buf[96:224])
	if !ok {
		return nil, errors.Wrap(ErrBadVK, "beta")
	}
	gamma, ok := parseG2(buf[224:352])
	if !ok {
		return nil, errors.Wrap(ErrBadVK, "gamma")
	}
	delta, ok := parseG2(buf[352:480])
	if !ok {
		return nil, errors.Wrap(ErrBadVK, "delta")
	}
	vk.NegBeta.Neg(&beta)
	vk.NegGamma.Neg(&gamma)
	vk.NegDelta.Neg(&delta)

	count := binary.LittleEndian.Uint32(buf[480:484])
	if count < 3 || uint64(vkFixedLen)+uint64(count)*64 != uint64(len(buf)) {
		return nil, errors.Wrap(ErrBadVK, "ic count")
	}
	vk.IC = make([]bn254.G1Affine, count)
	for i := uint32(0); i < count; i++ {
		off := vkFixedLen + int(i)*64
		if vk.IC[i], ok = parseG1(buf[off : off+64]); !ok {
			return nil, errors.Wrapf(ErrBadVK, "ic[%d]", i)
		}
	}
	return vk, nil
}

// LoadVerifyingKey reads and parses a key file.
func LoadVerifyingKey(path string) (*VerifyingKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read verification key")
	}
	return ParseVerifyingKey(raw)
}
