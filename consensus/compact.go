package consensus

import "math/big"

// compactSignBit and compactMantissaMask split a 32-bit compact ("bits")
// encoding into its exponent (nSize), sign bit, and mantissa (nWord), the
// same split Bitcoin Core's arith_uint256::SetCompact uses.
const (
	compactSignBit      uint32 = 0x00800000
	compactMantissaMask uint32 = 0x007fffff
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// BitsToTarget decodes a compact difficulty encoding into a 256-bit,
// big-endian target.
func BitsToTarget(bits uint32) ([32]byte, error) {
	var target [32]byte

	nSize := bits >> 24
	nWord := bits & compactMantissaMask

	if nWord != 0 && bits&compactSignBit != 0 {
		return target, ErrBitsNegative
	}
	if nWord != 0 && (nSize > 34 || (nWord > 0xff && nSize > 33) || (nWord > 0xffff && nSize > 32)) {
		return target, ErrBitsOverflow
	}

	result := new(big.Int)
	if nSize <= 3 {
		result.SetUint64(uint64(nWord) >> (8 * (3 - nSize)))
	} else {
		result.SetUint64(uint64(nWord))
		result.Lsh(result, uint(8*(nSize-3)))
	}

	b := result.Bytes()
	if len(b) > 32 {
		return target, ErrBitsOverflow
	}
	copy(target[32-len(b):], b)
	return target, nil
}

// TargetToBits encodes a 256-bit, big-endian target into its compact
// representation. The inverse of BitsToTarget, lossy only in the low
// mantissa bits by construction.
func TargetToBits(target [32]byte) uint32 {
	t := new(big.Int).SetBytes(target[:])
	if t.Sign() == 0 {
		return 0
	}

	nSize := uint32((t.BitLen() + 7) / 8)

	var nCompact uint32
	if nSize <= 3 {
		nCompact = uint32(t.Uint64()) << (8 * (3 - nSize))
	} else {
		shifted := new(big.Int).Rsh(t, uint(8*(nSize-3)))
		nCompact = uint32(shifted.Uint64())
	}

	if nCompact&compactSignBit != 0 {
		nCompact >>= 8
		nSize++
	}
	nCompact |= nSize << 24
	return nCompact
}

// TargetToWork computes the expected number of hashes to produce a block at
// the given target: (~target) / (target + 1) + 1 in 256-bit unsigned
// arithmetic. Bitcoin Core's GetBlockProof computes per-block work this
// way; cumulative chain work is the running sum.
func TargetToWork(target [32]byte) *big.Int {
	t := new(big.Int).SetBytes(target[:])
	notTarget := new(big.Int).Sub(maxUint256, t)
	denom := new(big.Int).Add(t, big.NewInt(1))
	work := new(big.Int).Quo(notTarget, denom)
	work.Add(work, big.NewInt(1))
	return work
}

// BitsToWork is TargetToWork(BitsToTarget(bits)).
func BitsToWork(bits uint32) (*big.Int, error) {
	target, err := BitsToTarget(bits)
	if err != nil {
		return nil, err
	}
	return TargetToWork(target), nil
}
