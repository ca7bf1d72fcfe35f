package consensus

import "crypto/sha256"

// VerifyMerkleProof walks a bottom-up Merkle proof for the transaction at
// txIndex against merkleRoot (display order, matching a parsed Header's
// MerkleRoot). It returns false, rather than an error, for any mismatch in
// the proof itself (duplicated sibling, truncated proof, wrong root) so
// callers can tell "this proof is invalid" apart from "this block can't be
// queried", the latter is the caller's job to check before calling this.
func VerifyMerkleProof(txData []byte, txIndex uint64, proof [][32]byte, merkleRoot [32]byte) bool {
	h := doubleSHA256(txData)

	idx := txIndex
	for _, sibling := range proof {
		if idx%2 == 0 {
			h = doubleSHA256Pair(h, sibling)
		} else {
			// Bitcoin forbids duplicating the last left element of an odd
			// row; this was the CVE-2012-2459 vector.
			if sibling == h {
				return false
			}
			h = doubleSHA256Pair(sibling, h)
		}
		idx /= 2
	}

	if idx != 0 {
		// A nonzero residue means the proof didn't reach the root.
		return false
	}
	return reverse32(h) == merkleRoot
}

func doubleSHA256(b []byte) [32]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}

func doubleSHA256Pair(a, b [32]byte) [32]byte {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return doubleSHA256(buf[:])
}
