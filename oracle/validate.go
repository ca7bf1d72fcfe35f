package oracle

import (
	"spvoracle.dev/core/consensus"
	"spvoracle.dev/core/store"
)

// Validate checks that a transaction's raw bytes are included in the block
// identified by exactly one of blockHeight or blockHash, via a Merkle
// proof. The block must be found and, when requireSafe is set, canonical
// and finalized before the proof itself is walked.
func (o *Oracle) Validate(blockHeight uint64, blockHash [32]byte, requireSafe bool, txIndex uint64, txData []byte, proof [][32]byte) (bool, error) {
	if len(txData) <= 64 {
		return false, newErr(KindBadProofInput, "transaction data too short to be valid")
	}

	var zeroHash [32]byte
	haveHash := blockHash != zeroHash
	haveHeight := blockHeight != 0
	if haveHash && haveHeight {
		return false, newErr(KindBadProofInput, "blockHeight and blockHash must not both be set")
	}

	var rec store.Record
	err := o.db.View(func(tx *store.Tx) error {
		var r store.Record
		var err error
		if haveHash {
			r, err = resolveByHash(tx, blockHash)
		} else {
			// A zero blockHash always resolves by height, including height 0.
			_, r, err = resolveByHeight(tx, blockHeight)
		}
		if err != nil {
			return err
		}
		if err := o.requireSafe(tx, r, requireSafe); err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		o.recordProofCheck(false)
		return false, err
	}

	valid := consensus.VerifyMerkleProof(txData, txIndex, proof, rec.Header.MerkleRoot)
	o.recordProofCheck(valid)
	return valid, nil
}
