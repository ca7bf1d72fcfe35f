package oracle

import (
	"spvoracle.dev/core/store"
)

// reorgTo switches the canonical chain from the old tip to a newly accepted,
// higher-work header. It walks two paths back toward a common ancestor:
// from the new header's parent marking blocks canonical until it reaches a
// block that is already canonical (the fork point), then from the old tip
// marking blocks non-canonical, and clearing height index entries above the
// new header's height, until it reaches that same fork-point hash. The
// second walk stops on hash equality with the fork point captured by the
// first walk, not on an IsCanonical check, since every block on the old
// chain is still marked canonical when that walk visits it.
func (o *Oracle) reorgTo(
	tx *store.Tx,
	newHash [32]byte, newRec store.Record,
	prevHash [32]byte, prevRec store.Record,
	oldTipHash [32]byte, oldTipRec store.Record,
) (uint64, error) {
	// Walk 1: new chain, from its parent back toward the anchor, marking
	// canonical and rebuilding the height index, until reaching a block
	// that was already canonical, the fork point.
	forkHash := prevHash
	curHash, curRec := prevHash, prevRec
	for !curRec.IsCanonical {
		curRec.IsCanonical = true
		if err := tx.PutHeader(curHash, curRec); err != nil {
			return 0, err
		}
		if err := tx.PutHeightHash(curRec.Height, curHash); err != nil {
			return 0, err
		}
		forkHash = curHash

		parentHash := curRec.Header.PrevBlock
		parentRec, ok, err := tx.GetHeader(parentHash)
		if err != nil {
			return 0, err
		}
		if !ok {
			// Reached the anchor itself without finding an already-canonical
			// ancestor; the anchor is the fork point by definition.
			break
		}
		curHash, curRec = parentHash, parentRec
	}
	if curRec.IsCanonical {
		forkHash = curHash
	}

	// Walk 2: old chain, from the old tip back to the fork point, marking
	// non-canonical. Only heights above the new tip's height are cleared:
	// heights at or below it were already given the new chain's hash by
	// walk 1 (or will be by the final write below), and clearing them here
	// would erase that just-written canonical entry.
	oh, orec := oldTipHash, oldTipRec
	var depth uint64
	for oh != forkHash {
		orec.IsCanonical = false
		if err := tx.PutHeader(oh, orec); err != nil {
			return 0, err
		}
		if orec.Height > newRec.Height {
			if err := tx.ClearHeightHash(orec.Height); err != nil {
				return 0, err
			}
		}
		depth++

		parentHash := orec.Header.PrevBlock
		parentRec, ok, err := tx.GetHeader(parentHash)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		oh, orec = parentHash, parentRec
	}

	// Finally, record the new header itself as canonical tip.
	newRec.IsCanonical = true
	if err := tx.PutHeader(newHash, newRec); err != nil {
		return 0, err
	}
	if err := tx.PutHeightHash(newRec.Height, newHash); err != nil {
		return 0, err
	}
	if err := tx.SetLatestBlockHash(newHash); err != nil {
		return 0, err
	}

	return depth, nil
}
