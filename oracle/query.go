package oracle

import (
	"spvoracle.dev/core/consensus"
	"spvoracle.dev/core/store"
)

// Stats summarizes the current chain state.
type Stats struct {
	TipHash         [32]byte
	TipHeight       uint64
	FirstHash       [32]byte
	FirstHeight     uint64
	InitBlockHeight uint64
	CheckPoW        bool
}

// Stats reports the current tip, anchor, and configuration of the stored
// chain.
func (o *Oracle) Stats() (Stats, error) {
	var s Stats
	err := o.db.View(func(tx *store.Tx) error {
		tipHash, ok, err := tx.LatestBlockHash()
		if err != nil {
			return err
		}
		if ok {
			tipRec, _, err := tx.GetHeader(tipHash)
			if err != nil {
				return err
			}
			s.TipHash = tipHash
			s.TipHeight = tipRec.Height
		}

		firstHash, ok, err := tx.FirstBlockHash()
		if err != nil {
			return err
		}
		if ok {
			firstRec, _, err := tx.GetHeader(firstHash)
			if err != nil {
				return err
			}
			s.FirstHash = firstHash
			s.FirstHeight = firstRec.Height
		}

		initHeight, _, err := tx.InitBlockHeight()
		if err != nil {
			return err
		}
		s.InitBlockHeight = initHeight

		checkPoW, _, err := tx.CheckPoW()
		if err != nil {
			return err
		}
		s.CheckPoW = checkPoW
		return nil
	})
	return s, err
}

// resolveByHash fetches the record stored under hash, failing with
// KindBlockNotFound if absent.
func resolveByHash(tx *store.Tx, hash [32]byte) (store.Record, error) {
	rec, ok, err := tx.GetHeader(hash)
	if err != nil {
		return store.Record{}, err
	}
	if !ok {
		return store.Record{}, newErr(KindBlockNotFound, "no header stored for hash")
	}
	return rec, nil
}

// resolveByHeight fetches the canonical block's hash and record at height,
// failing with KindBlockNotFound if the height index has no entry.
func resolveByHeight(tx *store.Tx, height uint64) ([32]byte, store.Record, error) {
	hash, ok, err := tx.GetHeightHash(height)
	if err != nil {
		return [32]byte{}, store.Record{}, err
	}
	if !ok {
		return [32]byte{}, store.Record{}, newErr(KindBlockNotFound, "no canonical header at height")
	}
	rec, err := resolveByHash(tx, hash)
	return hash, rec, err
}

// requireSafe enforces, when requested, canonical-chain membership and
// finality before a record is handed back to a caller. Without requireSafe
// any stored record, canonical or not, is accepted.
func (o *Oracle) requireSafe(tx *store.Tx, rec store.Record, requireSafe bool) error {
	if !requireSafe {
		return nil
	}
	if !rec.IsCanonical {
		return newErr(KindNotCanonical, "header is not on the canonical chain")
	}
	tipHash, ok, err := tx.LatestBlockHash()
	if err != nil {
		return err
	}
	if !ok {
		return newErr(KindBlockNotFound, "store has no tip")
	}
	tipRec, _, err := tx.GetHeader(tipHash)
	if err != nil {
		return err
	}
	if !finalized(rec.Height, tipRec.Height, o.cfg.MinConfirmations) {
		return newErr(KindInsufficientConfirmations, "block has not reached the required confirmation depth")
	}
	return nil
}

func finalized(height, tipHeight, minConfirmations uint64) bool {
	return height+(minConfirmations-1) <= tipHeight
}

// GetBlockHashByHeight returns the canonical block hash at height.
func (o *Oracle) GetBlockHashByHeight(height uint64, requireSafe bool) ([32]byte, error) {
	var hash [32]byte
	err := o.db.View(func(tx *store.Tx) error {
		h, rec, err := resolveByHeight(tx, height)
		if err != nil {
			return err
		}
		if err := o.requireSafe(tx, rec, requireSafe); err != nil {
			return err
		}
		hash = h
		return nil
	})
	return hash, err
}

// GetBlockHeightByHash returns the stored height for hash.
func (o *Oracle) GetBlockHeightByHash(hash [32]byte, requireSafe bool) (uint64, error) {
	var height uint64
	err := o.db.View(func(tx *store.Tx) error {
		rec, err := resolveByHash(tx, hash)
		if err != nil {
			return err
		}
		if err := o.requireSafe(tx, rec, requireSafe); err != nil {
			return err
		}
		height = rec.Height
		return nil
	})
	return height, err
}

// GetBlockHeaderByHash returns the parsed header stored under hash.
func (o *Oracle) GetBlockHeaderByHash(hash [32]byte, requireSafe bool) (consensus.Header, error) {
	var h consensus.Header
	err := o.db.View(func(tx *store.Tx) error {
		rec, err := resolveByHash(tx, hash)
		if err != nil {
			return err
		}
		if err := o.requireSafe(tx, rec, requireSafe); err != nil {
			return err
		}
		h = rec.Header
		return nil
	})
	return h, err
}

// GetBlockHeaderByHeight returns the parsed canonical header at height.
func (o *Oracle) GetBlockHeaderByHeight(height uint64, requireSafe bool) (consensus.Header, error) {
	var h consensus.Header
	err := o.db.View(func(tx *store.Tx) error {
		_, rec, err := resolveByHeight(tx, height)
		if err != nil {
			return err
		}
		if err := o.requireSafe(tx, rec, requireSafe); err != nil {
			return err
		}
		h = rec.Header
		return nil
	})
	return h, err
}

// GetRawHeaderByHash returns the 80-byte wire form of the header stored
// under hash.
func (o *Oracle) GetRawHeaderByHash(hash [32]byte, requireSafe bool) ([]byte, error) {
	h, err := o.GetBlockHeaderByHash(hash, requireSafe)
	if err != nil {
		return nil, err
	}
	return consensus.UnparseHeader(h), nil
}

// GetRawHeaderByHeight returns the 80-byte wire form of the canonical
// header at height.
func (o *Oracle) GetRawHeaderByHeight(height uint64, requireSafe bool) ([]byte, error) {
	h, err := o.GetBlockHeaderByHeight(height, requireSafe)
	if err != nil {
		return nil, err
	}
	return consensus.UnparseHeader(h), nil
}

// GetBlockRecordByHash returns the full stored record for hash, including
// height, canonical status, and cumulative chain work.
func (o *Oracle) GetBlockRecordByHash(hash [32]byte, requireSafe bool) (store.Record, error) {
	var rec store.Record
	err := o.db.View(func(tx *store.Tx) error {
		r, err := resolveByHash(tx, hash)
		if err != nil {
			return err
		}
		if err := o.requireSafe(tx, r, requireSafe); err != nil {
			return err
		}
		rec = r
		return nil
	})
	return rec, err
}

// GetBlockRecordByHeight returns the full stored record for the canonical
// block at height.
func (o *Oracle) GetBlockRecordByHeight(height uint64, requireSafe bool) (store.Record, error) {
	var rec store.Record
	err := o.db.View(func(tx *store.Tx) error {
		_, r, err := resolveByHeight(tx, height)
		if err != nil {
			return err
		}
		if err := o.requireSafe(tx, r, requireSafe); err != nil {
			return err
		}
		rec = r
		return nil
	})
	return rec, err
}

// IsFinalizedByHeight reports whether the canonical block at height has
// reached the required confirmation depth. A height with no canonical
// block, or one that is not canonical, is reported as not finalized rather
// than as an error.
func (o *Oracle) IsFinalizedByHeight(height uint64) (bool, error) {
	var ok bool
	err := o.db.View(func(tx *store.Tx) error {
		_, rec, err := resolveByHeight(tx, height)
		if err != nil {
			if oe, isOracleErr := err.(*Error); isOracleErr && oe.Kind == KindBlockNotFound {
				return nil
			}
			return err
		}
		if err := o.requireSafe(tx, rec, true); err != nil {
			return nil
		}
		ok = true
		return nil
	})
	return ok, err
}

// IsFinalizedByHash reports whether the block stored under hash is both
// canonical and has reached the required confirmation depth.
func (o *Oracle) IsFinalizedByHash(hash [32]byte) (bool, error) {
	var ok bool
	err := o.db.View(func(tx *store.Tx) error {
		rec, err := resolveByHash(tx, hash)
		if err != nil {
			if oe, isOracleErr := err.(*Error); isOracleErr && oe.Kind == KindBlockNotFound {
				return nil
			}
			return err
		}
		if err := o.requireSafe(tx, rec, true); err != nil {
			return nil
		}
		ok = true
		return nil
	})
	return ok, err
}

// GetHeaders returns up to count consecutive canonical headers starting at
// fromHeight, stopping early if the chain does not extend that far.
func (o *Oracle) GetHeaders(fromHeight, count uint64) ([]consensus.Header, error) {
	var headers []consensus.Header
	err := o.db.View(func(tx *store.Tx) error {
		for i := uint64(0); i < count; i++ {
			_, rec, err := resolveByHeight(tx, fromHeight+i)
			if err != nil {
				if oe, isOracleErr := err.(*Error); isOracleErr && oe.Kind == KindBlockNotFound {
					break
				}
				return err
			}
			headers = append(headers, rec.Header)
		}
		return nil
	})
	return headers, err
}
