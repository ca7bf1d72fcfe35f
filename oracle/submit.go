package oracle

import (
	"math/big"

	"spvoracle.dev/core/consensus"
	"spvoracle.dev/core/store"
)

const (
	difficultyAdjustmentInterval uint64 = 2016
	powTargetTimespanSeconds    uint32 = 1209600 // two weeks, in seconds
)

// powLimit is the minimum-difficulty target: the top 32 bits zero, the
// remaining 224 bits set.
var powLimit = func() [32]byte {
	var t [32]byte
	for i := 4; i < 32; i++ {
		t[i] = 0xff
	}
	return t
}()

// Submit validates and applies a single 80-byte header against the current
// chain state, extending the canonical tip, growing a sidechain, triggering
// a reorg, or extending backward past the anchor, per the header's
// relationship to the stored chain.
func (o *Oracle) Submit(rawHeader []byte) error {
	var evt Event
	var accepted bool
	err := o.db.Update(func(tx *store.Tx) error {
		e, err := o.submitOne(tx, rawHeader)
		if err != nil {
			return err
		}
		evt = e
		accepted = true
		return nil
	})
	if err != nil {
		o.recordSubmission(outcomeLabel(err))
		return err
	}
	o.recordSubmission("accepted")
	if accepted {
		o.sink.NewBlockHeader(evt)
	}
	return nil
}

// BatchSubmit applies rawHeaders in order within a single transaction. The
// whole batch is rejected if any header in it is rejected, leaving the
// store unchanged.
func (o *Oracle) BatchSubmit(rawHeaders [][]byte) error {
	var events []Event
	err := o.db.Update(func(tx *store.Tx) error {
		for _, raw := range rawHeaders {
			e, err := o.submitOne(tx, raw)
			if err != nil {
				return err
			}
			events = append(events, e)
		}
		return nil
	})
	if err != nil {
		o.recordSubmission(outcomeLabel(err))
		return err
	}
	o.recordSubmission("accepted")
	for _, e := range events {
		o.sink.NewBlockHeader(e)
	}
	return nil
}

func outcomeLabel(err error) string {
	if oe, ok := err.(*Error); ok {
		return "rejected_" + string(oe.Kind)
	}
	return "rejected"
}

// submitOne implements the per-header decision tree: duplicate rejection,
// pre-anchor backward extension, fork-below-anchor rejection, proof-of-work
// and retarget validation, then a three-way branch on whether the header
// extends the current tip, grows a lower-work sidechain, or wins a reorg.
func (o *Oracle) submitOne(tx *store.Tx, raw []byte) (Event, error) {
	header, err := consensus.ParseHeader(raw)
	if err != nil {
		return Event{}, newErr(KindInvalidHeaderLength, err.Error())
	}
	hash, err := consensus.BlockHash(raw)
	if err != nil {
		return Event{}, newErr(KindInvalidHeaderLength, err.Error())
	}

	if _, exists, err := tx.GetHeader(hash); err != nil {
		return Event{}, err
	} else if exists {
		return Event{}, newErr(KindHeaderAlreadyExists, "header already stored")
	}

	prevRec, prevExists, err := tx.GetHeader(header.PrevBlock)
	if err != nil {
		return Event{}, err
	}

	if !prevExists {
		firstHash, ok, err := tx.FirstBlockHash()
		if err != nil {
			return Event{}, err
		}
		if !ok {
			return Event{}, newErr(KindPrevBlockNotFound, "store has not been initialized")
		}
		firstRec, _, err := tx.GetHeader(firstHash)
		if err != nil {
			return Event{}, err
		}
		if firstRec.Header.PrevBlock == hash {
			return o.preAnchorExtend(tx, hash, header, firstHash, firstRec)
		}
		return Event{}, newErr(KindPrevBlockNotFound, "previous block not found")
	}

	initHeight, _, err := tx.InitBlockHeight()
	if err != nil {
		return Event{}, err
	}

	newHeight := prevRec.Height + 1
	if newHeight <= initHeight {
		return Event{}, newErr(KindForkBelowAnchor, "fork point is below the anchor")
	}

	target, err := consensus.BitsToTarget(header.Bits)
	if err != nil {
		return Event{}, bitsErr(err)
	}

	checkPoW, _, err := tx.CheckPoW()
	if err != nil {
		return Event{}, err
	}
	if checkPoW {
		expectedBits, err := o.nextBlockBits(tx, prevRec, newHeight)
		if err != nil {
			return Event{}, err
		}
		if header.Bits != expectedBits {
			return Event{}, newErr(KindInvalidBits, "bits does not match expected retarget value")
		}
		if err := checkProofOfWork(hash, target); err != nil {
			return Event{}, err
		}
	}

	newWork := new(big.Int).Add(prevRec.ChainWork, consensus.TargetToWork(target))

	tipHash, _, err := tx.LatestBlockHash()
	if err != nil {
		return Event{}, err
	}
	tipRec, _, err := tx.GetHeader(tipHash)
	if err != nil {
		return Event{}, err
	}

	rec := store.Record{
		Header:      header,
		Height:      newHeight,
		IsCanonical: false,
		ChainWork:   newWork,
	}

	switch {
	case header.PrevBlock == tipHash:
		rec.IsCanonical = true
		if err := tx.PutHeader(hash, rec); err != nil {
			return Event{}, err
		}
		if err := tx.PutHeightHash(newHeight, hash); err != nil {
			return Event{}, err
		}
		if err := tx.SetLatestBlockHash(hash); err != nil {
			return Event{}, err
		}
		return Event{Hash: hash, Height: newHeight, Raw: raw, LatestUpdated: true}, nil

	case newWork.Cmp(tipRec.ChainWork) > 0:
		if err := tx.PutHeader(hash, rec); err != nil {
			return Event{}, err
		}
		depth, err := o.reorgTo(tx, hash, rec, header.PrevBlock, prevRec, tipHash, tipRec)
		if err != nil {
			return Event{}, err
		}
		o.recordReorg(depth)
		return Event{Hash: hash, Height: newHeight, Raw: raw, LatestUpdated: true}, nil

	default:
		if err := tx.PutHeader(hash, rec); err != nil {
			return Event{}, err
		}
		return Event{Hash: hash, Height: newHeight, Raw: raw, LatestUpdated: false}, nil
	}
}

// preAnchorExtend links a header backward from the current first-block
// anchor, extending recorded history before the oracle's initial anchor
// point. Such headers carry negative chain work: they are known-valid
// ancestors, not competitors for canonical status.
func (o *Oracle) preAnchorExtend(tx *store.Tx, hash [32]byte, header consensus.Header, firstHash [32]byte, firstRec store.Record) (Event, error) {
	if firstRec.Height == 0 {
		return Event{}, newErr(KindForkBelowAnchor, "anchor is already at height 0")
	}
	// Subtract the current first header's own work, not the new block's:
	// chain work at a height is the sum over that height upward to and
	// including firstBlockHash, so stepping firstBlockHash back by one
	// block removes exactly firstHeader's contribution.
	firstWork, err := consensus.BitsToWork(firstRec.Header.Bits)
	if err != nil {
		return Event{}, bitsErr(err)
	}
	newHeight := firstRec.Height - 1
	newWork := new(big.Int).Sub(firstRec.ChainWork, firstWork)

	rec := store.Record{
		Header:      header,
		Height:      newHeight,
		IsCanonical: true,
		ChainWork:   newWork,
	}
	if err := tx.PutHeader(hash, rec); err != nil {
		return Event{}, err
	}
	if err := tx.PutHeightHash(newHeight, hash); err != nil {
		return Event{}, err
	}
	if err := tx.SetFirstBlockHash(hash); err != nil {
		return Event{}, err
	}
	return Event{Hash: hash, Height: newHeight, Raw: consensus.UnparseHeader(header), LatestUpdated: false}, nil
}

// nextBlockBits computes the required bits for newHeight given its direct
// predecessor prev. Outside a retarget boundary the bits simply carry over;
// at a boundary the target is rescaled by the actual timespan of the last
// difficultyAdjustmentInterval blocks, clamped to [1/4, 4] of the target
// timespan and to powLimit.
func (o *Oracle) nextBlockBits(tx *store.Tx, prev store.Record, newHeight uint64) (uint32, error) {
	if newHeight%difficultyAdjustmentInterval != 0 {
		return prev.Header.Bits, nil
	}

	firstHeightOfInterval := newHeight - difficultyAdjustmentInterval
	firstHash, ok, err := tx.GetHeightHash(firstHeightOfInterval)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, newErr(KindBlockNotFound, "retarget window start has no canonical entry")
	}
	firstRec, ok, err := tx.GetHeader(firstHash)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, newErr(KindBlockNotFound, "retarget window start has no canonical entry")
	}

	actualTimespan := prev.Header.Timestamp - firstRec.Header.Timestamp // wraps per spec
	minTimespan := powTargetTimespanSeconds / 4
	maxTimespan := powTargetTimespanSeconds * 4
	clamped := actualTimespan
	if clamped < minTimespan {
		clamped = minTimespan
	}
	if clamped > maxTimespan {
		clamped = maxTimespan
	}

	oldTarget, err := consensus.BitsToTarget(prev.Header.Bits)
	if err != nil {
		return 0, bitsErr(err)
	}
	oldTargetInt := new(big.Int).SetBytes(oldTarget[:])
	newTargetInt := new(big.Int).Mul(oldTargetInt, big.NewInt(int64(clamped)))
	newTargetInt.Div(newTargetInt, big.NewInt(int64(powTargetTimespanSeconds)))

	limitInt := new(big.Int).SetBytes(powLimit[:])
	if newTargetInt.Cmp(limitInt) > 0 {
		newTargetInt = limitInt
	}

	var newTarget [32]byte
	newTargetInt.FillBytes(newTarget[:])
	return consensus.TargetToBits(newTarget), nil
}

// checkProofOfWork verifies that hash, interpreted as a 256-bit number,
// does not exceed target. hash is in display order (as returned by
// consensus.BlockHash), which read as big-endian bytes is the same numeric
// value as the raw digest read little-endian, the same byte convention
// BitsToTarget uses for target, so no further reversal is needed here.
func checkProofOfWork(hash [32]byte, target [32]byte) error {
	hashInt := new(big.Int).SetBytes(hash[:])
	targetInt := new(big.Int).SetBytes(target[:])
	if hashInt.Cmp(targetInt) > 0 {
		return newErr(KindInvalidPoW, "block hash exceeds target")
	}
	return nil
}
