package oracle

import "testing"

func initTestChain(t *testing.T) (*Oracle, [32]byte) {
	t.Helper()
	o := newTestOracle(t)
	anchor := buildHeader([32]byte{9}, testBits, 1000, 0, 1)
	if err := o.Init(anchor, testInitHeight); err != nil {
		t.Fatalf("init: %v", err)
	}
	return o, mustHash(t, anchor)
}

func TestSubmit_DuplicateRejected(t *testing.T) {
	o, anchorHash := initTestChain(t)
	h1 := buildHeader(anchorHash, testBits, 1600, 0, 2)
	if err := o.Submit(h1); err != nil {
		t.Fatalf("submit h1: %v", err)
	}
	if err := o.Submit(h1); err == nil {
		t.Fatalf("expected duplicate submission to fail")
	} else if oe, ok := err.(*Error); !ok || oe.Kind != KindHeaderAlreadyExists {
		t.Fatalf("expected KindHeaderAlreadyExists, got %v", err)
	}
}

func TestSubmit_UnknownParentRejected(t *testing.T) {
	o, _ := initTestChain(t)
	orphan := buildHeader([32]byte{0xaa}, testBits, 1600, 0, 2)
	if err := o.Submit(orphan); err == nil {
		t.Fatalf("expected orphan submission to fail")
	} else if oe, ok := err.(*Error); !ok || oe.Kind != KindPrevBlockNotFound {
		t.Fatalf("expected KindPrevBlockNotFound, got %v", err)
	}
}

// TestSubmit_SixBlockExtensionReachesFinality covers end-to-end scenario 2.
func TestSubmit_SixBlockExtensionReachesFinality(t *testing.T) {
	o, anchorHash := initTestChain(t)

	prev := anchorHash
	ts := uint32(1600)
	var hashes [6][32]byte
	for i := 0; i < 6; i++ {
		raw := buildHeader(prev, testBits, ts, uint32(i), byte(10+i))
		if err := o.Submit(raw); err != nil {
			t.Fatalf("submit block %d: %v", i+1, err)
		}
		hashes[i] = mustHash(t, raw)
		prev = hashes[i]
		ts += 600

		finalized, err := o.IsFinalizedByHeight(testInitHeight)
		if err != nil {
			t.Fatalf("is finalized: %v", err)
		}
		if i < 4 && finalized {
			t.Fatalf("anchor should not be finalized before 6 confirmations, at block %d", i+1)
		}
		if i == 4 && !finalized {
			t.Fatalf("anchor should be finalized once H5 (the 6th block including anchor) is accepted")
		}
	}

	gotH5, err := o.GetBlockHashByHeight(testInitHeight+5, false)
	if err != nil {
		t.Fatalf("get H5 hash by height: %v", err)
	}
	if gotH5 != hashes[4] {
		t.Fatalf("height index mismatch at H5")
	}

	gotTip, err := o.GetBlockHashByHeight(testInitHeight+6, false)
	if err != nil {
		t.Fatalf("get tip hash by height: %v", err)
	}
	if gotTip != hashes[5] {
		t.Fatalf("height index mismatch at tip")
	}
}

// TestSubmit_SidechainStaysNonCanonical covers end-to-end scenario 3.
func TestSubmit_SidechainStaysNonCanonical(t *testing.T) {
	o, anchorHash := initTestChain(t)

	// Chain A: H1, H2, H3.
	h1 := buildHeader(anchorHash, testBits, 1600, 0, 1)
	mustSubmit(t, o, h1)
	h1Hash := mustHash(t, h1)

	h2 := buildHeader(h1Hash, testBits, 1700, 0, 2)
	mustSubmit(t, o, h2)
	h2Hash := mustHash(t, h2)

	h3 := buildHeader(h2Hash, testBits, 1800, 0, 3)
	mustSubmit(t, o, h3)
	h3Hash := mustHash(t, h3)

	// H3' is a same-height sidechain block off H2 with the same nominal
	// work (equal bits), so it must not overtake the incumbent tip.
	h3prime := buildHeader(h2Hash, testBits, 1801, 1, 0xf3)
	mustSubmit(t, o, h3prime)
	h3primeHash := mustHash(t, h3prime)

	tipHash, err := o.GetBlockHashByHeight(testInitHeight+3, false)
	if err != nil {
		t.Fatalf("get tip by height: %v", err)
	}
	if tipHash != h3Hash {
		t.Fatalf("expected incumbent H3 to remain the canonical tip at its height")
	}

	rec, err := o.GetBlockRecordByHash(h3primeHash, false)
	if err != nil {
		t.Fatalf("get H3' record: %v", err)
	}
	if rec.IsCanonical {
		t.Fatalf("H3' should be stored but not canonical")
	}
}

// TestSubmit_ReorgFlipsCanonicalStatus covers end-to-end scenario 4.
func TestSubmit_ReorgFlipsCanonicalStatus(t *testing.T) {
	o, anchorHash := initTestChain(t)

	h1 := buildHeader(anchorHash, testBits, 1600, 0, 1)
	mustSubmit(t, o, h1)
	h1Hash := mustHash(t, h1)

	h2 := buildHeader(h1Hash, testBits, 1700, 0, 2)
	mustSubmit(t, o, h2)
	h2Hash := mustHash(t, h2)

	h3 := buildHeader(h2Hash, testBits, 1800, 0, 3)
	mustSubmit(t, o, h3)
	h3Hash := mustHash(t, h3)

	// Chain B forks off H2 and stacks two same-difficulty blocks (H3',
	// H4') against chain A's one (H3); with equal per-block work, two
	// blocks strictly out-work one.
	h3prime := buildHeader(h2Hash, testBits, 1801, 1, 0xf3)
	mustSubmit(t, o, h3prime)
	h3primeHash := mustHash(t, h3prime)

	h4prime := buildHeader(h3primeHash, testBits, 1900, 0, 0xf4)
	mustSubmit(t, o, h4prime)
	h4primeHash := mustHash(t, h4prime)

	// Chain B (H2 -> H3' -> H4') now has one more block than chain A
	// (H2 -> H3), so strictly more cumulative work at equal per-block
	// difficulty: it must become canonical.
	tipHash, err := o.GetBlockHashByHeight(testInitHeight+4, false)
	if err != nil {
		t.Fatalf("get new tip by height: %v", err)
	}
	if tipHash != h4primeHash {
		t.Fatalf("expected H4' to become the canonical tip")
	}

	h3Rec, err := o.GetBlockRecordByHash(h3Hash, false)
	if err != nil {
		t.Fatalf("get H3 record: %v", err)
	}
	if h3Rec.IsCanonical {
		t.Fatalf("H3 should have been displaced from canonical status")
	}

	h3primeRec, err := o.GetBlockRecordByHash(h3primeHash, false)
	if err != nil {
		t.Fatalf("get H3' record: %v", err)
	}
	if !h3primeRec.IsCanonical {
		t.Fatalf("H3' should now be canonical")
	}
}

// TestSubmit_ReorgShortensChainClearsTrailingHeights covers the reorg case
// where the winning sidechain is shorter than the displaced incumbent: a
// single much-harder block can out-work several easier ones. The vacated
// tail heights above the new tip must read back as not found.
func TestSubmit_ReorgShortensChainClearsTrailingHeights(t *testing.T) {
	o, anchorHash := initTestChain(t)

	h1 := buildHeader(anchorHash, testBits, 1600, 0, 1)
	mustSubmit(t, o, h1)
	h1Hash := mustHash(t, h1)

	h2 := buildHeader(h1Hash, testBits, 1700, 0, 2)
	mustSubmit(t, o, h2)
	h2Hash := mustHash(t, h2)

	h3 := buildHeader(h2Hash, testBits, 1800, 0, 3)
	mustSubmit(t, o, h3)
	h3Hash := mustHash(t, h3)

	h4 := buildHeader(h3Hash, testBits, 1900, 0, 4)
	mustSubmit(t, o, h4)

	// highDifficultyBits has a three-byte-smaller exponent than testBits, so
	// a single block at this difficulty carries far more cumulative work
	// than chain A's H2+H3+H4 combined, even though chain B ends up shorter.
	const highDifficultyBits uint32 = 0x1a00ffff
	h2prime := buildHeader(h1Hash, highDifficultyBits, 1701, 0, 0xe2)
	mustSubmit(t, o, h2prime)
	h2primeHash := mustHash(t, h2prime)

	tipHash, err := o.GetBlockHashByHeight(testInitHeight+2, false)
	if err != nil {
		t.Fatalf("get new tip by height: %v", err)
	}
	if tipHash != h2primeHash {
		t.Fatalf("expected H2' to become the canonical tip despite the shorter chain")
	}

	s, err := o.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if s.TipHeight != testInitHeight+2 {
		t.Fatalf("expected tip height %d, got %d", testInitHeight+2, s.TipHeight)
	}

	for _, height := range []uint64{testInitHeight + 3, testInitHeight + 4} {
		if _, err := o.GetBlockHashByHeight(height, false); err == nil {
			t.Fatalf("expected vacated height %d to be cleared", height)
		} else if oe, ok := err.(*Error); !ok || oe.Kind != KindBlockNotFound {
			t.Fatalf("expected KindBlockNotFound at vacated height %d, got %v", height, err)
		}
	}

	h3Rec, err := o.GetBlockRecordByHash(h3Hash, false)
	if err != nil {
		t.Fatalf("get H3 record: %v", err)
	}
	if h3Rec.IsCanonical {
		t.Fatalf("H3 should have been displaced from canonical status")
	}
}

// TestBatchSubmit_FailsAllOrNothing covers the all-or-nothing semantics of
// a batch: when a later header in the batch is rejected, none of the
// earlier, individually-valid headers in that same batch are left behind.
func TestBatchSubmit_FailsAllOrNothing(t *testing.T) {
	o, anchorHash := initTestChain(t)

	h1 := buildHeader(anchorHash, testBits, 1600, 0, 1)
	h1Hash := mustHash(t, h1)

	h2 := buildHeader(h1Hash, testBits, 1700, 0, 2)
	h2Hash := mustHash(t, h2)

	// h3 references a parent that isn't h2 and was never submitted, so it
	// fails with KindPrevBlockNotFound partway through the batch.
	h3 := buildHeader([32]byte{0xaa}, testBits, 1800, 0, 3)

	err := o.BatchSubmit([][]byte{h1, h2, h3})
	if err == nil {
		t.Fatalf("expected batch with an invalid header to fail")
	} else if oe, ok := err.(*Error); !ok || oe.Kind != KindPrevBlockNotFound {
		t.Fatalf("expected KindPrevBlockNotFound, got %v", err)
	}

	for _, hash := range [][32]byte{h1Hash, h2Hash} {
		if _, err := o.GetBlockRecordByHash(hash, false); err == nil {
			t.Fatalf("expected earlier batch member to not be persisted")
		} else if oe, ok := err.(*Error); !ok || oe.Kind != KindBlockNotFound {
			t.Fatalf("expected KindBlockNotFound, got %v", err)
		}
	}

	s, err := o.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if s.TipHash != anchorHash {
		t.Fatalf("expected tip to remain at the anchor after a failed batch")
	}
}

func mustSubmit(t *testing.T, o *Oracle, raw []byte) {
	t.Helper()
	if err := o.Submit(raw); err != nil {
		t.Fatalf("submit: %v", err)
	}
}
