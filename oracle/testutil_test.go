package oracle

import (
	"path/filepath"
	"testing"

	"spvoracle.dev/core/consensus"
)

// newTestOracle returns an Oracle backed by a fresh on-disk store in a
// temporary directory, with PoW/retarget checking disabled unless the
// caller re-enables it, so test chains don't need real mining.
func newTestOracle(t *testing.T) *Oracle {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "chain.db")
	cfg.CheckPoW = false
	o, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new oracle: %v", err)
	}
	t.Cleanup(func() { o.Close() })
	return o
}

// buildHeader constructs an 80-byte header extending prev, with an
// arbitrary but deterministic merkle root derived from seed.
func buildHeader(prev [32]byte, bits, timestamp, nonce uint32, seed byte) []byte {
	var merkle [32]byte
	for i := range merkle {
		merkle[i] = seed + byte(i)
	}
	h := consensus.Header{
		Version:    1,
		PrevBlock:  prev,
		MerkleRoot: merkle,
		Timestamp:  timestamp,
		Bits:       bits,
		Nonce:      nonce,
	}
	return consensus.UnparseHeader(h)
}

func mustHash(t *testing.T, raw []byte) [32]byte {
	t.Helper()
	hash, err := consensus.BlockHash(raw)
	if err != nil {
		t.Fatalf("block hash: %v", err)
	}
	return hash
}

// buildHeaderWithRoot is like buildHeader but takes an explicit, already
// display-order merkle root, for tests that need Validate to walk a proof
// against a specific root.
func buildHeaderWithRoot(prev [32]byte, bits, timestamp, nonce uint32, merkleRoot [32]byte) []byte {
	h := consensus.Header{
		Version:    1,
		PrevBlock:  prev,
		MerkleRoot: merkleRoot,
		Timestamp:  timestamp,
		Bits:       bits,
		Nonce:      nonce,
	}
	return consensus.UnparseHeader(h)
}

const testBits uint32 = 0x1d00ffff
