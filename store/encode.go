package store

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"spvoracle.dev/core/consensus"
)

func encodeHeight(h uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h)
	return buf[:]
}

func decodeHeight(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// encodeRecord lays out a Record as:
//
//	header bytes (80) | height u64be (8) | is_canonical u8 (1) |
//	work_sign u8 (1) | work_len u16be (2) | work_bytes
//
// a fixed-header-then-variable-tail layout.
func encodeRecord(rec Record) ([]byte, error) {
	if rec.ChainWork == nil {
		return nil, fmt.Errorf("store: chain work required")
	}
	headerBytes := consensus.UnparseHeader(rec.Header)

	work := new(big.Int).Abs(rec.ChainWork)
	workBytes := work.Bytes()
	if len(workBytes) > 0xffff {
		return nil, fmt.Errorf("store: chain work too large")
	}

	out := make([]byte, 0, len(headerBytes)+8+1+1+2+len(workBytes))
	out = append(out, headerBytes...)
	out = append(out, encodeHeight(rec.Height)...)
	if rec.IsCanonical {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	if rec.ChainWork.Sign() < 0 {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	var workLen [2]byte
	binary.BigEndian.PutUint16(workLen[:], uint16(len(workBytes)))
	out = append(out, workLen[:]...)
	out = append(out, workBytes...)
	return out, nil
}

func decodeRecord(b []byte) (Record, error) {
	const fixedLen = consensus.HeaderBytes + 8 + 1 + 1 + 2
	if len(b) < fixedLen {
		return Record{}, fmt.Errorf("store: truncated record")
	}

	header, err := consensus.ParseHeader(b[:consensus.HeaderBytes])
	if err != nil {
		return Record{}, fmt.Errorf("store: decode header: %w", err)
	}
	off := consensus.HeaderBytes

	height := decodeHeight(b[off : off+8])
	off += 8

	isCanonical := b[off] != 0
	off++

	negative := b[off] != 0
	off++

	workLen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if off+workLen != len(b) {
		return Record{}, fmt.Errorf("store: bad chain work length")
	}

	work := new(big.Int).SetBytes(b[off:])
	if negative {
		work.Neg(work)
	}

	return Record{
		Header:      header,
		Height:      height,
		IsCanonical: isCanonical,
		ChainWork:   work,
	}, nil
}
