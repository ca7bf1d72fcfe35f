package consensus

import "crypto/sha256"

// HeaderBytes is the fixed wire length of a Bitcoin block header.
const HeaderBytes = 80

// Header is a parsed block header. PrevBlock and MerkleRoot are held in
// display (reversed) order, the same order as a computed block hash, so a
// child's PrevBlock compares equal to its parent's hash without further
// conversion.
type Header struct {
	Version    int32
	PrevBlock  [32]byte
	MerkleRoot [32]byte
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

// ParseHeader decodes an 80-byte wire header. Fields are little-endian;
// PrevBlock and MerkleRoot are reversed from their on-wire (internal) order
// into display order.
func ParseHeader(b []byte) (Header, error) {
	var h Header
	if len(b) != HeaderBytes {
		return h, ErrInvalidHeaderLength
	}

	off := 0
	version, err := readU32le(b, &off)
	if err != nil {
		return h, ErrInvalidHeaderLength
	}
	prevRaw, err := readBytes(b, &off, 32)
	if err != nil {
		return h, ErrInvalidHeaderLength
	}
	merkleRaw, err := readBytes(b, &off, 32)
	if err != nil {
		return h, ErrInvalidHeaderLength
	}
	timestamp, err := readU32le(b, &off)
	if err != nil {
		return h, ErrInvalidHeaderLength
	}
	bits, err := readU32le(b, &off)
	if err != nil {
		return h, ErrInvalidHeaderLength
	}
	nonce, err := readU32le(b, &off)
	if err != nil {
		return h, ErrInvalidHeaderLength
	}
	if off != HeaderBytes {
		return h, ErrInvalidHeaderLength
	}

	var prevInternal, merkleInternal [32]byte
	copy(prevInternal[:], prevRaw)
	copy(merkleInternal[:], merkleRaw)

	h.Version = int32(version)
	h.PrevBlock = reverse32(prevInternal)
	h.MerkleRoot = reverse32(merkleInternal)
	h.Timestamp = timestamp
	h.Bits = bits
	h.Nonce = nonce
	return h, nil
}

// UnparseHeader is the inverse of ParseHeader: it re-applies the internal
// byte order to PrevBlock/MerkleRoot and writes the 80-byte wire form.
// ParseHeader(UnparseHeader(h)) == h for any Header produced by ParseHeader.
func UnparseHeader(h Header) []byte {
	out := make([]byte, 0, HeaderBytes)
	out = appendU32le(out, uint32(h.Version))
	prevInternal := reverse32(h.PrevBlock)
	out = append(out, prevInternal[:]...)
	merkleInternal := reverse32(h.MerkleRoot)
	out = append(out, merkleInternal[:]...)
	out = appendU32le(out, h.Timestamp)
	out = appendU32le(out, h.Bits)
	out = appendU32le(out, h.Nonce)
	return out
}

// BlockHash computes reverse256(sha256(sha256(header))) over the raw
// 80-byte wire form, Bitcoin's display-order block hash.
func BlockHash(raw []byte) ([32]byte, error) {
	if len(raw) != HeaderBytes {
		return [32]byte{}, ErrInvalidHeaderLength
	}
	first := sha256.Sum256(raw)
	second := sha256.Sum256(first[:])
	return reverse32(second), nil
}
