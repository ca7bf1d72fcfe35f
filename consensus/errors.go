package consensus

import "errors"

// Sentinel errors returned by the pure, stateless helpers in this package.
// The chain engine in package oracle wraps these (and its own error kinds)
// in a richer typed error; these exist so the helpers stay usable on their
// own, without depending on oracle.
var (
	ErrInvalidHeaderLength = errors.New("consensus: header must be exactly 80 bytes")
	ErrBitsNegative        = errors.New("consensus: bits encodes a negative target")
	ErrBitsOverflow        = errors.New("consensus: bits mantissa/size overflows 256 bits")
)
