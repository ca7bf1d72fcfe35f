package oracle

import (
	"fmt"

	"spvoracle.dev/core/consensus"
)

// Kind classifies the ways a chain-engine operation can fail. Pure helpers
// in package consensus fail with plain sentinel errors; everything that
// touches the store or the chain state fails with a *Error carrying one of
// these, so callers can branch with errors.As instead of string matching.
type Kind string

const (
	KindInvalidHeaderLength       Kind = "InvalidHeaderLength"
	KindHeaderAlreadyExists       Kind = "HeaderAlreadyExists"
	KindPrevBlockNotFound         Kind = "PrevBlockNotFound"
	KindForkBelowAnchor           Kind = "ForkBelowAnchor"
	KindInvalidBits               Kind = "InvalidBits"
	KindInvalidPoW                Kind = "InvalidPoW"
	KindBitsNegative              Kind = "BitsNegative"
	KindBitsOverflow              Kind = "BitsOverflow"
	KindBlockNotFound             Kind = "BlockNotFound"
	KindNotCanonical              Kind = "NotCanonical"
	KindInsufficientConfirmations Kind = "InsufficientConfirmations"
	KindBadProofInput             Kind = "BadProofInput"
	KindInitNotAtRetargetBoundary Kind = "InitNotAtRetargetBoundary"
)

// Error is the typed error returned by the chain engine.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newErr(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// bitsErr maps a consensus-level compact-encoding failure onto the chain
// engine's error taxonomy.
func bitsErr(err error) *Error {
	switch err {
	case consensus.ErrBitsNegative:
		return newErr(KindBitsNegative, err.Error())
	case consensus.ErrBitsOverflow:
		return newErr(KindBitsOverflow, err.Error())
	default:
		return newErr(KindInvalidBits, err.Error())
	}
}
