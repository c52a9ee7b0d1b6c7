package portfolio

import "errors"

// Domain failures surfaced to the presentation layer. The HTTP handler maps
// each sentinel to a stable status code; messages never leak whether a
// resource the actor cannot access exists.
var (
	ErrAccessDenied         = errors.New("wallet or client not found, or access denied")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrInsufficientFunds    = errors.New("insufficient cash balance")
	ErrInsufficientQuantity = errors.New("insufficient position quantity")
	ErrNoPosition           = errors.New("no position held for ticker")
	ErrUnknownAsset         = errors.New("asset not found")
	ErrDuplicateOperation   = errors.New("duplicate operation")
)
