package ledger

import "errors"

var (
	// ErrAmountZero rejects zero or negative amounts before any state change.
	ErrAmountZero = errors.New("ledger: amount must be positive")

	// ErrAssetNotRegistered rejects operations on assets outside the registry.
	ErrAssetNotRegistered = errors.New("ledger: asset not registered")

	// ErrFeedLengthMismatch rejects initialization with mismatched
	// asset/feed configuration lists.
	ErrFeedLengthMismatch = errors.New("ledger: asset and price feed lists have different lengths")

	// ErrInsufficientCollateral rejects a collateral debit that would underflow.
	ErrInsufficientCollateral = errors.New("ledger: insufficient collateral")

	// ErrInsufficientDebt rejects a debt reduction that would underflow.
	ErrInsufficientDebt = errors.New("ledger: insufficient debt")
)
