package engine

import (
	"errors"
	"fmt"
	"math/big"

	"SynthLedger/internal/ledger"
	"SynthLedger/internal/oracle"
)

var (
	// ErrTransferFailed marks a refused external asset or token movement.
	// The triggering operation aborts and all of its ledger writes are undone.
	ErrTransferFailed = errors.New("engine: external transfer failed")

	// ErrMintFailed marks a refusal by the debt-token capability to mint.
	ErrMintFailed = errors.New("engine: debt token mint failed")

	// ErrHealthFactorBroken is raised post-mutation when an operation would
	// leave an account under-collateralized; use AsHealthFactorBroken to
	// recover the offending ratio.
	ErrHealthFactorBroken = errors.New("engine: health factor broken")

	// ErrHealthFactorNotBroken rejects liquidation of a healthy account.
	ErrHealthFactorNotBroken = errors.New("engine: health factor not broken")

	// ErrHealthFactorNotImproved aborts a liquidation that did not strictly
	// improve the target's solvency.
	ErrHealthFactorNotImproved = errors.New("engine: health factor not improved")
)

// HealthFactorBrokenError carries the ratio that violated MinHealthFactor.
type HealthFactorBrokenError struct {
	Ratio *big.Int
}

func (e *HealthFactorBrokenError) Error() string {
	return fmt.Sprintf("engine: health factor broken: %s", e.Ratio)
}

// Is lets errors.Is(err, ErrHealthFactorBroken) match.
func (e *HealthFactorBrokenError) Is(target error) bool {
	return target == ErrHealthFactorBroken
}

// AsHealthFactorBroken extracts the broken ratio from an error chain.
func AsHealthFactorBroken(err error) (*HealthFactorBrokenError, bool) {
	var hfErr *HealthFactorBrokenError
	ok := errors.As(err, &hfErr)
	return hfErr, ok
}

// classifyRejection maps an error chain to a low-cardinality metric label.
func classifyRejection(err error) string {
	switch {
	case errors.Is(err, ledger.ErrAmountZero):
		return "amount_zero"
	case errors.Is(err, ledger.ErrAssetNotRegistered):
		return "asset_not_registered"
	case errors.Is(err, ledger.ErrInsufficientCollateral):
		return "insufficient_collateral"
	case errors.Is(err, ledger.ErrInsufficientDebt):
		return "insufficient_debt"
	case errors.Is(err, oracle.ErrStalePrice):
		return "stale_price"
	case errors.Is(err, oracle.ErrNoQuote):
		return "no_quote"
	case errors.Is(err, ErrHealthFactorBroken):
		return "health_factor_broken"
	case errors.Is(err, ErrHealthFactorNotBroken):
		return "health_factor_not_broken"
	case errors.Is(err, ErrHealthFactorNotImproved):
		return "health_factor_not_improved"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrMintFailed):
		return "mint_failed"
	default:
		return "other"
	}
}
