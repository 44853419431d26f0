package fixedpoint

import (
	"math/big"
)

// Scale constants for the internal accounting precision and price feeds.
// Internal amounts and quote-currency values use 18 decimal places (WAD).
// Price feeds report with 8 decimal places, so feed prices are scaled up
// by AdditionalFeedPrecision before entering any valuation formula.
var (
	// Precision is the internal fixed-point scale (1e18).
	Precision = big.NewInt(1_000_000_000_000_000_000)

	// FeedPrecision is the decimal scale of raw price feed quotes (1e8).
	FeedPrecision = big.NewInt(100_000_000)

	// AdditionalFeedPrecision lifts a feed price to internal precision (1e10).
	AdditionalFeedPrecision = big.NewInt(10_000_000_000)

	// MinHealthFactor is "1.0" at internal precision. An account whose
	// health factor drops below this value is eligible for liquidation.
	MinHealthFactor = new(big.Int).Set(Precision)

	// MaxHealthFactor is the saturating health factor for accounts with
	// zero debt (2^256 - 1, the maximum representable ratio).
	MaxHealthFactor = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// Liquidation parameters. Collateral is discounted to LiquidationThreshold
// percent before being compared against debt, so the system requires
// 200% collateralization. Liquidators earn LiquidationBonus percent extra
// collateral on top of the debt they repay.
const (
	LiquidationThreshold = 50
	LiquidationPrecision = 100
	LiquidationBonus     = 10
)

// MulDiv returns a * b / den with flooring, never mutating its inputs.
// den must be non-zero.
func MulDiv(a, b, den *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, den)
}

// ScaleFeedPrice lifts a raw feed price (1e8 scale) to internal precision.
func ScaleFeedPrice(feedPrice *big.Int) *big.Int {
	return new(big.Int).Mul(feedPrice, AdditionalFeedPrecision)
}

// QuoteValue converts a collateral amount (token base units, 1e18 scale)
// into quote-currency value (1e18 scale) at the given raw feed price:
//
//	value = amount * (feedPrice * 1e10) / 1e18
func QuoteValue(amount, feedPrice *big.Int) *big.Int {
	return MulDiv(amount, ScaleFeedPrice(feedPrice), Precision)
}

// TokenAmountFromQuote is the inverse of QuoteValue: it converts a
// quote-currency value into collateral token base units at the given raw
// feed price. Floor division; round-trips with QuoteValue up to flooring.
func TokenAmountFromQuote(quoteValue, feedPrice *big.Int) *big.Int {
	return MulDiv(quoteValue, Precision, ScaleFeedPrice(feedPrice))
}

// CalculateHealthFactor is the pure solvency ratio:
//
//	hf = (collateralValue * LiquidationThreshold / LiquidationPrecision) * Precision / totalDebt
//
// Both inputs are quote-currency values at internal precision. Zero debt
// saturates to MaxHealthFactor rather than being treated as a fault.
func CalculateHealthFactor(totalDebt, collateralValue *big.Int) *big.Int {
	if totalDebt.Sign() == 0 {
		return new(big.Int).Set(MaxHealthFactor)
	}
	adjusted := MulDiv(collateralValue, big.NewInt(LiquidationThreshold), big.NewInt(LiquidationPrecision))
	return MulDiv(adjusted, Precision, totalDebt)
}

// SeizureAmounts computes the collateral quantities for a liquidation that
// covers debtToCover of quote-currency debt at the given raw feed price.
// Returns the base seizure and the total including the liquidator bonus.
func SeizureAmounts(debtToCover, feedPrice *big.Int) (base, total *big.Int) {
	base = TokenAmountFromQuote(debtToCover, feedPrice)
	bonus := MulDiv(base, big.NewInt(LiquidationBonus), big.NewInt(LiquidationPrecision))
	total = new(big.Int).Add(base, bonus)
	return base, total
}
