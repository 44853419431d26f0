package fixedpoint_test

import (
	"math/big"
	"testing"

	"SynthLedger/internal/fixedpoint"
)

func wad(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), fixedpoint.Precision)
}

func feedPrice(usd int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(usd), fixedpoint.FeedPrecision)
}

func TestQuoteValue_FeedScaleNormalization(t *testing.T) {
	// 10 tokens at $2,000 (1e8 feed scale) → $20,000 at 1e18 scale.
	got := fixedpoint.QuoteValue(wad(10), feedPrice(2000))
	want := wad(20_000)
	if got.Cmp(want) != 0 {
		t.Errorf("QuoteValue: got %s, want %s", got, want)
	}
}

func TestQuoteValue_ZeroAmount(t *testing.T) {
	got := fixedpoint.QuoteValue(big.NewInt(0), feedPrice(2000))
	if got.Sign() != 0 {
		t.Errorf("zero amount should value to zero, got %s", got)
	}
}

func TestTokenAmountFromQuote_Inverse(t *testing.T) {
	// $100 at $2,000/token → 0.05 tokens.
	got := fixedpoint.TokenAmountFromQuote(wad(100), feedPrice(2000))
	want := new(big.Int).Quo(fixedpoint.Precision, big.NewInt(20))
	if got.Cmp(want) != 0 {
		t.Errorf("TokenAmountFromQuote: got %s, want %s", got, want)
	}
}

func TestQuoteValue_RoundTrip(t *testing.T) {
	// QuoteValue and TokenAmountFromQuote invert each other when the
	// amount divides evenly through the price.
	prices := []int64{1, 18, 2000, 45_000}
	amounts := []int64{1, 7, 100, 1_000_000}

	for _, p := range prices {
		for _, a := range amounts {
			amount := wad(a)
			value := fixedpoint.QuoteValue(amount, feedPrice(p))
			back := fixedpoint.TokenAmountFromQuote(value, feedPrice(p))
			if back.Cmp(amount) != 0 {
				t.Errorf("round-trip price=%d amount=%d: got %s, want %s", p, a, back, amount)
			}
		}
	}
}

func TestMulDiv_DoesNotMutateInputs(t *testing.T) {
	a := big.NewInt(7)
	b := big.NewInt(11)
	den := big.NewInt(3)
	fixedpoint.MulDiv(a, b, den)
	if a.Int64() != 7 || b.Int64() != 11 || den.Int64() != 3 {
		t.Error("MulDiv mutated its inputs")
	}
}

func TestCalculateHealthFactor_ZeroDebtSaturates(t *testing.T) {
	got := fixedpoint.CalculateHealthFactor(big.NewInt(0), wad(1_000_000))
	if got.Cmp(fixedpoint.MaxHealthFactor) != 0 {
		t.Errorf("zero debt: got %s, want MaxHealthFactor", got)
	}

	// Saturation is independent of collateral, including zero.
	got = fixedpoint.CalculateHealthFactor(big.NewInt(0), big.NewInt(0))
	if got.Cmp(fixedpoint.MaxHealthFactor) != 0 {
		t.Errorf("zero debt, zero collateral: got %s, want MaxHealthFactor", got)
	}
}

func TestCalculateHealthFactor_ExactRatio(t *testing.T) {
	// $20,000 collateral, $100 debt → (20000 * 0.5) / 100 = 100.0.
	got := fixedpoint.CalculateHealthFactor(wad(100), wad(20_000))
	want := wad(100)
	if got.Cmp(want) != 0 {
		t.Errorf("health factor: got %s, want %s", got, want)
	}
}

func TestCalculateHealthFactor_BoundaryAtTwoTimesCollateral(t *testing.T) {
	// Exactly 200% collateralization is exactly 1.0.
	got := fixedpoint.CalculateHealthFactor(wad(10_000), wad(20_000))
	if got.Cmp(fixedpoint.MinHealthFactor) != 0 {
		t.Errorf("200%% collateralization: got %s, want %s", got, fixedpoint.MinHealthFactor)
	}

	// One unit of extra debt drops it below 1.0.
	debt := new(big.Int).Add(wad(10_000), big.NewInt(1))
	got = fixedpoint.CalculateHealthFactor(debt, wad(20_000))
	if got.Cmp(fixedpoint.MinHealthFactor) >= 0 {
		t.Errorf("over-borrowed account should be below MinHealthFactor, got %s", got)
	}
}

func TestCalculateHealthFactor_Monotonicity(t *testing.T) {
	debt := wad(100)

	// Non-decreasing in collateral value.
	prev := fixedpoint.CalculateHealthFactor(debt, wad(100))
	for _, c := range []int64{150, 200, 1_000, 50_000} {
		hf := fixedpoint.CalculateHealthFactor(debt, wad(c))
		if hf.Cmp(prev) < 0 {
			t.Errorf("health factor decreased as collateral grew to %d", c)
		}
		prev = hf
	}

	// Non-increasing in debt.
	collateral := wad(20_000)
	prev = fixedpoint.CalculateHealthFactor(wad(1), collateral)
	for _, d := range []int64{10, 100, 5_000, 100_000} {
		hf := fixedpoint.CalculateHealthFactor(wad(d), collateral)
		if hf.Cmp(prev) > 0 {
			t.Errorf("health factor increased as debt grew to %d", d)
		}
		prev = hf
	}
}

func TestSeizureAmounts_TenPercentBonus(t *testing.T) {
	// $100 of debt at $2,000/token → 0.05 base + 0.005 bonus = 0.055 tokens.
	base, total := fixedpoint.SeizureAmounts(wad(100), feedPrice(2000))

	wantBase := new(big.Int).Quo(fixedpoint.Precision, big.NewInt(20))
	if base.Cmp(wantBase) != 0 {
		t.Errorf("base seizure: got %s, want %s", base, wantBase)
	}

	wantTotal := new(big.Int).Mul(wantBase, big.NewInt(11))
	wantTotal.Quo(wantTotal, big.NewInt(10))
	if total.Cmp(wantTotal) != 0 {
		t.Errorf("total seizure: got %s, want %s", total, wantTotal)
	}
}
