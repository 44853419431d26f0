package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"SynthLedger/internal/fixedpoint"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/oracle"

	"github.com/google/uuid"
)

// Params exposes the protocol constants for the query surface.
type Params struct {
	LiquidationThreshold int64
	LiquidationPrecision int64
	LiquidationBonus     int64
	MinHealthFactor      *big.Int
	Precision            *big.Int
	StalenessTimeout     time.Duration
}

func (e *Engine) Params() Params {
	return Params{
		LiquidationThreshold: fixedpoint.LiquidationThreshold,
		LiquidationPrecision: fixedpoint.LiquidationPrecision,
		LiquidationBonus:     fixedpoint.LiquidationBonus,
		MinHealthFactor:      new(big.Int).Set(fixedpoint.MinHealthFactor),
		Precision:            new(big.Int).Set(fixedpoint.Precision),
		StalenessTimeout:     oracle.StalenessTimeout,
	}
}

// Assets lists the approved collateral assets.
func (e *Engine) Assets() []ledger.Asset {
	return e.registry.Assets()
}

// CollateralBalance reports the user's internal collateral balance for one
// asset. Unknown users and assets read as zero.
func (e *Engine) CollateralBalance(user uuid.UUID, asset string) *big.Int {
	assetID, ok := e.registry.Lookup(asset)
	if !ok {
		return new(big.Int)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.collateral.Balance(user, assetID)
}

// DebtBalance reports the user's outstanding debt. Unknown users read as
// zero.
func (e *Engine) DebtBalance(user uuid.UUID) *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.debt.Balance(user)
}

// AccountCollateral returns the user's non-zero collateral balances keyed
// by symbol.
func (e *Engine) AccountCollateral(user uuid.UUID) map[string]*big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]*big.Int)
	for assetID, amount := range e.collateral.AccountBalances(user) {
		sym, _ := e.registry.Symbol(assetID)
		out[sym] = amount
	}
	return out
}

// CollateralValue prices the user's entire collateral portfolio in
// 1e18-scaled quote units. Fails only if a price feed is stale or
// unavailable.
func (e *Engine) CollateralValue(ctx context.Context, user uuid.UUID) (*big.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.collateralValueLocked(ctx, user)
}

// HealthFactor computes the user's current health factor. Zero-debt
// accounts report the maximum representable value.
func (e *Engine) HealthFactor(ctx context.Context, user uuid.UUID) (*big.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.healthFactorLocked(ctx, user)
}

// QuoteValue prices an amount of one asset at the current feed price.
func (e *Engine) QuoteValue(ctx context.Context, asset string, amount *big.Int) (*big.Int, error) {
	assetID, ok := e.registry.Lookup(asset)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAssetNotRegistered, asset)
	}

	price, err := e.feeds[assetID].FreshPrice(ctx)
	if err != nil {
		return nil, err
	}
	return fixedpoint.QuoteValue(amount, price), nil
}

// TokenAmountFromQuote converts a 1e18-scaled quote value into asset units
// at the current feed price.
func (e *Engine) TokenAmountFromQuote(ctx context.Context, asset string, quote *big.Int) (*big.Int, error) {
	assetID, ok := e.registry.Lookup(asset)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAssetNotRegistered, asset)
	}

	price, err := e.feeds[assetID].FreshPrice(ctx)
	if err != nil {
		return nil, err
	}
	return fixedpoint.TokenAmountFromQuote(quote, price), nil
}

// AuditSolvency verifies the global over-collateralization invariant: the
// total debt supply must not exceed the liquidation-threshold-adjusted
// value of all collateral held. Returns the two sides of the comparison.
func (e *Engine) AuditSolvency(ctx context.Context) (totalDebt, adjustedCollateral *big.Int, err error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	total := new(big.Int)
	for _, asset := range e.registry.Assets() {
		held := e.collateral.TotalHeld(asset.ID)
		if held.Sign() == 0 {
			continue
		}
		price, ferr := e.feeds[asset.ID].FreshPrice(ctx)
		if ferr != nil {
			return nil, nil, fmt.Errorf("price %s: %w", asset.Symbol, ferr)
		}
		total.Add(total, fixedpoint.QuoteValue(held, price))
	}

	adjusted := fixedpoint.MulDiv(total,
		big.NewInt(fixedpoint.LiquidationThreshold),
		big.NewInt(fixedpoint.LiquidationPrecision))

	return e.debt.TotalSupply(), adjusted, nil
}

// collateralValueLocked sums the priced value of every collateral position
// the user holds. Callers hold e.mu (read or write).
func (e *Engine) collateralValueLocked(ctx context.Context, user uuid.UUID) (*big.Int, error) {
	total := new(big.Int)
	for assetID, amount := range e.collateral.AccountBalances(user) {
		price, err := e.feeds[assetID].FreshPrice(ctx)
		if err != nil {
			sym, _ := e.registry.Symbol(assetID)
			return nil, fmt.Errorf("price %s: %w", sym, err)
		}
		total.Add(total, fixedpoint.QuoteValue(amount, price))
	}
	return total, nil
}

func (e *Engine) healthFactorLocked(ctx context.Context, user uuid.UUID) (*big.Int, error) {
	value, err := e.collateralValueLocked(ctx, user)
	if err != nil {
		return nil, err
	}
	return fixedpoint.CalculateHealthFactor(e.debt.Balance(user), value), nil
}

// assertHealthyLocked recomputes the user's health factor against the
// post-mutation ledger state and fails the operation if it fell below the
// minimum. Callers hold e.mu for writing.
func (e *Engine) assertHealthyLocked(ctx context.Context, user uuid.UUID) error {
	hf, err := e.healthFactorLocked(ctx, user)
	if err != nil {
		return err
	}
	if hf.Cmp(fixedpoint.MinHealthFactor) < 0 {
		return &HealthFactorBrokenError{Ratio: hf}
	}
	return nil
}
