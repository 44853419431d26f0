package engine

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"SynthLedger/internal/ledger"
	"SynthLedger/internal/oracle"

	"github.com/google/uuid"
)

// liquidationFixture sets up a position that a price drop pushes
// underwater: 100 WETH deposited at $20 with $950 of debt. At $18 the
// position's health factor is 900/950 and the account is liquidatable.
type liquidationFixture struct {
	*fixture
	liq        *LiquidationEngine
	target     uuid.UUID
	liquidator uuid.UUID
}

func newLiquidationFixture(t *testing.T) *liquidationFixture {
	t.Helper()

	f := newFixture(t)
	ctx := context.Background()

	lf := &liquidationFixture{
		fixture:    f,
		liq:        NewLiquidationEngine(f.engine),
		target:     uuid.New(),
		liquidator: uuid.New(),
	}

	f.wethFeed.Set(usd8(20), time.Now())
	f.fund(lf.target, wad(100))
	if err := f.engine.DepositAndMint(ctx, lf.target, "WETH", wad(100), wad(950)); err != nil {
		t.Fatalf("seed target position: %v", err)
	}

	// The liquidator holds debt tokens acquired elsewhere.
	f.debt.Issue(lf.liquidator, wad(100))

	return lf
}

func (lf *liquidationFixture) crashPrice(t *testing.T, usd int64) {
	t.Helper()
	lf.wethFeed.Set(usd8(usd), time.Now())
}

func TestLiquidateHealthyTargetRejected(t *testing.T) {
	lf := newLiquidationFixture(t)
	ctx := context.Background()

	err := lf.liq.Liquidate(ctx, lf.liquidator, lf.target, "WETH", wad(100))
	if !errors.Is(err, ErrHealthFactorNotBroken) {
		t.Fatalf("got %v, want ErrHealthFactorNotBroken", err)
	}
}

func TestLiquidate(t *testing.T) {
	lf := newLiquidationFixture(t)
	ctx := context.Background()
	lf.crashPrice(t, 18)

	hfBefore, err := lf.engine.HealthFactor(ctx, lf.target)
	if err != nil {
		t.Fatalf("HealthFactor: %v", err)
	}

	if err := lf.liq.Liquidate(ctx, lf.liquidator, lf.target, "WETH", wad(100)); err != nil {
		t.Fatalf("Liquidate: %v", err)
	}

	// Covering $100 at $18/unit seizes 100/18 units plus the 10% bonus.
	baseSeizure, _ := new(big.Int).SetString("5555555555555555555", 10)
	totalSeizure, _ := new(big.Int).SetString("6111111111111111110", 10)

	if got := lf.weth.BalanceOf(lf.liquidator); got.Cmp(totalSeizure) != 0 {
		t.Errorf("liquidator received %s WETH, want %s (base %s + 10%%)", got, totalSeizure, baseSeizure)
	}
	wantCollateral := new(big.Int).Sub(wad(100), totalSeizure)
	if got := lf.engine.CollateralBalance(lf.target, "WETH"); got.Cmp(wantCollateral) != 0 {
		t.Errorf("target collateral = %s, want %s", got, wantCollateral)
	}
	if got := lf.engine.DebtBalance(lf.target); got.Cmp(wad(850)) != 0 {
		t.Errorf("target debt = %s, want %s", got, wad(850))
	}
	if got := lf.debt.BalanceOf(lf.liquidator); got.Sign() != 0 {
		t.Errorf("liquidator still holds %s debt tokens", got)
	}
	if got := lf.debt.TotalSupply(); got.Cmp(wad(950)) != 0 {
		t.Errorf("debt supply = %s, want %s", got, wad(950))
	}

	hfAfter, err := lf.engine.HealthFactor(ctx, lf.target)
	if err != nil {
		t.Fatalf("HealthFactor: %v", err)
	}
	if hfAfter.Cmp(hfBefore) <= 0 {
		t.Errorf("health factor did not improve: %s -> %s", hfBefore, hfAfter)
	}
}

func TestLiquidateValidation(t *testing.T) {
	lf := newLiquidationFixture(t)
	ctx := context.Background()
	lf.crashPrice(t, 18)

	tests := []struct {
		name    string
		asset   string
		amount  *big.Int
		wantErr error
	}{
		{"zero cover", "WETH", big.NewInt(0), ledger.ErrAmountZero},
		{"nil cover", "WETH", nil, ledger.ErrAmountZero},
		{"unknown asset", "DOGE", wad(100), ledger.ErrAssetNotRegistered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := lf.liq.Liquidate(ctx, lf.liquidator, lf.target, tt.asset, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLiquidateCoverExceedingDebt(t *testing.T) {
	lf := newLiquidationFixture(t)
	ctx := context.Background()
	lf.crashPrice(t, 18)

	lf.debt.Issue(lf.liquidator, wad(900)) // holds 1000 total

	err := lf.liq.Liquidate(ctx, lf.liquidator, lf.target, "WETH", wad(1000))
	if !errors.Is(err, ledger.ErrInsufficientDebt) {
		t.Fatalf("got %v, want ErrInsufficientDebt", err)
	}

	// The collateral seizure must have been rolled back with it.
	if got := lf.engine.CollateralBalance(lf.target, "WETH"); got.Cmp(wad(100)) != 0 {
		t.Errorf("target collateral = %s after rejected liquidation, want %s", got, wad(100))
	}
	if got := lf.engine.DebtBalance(lf.target); got.Cmp(wad(950)) != 0 {
		t.Errorf("target debt = %s after rejected liquidation, want %s", got, wad(950))
	}
}

func TestLiquidateInsolventLiquidatorClawback(t *testing.T) {
	lf := newLiquidationFixture(t)
	ctx := context.Background()
	lf.crashPrice(t, 18)

	broke := uuid.New() // holds no debt tokens

	err := lf.liq.Liquidate(ctx, broke, lf.target, "WETH", wad(100))
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("got %v, want ErrTransferFailed", err)
	}

	// The collateral paid out before the failed pull came back.
	if got := lf.weth.BalanceOf(broke); got.Sign() != 0 {
		t.Errorf("failed liquidator kept %s WETH", got)
	}
	if got := lf.weth.BalanceOf(lf.engineAcct); got.Cmp(wad(100)) != 0 {
		t.Errorf("engine holds %s WETH, want %s", got, wad(100))
	}
	if got := lf.engine.CollateralBalance(lf.target, "WETH"); got.Cmp(wad(100)) != 0 {
		t.Errorf("target collateral = %s, want %s", got, wad(100))
	}
	if got := lf.engine.DebtBalance(lf.target); got.Cmp(wad(950)) != 0 {
		t.Errorf("target debt = %s, want %s", got, wad(950))
	}
}

func TestLiquidateRequiresImprovement(t *testing.T) {
	lf := newLiquidationFixture(t)
	ctx := context.Background()

	// At $9 the collateral is worth less than 110% of the debt, so seizing
	// value plus bonus makes the position strictly worse.
	lf.crashPrice(t, 9)

	err := lf.liq.Liquidate(ctx, lf.liquidator, lf.target, "WETH", wad(100))
	if !errors.Is(err, ErrHealthFactorNotImproved) {
		t.Fatalf("got %v, want ErrHealthFactorNotImproved", err)
	}

	if got := lf.engine.CollateralBalance(lf.target, "WETH"); got.Cmp(wad(100)) != 0 {
		t.Errorf("target collateral = %s after rejected liquidation, want %s", got, wad(100))
	}
	if got := lf.engine.DebtBalance(lf.target); got.Cmp(wad(950)) != 0 {
		t.Errorf("target debt = %s after rejected liquidation, want %s", got, wad(950))
	}
}

func TestLiquidateRejectsBrokenCaller(t *testing.T) {
	lf := newLiquidationFixture(t)
	ctx := context.Background()

	// The liquidator opens an identical position at $20; the crash to $18
	// breaks both accounts.
	lf.fund(lf.liquidator, wad(100))
	if err := lf.engine.DepositAndMint(ctx, lf.liquidator, "WETH", wad(100), wad(950)); err != nil {
		t.Fatalf("seed liquidator position: %v", err)
	}
	lf.crashPrice(t, 18)

	err := lf.liq.Liquidate(ctx, lf.liquidator, lf.target, "WETH", wad(100))
	if !errors.Is(err, ErrHealthFactorBroken) {
		t.Fatalf("got %v, want ErrHealthFactorBroken", err)
	}

	if got := lf.engine.DebtBalance(lf.target); got.Cmp(wad(950)) != 0 {
		t.Errorf("target debt = %s after rejected liquidation, want %s", got, wad(950))
	}
}

func TestLiquidateStaleOracle(t *testing.T) {
	lf := newLiquidationFixture(t)
	ctx := context.Background()

	lf.wethFeed.Set(usd8(18), time.Now().Add(-oracle.StalenessTimeout-time.Minute))

	err := lf.liq.Liquidate(ctx, lf.liquidator, lf.target, "WETH", wad(100))
	if !errors.Is(err, oracle.ErrStalePrice) {
		t.Fatalf("got %v, want ErrStalePrice", err)
	}
}
