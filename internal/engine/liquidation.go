package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"SynthLedger/internal/fixedpoint"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/persistence"

	"github.com/google/uuid"
)

// LiquidationEngine executes third-party liquidations of unhealthy
// accounts. Split from Engine only to keep the operation surface
// navigable; it shares the engine's lock and ledgers.
type LiquidationEngine struct {
	engine *Engine
}

func NewLiquidationEngine(e *Engine) *LiquidationEngine {
	return &LiquidationEngine{engine: e}
}

// Liquidate lets caller repay debtToCover of target's debt in exchange
// for the equivalent collateral value plus a 10% bonus, seized from
// target's position in the given asset.
//
// The transition: target's debt shrinks by debtToCover, target's
// collateral shrinks by the seizure, the seized collateral transfers to
// caller, and debtToCover of debt tokens are pulled from caller and
// burned. It commits only if target was unhealthy before and strictly
// healthier after, and caller remains healthy.
func (l *LiquidationEngine) Liquidate(
	ctx context.Context,
	caller, target uuid.UUID,
	asset string,
	debtToCover *big.Int,
) error {
	const op = "liquidate"
	e := l.engine
	start := e.now()

	assetID, err := e.validateAssetAmount(op, asset, debtToCover)
	if err != nil {
		l.rejected(err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	startingHF, err := e.healthFactorLocked(ctx, target)
	if err != nil {
		l.rejected(err)
		return e.reject(op, err)
	}
	if startingHF.Cmp(fixedpoint.MinHealthFactor) >= 0 {
		err := fmt.Errorf("%w: %s", ErrHealthFactorNotBroken, startingHF)
		l.rejected(err)
		return e.reject(op, err)
	}

	price, err := e.feeds[assetID].FreshPrice(ctx)
	if err != nil {
		l.rejected(err)
		return e.reject(op, err)
	}
	baseSeizure, totalSeizure := fixedpoint.SeizureAmounts(debtToCover, price)

	// Ledger mutation: seize collateral, then retire debt.
	if err := e.collateral.Debit(target, assetID, totalSeizure); err != nil {
		l.rejected(err)
		return e.reject(op, err)
	}
	if err := e.debt.Debit(target, debtToCover); err != nil {
		e.collateral.Credit(target, assetID, totalSeizure)
		l.rejected(err)
		return e.reject(op, err)
	}

	undoLedger := func() {
		e.debt.Credit(target, debtToCover)
		e.collateral.Credit(target, assetID, totalSeizure)
	}

	// The liquidation must strictly improve the target's solvency.
	endingHF, err := e.healthFactorLocked(ctx, target)
	if err != nil {
		undoLedger()
		l.rejected(err)
		return e.reject(op, err)
	}
	if endingHF.Cmp(startingHF) <= 0 {
		undoLedger()
		err := fmt.Errorf("%w: %s -> %s", ErrHealthFactorNotImproved, startingHF, endingHF)
		l.rejected(err)
		return e.reject(op, err)
	}

	// The caller must not leave their own position broken.
	if err := e.assertHealthyLocked(ctx, caller); err != nil {
		undoLedger()
		l.rejected(err)
		return e.reject(op, err)
	}

	// External leg: pay out the seized collateral, then pull and burn the
	// covered debt from the caller.
	if err := e.tokens[assetID].Transfer(caller, totalSeizure); err != nil {
		undoLedger()
		err := fmt.Errorf("%w: %v", ErrTransferFailed, err)
		l.rejected(err)
		return e.reject(op, err)
	}

	if err := l.pullAndBurn(caller, debtToCover); err != nil {
		// Claw back the paid-out collateral before reverting the ledger.
		if terr := e.tokens[assetID].TransferFrom(caller, e.account, totalSeizure); terr != nil {
			e.log.Error().Err(terr).
				Str("asset", asset).
				Str("caller", caller.String()).
				Msg("liquidation compensation transfer failed")
		}
		undoLedger()
		l.rejected(err)
		return e.reject(op, err)
	}

	opID := uuid.New()
	e.commit(op, start, persistence.Record{
		OpID:         opID,
		OpType:       op,
		Account:      target,
		Counterparty: caller,
		Timestamp:    start,
		Journals:     l.journals(opID, caller, target, asset, totalSeizure, debtToCover, start),
	})

	if e.metrics != nil {
		e.metrics.LiquidationsExecuted.Inc()
	}

	e.log.Info().
		Str("caller", caller.String()).
		Str("target", target.String()).
		Str("asset", asset).
		Str("debt_covered", debtToCover.String()).
		Str("base_seizure", baseSeizure.String()).
		Str("total_seizure", totalSeizure.String()).
		Str("hf_before", startingHF.String()).
		Str("hf_after", endingHF.String()).
		Msg("liquidation executed")

	return nil
}

// pullAndBurn collects debtToCover of debt tokens from the caller and
// destroys them, returning them to the caller if the burn refuses.
func (l *LiquidationEngine) pullAndBurn(caller uuid.UUID, amount *big.Int) error {
	e := l.engine

	if err := e.debtToken.TransferFrom(caller, e.account, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if err := e.debtToken.Burn(amount); err != nil {
		if terr := e.debtToken.TransferFrom(e.account, caller, amount); terr != nil {
			e.log.Error().Err(terr).Msg("liquidation burn compensation failed")
		}
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}

func (l *LiquidationEngine) journals(
	opID uuid.UUID,
	caller, target uuid.UUID,
	asset string,
	totalSeizure, debtCovered *big.Int,
	ts time.Time,
) []ledger.Journal {
	e := l.engine
	return []ledger.Journal{
		e.journal(opID, ledger.ExternalPath(asset), ledger.UserCollateralPath(target, asset),
			asset, totalSeizure, ledger.EntryTypeLiquidationSeize, ts),
		e.journal(opID, ledger.DebtSupplyPath(), ledger.UserDebtPath(target),
			"", debtCovered, ledger.EntryTypeLiquidationRepay, ts),
	}
}

func (l *LiquidationEngine) rejected(err error) {
	e := l.engine
	if e.metrics != nil {
		e.metrics.LiquidationsRejected.WithLabelValues(classifyRejection(err)).Inc()
	}
}
