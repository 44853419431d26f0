// Package engine implements the collateral/debt accounting core: atomic
// deposit/redeem/mint/burn transitions, health-factor enforcement, and the
// liquidation protocol.
package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"SynthLedger/internal/ledger"
	"SynthLedger/internal/observability"
	"SynthLedger/internal/oracle"
	"SynthLedger/internal/persistence"
	"SynthLedger/internal/token"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine owns the collateral and debt ledgers and is the only component
// allowed to mutate them. All state-changing operations are serialized
// under one lock held across external capability calls, so no operation
// can observe another's partial effects — including reentrant call-backs
// from the token capabilities.
type Engine struct {
	mu sync.RWMutex

	// account is the engine's own identity with the token capabilities:
	// collateral is pulled into it on deposit and debt tokens are pulled
	// into it before burning.
	account uuid.UUID

	registry   *ledger.Registry
	collateral *ledger.CollateralLedger
	debt       *ledger.DebtLedger

	feeds  map[ledger.AssetID]*oracle.StalenessGuard
	tokens map[ledger.AssetID]token.Collateral

	debtToken token.Debt

	persistChan chan<- persistence.Record
	metrics     *observability.Metrics
	log         zerolog.Logger
	now         func() time.Time
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithPersistChannel attaches the operation-log channel. Sends are
// blocking: if the persistence worker stalls, operations stall with it.
func WithPersistChannel(ch chan<- persistence.Record) Option {
	return func(e *Engine) { e.persistChan = ch }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithEngineAccount fixes the engine's identity with the token
// capabilities instead of generating one.
func WithEngineAccount(account uuid.UUID) Option {
	return func(e *Engine) { e.account = account }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds the engine from parallel configuration lists: one symbol, one
// price feed, and one token capability per approved collateral asset. The
// lists must have equal lengths, else initialization fails with
// ErrFeedLengthMismatch. The resulting asset registry is immutable.
func New(
	symbols []string,
	feeds []oracle.PriceFeed,
	tokens []token.Collateral,
	debtToken token.Debt,
	opts ...Option,
) (*Engine, error) {
	if len(symbols) != len(feeds) || len(symbols) != len(tokens) {
		return nil, fmt.Errorf("%w: %d symbols, %d feeds, %d tokens",
			ledger.ErrFeedLengthMismatch, len(symbols), len(feeds), len(tokens))
	}

	e := &Engine{
		account:    uuid.New(),
		registry:   ledger.NewRegistry(symbols),
		collateral: ledger.NewCollateralLedger(),
		debt:       ledger.NewDebtLedger(),
		feeds:      make(map[ledger.AssetID]*oracle.StalenessGuard, len(symbols)),
		tokens:     make(map[ledger.AssetID]token.Collateral, len(symbols)),
		debtToken:  debtToken,
		log:        zerolog.Nop(),
		now:        time.Now,
	}

	for i, sym := range symbols {
		id, _ := e.registry.Lookup(sym)
		e.feeds[id] = oracle.NewStalenessGuard(feeds[i])
		e.tokens[id] = tokens[i]
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// EngineAccount returns the engine's identity with the token capabilities.
func (e *Engine) EngineAccount() uuid.UUID {
	return e.account
}

// DepositCollateral credits the user's collateral and pulls the asset into
// the engine. Depositing only improves health, so no post-check runs.
func (e *Engine) DepositCollateral(ctx context.Context, user uuid.UUID, asset string, amount *big.Int) error {
	const op = "deposit_collateral"
	start := e.now()

	assetID, err := e.validateAssetAmount(op, asset, amount)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.collateral.Credit(user, assetID, amount)

	if err := e.tokens[assetID].TransferFrom(user, e.account, amount); err != nil {
		// Roll back the credit: the operation leaves no trace.
		if derr := e.collateral.Debit(user, assetID, amount); derr != nil {
			e.log.Error().Err(derr).Msg("rollback debit failed")
		}
		return e.reject(op, fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}

	opID := uuid.New()
	e.commit(op, start, persistence.Record{
		OpID:      opID,
		OpType:    op,
		Account:   user,
		Timestamp: start,
		Journals: []ledger.Journal{
			e.journal(opID, ledger.UserCollateralPath(user, asset), ledger.ExternalPath(asset),
				asset, amount, ledger.EntryTypeDeposit, start),
		},
	})
	return nil
}

// MintDebt credits the user's debt and mints the debt token. The mint is
// reverted if it would break the user's health factor or if the token
// capability refuses.
func (e *Engine) MintDebt(ctx context.Context, user uuid.UUID, amount *big.Int) error {
	const op = "mint_debt"
	start := e.now()

	if amount == nil || amount.Sign() <= 0 {
		return e.reject(op, ledger.ErrAmountZero)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.debt.Credit(user, amount)

	if err := e.assertHealthyLocked(ctx, user); err != nil {
		e.mustDebit(e.debt.Debit(user, amount))
		return e.reject(op, err)
	}

	if err := e.debtToken.Mint(user, amount); err != nil {
		e.mustDebit(e.debt.Debit(user, amount))
		return e.reject(op, fmt.Errorf("%w: %v", ErrMintFailed, err))
	}

	opID := uuid.New()
	e.commit(op, start, persistence.Record{
		OpID:      opID,
		OpType:    op,
		Account:   user,
		Timestamp: start,
		Journals: []ledger.Journal{
			e.journal(opID, ledger.UserDebtPath(user), ledger.DebtSupplyPath(),
				"", amount, ledger.EntryTypeMint, start),
		},
	})
	return nil
}

// RedeemCollateral debits the user's collateral and transfers the asset
// back out, provided the account stays healthy afterwards.
func (e *Engine) RedeemCollateral(ctx context.Context, user uuid.UUID, asset string, amount *big.Int) error {
	const op = "redeem_collateral"
	start := e.now()

	assetID, err := e.validateAssetAmount(op, asset, amount)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	journals, err := e.redeemLocked(ctx, op, user, user, assetID, asset, amount, start)
	if err != nil {
		return err
	}

	e.commit(op, start, persistence.Record{
		OpID:      journals[0].OperationID,
		OpType:    op,
		Account:   user,
		Timestamp: start,
		Journals:  journals,
	})
	return nil
}

// BurnDebt debits the user's debt, pulls the debt tokens from the user,
// and destroys them. Burning only improves health; the health factor is
// still re-checked defensively (and a stale oracle aborts the burn like
// every other valuation-dependent call).
func (e *Engine) BurnDebt(ctx context.Context, user uuid.UUID, amount *big.Int) error {
	const op = "burn_debt"
	start := e.now()

	if amount == nil || amount.Sign() <= 0 {
		return e.reject(op, ledger.ErrAmountZero)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	journals, err := e.burnLocked(ctx, op, user, user, amount, start)
	if err != nil {
		return err
	}

	e.commit(op, start, persistence.Record{
		OpID:      journals[0].OperationID,
		OpType:    op,
		Account:   user,
		Timestamp: start,
		Journals:  journals,
	})
	return nil
}

// DepositAndMint deposits collateral and mints debt as one atomic
// transition. The deposit runs first so the mint's health check sees the
// new collateral; a failed mint unwinds the deposit, including the
// already-executed inbound transfer.
func (e *Engine) DepositAndMint(ctx context.Context, user uuid.UUID, asset string, collateralAmount, debtAmount *big.Int) error {
	const op = "deposit_and_mint"
	start := e.now()

	assetID, err := e.validateAssetAmount(op, asset, collateralAmount)
	if err != nil {
		return err
	}
	if debtAmount == nil || debtAmount.Sign() <= 0 {
		return e.reject(op, ledger.ErrAmountZero)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Deposit leg.
	e.collateral.Credit(user, assetID, collateralAmount)
	if err := e.tokens[assetID].TransferFrom(user, e.account, collateralAmount); err != nil {
		e.mustDebit(e.collateral.Debit(user, assetID, collateralAmount))
		return e.reject(op, fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}

	undoDeposit := func() {
		e.mustDebit(e.collateral.Debit(user, assetID, collateralAmount))
		if terr := e.tokens[assetID].Transfer(user, collateralAmount); terr != nil {
			e.log.Error().Err(terr).Str("asset", asset).Msg("deposit compensation transfer failed")
		}
	}

	// Mint leg.
	e.debt.Credit(user, debtAmount)
	if err := e.assertHealthyLocked(ctx, user); err != nil {
		e.mustDebit(e.debt.Debit(user, debtAmount))
		undoDeposit()
		return e.reject(op, err)
	}
	if err := e.debtToken.Mint(user, debtAmount); err != nil {
		e.mustDebit(e.debt.Debit(user, debtAmount))
		undoDeposit()
		return e.reject(op, fmt.Errorf("%w: %v", ErrMintFailed, err))
	}

	opID := uuid.New()
	e.commit(op, start, persistence.Record{
		OpID:      opID,
		OpType:    op,
		Account:   user,
		Timestamp: start,
		Journals: []ledger.Journal{
			e.journal(opID, ledger.UserCollateralPath(user, asset), ledger.ExternalPath(asset),
				asset, collateralAmount, ledger.EntryTypeDeposit, start),
			e.journal(opID, ledger.UserDebtPath(user), ledger.DebtSupplyPath(),
				"", debtAmount, ledger.EntryTypeMint, start),
		},
	})
	return nil
}

// RedeemAndBurn burns debt and redeems collateral as one atomic
// transition. The burn runs first so the redeem's health check sees the
// reduced debt; a failed redeem unwinds the burn by re-minting.
func (e *Engine) RedeemAndBurn(ctx context.Context, user uuid.UUID, asset string, collateralAmount, debtAmount *big.Int) error {
	const op = "redeem_and_burn"
	start := e.now()

	assetID, err := e.validateAssetAmount(op, asset, collateralAmount)
	if err != nil {
		return err
	}
	if debtAmount == nil || debtAmount.Sign() <= 0 {
		return e.reject(op, ledger.ErrAmountZero)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	burnJournals, err := e.burnLocked(ctx, op, user, user, debtAmount, start)
	if err != nil {
		return err
	}

	undoBurn := func() {
		e.debt.Credit(user, debtAmount)
		if merr := e.debtToken.Mint(user, debtAmount); merr != nil {
			e.log.Error().Err(merr).Msg("burn compensation mint failed")
		}
	}

	redeemJournals, err := e.redeemLocked(ctx, op, user, user, assetID, asset, collateralAmount, start)
	if err != nil {
		undoBurn()
		return err
	}

	opID := uuid.New()
	journals := make([]ledger.Journal, 0, len(burnJournals)+len(redeemJournals))
	for _, j := range append(burnJournals, redeemJournals...) {
		j.OperationID = opID
		journals = append(journals, j)
	}

	e.commit(op, start, persistence.Record{
		OpID:      opID,
		OpType:    op,
		Account:   user,
		Timestamp: start,
		Journals:  journals,
	})
	return nil
}

// redeemLocked performs the withdraw leg: ledger debit, post-state health
// check on from, then the outbound transfer to recipient. Any failure
// restores the debit. Callers hold e.mu.
func (e *Engine) redeemLocked(
	ctx context.Context,
	op string,
	from, recipient uuid.UUID,
	assetID ledger.AssetID,
	asset string,
	amount *big.Int,
	ts time.Time,
) ([]ledger.Journal, error) {
	if err := e.collateral.Debit(from, assetID, amount); err != nil {
		return nil, e.reject(op, err)
	}

	if err := e.assertHealthyLocked(ctx, from); err != nil {
		e.collateral.Credit(from, assetID, amount)
		return nil, e.reject(op, err)
	}

	if err := e.tokens[assetID].Transfer(recipient, amount); err != nil {
		e.collateral.Credit(from, assetID, amount)
		return nil, e.reject(op, fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}

	opID := uuid.New()
	return []ledger.Journal{
		e.journal(opID, ledger.ExternalPath(asset), ledger.UserCollateralPath(from, asset),
			asset, amount, ledger.EntryTypeRedeem, ts),
	}, nil
}

// burnLocked performs the burn leg: debt debit for onBehalfOf, a defensive
// health check, then pulling the tokens from payer and destroying them.
// Any failure restores the debit (and returns pulled tokens). Callers hold
// e.mu.
func (e *Engine) burnLocked(
	ctx context.Context,
	op string,
	onBehalfOf, payer uuid.UUID,
	amount *big.Int,
	ts time.Time,
) ([]ledger.Journal, error) {
	if err := e.debt.Debit(onBehalfOf, amount); err != nil {
		return nil, e.reject(op, err)
	}

	if err := e.assertHealthyLocked(ctx, onBehalfOf); err != nil {
		e.debt.Credit(onBehalfOf, amount)
		return nil, e.reject(op, err)
	}

	if err := e.debtToken.TransferFrom(payer, e.account, amount); err != nil {
		e.debt.Credit(onBehalfOf, amount)
		return nil, e.reject(op, fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}

	if err := e.debtToken.Burn(amount); err != nil {
		if terr := e.debtToken.TransferFrom(e.account, payer, amount); terr != nil {
			e.log.Error().Err(terr).Msg("burn compensation return failed")
		}
		e.debt.Credit(onBehalfOf, amount)
		return nil, e.reject(op, fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}

	opID := uuid.New()
	return []ledger.Journal{
		e.journal(opID, ledger.DebtSupplyPath(), ledger.UserDebtPath(onBehalfOf),
			"", amount, ledger.EntryTypeBurn, ts),
	}, nil
}

// --- shared helpers ---

func (e *Engine) validateAssetAmount(op, asset string, amount *big.Int) (ledger.AssetID, error) {
	if amount == nil || amount.Sign() <= 0 {
		return 0, e.reject(op, ledger.ErrAmountZero)
	}
	assetID, ok := e.registry.Lookup(asset)
	if !ok {
		return 0, e.reject(op, fmt.Errorf("%w: %s", ledger.ErrAssetNotRegistered, asset))
	}
	return assetID, nil
}

func (e *Engine) journal(
	opID uuid.UUID,
	debit, credit, asset string,
	amount *big.Int,
	entryType ledger.EntryType,
	ts time.Time,
) ledger.Journal {
	return ledger.Journal{
		JournalID:     uuid.New(),
		OperationID:   opID,
		DebitAccount:  debit,
		CreditAccount: credit,
		Asset:         asset,
		Amount:        new(big.Int).Set(amount),
		Type:          entryType,
		Timestamp:     ts,
	}
}

// mustDebit guards rollback debits that restore amounts just credited or
// debited in the same critical section; failure means the ledger is
// corrupted, which is unreachable while the engine is the sole writer.
func (e *Engine) mustDebit(err error) {
	if err != nil {
		panic(fmt.Sprintf("FATAL: rollback underflow: %v", err))
	}
}

func (e *Engine) commit(op string, start time.Time, rec persistence.Record) {
	batch := ledger.Batch{OperationID: rec.OpID, Journals: rec.Journals}
	if err := batch.Validate(); err != nil {
		panic(fmt.Sprintf("FATAL: unbalanced batch from %s: %v", op, err))
	}

	if e.persistChan != nil {
		e.persistChan <- rec
	}

	if e.metrics != nil {
		e.metrics.OpsApplied.WithLabelValues(op).Inc()
		e.metrics.OpDuration.WithLabelValues(op).Observe(e.now().Sub(start).Seconds())
	}

	e.log.Info().
		Str("op", op).
		Str("op_id", rec.OpID.String()).
		Str("account", rec.Account.String()).
		Msg("operation committed")
}

func (e *Engine) reject(op string, err error) error {
	reason := classifyRejection(err)

	if e.metrics != nil {
		e.metrics.OpsRejected.WithLabelValues(op, reason).Inc()
		if reason == "stale_price" {
			e.metrics.StalePriceAborts.Inc()
		}
	}

	e.log.Warn().
		Str("op", op).
		Str("reason", reason).
		Err(err).
		Msg("operation rejected")

	return err
}
