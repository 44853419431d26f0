package ledger

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// CollateralLedger tracks per-account, per-asset deposited collateral.
// Mutation rights belong exclusively to the accounting engine; everything
// else reads through Balance/AccountBalances/TotalHeld.
//
// Accounts come into existence implicitly on first credit and are never
// destroyed; a fully withdrawn account simply reads as zero.
type CollateralLedger struct {
	balances map[uuid.UUID]map[AssetID]*big.Int
}

func NewCollateralLedger() *CollateralLedger {
	return &CollateralLedger{
		balances: make(map[uuid.UUID]map[AssetID]*big.Int),
	}
}

// Credit increases an account's balance in the given asset.
func (l *CollateralLedger) Credit(account uuid.UUID, asset AssetID, amount *big.Int) {
	held, ok := l.balances[account]
	if !ok {
		held = make(map[AssetID]*big.Int)
		l.balances[account] = held
	}
	bal, ok := held[asset]
	if !ok {
		bal = new(big.Int)
		held[asset] = bal
	}
	bal.Add(bal, amount)
}

// Debit decreases an account's balance in the given asset, failing with
// ErrInsufficientCollateral if the balance would underflow.
func (l *CollateralLedger) Debit(account uuid.UUID, asset AssetID, amount *big.Int) error {
	bal := l.balance(account, asset)
	if bal == nil || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: account %s asset %d", ErrInsufficientCollateral, account, asset)
	}
	bal.Sub(bal, amount)
	return nil
}

// Balance returns the account's balance in one asset. Never fails; absent
// entries read as zero.
func (l *CollateralLedger) Balance(account uuid.UUID, asset AssetID) *big.Int {
	if bal := l.balance(account, asset); bal != nil {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// AccountBalances returns all non-zero balances for an account.
func (l *CollateralLedger) AccountBalances(account uuid.UUID) map[AssetID]*big.Int {
	out := make(map[AssetID]*big.Int)
	for asset, bal := range l.balances[account] {
		if bal.Sign() != 0 {
			out[asset] = new(big.Int).Set(bal)
		}
	}
	return out
}

// TotalHeld sums every account's balance in one asset. By construction this
// equals the engine's actual holdings of the asset: every ledger mutation is
// paired 1:1 with an external transfer.
func (l *CollateralLedger) TotalHeld(asset AssetID) *big.Int {
	total := new(big.Int)
	for _, held := range l.balances {
		if bal, ok := held[asset]; ok {
			total.Add(total, bal)
		}
	}
	return total
}

func (l *CollateralLedger) balance(account uuid.UUID, asset AssetID) *big.Int {
	held, ok := l.balances[account]
	if !ok {
		return nil
	}
	return held[asset]
}
