package ledger

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// DebtLedger tracks per-account minted debt, denominated in the quote
// currency at internal precision. Only the accounting engine mutates it.
type DebtLedger struct {
	balances map[uuid.UUID]*big.Int
}

func NewDebtLedger() *DebtLedger {
	return &DebtLedger{
		balances: make(map[uuid.UUID]*big.Int),
	}
}

// Credit increases an account's debt.
func (l *DebtLedger) Credit(account uuid.UUID, amount *big.Int) {
	bal, ok := l.balances[account]
	if !ok {
		bal = new(big.Int)
		l.balances[account] = bal
	}
	bal.Add(bal, amount)
}

// Debit decreases an account's debt, failing with ErrInsufficientDebt if
// the balance would underflow.
func (l *DebtLedger) Debit(account uuid.UUID, amount *big.Int) error {
	bal, ok := l.balances[account]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: account %s", ErrInsufficientDebt, account)
	}
	bal.Sub(bal, amount)
	return nil
}

// Balance returns the account's debt. Never fails; absent accounts read as zero.
func (l *DebtLedger) Balance(account uuid.UUID) *big.Int {
	if bal, ok := l.balances[account]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// TotalSupply sums all accounts' debt.
func (l *DebtLedger) TotalSupply() *big.Int {
	total := new(big.Int)
	for _, bal := range l.balances {
		total.Add(total, bal)
	}
	return total
}
