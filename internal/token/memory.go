package token

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"
)

// Bank is an in-memory transferable-balance ledger implementing both the
// Collateral and Debt capabilities. It backs tests and dev-mode wiring of
// the engine; production deployments substitute adapters to real assets.
type Bank struct {
	mu        sync.Mutex
	symbol    string
	authority uuid.UUID // engine account; holder of Transfer/Burn rights
	balances  map[uuid.UUID]*big.Int
	supply    *big.Int
}

// NewBank creates a bank whose Transfer and Burn operations act on the
// authority's holdings.
func NewBank(symbol string, authority uuid.UUID) *Bank {
	return &Bank{
		symbol:    symbol,
		authority: authority,
		balances:  make(map[uuid.UUID]*big.Int),
		supply:    new(big.Int),
	}
}

// Issue credits an account out of thin air. Test/dev seeding only; it is
// not part of either capability surface.
func (b *Bank) Issue(to uuid.UUID, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(to, amount)
	b.supply.Add(b.supply, amount)
}

// BalanceOf reports an account's holdings.
func (b *Bank) BalanceOf(account uuid.UUID) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bal, ok := b.balances[account]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// TotalSupply reports the outstanding token supply.
func (b *Bank) TotalSupply() *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.supply)
}

// Transfer moves amount from the authority's holdings.
func (b *Bank) Transfer(to uuid.UUID, amount *big.Int) error {
	return b.TransferFrom(b.authority, to, amount)
}

// TransferFrom moves amount between two accounts, refusing on insufficient
// balance.
func (b *Bank) TransferFrom(from, to uuid.UUID, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.balances[from]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s from %s", ErrTransferRefused, b.symbol, from)
	}
	bal.Sub(bal, amount)
	b.credit(to, amount)
	return nil
}

// Mint creates tokens for an account. Only callable while the bank has a
// designated authority; the engine is the sole caller in practice.
func (b *Bank) Mint(to uuid.UUID, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(to, amount)
	b.supply.Add(b.supply, amount)
	return nil
}

// Burn destroys tokens held by the authority.
func (b *Bank) Burn(amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.balances[b.authority]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: burn %s exceeds authority holdings", ErrTransferRefused, b.symbol)
	}
	bal.Sub(bal, amount)
	b.supply.Sub(b.supply, amount)
	return nil
}

func (b *Bank) credit(to uuid.UUID, amount *big.Int) {
	bal, ok := b.balances[to]
	if !ok {
		bal = new(big.Int)
		b.balances[to] = bal
	}
	bal.Add(bal, amount)
}
