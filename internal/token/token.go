// Package token defines the external asset capabilities the engine depends
// on: a transferable collateral asset and the mintable/burnable debt token.
// The engine never inspects balances through these interfaces; it only moves
// value and reacts to refusals.
package token

import (
	"errors"
	"math/big"

	"github.com/google/uuid"
)

// ErrTransferRefused is returned when a token movement is refused by the
// capability (insufficient balance, frozen account, etc.).
var ErrTransferRefused = errors.New("token: transfer refused")

// ErrNotAuthority is returned when a mint or burn is attempted by a holder
// other than the token's designated authority.
var ErrNotAuthority = errors.New("token: caller is not the mint/burn authority")

// Collateral is the transferable-balance capability of a collateral asset.
type Collateral interface {
	// Transfer moves amount from the engine's holdings to another account.
	Transfer(to uuid.UUID, amount *big.Int) error

	// TransferFrom moves amount between two arbitrary accounts.
	TransferFrom(from, to uuid.UUID, amount *big.Int) error
}

// Debt is the debt-token capability. The engine must be the exclusive
// mint/burn authority.
type Debt interface {
	// Mint creates amount of debt tokens for an account.
	Mint(to uuid.UUID, amount *big.Int) error

	// Burn destroys amount of debt tokens held by the engine.
	Burn(amount *big.Int) error

	// TransferFrom moves amount between two arbitrary accounts.
	TransferFrom(from, to uuid.UUID, amount *big.Int) error
}
