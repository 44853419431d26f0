package ledger

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// EntryType represents the purpose of a journal entry.
type EntryType int32

const (
	EntryTypeDeposit EntryType = iota
	EntryTypeRedeem
	EntryTypeMint
	EntryTypeBurn
	EntryTypeLiquidationSeize
	EntryTypeLiquidationRepay
)

func (t EntryType) String() string {
	switch t {
	case EntryTypeDeposit:
		return "deposit"
	case EntryTypeRedeem:
		return "redeem"
	case EntryTypeMint:
		return "mint"
	case EntryTypeBurn:
		return "burn"
	case EntryTypeLiquidationSeize:
		return "liquidation_seize"
	case EntryTypeLiquidationRepay:
		return "liquidation_repay"
	default:
		return "unknown"
	}
}

// Account path helpers. Paths are the storage/logging representation of
// ledger positions, mirroring the structure of the in-memory ledgers.
func UserCollateralPath(account uuid.UUID, symbol string) string {
	return fmt.Sprintf("user:%s:collateral:%s", account, symbol)
}

func UserDebtPath(account uuid.UUID) string {
	return fmt.Sprintf("user:%s:debt", account)
}

func EngineCollateralPath(symbol string) string {
	return fmt.Sprintf("engine:collateral:%s", symbol)
}

func ExternalPath(symbol string) string {
	return fmt.Sprintf("external:%s", symbol)
}

func DebtSupplyPath() string {
	return "supply:debt"
}

// Journal is a single double-entry record. Amount is always positive and
// moves from the credit account to the debit account.
type Journal struct {
	JournalID     uuid.UUID
	OperationID   uuid.UUID
	DebitAccount  string
	CreditAccount string
	Asset         string
	Amount        *big.Int
	Type          EntryType
	Timestamp     time.Time
}

// Batch groups the journal entries of one atomic operation. A batch is
// written as a unit or not at all, matching the all-or-nothing semantics of
// the operation that produced it.
type Batch struct {
	OperationID uuid.UUID
	Journals    []Journal
}

// Validate ensures the batch is well-formed: non-empty, positive amounts,
// consistent operation ID, no self-transfers. Each entry is balanced by
// construction (one amount, one debit, one credit).
func (b *Batch) Validate() error {
	if len(b.Journals) == 0 {
		return fmt.Errorf("batch %s is empty", b.OperationID)
	}
	for _, j := range b.Journals {
		if j.Amount == nil || j.Amount.Sign() <= 0 {
			return fmt.Errorf("journal %s has non-positive amount", j.JournalID)
		}
		if j.OperationID != b.OperationID {
			return fmt.Errorf("journal %s has mismatched operation_id", j.JournalID)
		}
		if j.DebitAccount == j.CreditAccount {
			return fmt.Errorf("journal %s has same debit and credit account", j.JournalID)
		}
	}
	return nil
}
