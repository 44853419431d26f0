package ledger_test

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"SynthLedger/internal/ledger"

	"github.com/google/uuid"
)

// ============================================================================
// Test: Registry
// ============================================================================

func TestRegistry_LookupRoundTrip(t *testing.T) {
	r := ledger.NewRegistry([]string{"WETH", "WBTC"})

	id, ok := r.Lookup("WETH")
	if !ok {
		t.Fatal("WETH should be registered")
	}
	sym, ok := r.Symbol(id)
	if !ok || sym != "WETH" {
		t.Errorf("Symbol(%d): got %q, want WETH", id, sym)
	}
}

func TestRegistry_UnknownAsset(t *testing.T) {
	r := ledger.NewRegistry([]string{"WETH"})

	if _, ok := r.Lookup("DOGE"); ok {
		t.Error("DOGE should not be registered")
	}
	if _, ok := r.Symbol(ledger.AssetID(99)); ok {
		t.Error("AssetID 99 should not resolve")
	}
	if _, ok := r.Symbol(ledger.AssetID(0)); ok {
		t.Error("zero AssetID should never be valid")
	}
}

func TestRegistry_Empty(t *testing.T) {
	r := ledger.NewRegistry(nil)
	if r.Len() != 0 {
		t.Errorf("empty registry length: got %d", r.Len())
	}
	if got := r.Assets(); len(got) != 0 {
		t.Errorf("empty registry assets: got %v", got)
	}
}

// ============================================================================
// Test: CollateralLedger
// ============================================================================

func TestCollateralLedger_InitialBalanceZero(t *testing.T) {
	l := ledger.NewCollateralLedger()
	if bal := l.Balance(uuid.New(), 1); bal.Sign() != 0 {
		t.Errorf("initial balance should be zero, got %s", bal)
	}
}

func TestCollateralLedger_CreditDebit(t *testing.T) {
	l := ledger.NewCollateralLedger()
	account := uuid.New()

	l.Credit(account, 1, big.NewInt(1000))
	if err := l.Debit(account, 1, big.NewInt(400)); err != nil {
		t.Fatalf("debit: %v", err)
	}

	if bal := l.Balance(account, 1); bal.Cmp(big.NewInt(600)) != 0 {
		t.Errorf("balance: got %s, want 600", bal)
	}
}

func TestCollateralLedger_DebitUnderflow(t *testing.T) {
	l := ledger.NewCollateralLedger()
	account := uuid.New()
	l.Credit(account, 1, big.NewInt(100))

	err := l.Debit(account, 1, big.NewInt(101))
	if !errors.Is(err, ledger.ErrInsufficientCollateral) {
		t.Fatalf("got %v, want ErrInsufficientCollateral", err)
	}

	// Failed debit must not change the balance.
	if bal := l.Balance(account, 1); bal.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("balance after failed debit: got %s, want 100", bal)
	}
}

func TestCollateralLedger_DebitUnknownAccount(t *testing.T) {
	l := ledger.NewCollateralLedger()
	err := l.Debit(uuid.New(), 1, big.NewInt(1))
	if !errors.Is(err, ledger.ErrInsufficientCollateral) {
		t.Fatalf("got %v, want ErrInsufficientCollateral", err)
	}
}

func TestCollateralLedger_TotalHeld(t *testing.T) {
	l := ledger.NewCollateralLedger()
	a, b := uuid.New(), uuid.New()

	l.Credit(a, 1, big.NewInt(70))
	l.Credit(b, 1, big.NewInt(30))
	l.Credit(b, 2, big.NewInt(999)) // different asset, excluded

	if total := l.TotalHeld(1); total.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("total held: got %s, want 100", total)
	}
}

func TestCollateralLedger_AccountBalancesOmitsZero(t *testing.T) {
	l := ledger.NewCollateralLedger()
	account := uuid.New()

	l.Credit(account, 1, big.NewInt(50))
	l.Credit(account, 2, big.NewInt(10))
	if err := l.Debit(account, 2, big.NewInt(10)); err != nil {
		t.Fatalf("debit: %v", err)
	}

	balances := l.AccountBalances(account)
	if len(balances) != 1 {
		t.Fatalf("got %d balances, want 1", len(balances))
	}
	if balances[1].Cmp(big.NewInt(50)) != 0 {
		t.Errorf("asset 1 balance: got %s, want 50", balances[1])
	}
}

func TestCollateralLedger_BalanceReturnsCopy(t *testing.T) {
	l := ledger.NewCollateralLedger()
	account := uuid.New()
	l.Credit(account, 1, big.NewInt(100))

	bal := l.Balance(account, 1)
	bal.SetInt64(0)

	if again := l.Balance(account, 1); again.Cmp(big.NewInt(100)) != 0 {
		t.Error("Balance exposed internal state")
	}
}

// ============================================================================
// Test: DebtLedger
// ============================================================================

func TestDebtLedger_CreditDebit(t *testing.T) {
	l := ledger.NewDebtLedger()
	account := uuid.New()

	l.Credit(account, big.NewInt(500))
	if err := l.Debit(account, big.NewInt(200)); err != nil {
		t.Fatalf("debit: %v", err)
	}

	if bal := l.Balance(account); bal.Cmp(big.NewInt(300)) != 0 {
		t.Errorf("debt: got %s, want 300", bal)
	}
}

func TestDebtLedger_DebitUnderflow(t *testing.T) {
	l := ledger.NewDebtLedger()
	account := uuid.New()
	l.Credit(account, big.NewInt(10))

	err := l.Debit(account, big.NewInt(11))
	if !errors.Is(err, ledger.ErrInsufficientDebt) {
		t.Fatalf("got %v, want ErrInsufficientDebt", err)
	}
}

func TestDebtLedger_TotalSupply(t *testing.T) {
	l := ledger.NewDebtLedger()
	l.Credit(uuid.New(), big.NewInt(100))
	l.Credit(uuid.New(), big.NewInt(250))

	if total := l.TotalSupply(); total.Cmp(big.NewInt(350)) != 0 {
		t.Errorf("total supply: got %s, want 350", total)
	}
}

// ============================================================================
// Test: Batch validation
// ============================================================================

func TestBatch_Validate(t *testing.T) {
	opID := uuid.New()
	account := uuid.New()

	valid := ledger.Journal{
		JournalID:     uuid.New(),
		OperationID:   opID,
		DebitAccount:  ledger.UserCollateralPath(account, "WETH"),
		CreditAccount: ledger.ExternalPath("WETH"),
		Asset:         "WETH",
		Amount:        big.NewInt(100),
		Type:          ledger.EntryTypeDeposit,
		Timestamp:     time.Now(),
	}

	tests := []struct {
		name    string
		mutate  func(*ledger.Journal)
		wantErr bool
	}{
		{"valid", func(j *ledger.Journal) {}, false},
		{"zero amount", func(j *ledger.Journal) { j.Amount = big.NewInt(0) }, true},
		{"nil amount", func(j *ledger.Journal) { j.Amount = nil }, true},
		{"mismatched op", func(j *ledger.Journal) { j.OperationID = uuid.New() }, true},
		{"self transfer", func(j *ledger.Journal) { j.CreditAccount = j.DebitAccount }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := valid
			tt.mutate(&j)
			batch := &ledger.Batch{OperationID: opID, Journals: []ledger.Journal{j}}
			err := batch.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBatch_ValidateEmpty(t *testing.T) {
	batch := &ledger.Batch{OperationID: uuid.New()}
	if err := batch.Validate(); err == nil {
		t.Error("empty batch should be invalid")
	}
}
