package persistence

import (
	"context"
	"math/big"
	"testing"
	"time"

	"SynthLedger/internal/ledger"
	"SynthLedger/internal/testutil"

	"github.com/google/uuid"
)

func testRecord(opType string, counterparty uuid.UUID) Record {
	opID := uuid.New()
	user := uuid.New()
	ts := time.Now()

	amount, _ := new(big.Int).SetString("20000000000000000000000", 10)

	return Record{
		OpID:         opID,
		OpType:       opType,
		Account:      user,
		Counterparty: counterparty,
		Timestamp:    ts,
		Journals: []ledger.Journal{
			{
				JournalID:     uuid.New(),
				OperationID:   opID,
				DebitAccount:  ledger.UserCollateralPath(user, "WETH"),
				CreditAccount: ledger.ExternalPath("WETH"),
				Asset:         "WETH",
				Amount:        amount,
				Type:          ledger.EntryTypeDeposit,
				Timestamp:     ts,
			},
		},
	}
}

func TestRowsFromRecord(t *testing.T) {
	rec := testRecord("deposit_collateral", uuid.Nil)

	op, journals := RowsFromRecord(rec)

	if op.OpID != rec.OpID.String() {
		t.Errorf("op_id = %s", op.OpID)
	}
	if op.OpType != "deposit_collateral" {
		t.Errorf("op_type = %s", op.OpType)
	}
	if op.Counterparty != nil {
		t.Errorf("counterparty = %v, want nil", *op.Counterparty)
	}
	if op.Timestamp != rec.Timestamp.UnixMicro() {
		t.Errorf("timestamp = %d", op.Timestamp)
	}

	if len(journals) != 1 {
		t.Fatalf("journal count = %d", len(journals))
	}
	j := journals[0]
	if j.OpID != rec.OpID.String() {
		t.Errorf("journal op_id = %s", j.OpID)
	}
	// Amounts above int64 range round-trip as decimal strings.
	if j.Amount != "20000000000000000000000" {
		t.Errorf("amount = %s", j.Amount)
	}
	if j.EntryType != "deposit" {
		t.Errorf("entry_type = %s", j.EntryType)
	}
}

func TestRowsFromRecordWithCounterparty(t *testing.T) {
	caller := uuid.New()
	rec := testRecord("liquidate", caller)

	op, _ := RowsFromRecord(rec)
	if op.Counterparty == nil || *op.Counterparty != caller.String() {
		t.Errorf("counterparty = %v, want %s", op.Counterparty, caller)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := NewMigrator(db, "../../migrations").Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	writer := NewLedgerLogWriter(db)
	rec := testRecord("deposit_collateral", uuid.Nil)
	op, journals := RowsFromRecord(rec)

	write := func() {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		if err := writer.WriteOperationBatch(ctx, []OperationRow{op}, tx); err != nil {
			t.Fatalf("write operations: %v", err)
		}
		if err := writer.WriteJournalBatch(ctx, journals, tx); err != nil {
			t.Fatalf("write journals: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}

	// Writing the same batch twice must be idempotent.
	write()
	write()

	var opCount, journalCount int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_log.operations WHERE op_id = $1`, op.OpID,
	).Scan(&opCount); err != nil {
		t.Fatalf("count operations: %v", err)
	}
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_log.journal WHERE op_id = $1`, op.OpID,
	).Scan(&journalCount); err != nil {
		t.Fatalf("count journals: %v", err)
	}

	if opCount != 1 {
		t.Errorf("operation rows = %d, want 1", opCount)
	}
	if journalCount != 1 {
		t.Errorf("journal rows = %d, want 1", journalCount)
	}

	// The NUMERIC column returns the exact amount.
	var amount string
	if err := db.QueryRowContext(ctx,
		`SELECT amount FROM ledger_log.journal WHERE op_id = $1`, op.OpID,
	).Scan(&amount); err != nil {
		t.Fatalf("read amount: %v", err)
	}
	if amount != "20000000000000000000000" {
		t.Errorf("stored amount = %s", amount)
	}
}

func TestWorkerFlushesOnClose(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := NewMigrator(db, "../../migrations").Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ch := make(chan Record, 16)
	worker := NewWorker(db, ch, 100, time.Second, nil)

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	rec := testRecord("mint_debt", uuid.Nil)
	ch <- rec
	close(ch)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("worker: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit after channel close")
	}

	var count int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_log.operations WHERE op_id = $1`, rec.OpID.String(),
	).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("operation rows = %d, want 1", count)
	}
}
