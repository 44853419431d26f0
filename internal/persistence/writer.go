package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// LedgerLogWriter writes operation and journal rows to Postgres using
// multi-row INSERT with ON CONFLICT DO NOTHING, so replays after a crash
// are idempotent. Amounts are stored as NUMERIC (they exceed int64 at
// 1e18 precision) and bound as decimal strings.
type LedgerLogWriter struct {
	db *sql.DB
}

// OperationRow is a row in ledger_log.operations.
type OperationRow struct {
	OpID         string
	OpType       string
	Account      string
	Counterparty *string
	Timestamp    int64 // epoch microseconds
}

// JournalRow is a row in ledger_log.journal.
type JournalRow struct {
	JournalID     string
	OpID          string
	DebitAccount  string
	CreditAccount string
	Asset         string
	Amount        string // decimal string, bound to NUMERIC
	EntryType     string
	Timestamp     int64
}

func NewLedgerLogWriter(db *sql.DB) *LedgerLogWriter {
	return &LedgerLogWriter{db: db}
}

// RowsFromRecord flattens a Record into its storage rows.
func RowsFromRecord(rec Record) (OperationRow, []JournalRow) {
	op := OperationRow{
		OpID:      rec.OpID.String(),
		OpType:    rec.OpType,
		Account:   rec.Account.String(),
		Timestamp: rec.Timestamp.UnixMicro(),
	}
	if rec.Counterparty != uuid.Nil {
		cp := rec.Counterparty.String()
		op.Counterparty = &cp
	}

	journals := make([]JournalRow, 0, len(rec.Journals))
	for _, j := range rec.Journals {
		journals = append(journals, JournalRow{
			JournalID:     j.JournalID.String(),
			OpID:          j.OperationID.String(),
			DebitAccount:  j.DebitAccount,
			CreditAccount: j.CreditAccount,
			Asset:         j.Asset,
			Amount:        j.Amount.String(),
			EntryType:     j.Type.String(),
			Timestamp:     j.Timestamp.UnixMicro(),
		})
	}
	return op, journals
}

// WriteOperationBatch writes operation rows inside tx.
func (w *LedgerLogWriter) WriteOperationBatch(ctx context.Context, ops []OperationRow, tx *sql.Tx) error {
	if len(ops) == 0 {
		return nil
	}

	query := `INSERT INTO ledger_log.operations
		(op_id, op_type, account, counterparty, timestamp_us)
		VALUES `

	values := make([]string, 0, len(ops))
	args := make([]interface{}, 0, len(ops)*5)

	for i, o := range ops {
		base := i * 5
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5,
		))
		args = append(args, o.OpID, o.OpType, o.Account, o.Counterparty, o.Timestamp)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (op_id) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// WriteJournalBatch writes journal rows inside tx.
func (w *LedgerLogWriter) WriteJournalBatch(ctx context.Context, journals []JournalRow, tx *sql.Tx) error {
	if len(journals) == 0 {
		return nil
	}

	query := `INSERT INTO ledger_log.journal
		(journal_id, op_id, debit_account, credit_account, asset, amount, entry_type, timestamp_us)
		VALUES `

	values := make([]string, 0, len(journals))
	args := make([]interface{}, 0, len(journals)*8)

	for i, j := range journals {
		base := i * 8
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		args = append(args,
			j.JournalID, j.OpID, j.DebitAccount, j.CreditAccount,
			j.Asset, j.Amount, j.EntryType, j.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (journal_id) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
