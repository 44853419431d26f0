// Package query serves read-only views of the engine state and the
// persisted operation log.
package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"SynthLedger/internal/engine"

	"github.com/google/uuid"
)

// ErrHistoryUnavailable is returned when the operation log store is not
// configured (engine running without Postgres).
var ErrHistoryUnavailable = errors.New("query: operation history not available")

// Service answers account and protocol queries. Live balances and
// valuations come straight from the engine; operation history reads from
// the Postgres ledger log.
type Service struct {
	engine *engine.Engine
	db     *sql.DB // nil when history is disabled
}

func NewService(eng *engine.Engine, db *sql.DB) *Service {
	return &Service{engine: eng, db: db}
}

// AccountSummary is the full read-side view of one account. Amounts are
// 1e18 fixed-point decimal strings.
type AccountSummary struct {
	Account         string            `json:"account"`
	Collateral      map[string]string `json:"collateral"`
	Debt            string            `json:"debt"`
	CollateralValue string            `json:"collateral_value"`
	HealthFactor    string            `json:"health_factor"`
}

// Account builds the summary for one user. Fails only when a price feed
// is stale or unavailable.
func (s *Service) Account(ctx context.Context, user uuid.UUID) (*AccountSummary, error) {
	value, err := s.engine.CollateralValue(ctx, user)
	if err != nil {
		return nil, err
	}
	hf, err := s.engine.HealthFactor(ctx, user)
	if err != nil {
		return nil, err
	}

	collateral := make(map[string]string)
	for sym, amount := range s.engine.AccountCollateral(user) {
		collateral[sym] = amount.String()
	}

	return &AccountSummary{
		Account:         user.String(),
		Collateral:      collateral,
		Debt:            s.engine.DebtBalance(user).String(),
		CollateralValue: value.String(),
		HealthFactor:    hf.String(),
	}, nil
}

// HealthFactor returns just the user's health factor.
func (s *Service) HealthFactor(ctx context.Context, user uuid.UUID) (*big.Int, error) {
	return s.engine.HealthFactor(ctx, user)
}

// ParamsView mirrors the protocol constants in JSON-friendly form.
type ParamsView struct {
	LiquidationThreshold int64  `json:"liquidation_threshold"`
	LiquidationPrecision int64  `json:"liquidation_precision"`
	LiquidationBonus     int64  `json:"liquidation_bonus"`
	MinHealthFactor      string `json:"min_health_factor"`
	Precision            string `json:"precision"`
	StalenessTimeoutSecs int64  `json:"staleness_timeout_secs"`
}

func (s *Service) Params() ParamsView {
	p := s.engine.Params()
	return ParamsView{
		LiquidationThreshold: p.LiquidationThreshold,
		LiquidationPrecision: p.LiquidationPrecision,
		LiquidationBonus:     p.LiquidationBonus,
		MinHealthFactor:      p.MinHealthFactor.String(),
		Precision:            p.Precision.String(),
		StalenessTimeoutSecs: int64(p.StalenessTimeout.Seconds()),
	}
}

// Assets lists the approved collateral symbols.
func (s *Service) Assets() []string {
	assets := s.engine.Assets()
	symbols := make([]string, 0, len(assets))
	for _, a := range assets {
		symbols = append(symbols, a.Symbol)
	}
	return symbols
}

// SolvencyView reports the system-wide over-collateralization check.
type SolvencyView struct {
	TotalDebt          string `json:"total_debt"`
	AdjustedCollateral string `json:"adjusted_collateral"`
	Solvent            bool   `json:"solvent"`
}

func (s *Service) Solvency(ctx context.Context) (*SolvencyView, error) {
	debt, adjusted, err := s.engine.AuditSolvency(ctx)
	if err != nil {
		return nil, err
	}
	return &SolvencyView{
		TotalDebt:          debt.String(),
		AdjustedCollateral: adjusted.String(),
		Solvent:            debt.Cmp(adjusted) <= 0,
	}, nil
}

// OperationView is one row of the persisted operation log.
type OperationView struct {
	OpID         string `json:"op_id"`
	OpType       string `json:"op_type"`
	Account      string `json:"account"`
	Counterparty string `json:"counterparty,omitempty"`
	TimestampUs  int64  `json:"timestamp_us"`
}

// OperationHistory pages through a user's committed operations, newest
// first. beforeUs bounds the page for cursor-style pagination; zero means
// no bound.
func (s *Service) OperationHistory(
	ctx context.Context,
	user uuid.UUID,
	limit int,
	beforeUs int64,
) ([]OperationView, error) {
	if s.db == nil {
		return nil, ErrHistoryUnavailable
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	q := `
		SELECT op_id, op_type, account, counterparty, timestamp_us
		FROM ledger_log.operations
		WHERE (account = $1 OR counterparty = $1)
	`
	args := []interface{}{user}
	argIdx := 2

	if beforeUs > 0 {
		q += fmt.Sprintf(" AND timestamp_us < $%d", argIdx)
		args = append(args, beforeUs)
		argIdx++
	}

	q += " ORDER BY timestamp_us DESC"
	q += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []OperationView
	for rows.Next() {
		var v OperationView
		var counterparty sql.NullString
		if err := rows.Scan(&v.OpID, &v.OpType, &v.Account, &counterparty, &v.TimestampUs); err != nil {
			return nil, err
		}
		if counterparty.Valid {
			v.Counterparty = counterparty.String
		}
		ops = append(ops, v)
	}

	return ops, rows.Err()
}

// JournalView is one double-entry row of the persisted journal.
type JournalView struct {
	JournalID     string `json:"journal_id"`
	OpID          string `json:"op_id"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	Asset         string `json:"asset,omitempty"`
	Amount        string `json:"amount"`
	EntryType     string `json:"entry_type"`
	TimestampUs   int64  `json:"timestamp_us"`
}

// OperationJournals returns the balanced journal batch of one operation.
func (s *Service) OperationJournals(ctx context.Context, opID uuid.UUID) ([]JournalView, error) {
	if s.db == nil {
		return nil, ErrHistoryUnavailable
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT journal_id, op_id, debit_account, credit_account, asset, amount, entry_type, timestamp_us
		FROM ledger_log.journal
		WHERE op_id = $1
		ORDER BY journal_id
	`, opID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var journals []JournalView
	for rows.Next() {
		var v JournalView
		if err := rows.Scan(
			&v.JournalID, &v.OpID, &v.DebitAccount, &v.CreditAccount,
			&v.Asset, &v.Amount, &v.EntryType, &v.TimestampUs,
		); err != nil {
			return nil, err
		}
		journals = append(journals, v)
	}

	return journals, rows.Err()
}
