package storage

import (
	"context"
	"fmt"

	"github.com/petrel-io/ledgermatch/internal/model"
	"github.com/petrel-io/ledgermatch/internal/service"
)

// GetReconciliationSummary computes aggregate reconciliation figures for a
// scope directly in SQL. The summary is never persisted.
func (s *SQLiteStorage) GetReconciliationSummary(ctx context.Context, scope service.SummaryScope) (*model.ReconciliationSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	txnWhere := " WHERE 1=1"
	txnArgs := []any{}
	if scope.CompanyID != "" {
		txnWhere += " AND company_id = ?"
		txnArgs = append(txnArgs, scope.CompanyID)
	}
	if scope.AccountID != "" {
		txnWhere += " AND bank_account_id = ?"
		txnArgs = append(txnArgs, scope.AccountID)
	}
	if scope.From != nil {
		txnWhere += " AND date(transaction_date) >= ?"
		txnArgs = append(txnArgs, dateOnly(*scope.From))
	}
	if scope.To != nil {
		txnWhere += " AND date(transaction_date) <= ?"
		txnArgs = append(txnArgs, dateOnly(*scope.To))
	}

	summary := &model.ReconciliationSummary{}

	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(is_reconciled), 0),
			COALESCE(SUM(CASE WHEN is_reconciled = 1 THEN ABS(amount) ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_reconciled = 0 THEN ABS(amount) ELSE 0 END), 0)
		FROM bank_transactions`+txnWhere, txnArgs...)

	var unmatchedBankAmount float64
	if err := row.Scan(
		&summary.TotalBankTransactions,
		&summary.Matched,
		&summary.AmountMatched,
		&unmatchedBankAmount,
	); err != nil {
		return nil, fmt.Errorf("failed to aggregate bank transactions: %w", err)
	}
	summary.UnmatchedBank = summary.TotalBankTransactions - summary.Matched

	entryWhere := " WHERE 1=1"
	entryArgs := []any{}
	if scope.CompanyID != "" {
		entryWhere += " AND company_id = ?"
		entryArgs = append(entryArgs, scope.CompanyID)
	}
	if scope.From != nil {
		entryWhere += " AND date(entry_date) >= ?"
		entryArgs = append(entryArgs, dateOnly(*scope.From))
	}
	if scope.To != nil {
		entryWhere += " AND date(entry_date) <= ?"
		entryArgs = append(entryArgs, dateOnly(*scope.To))
	}

	row = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN is_reconciled = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_reconciled = 0 THEN ABS(amount) ELSE 0 END), 0)
		FROM accounting_entries`+entryWhere, entryArgs...)

	var unmatchedEntryAmount float64
	if err := row.Scan(
		&summary.TotalAccountingEntries,
		&summary.UnmatchedAccounting,
		&unmatchedEntryAmount,
	); err != nil {
		return nil, fmt.Errorf("failed to aggregate accounting entries: %w", err)
	}

	// Unmatched exposure counts open amounts on both sides as absolute
	// values so credits and debits cannot cancel out.
	summary.AmountUnmatched = unmatchedBankAmount + unmatchedEntryAmount

	if summary.TotalBankTransactions > 0 {
		summary.Rate = float64(summary.Matched) / float64(summary.TotalBankTransactions) * 100
	}

	return summary, nil
}
