package model

import "time"

// ImportReport summarizes one import batch.
type ImportReport struct {
	Transactions []BankTransaction `json:"transactions"`
	Errors       []string          `json:"errors,omitempty"`
	Imported     int               `json:"imported_count"`
	Skipped      int               `json:"skipped_count"`
	ErrorCount   int               `json:"error_count"`
}

// ReconciliationSummary is a computed aggregate over a scope. It is never
// persisted. Rate is a percentage of bank transactions matched, 0 when the
// scope holds no bank transactions at all.
type ReconciliationSummary struct {
	TotalBankTransactions  int     `json:"total_bank_transactions"`
	TotalAccountingEntries int     `json:"total_accounting_entries"`
	Matched                int     `json:"matched_count"`
	UnmatchedBank          int     `json:"unmatched_bank_count"`
	UnmatchedAccounting    int     `json:"unmatched_accounting_count"`
	Rate                   float64 `json:"reconciliation_rate"`
	AmountMatched          float64 `json:"amount_matched"`
	AmountUnmatched        float64 `json:"amount_unmatched"`
}

// ReconciliationAction tags recorded in the audit log.
const (
	LogValidated = "validated"
	LogCancelled = "cancelled"
)

// ReconciliationLogEntry is one row of the append-only audit log.
type ReconciliationLogEntry struct {
	Timestamp         time.Time `json:"timestamp"`
	ID                string    `json:"id"`
	BankTransactionID string    `json:"bank_transaction_id"`
	AccountingEntryID string    `json:"accounting_entry_id,omitempty"`
	Action            string    `json:"action"`
	UserID            string    `json:"user_id,omitempty"`
}
