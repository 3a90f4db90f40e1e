// Package service defines the interfaces that connect the reconciliation
// core to its collaborators.
package service

import (
	"context"
	"time"

	"github.com/petrel-io/ledgermatch/internal/model"
)

// TransactionFilter defines filtering options for bank transaction queries.
// Nil pointer fields are not applied.
type TransactionFilter struct {
	From       *time.Time
	To         *time.Time
	Reconciled *bool
	CompanyID  string
	AccountID  string
	Limit      int
}

// EntryFilter defines filtering options for accounting entry queries.
type EntryFilter struct {
	From        *time.Time
	To          *time.Time
	Reconciled  *bool
	CompanyID   string
	AccountCode string
	Limit       int
}

// SummaryScope bounds a reconciliation summary computation.
type SummaryScope struct {
	From      *time.Time
	To        *time.Time
	CompanyID string
	AccountID string
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Bank transaction operations
	SaveBankTransaction(ctx context.Context, txn *model.BankTransaction) (string, error)
	GetBankTransaction(ctx context.Context, id string) (*model.BankTransaction, error)
	FindBankTransaction(ctx context.Context, accountID string, date time.Time, amount float64, description string) (*model.BankTransaction, error)
	ListBankTransactions(ctx context.Context, filter TransactionFilter) ([]model.BankTransaction, error)
	SetTransactionReconciled(ctx context.Context, id string, reconciled bool) error

	// Accounting entry operations
	SaveAccountingEntry(ctx context.Context, entry *model.AccountingEntry) (string, error)
	GetAccountingEntry(ctx context.Context, id string) (*model.AccountingEntry, error)
	GetEntryByBankTransaction(ctx context.Context, bankTransactionID string) (*model.AccountingEntry, error)
	ListAccountingEntries(ctx context.Context, filter EntryFilter) ([]model.AccountingEntry, error)
	SetEntryReconciled(ctx context.Context, id string, reconciled bool, bankTransactionID string) error

	// Reconciliation rule operations
	CreateRule(ctx context.Context, rule *model.ReconciliationRule) error
	GetRule(ctx context.Context, id string) (*model.ReconciliationRule, error)
	ListRules(ctx context.Context, companyID string, activeOnly bool) ([]model.ReconciliationRule, error)
	UpdateRule(ctx context.Context, rule *model.ReconciliationRule) error
	DeleteRule(ctx context.Context, id string) error

	// Audit log operations
	AppendLog(ctx context.Context, entry *model.ReconciliationLogEntry) error
	ListLog(ctx context.Context, bankTransactionID string) ([]model.ReconciliationLogEntry, error)

	// Reporting
	GetReconciliationSummary(ctx context.Context, scope SummaryScope) (*model.ReconciliationSummary, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is a storage transaction covering the operations that must be applied
// atomically during validate/cancel.
type Tx interface {
	Commit() error
	Rollback() error

	GetBankTransaction(ctx context.Context, id string) (*model.BankTransaction, error)
	GetAccountingEntry(ctx context.Context, id string) (*model.AccountingEntry, error)
	GetEntryByBankTransaction(ctx context.Context, bankTransactionID string) (*model.AccountingEntry, error)
	SetTransactionReconciled(ctx context.Context, id string, reconciled bool) error
	SetEntryReconciled(ctx context.Context, id string, reconciled bool, bankTransactionID string) error
	AppendLog(ctx context.Context, entry *model.ReconciliationLogEntry) error
}

// TransactionFetcher retrieves bank transactions from an external feed.
type TransactionFetcher interface {
	FetchTransactions(ctx context.Context, accountID string, from, to time.Time) ([]model.BankTransaction, error)
	ListAccounts(ctx context.Context) ([]string, error)
}

// RetryOptions configures retry behavior for external calls.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
