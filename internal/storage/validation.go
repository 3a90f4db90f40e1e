package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/petrel-io/ledgermatch/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
	ErrInvalidTransaction = errors.New("invalid bank transaction")
	ErrInvalidEntry       = errors.New("invalid accounting entry")
	ErrInvalidRule        = errors.New("invalid reconciliation rule")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransaction validates a bank transaction before persistence.
func validateTransaction(txn *model.BankTransaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.AccountID == "" {
		return fmt.Errorf("%w: missing account id", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	return nil
}

// validateEntry validates an accounting entry before persistence.
func validateEntry(entry *model.AccountingEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if entry.CompanyID == "" {
		return fmt.Errorf("%w: missing company id", ErrInvalidEntry)
	}
	if entry.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidEntry)
	}
	if entry.Debit < 0 || entry.Credit < 0 {
		return fmt.Errorf("%w: debit and credit must be non-negative", ErrInvalidEntry)
	}
	return nil
}

// validateRule validates a reconciliation rule before persistence.
func validateRule(rule *model.ReconciliationRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if rule.CompanyID == "" {
		return fmt.Errorf("%w: missing company id", ErrInvalidRule)
	}
	if rule.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRule)
	}
	return nil
}
