package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/petrel-io/ledgermatch/internal/common"
	"github.com/petrel-io/ledgermatch/internal/model"
	"github.com/petrel-io/ledgermatch/internal/service"
)

const accountingEntryColumns = `id, company_id, account_code, entry_date, amount, debit, credit,
	description, reference, journal_entry_id, bank_transaction_id, is_reconciled, created_at, updated_at`

// SaveAccountingEntry inserts an accounting entry and returns its id.
// Entries are normally created by journal posting outside the core; this
// exists for feeds and tests.
func (s *SQLiteStorage) SaveAccountingEntry(ctx context.Context, entry *model.AccountingEntry) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateEntry(entry); err != nil {
		return "", err
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Amount == 0 {
		entry.Amount = entry.Debit - entry.Credit
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounting_entries (
			id, company_id, account_code, entry_date, amount, debit, credit,
			description, reference, journal_entry_id, bank_transaction_id, is_reconciled
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.CompanyID,
		nullString(entry.AccountCode),
		entry.Date,
		entry.Amount,
		entry.Debit,
		entry.Credit,
		entry.Description,
		nullString(entry.Reference),
		nullString(entry.JournalEntryID),
		nullString(entry.BankTransactionID),
		entry.Reconciled,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert accounting entry: %w", err)
	}

	return entry.ID, nil
}

// GetAccountingEntry retrieves an accounting entry by id.
func (s *SQLiteStorage) GetAccountingEntry(ctx context.Context, id string) (*model.AccountingEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getAccountingEntryTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getAccountingEntryTx(ctx context.Context, q execer, id string) (*model.AccountingEntry, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+accountingEntryColumns+`
		FROM accounting_entries WHERE id = ?`, id)

	entry, err := scanAccountingEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("accounting entry %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get accounting entry: %w", err)
	}
	return entry, nil
}

// GetEntryByBankTransaction retrieves the entry currently linked to a bank
// transaction, or ErrNotFound when no link exists.
func (s *SQLiteStorage) GetEntryByBankTransaction(ctx context.Context, bankTransactionID string) (*model.AccountingEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(bankTransactionID, "bankTransactionID"); err != nil {
		return nil, err
	}
	return s.getEntryByBankTransactionTx(ctx, s.db, bankTransactionID)
}

func (s *SQLiteStorage) getEntryByBankTransactionTx(ctx context.Context, q execer, bankTransactionID string) (*model.AccountingEntry, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+accountingEntryColumns+`
		FROM accounting_entries WHERE bank_transaction_id = ?
		LIMIT 1`, bankTransactionID)

	entry, err := scanAccountingEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get linked accounting entry: %w", err)
	}
	return entry, nil
}

// ListAccountingEntries retrieves accounting entries matching the filter,
// newest first.
func (s *SQLiteStorage) ListAccountingEntries(ctx context.Context, filter service.EntryFilter) ([]model.AccountingEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + accountingEntryColumns + ` FROM accounting_entries WHERE 1=1`
	var args []any

	if filter.CompanyID != "" {
		query += ` AND company_id = ?`
		args = append(args, filter.CompanyID)
	}
	if filter.AccountCode != "" {
		query += ` AND account_code = ?`
		args = append(args, filter.AccountCode)
	}
	if filter.Reconciled != nil {
		query += ` AND is_reconciled = ?`
		args = append(args, *filter.Reconciled)
	}
	if filter.From != nil {
		query += ` AND date(entry_date) >= ?`
		args = append(args, dateOnly(*filter.From))
	}
	if filter.To != nil {
		query += ` AND date(entry_date) <= ?`
		args = append(args, dateOnly(*filter.To))
	}
	query += ` ORDER BY entry_date DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounting entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.AccountingEntry
	for rows.Next() {
		entry, scanErr := scanAccountingEntry(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan accounting entry: %w", scanErr)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// SetEntryReconciled flips the reconciled flag on an accounting entry and
// sets or clears its bank transaction back-reference.
func (s *SQLiteStorage) SetEntryReconciled(ctx context.Context, id string, reconciled bool, bankTransactionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.setEntryReconciledTx(ctx, s.db, id, reconciled, bankTransactionID)
}

func (s *SQLiteStorage) setEntryReconciledTx(ctx context.Context, q execer, id string, reconciled bool, bankTransactionID string) error {
	result, err := q.ExecContext(ctx, `
		UPDATE accounting_entries
		SET is_reconciled = ?, bank_transaction_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, reconciled, nullString(bankTransactionID), id)
	if err != nil {
		return fmt.Errorf("failed to update accounting entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("accounting entry %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func scanAccountingEntry(row rowScanner) (*model.AccountingEntry, error) {
	var entry model.AccountingEntry
	var accountCode, reference, journalEntryID, bankTransactionID sql.NullString

	err := row.Scan(
		&entry.ID,
		&entry.CompanyID,
		&accountCode,
		&entry.Date,
		&entry.Amount,
		&entry.Debit,
		&entry.Credit,
		&entry.Description,
		&reference,
		&journalEntryID,
		&bankTransactionID,
		&entry.Reconciled,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.AccountCode = accountCode.String
	entry.Reference = reference.String
	entry.JournalEntryID = journalEntryID.String
	entry.BankTransactionID = bankTransactionID.String
	return &entry, nil
}
