package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/petrel-io/ledgermatch/internal/common"
	"github.com/petrel-io/ledgermatch/internal/model"
	"github.com/petrel-io/ledgermatch/internal/service"
)

const bankTransactionColumns = `id, bank_account_id, company_id, transaction_date, value_date,
	amount, currency, description, reference, category, is_reconciled, import_source, raw_payload,
	created_at, updated_at`

// SaveBankTransaction inserts a bank transaction and returns its id. An id
// is assigned when the transaction does not carry one.
func (s *SQLiteStorage) SaveBankTransaction(ctx context.Context, txn *model.BankTransaction) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateTransaction(txn); err != nil {
		return "", err
	}

	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.Currency == "" {
		txn.Currency = "EUR"
	}
	if txn.Source == "" {
		txn.Source = model.SourceCSV
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bank_transactions (
			id, bank_account_id, company_id, transaction_date, value_date,
			amount, currency, description, reference, category, is_reconciled, import_source, raw_payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.AccountID,
		txn.CompanyID,
		txn.Date,
		txn.ValueDate,
		txn.Amount,
		txn.Currency,
		txn.Description,
		nullString(txn.Reference),
		nullString(txn.Category),
		txn.Reconciled,
		string(txn.Source),
		nullString(txn.RawPayload),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return "", fmt.Errorf("bank transaction already imported: %w", common.ErrDuplicateEntry)
		}
		return "", fmt.Errorf("failed to insert bank transaction: %w", err)
	}

	return txn.ID, nil
}

// GetBankTransaction retrieves a bank transaction by id.
func (s *SQLiteStorage) GetBankTransaction(ctx context.Context, id string) (*model.BankTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getBankTransactionTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getBankTransactionTx(ctx context.Context, q execer, id string) (*model.BankTransaction, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+bankTransactionColumns+`
		FROM bank_transactions WHERE id = ?`, id)

	txn, err := scanBankTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bank transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank transaction: %w", err)
	}
	return txn, nil
}

// FindBankTransaction looks for an existing row with the same account,
// calendar date, amount and description. Exact equality, not fuzzy: this
// is the importer's duplicate check.
func (s *SQLiteStorage) FindBankTransaction(ctx context.Context, accountID string, date time.Time, amount float64, description string) (*model.BankTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+bankTransactionColumns+`
		FROM bank_transactions
		WHERE bank_account_id = ? AND date(transaction_date) = ? AND amount = ? AND description = ?
		LIMIT 1`,
		accountID, dateOnly(date), amount, description)

	txn, err := scanBankTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find bank transaction: %w", err)
	}
	return txn, nil
}

// ListBankTransactions retrieves bank transactions matching the filter,
// newest first.
func (s *SQLiteStorage) ListBankTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.BankTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + bankTransactionColumns + ` FROM bank_transactions WHERE 1=1`
	var args []any

	if filter.CompanyID != "" {
		query += ` AND company_id = ?`
		args = append(args, filter.CompanyID)
	}
	if filter.AccountID != "" {
		query += ` AND bank_account_id = ?`
		args = append(args, filter.AccountID)
	}
	if filter.Reconciled != nil {
		query += ` AND is_reconciled = ?`
		args = append(args, *filter.Reconciled)
	}
	if filter.From != nil {
		query += ` AND date(transaction_date) >= ?`
		args = append(args, dateOnly(*filter.From))
	}
	if filter.To != nil {
		query += ` AND date(transaction_date) <= ?`
		args = append(args, dateOnly(*filter.To))
	}
	query += ` ORDER BY transaction_date DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bank transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.BankTransaction
	for rows.Next() {
		txn, scanErr := scanBankTransaction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan bank transaction: %w", scanErr)
		}
		transactions = append(transactions, *txn)
	}
	return transactions, rows.Err()
}

// SetTransactionReconciled flips the reconciled flag on a bank transaction.
func (s *SQLiteStorage) SetTransactionReconciled(ctx context.Context, id string, reconciled bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.setTransactionReconciledTx(ctx, s.db, id, reconciled)
}

func (s *SQLiteStorage) setTransactionReconciledTx(ctx context.Context, q execer, id string, reconciled bool) error {
	result, err := q.ExecContext(ctx, `
		UPDATE bank_transactions
		SET is_reconciled = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, reconciled, id)
	if err != nil {
		return fmt.Errorf("failed to update bank transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("bank transaction %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBankTransaction(row rowScanner) (*model.BankTransaction, error) {
	var txn model.BankTransaction
	var valueDate sql.NullTime
	var reference, category, rawPayload sql.NullString
	var source string

	err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&txn.CompanyID,
		&txn.Date,
		&valueDate,
		&txn.Amount,
		&txn.Currency,
		&txn.Description,
		&reference,
		&category,
		&txn.Reconciled,
		&source,
		&rawPayload,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if valueDate.Valid {
		txn.ValueDate = &valueDate.Time
	}
	txn.Reference = reference.String
	txn.Category = category.String
	txn.RawPayload = rawPayload.String
	txn.Source = model.ImportSource(source)
	return &txn, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
