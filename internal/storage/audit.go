package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/petrel-io/ledgermatch/internal/model"
)

// AppendLog records a reconciliation action. The log is append-only: there
// is no update or delete path.
func (s *SQLiteStorage) AppendLog(ctx context.Context, entry *model.ReconciliationLogEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	return s.appendLogTx(ctx, s.db, entry)
}

func (s *SQLiteStorage) appendLogTx(ctx context.Context, ex execer, entry *model.ReconciliationLogEntry) error {
	if err := validateString(entry.BankTransactionID, "entry.BankTransactionID"); err != nil {
		return err
	}
	if err := validateString(entry.Action, "entry.Action"); err != nil {
		return err
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO reconciliation_log (
			id, bank_transaction_id, accounting_entry_id, action, user_id
		) VALUES (?, ?, ?, ?, ?)`,
		entry.ID,
		entry.BankTransactionID,
		nullString(entry.AccountingEntryID),
		entry.Action,
		nullString(entry.UserID),
	)
	if err != nil {
		return fmt.Errorf("failed to append reconciliation log: %w", err)
	}
	return nil
}

// ListLog returns the recorded actions for one bank transaction, oldest
// first.
func (s *SQLiteStorage) ListLog(ctx context.Context, bankTransactionID string) ([]model.ReconciliationLogEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(bankTransactionID, "bankTransactionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bank_transaction_id, accounting_entry_id, action, user_id, created_at
		FROM reconciliation_log
		WHERE bank_transaction_id = ?
		ORDER BY rowid ASC`, bankTransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliation log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.ReconciliationLogEntry
	for rows.Next() {
		var entry model.ReconciliationLogEntry
		var entryID, userID sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&entry.BankTransactionID,
			&entryID,
			&entry.Action,
			&userID,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation log entry: %w", err)
		}
		entry.AccountingEntryID = entryID.String
		entry.UserID = userID.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
