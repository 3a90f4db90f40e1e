package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a
// fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS bank_transactions (
					id TEXT PRIMARY KEY,
					bank_account_id TEXT NOT NULL,
					company_id TEXT NOT NULL,
					transaction_date DATETIME NOT NULL,
					value_date DATETIME,
					amount REAL NOT NULL,
					currency TEXT NOT NULL DEFAULT 'EUR',
					description TEXT NOT NULL,
					reference TEXT,
					category TEXT,
					is_reconciled INTEGER NOT NULL DEFAULT 0,
					import_source TEXT NOT NULL DEFAULT 'csv',
					raw_payload TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_bank_transactions_date ON bank_transactions(transaction_date)`,
				`CREATE INDEX idx_bank_transactions_account ON bank_transactions(bank_account_id)`,
				`CREATE INDEX idx_bank_transactions_reconciled ON bank_transactions(is_reconciled)`,

				`CREATE TABLE IF NOT EXISTS accounting_entries (
					id TEXT PRIMARY KEY,
					company_id TEXT NOT NULL,
					account_code TEXT,
					entry_date DATETIME NOT NULL,
					amount REAL NOT NULL,
					debit REAL NOT NULL DEFAULT 0,
					credit REAL NOT NULL DEFAULT 0,
					description TEXT NOT NULL DEFAULT '',
					reference TEXT,
					journal_entry_id TEXT,
					bank_transaction_id TEXT,
					is_reconciled INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_accounting_entries_date ON accounting_entries(entry_date)`,
				`CREATE INDEX idx_accounting_entries_reconciled ON accounting_entries(is_reconciled)`,
				`CREATE INDEX idx_accounting_entries_bank_txn ON accounting_entries(bank_transaction_id)`,

				`CREATE TABLE IF NOT EXISTS reconciliation_rules (
					id TEXT PRIMARY KEY,
					company_id TEXT NOT NULL,
					name TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					conditions TEXT NOT NULL DEFAULT '[]',
					action TEXT NOT NULL DEFAULT '{}',
					priority INTEGER NOT NULL DEFAULT 0,
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_rules_company ON reconciliation_rules(company_id, is_active)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add append-only reconciliation action log",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS reconciliation_log (
					id TEXT PRIMARY KEY,
					bank_transaction_id TEXT NOT NULL,
					accounting_entry_id TEXT,
					action TEXT NOT NULL,
					user_id TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_reconciliation_log_txn ON reconciliation_log(bank_transaction_id)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Unique backstop against concurrent duplicate imports",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_bank_transactions_dedup
				ON bank_transactions(bank_account_id, transaction_date, amount, description)`)
			return err
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
