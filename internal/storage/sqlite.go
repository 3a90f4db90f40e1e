// Package storage provides the SQLite persistence layer for ledgermatch.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/petrel-io/ledgermatch/internal/model"
	"github.com/petrel-io/ledgermatch/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the service.Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Tx, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTx{
		tx:      tx,
		storage: s,
	}, nil
}

// sqliteTx wraps sql.Tx to implement service.Tx.
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) GetBankTransaction(ctx context.Context, id string) (*model.BankTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return t.storage.getBankTransactionTx(ctx, t.tx, id)
}

func (t *sqliteTx) GetAccountingEntry(ctx context.Context, id string) (*model.AccountingEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return t.storage.getAccountingEntryTx(ctx, t.tx, id)
}

func (t *sqliteTx) GetEntryByBankTransaction(ctx context.Context, bankTransactionID string) (*model.AccountingEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(bankTransactionID, "bankTransactionID"); err != nil {
		return nil, err
	}
	return t.storage.getEntryByBankTransactionTx(ctx, t.tx, bankTransactionID)
}

func (t *sqliteTx) SetTransactionReconciled(ctx context.Context, id string, reconciled bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return t.storage.setTransactionReconciledTx(ctx, t.tx, id, reconciled)
}

func (t *sqliteTx) SetEntryReconciled(ctx context.Context, id string, reconciled bool, bankTransactionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return t.storage.setEntryReconciledTx(ctx, t.tx, id, reconciled, bankTransactionID)
}

func (t *sqliteTx) AppendLog(ctx context.Context, entry *model.ReconciliationLogEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	return t.storage.appendLogTx(ctx, t.tx, entry)
}

// execer abstracts *sql.DB and *sql.Tx so storage methods can run either
// directly or inside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// dateOnly truncates a timestamp to its calendar day for comparison in
// SQL date() expressions.
func dateOnly(t time.Time) string {
	return t.Format("2006-01-02")
}
