package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/petrel-io/ledgermatch/internal/common"
	"github.com/petrel-io/ledgermatch/internal/model"
)

func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func testBankTransaction() *model.BankTransaction {
	return &model.BankTransaction{
		AccountID:   "acc1",
		CompanyID:   "co1",
		Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Amount:      -250.50,
		Description: "PAYMENT TO SUPPLIER ABC",
		Reference:   "REF123",
		Source:      model.SourceCSV,
	}
}

func testAccountingEntry() *model.AccountingEntry {
	return &model.AccountingEntry{
		CompanyID:   "co1",
		AccountCode: "512000",
		Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Debit:       250.50,
		Description: "Invoice supplier ABC",
		Reference:   "REF123",
	}
}

func TestSQLiteStorage_MigrateIsIdempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	// createTestStorage already migrated once.
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Second migrate failed: %v", err)
	}
}

func TestSQLiteStorage_TxCommit(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txnID, err := store.SaveBankTransaction(ctx, testBankTransaction())
	if err != nil {
		t.Fatalf("Failed to save transaction: %v", err)
	}
	entryID, err := store.SaveAccountingEntry(ctx, testAccountingEntry())
	if err != nil {
		t.Fatalf("Failed to save entry: %v", err)
	}

	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("Failed to begin tx: %v", err)
	}
	if err := tx.SetTransactionReconciled(ctx, txnID, true); err != nil {
		t.Fatalf("Failed to set transaction reconciled: %v", err)
	}
	if err := tx.SetEntryReconciled(ctx, entryID, true, txnID); err != nil {
		t.Fatalf("Failed to set entry reconciled: %v", err)
	}
	if err := tx.AppendLog(ctx, &model.ReconciliationLogEntry{
		BankTransactionID: txnID,
		AccountingEntryID: entryID,
		Action:            model.LogValidated,
	}); err != nil {
		t.Fatalf("Failed to append log: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	txn, err := store.GetBankTransaction(ctx, txnID)
	if err != nil {
		t.Fatalf("Failed to get transaction: %v", err)
	}
	if !txn.Reconciled {
		t.Error("Transaction not reconciled after commit")
	}

	entry, err := store.GetEntryByBankTransaction(ctx, txnID)
	if err != nil {
		t.Fatalf("Failed to get linked entry: %v", err)
	}
	if entry.ID != entryID || !entry.Reconciled {
		t.Errorf("Linked entry = %+v", entry)
	}

	log, err := store.ListLog(ctx, txnID)
	if err != nil {
		t.Fatalf("Failed to list log: %v", err)
	}
	if len(log) != 1 || log[0].Action != model.LogValidated {
		t.Errorf("Log = %+v", log)
	}
}

func TestSQLiteStorage_TxRollback(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txnID, err := store.SaveBankTransaction(ctx, testBankTransaction())
	if err != nil {
		t.Fatalf("Failed to save transaction: %v", err)
	}

	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("Failed to begin tx: %v", err)
	}
	if err := tx.SetTransactionReconciled(ctx, txnID, true); err != nil {
		t.Fatalf("Failed to set transaction reconciled: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Failed to rollback: %v", err)
	}

	txn, err := store.GetBankTransaction(ctx, txnID)
	if err != nil {
		t.Fatalf("Failed to get transaction: %v", err)
	}
	if txn.Reconciled {
		t.Error("Rollback did not revert the reconciled flag")
	}
}

func TestSQLiteStorage_DuplicateBackstopIndex(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := store.SaveBankTransaction(ctx, testBankTransaction()); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	// Same account, date, amount and description must be rejected by the
	// unique index even when the importer's check is bypassed.
	_, err := store.SaveBankTransaction(ctx, testBankTransaction())
	if !errors.Is(err, common.ErrDuplicateEntry) {
		t.Fatalf("Second save = %v, want ErrDuplicateEntry", err)
	}
}

func TestSQLiteStorage_GetMissingReturnsNotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := store.GetBankTransaction(ctx, "missing"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("GetBankTransaction error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetAccountingEntry(ctx, "missing"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("GetAccountingEntry error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetEntryByBankTransaction(ctx, "missing"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("GetEntryByBankTransaction error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetRule(ctx, "missing"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("GetRule error = %v, want ErrNotFound", err)
	}
	if err := store.SetTransactionReconciled(ctx, "missing", true); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("SetTransactionReconciled error = %v, want ErrNotFound", err)
	}
}
