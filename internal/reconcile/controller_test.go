package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/petrel-io/ledgermatch/internal/common"
	"github.com/petrel-io/ledgermatch/internal/engine"
	"github.com/petrel-io/ledgermatch/internal/model"
	"github.com/petrel-io/ledgermatch/internal/service"
	"github.com/petrel-io/ledgermatch/internal/storage"
)

var day = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func newTestController(t *testing.T) (*Controller, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return NewController(store, engine.NewMatcher(engine.DefaultConfig())), store
}

func saveTxn(t *testing.T, store *storage.SQLiteStorage, txn model.BankTransaction) string {
	t.Helper()
	txn.AccountID = "acc1"
	txn.CompanyID = "co1"
	id, err := store.SaveBankTransaction(context.Background(), &txn)
	if err != nil {
		t.Fatalf("Failed to save transaction: %v", err)
	}
	return id
}

func saveEntry(t *testing.T, store *storage.SQLiteStorage, entry model.AccountingEntry) string {
	t.Helper()
	entry.CompanyID = "co1"
	id, err := store.SaveAccountingEntry(context.Background(), &entry)
	if err != nil {
		t.Fatalf("Failed to save entry: %v", err)
	}
	return id
}

func TestController_ValidateAndCancel(t *testing.T) {
	controller, store := newTestController(t)
	ctx := context.Background()

	txnID := saveTxn(t, store, model.BankTransaction{
		Date: day, Amount: -250.50, Description: "PAYMENT SUPPLIER",
	})
	entryID := saveEntry(t, store, model.AccountingEntry{
		Date: day, Debit: 250.50, Description: "Invoice supplier",
	})

	if err := controller.Validate(ctx, txnID, entryID, "user1"); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	txn, err := store.GetBankTransaction(ctx, txnID)
	if err != nil {
		t.Fatalf("Failed to get transaction: %v", err)
	}
	if !txn.Reconciled {
		t.Error("Transaction not reconciled")
	}
	entry, err := store.GetAccountingEntry(ctx, entryID)
	if err != nil {
		t.Fatalf("Failed to get entry: %v", err)
	}
	if !entry.Reconciled || entry.BankTransactionID != txnID {
		t.Errorf("Entry after validate = %+v", entry)
	}

	if err := controller.Cancel(ctx, txnID, "user1"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	txn, _ = store.GetBankTransaction(ctx, txnID)
	entry, _ = store.GetAccountingEntry(ctx, entryID)
	if txn.Reconciled || entry.Reconciled || entry.BankTransactionID != "" {
		t.Errorf("Cancel did not revert both sides: txn=%+v entry=%+v", txn, entry)
	}

	log, err := store.ListLog(ctx, txnID)
	if err != nil {
		t.Fatalf("Failed to list log: %v", err)
	}
	if len(log) != 2 || log[0].Action != model.LogValidated || log[1].Action != model.LogCancelled {
		t.Errorf("Log = %+v", log)
	}
}

func TestController_ValidateIsIdempotentForSamePair(t *testing.T) {
	controller, store := newTestController(t)
	ctx := context.Background()

	txnID := saveTxn(t, store, model.BankTransaction{Date: day, Amount: -1, Description: "A"})
	entryID := saveEntry(t, store, model.AccountingEntry{Date: day, Debit: 1, Description: "A"})

	if err := controller.Validate(ctx, txnID, entryID, ""); err != nil {
		t.Fatalf("First validate failed: %v", err)
	}
	if err := controller.Validate(ctx, txnID, entryID, ""); err != nil {
		t.Fatalf("Repeated validate with same pair must succeed: %v", err)
	}

	log, _ := store.ListLog(ctx, txnID)
	if len(log) != 2 {
		t.Errorf("Expected 2 log entries after double validate, got %d", len(log))
	}
}

func TestController_ValidateRejectsCrossLinking(t *testing.T) {
	controller, store := newTestController(t)
	ctx := context.Background()

	txnA := saveTxn(t, store, model.BankTransaction{Date: day, Amount: -1, Description: "A"})
	txnB := saveTxn(t, store, model.BankTransaction{Date: day, Amount: -2, Description: "B"})
	entryID := saveEntry(t, store, model.AccountingEntry{Date: day, Debit: 1, Description: "A"})
	otherEntry := saveEntry(t, store, model.AccountingEntry{Date: day, Debit: 2, Description: "B"})

	if err := controller.Validate(ctx, txnA, entryID, ""); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	// The entry is taken.
	if err := controller.Validate(ctx, txnB, entryID, ""); !errors.Is(err, common.ErrAlreadyReconciled) {
		t.Errorf("Linking a taken entry = %v, want ErrAlreadyReconciled", err)
	}
	// The transaction is taken.
	if err := controller.Validate(ctx, txnA, otherEntry, ""); !errors.Is(err, common.ErrAlreadyReconciled) {
		t.Errorf("Relinking a reconciled transaction = %v, want ErrAlreadyReconciled", err)
	}
}

func TestController_CancelWithoutLinkIsNoop(t *testing.T) {
	controller, store := newTestController(t)
	ctx := context.Background()

	txnID := saveTxn(t, store, model.BankTransaction{Date: day, Amount: -1, Description: "A"})

	if err := controller.Cancel(ctx, txnID, ""); err != nil {
		t.Fatalf("Cancel without link must be a no-op: %v", err)
	}

	log, _ := store.ListLog(ctx, txnID)
	if len(log) != 0 {
		t.Errorf("No-op cancel must not log, got %+v", log)
	}
}

func TestController_CancelUnknownTransaction(t *testing.T) {
	controller, _ := newTestController(t)

	if err := controller.Cancel(context.Background(), "missing", ""); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Cancel unknown = %v, want ErrNotFound", err)
	}
}

func TestController_ReconcileAutoValidatesSingleCandidate(t *testing.T) {
	controller, store := newTestController(t)
	ctx := context.Background()

	txnID := saveTxn(t, store, model.BankTransaction{
		Date: day, Amount: -250.50, Description: "PAYMENT SUPPLIER ABC",
	})
	entryID := saveEntry(t, store, model.AccountingEntry{
		Date: day, Debit: 250.50, Description: "Invoice supplier ABC",
	})

	result, err := controller.Reconcile(ctx, "co1", "acc1")
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if result.AutoValidated != 1 {
		t.Fatalf("AutoValidated = %d, want 1 (matches: %+v)", result.AutoValidated, result.Matches)
	}

	txn, _ := store.GetBankTransaction(ctx, txnID)
	entry, _ := store.GetAccountingEntry(ctx, entryID)
	if !txn.Reconciled || !entry.Reconciled || entry.BankTransactionID != txnID {
		t.Errorf("Auto-validation not persisted: txn=%+v entry=%+v", txn, entry)
	}
}

func TestController_ReconcileNeverAutoValidatesAmbiguousMatch(t *testing.T) {
	controller, store := newTestController(t)
	ctx := context.Background()

	saveTxn(t, store, model.BankTransaction{
		Date: day, Amount: -250.50, Description: "PAYMENT SUPPLIER ABC",
	})
	// Two entries with identical amount on the same day tie the exact
	// strategy at 0.95.
	saveEntry(t, store, model.AccountingEntry{Date: day, Debit: 250.50, Description: "Invoice one"})
	saveEntry(t, store, model.AccountingEntry{Date: day, Debit: 250.50, Description: "Invoice two"})

	result, err := controller.Reconcile(ctx, "co1", "acc1")
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if result.AutoValidated != 0 {
		t.Errorf("AutoValidated = %d, want 0 for ambiguous match", result.AutoValidated)
	}
	if len(result.Matches) == 0 {
		t.Error("Ambiguous match must still be suggested for review")
	}

	unreconciled := false
	open, err := store.ListBankTransactions(ctx, service.TransactionFilter{Reconciled: &unreconciled})
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(open) != 1 {
		t.Errorf("Transaction must stay unreconciled, open = %d", len(open))
	}
}

func TestController_ReconcileLowConfidenceNotAutoValidated(t *testing.T) {
	controller, store := newTestController(t)
	ctx := context.Background()

	saveTxn(t, store, model.BankTransaction{
		Date: day, Amount: -250.50, Description: "PAYMENT SUPPLIER ABC",
	})
	// Similar description only: fuzzy match at 0.70, below the gate.
	saveEntry(t, store, model.AccountingEntry{
		Date: day.AddDate(0, 0, 10), Debit: 99.00, Description: "PAYMENT SUPPLIER ABX",
	})

	result, err := controller.Reconcile(ctx, "co1", "acc1")
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if result.AutoValidated != 0 {
		t.Errorf("AutoValidated = %d, want 0 below the confidence gate", result.AutoValidated)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("Expected 1 fuzzy suggestion, got %d", len(result.Matches))
	}
	if result.Matches[0].Confidence >= 0.90 {
		t.Errorf("Confidence = %v, expected below threshold", result.Matches[0].Confidence)
	}
	if result.Stats.ByType[model.MatchFuzzy] != 1 {
		t.Errorf("Stats.ByType = %v, want one fuzzy match", result.Stats.ByType)
	}
	if result.Stats.AverageConfidence != result.Matches[0].Confidence {
		t.Errorf("AverageConfidence = %v, want %v",
			result.Stats.AverageConfidence, result.Matches[0].Confidence)
	}
}

func TestController_ReconcileConsumesEntriesWithinPass(t *testing.T) {
	controller, store := newTestController(t)
	ctx := context.Background()

	// Two identical transactions compete for one matching entry.
	saveTxn(t, store, model.BankTransaction{Date: day, Amount: -10, Description: "COFFEE AA"})
	saveTxn(t, store, model.BankTransaction{Date: day, Amount: -10, Description: "COFFEE BB"})
	saveEntry(t, store, model.AccountingEntry{Date: day, Debit: 10, Description: "Coffee"})

	result, err := controller.Reconcile(ctx, "co1", "acc1")
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if result.AutoValidated != 1 {
		t.Errorf("AutoValidated = %d, want exactly 1: the entry is consumed", result.AutoValidated)
	}
}
