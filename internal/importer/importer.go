// Package importer persists parsed bank transaction candidates,
// skipping records the store has already seen.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/petrel-io/ledgermatch/internal/common"
	"github.com/petrel-io/ledgermatch/internal/model"
	"github.com/petrel-io/ledgermatch/internal/service"
)

// Importer deduplicates and persists bank transaction candidates.
// Imports are serialized per account, so two concurrent imports of
// overlapping data cannot both pass the existence check.
type Importer struct {
	store service.Storage
	locks sync.Map // accountID -> *sync.Mutex
}

// New creates an importer backed by the given store.
func New(store service.Storage) *Importer {
	return &Importer{store: store}
}

// ImportBatch persists candidates that do not already exist for the same
// account, date, amount and description. A store failure on one insert is
// counted and logged; it never aborts the remaining batch. Re-importing
// the same file is idempotent.
func (i *Importer) ImportBatch(ctx context.Context, candidates []model.BankTransaction, accountID, companyID string) (*model.ImportReport, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	lock := i.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	report := &model.ImportReport{}
	seen := make(map[string]struct{}, len(candidates))

	for _, candidate := range candidates {
		if candidate.AccountID == "" {
			candidate.AccountID = accountID
		}
		if candidate.CompanyID == "" {
			candidate.CompanyID = companyID
		}

		hash := candidate.GenerateHash()
		if _, dup := seen[hash]; dup {
			report.Skipped++
			continue
		}
		seen[hash] = struct{}{}

		existing, err := i.store.FindBankTransaction(ctx, candidate.AccountID, candidate.Date, candidate.Amount, candidate.Description)
		switch {
		case err == nil && existing != nil:
			report.Skipped++
			continue
		case err != nil && !errors.Is(err, common.ErrNotFound):
			// The duplicate check failed; skip rather than risk inserting twice.
			report.Errors = append(report.Errors, fmt.Sprintf("duplicate check failed: %v", err))
			report.ErrorCount++
			report.Skipped++
			continue
		}

		id, err := i.store.SaveBankTransaction(ctx, &candidate)
		if errors.Is(err, common.ErrDuplicateEntry) {
			// The unique index caught a duplicate another process slipped
			// past the existence check.
			report.Skipped++
			continue
		}
		if err != nil {
			slog.Error("Failed to save bank transaction",
				"account", candidate.AccountID,
				"date", candidate.Date.Format("2006-01-02"),
				"error", err)
			report.Errors = append(report.Errors, fmt.Sprintf("insert failed: %v", err))
			report.ErrorCount++
			report.Skipped++
			continue
		}

		candidate.ID = id
		report.Transactions = append(report.Transactions, candidate)
		report.Imported++
	}

	slog.Info("Import batch complete",
		"account", accountID,
		"imported", report.Imported,
		"skipped", report.Skipped,
		"errors", report.ErrorCount)

	return report, nil
}

func (i *Importer) accountLock(accountID string) *sync.Mutex {
	actual, _ := i.locks.LoadOrStore(accountID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}
