// Package reconcile drives the reconciliation lifecycle: generating match
// suggestions, validating or cancelling them, and reporting progress.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/petrel-io/ledgermatch/internal/common"
	"github.com/petrel-io/ledgermatch/internal/engine"
	"github.com/petrel-io/ledgermatch/internal/model"
	"github.com/petrel-io/ledgermatch/internal/service"
)

// Result summarizes one reconciliation pass.
type Result struct {
	Matches       []model.ReconciliationMatch
	Stats         MatchStats
	AutoValidated int
	Processed     int
}

// MatchStats aggregates the matches of one pass by strategy.
type MatchStats struct {
	ByType            map[model.MatchType]int
	AverageConfidence float64
}

func computeStats(matches []model.ReconciliationMatch) MatchStats {
	stats := MatchStats{ByType: make(map[model.MatchType]int)}
	if len(matches) == 0 {
		return stats
	}
	var total float64
	for _, match := range matches {
		stats.ByType[match.Type]++
		total += match.Confidence
	}
	stats.AverageConfidence = total / float64(len(matches))
	return stats
}

// Controller applies reconciliation state transitions. Validate and Cancel
// are serialized so one record can never end up linked to two matches.
type Controller struct {
	store   service.Storage
	matcher *engine.Matcher
	mu      sync.Mutex
}

// NewController creates a controller backed by the given store and matcher.
func NewController(store service.Storage, matcher *engine.Matcher) *Controller {
	return &Controller{
		store:   store,
		matcher: matcher,
	}
}

// Reconcile runs one matching pass over the unreconciled transactions of an
// account. Matches whose confidence reaches the auto-validation threshold
// and that carry exactly one candidate entry are validated immediately; an
// ambiguous match is never auto-validated regardless of confidence. All
// generated matches are returned for review, including the auto-validated
// ones.
func (c *Controller) Reconcile(ctx context.Context, companyID, accountID string) (*Result, error) {
	unreconciled := false
	txns, err := c.store.ListBankTransactions(ctx, service.TransactionFilter{
		CompanyID:  companyID,
		AccountID:  accountID,
		Reconciled: &unreconciled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load bank transactions: %w", err)
	}

	pool, err := c.store.ListAccountingEntries(ctx, service.EntryFilter{
		CompanyID:  companyID,
		Reconciled: &unreconciled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load accounting entries: %w", err)
	}

	rules, err := c.store.ListRules(ctx, companyID, true)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to load reconciliation rules: %w", err)
	}

	result := &Result{}
	threshold := c.matcher.Config().AutoValidateThreshold

	for _, txn := range txns {
		result.Processed++

		matches := c.matcher.FindMatches(txn, pool, rules)
		if len(matches) == 0 {
			continue
		}
		result.Matches = append(result.Matches, matches...)

		best := bestMatch(matches)
		if best.Confidence < threshold || len(best.Entries) != 1 {
			continue
		}

		entry := best.Entries[0]
		if err := c.Validate(ctx, txn.ID, entry.ID, ""); err != nil {
			slog.Warn("auto-validation failed",
				"bank_transaction_id", txn.ID,
				"accounting_entry_id", entry.ID,
				"error", err)
			continue
		}
		result.AutoValidated++

		// Consumed entries must not be suggested for later transactions
		// in the same pass.
		for i := range pool {
			if pool[i].ID == entry.ID {
				pool[i].Reconciled = true
			}
		}
	}

	result.Stats = computeStats(result.Matches)

	slog.Info("reconciliation pass complete",
		"company_id", companyID,
		"bank_account_id", accountID,
		"processed", result.Processed,
		"matches", len(result.Matches),
		"auto_validated", result.AutoValidated)

	return result, nil
}

// Validate links a bank transaction to an accounting entry. Both records
// flip to reconciled and the entry records the back-reference, applied in a
// single database transaction. Validating the same pair twice is a
// harmless redundant write; validating against a record already linked
// elsewhere fails.
func (c *Controller) Validate(ctx context.Context, bankTransactionID, accountingEntryID, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin validation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	txn, err := tx.GetBankTransaction(ctx, bankTransactionID)
	if err != nil {
		return fmt.Errorf("failed to load bank transaction: %w", err)
	}

	entry, err := tx.GetAccountingEntry(ctx, accountingEntryID)
	if err != nil {
		return fmt.Errorf("failed to load accounting entry: %w", err)
	}

	if entry.Reconciled && entry.BankTransactionID != bankTransactionID {
		return fmt.Errorf("accounting entry %s is linked to transaction %s: %w",
			entry.ID, entry.BankTransactionID, common.ErrAlreadyReconciled)
	}
	if txn.Reconciled && (entry.BankTransactionID != bankTransactionID || !entry.Reconciled) {
		return fmt.Errorf("bank transaction %s: %w", txn.ID, common.ErrAlreadyReconciled)
	}

	if err := tx.SetTransactionReconciled(ctx, bankTransactionID, true); err != nil {
		return fmt.Errorf("failed to mark transaction reconciled: %w", err)
	}
	if err := tx.SetEntryReconciled(ctx, accountingEntryID, true, bankTransactionID); err != nil {
		return fmt.Errorf("failed to mark entry reconciled: %w", err)
	}
	if err := tx.AppendLog(ctx, &model.ReconciliationLogEntry{
		BankTransactionID: bankTransactionID,
		AccountingEntryID: accountingEntryID,
		Action:            model.LogValidated,
		UserID:            userID,
	}); err != nil {
		return fmt.Errorf("failed to record validation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit validation: %w", err)
	}
	return nil
}

// Cancel reverts a validated match: both sides return to unreconciled and
// the entry's back-reference is cleared. Cancelling a transaction with no
// linked entry is a no-op.
func (c *Controller) Cancel(ctx context.Context, bankTransactionID, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin cancellation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.GetBankTransaction(ctx, bankTransactionID); err != nil {
		return fmt.Errorf("failed to load bank transaction: %w", err)
	}

	entry, err := tx.GetEntryByBankTransaction(ctx, bankTransactionID)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up linked entry: %w", err)
	}

	if err := tx.SetTransactionReconciled(ctx, bankTransactionID, false); err != nil {
		return fmt.Errorf("failed to clear transaction reconciliation: %w", err)
	}
	if err := tx.SetEntryReconciled(ctx, entry.ID, false, ""); err != nil {
		return fmt.Errorf("failed to clear entry reconciliation: %w", err)
	}
	if err := tx.AppendLog(ctx, &model.ReconciliationLogEntry{
		BankTransactionID: bankTransactionID,
		AccountingEntryID: entry.ID,
		Action:            model.LogCancelled,
		UserID:            userID,
	}); err != nil {
		return fmt.Errorf("failed to record cancellation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return nil
}

// Summarize reports reconciliation progress for a scope.
func (c *Controller) Summarize(ctx context.Context, scope service.SummaryScope) (*model.ReconciliationSummary, error) {
	return c.store.GetReconciliationSummary(ctx, scope)
}

// bestMatch picks the highest-confidence match; ties fall to the higher
// annotated score.
func bestMatch(matches []model.ReconciliationMatch) model.ReconciliationMatch {
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Confidence > best.Confidence ||
			(m.Confidence == best.Confidence && m.Score > best.Score) {
			best = m
		}
	}
	return best
}
