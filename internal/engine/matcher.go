package engine

import (
	"math"
	"time"

	"github.com/petrel-io/ledgermatch/internal/model"
)

// Matcher evaluates one bank transaction against a pool of unreconciled
// accounting entries and a set of tenant rules.
type Matcher struct {
	cfg Config
}

// NewMatcher creates a matcher with the given configuration.
func NewMatcher(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// Config returns the matcher's configuration.
func (m *Matcher) Config() Config {
	return m.cfg
}

// FindMatches runs every strategy independently and concatenates their
// results. One bank transaction may appear in several matches with
// different types and confidences; the consumer picks the best.
func (m *Matcher) FindMatches(txn model.BankTransaction, pool []model.AccountingEntry, rules []model.ReconciliationRule) []model.ReconciliationMatch {
	var matches []model.ReconciliationMatch

	if match, ok := m.matchExact(txn, pool); ok {
		matches = append(matches, match)
	}
	if match, ok := m.matchReference(txn, pool); ok {
		matches = append(matches, match)
	}
	if match, ok := m.matchFuzzy(txn, pool); ok {
		matches = append(matches, match)
	}
	matches = append(matches, m.matchRules(txn, pool, rules)...)

	for i := range matches {
		matches[i].Score = m.Score(txn, bestEntry(matches[i].Entries, txn))
	}

	return matches
}

// matchExact finds entries with equal absolute amount (within tolerance)
// on the exact same calendar day.
func (m *Matcher) matchExact(txn model.BankTransaction, pool []model.AccountingEntry) (model.ReconciliationMatch, bool) {
	var candidates []model.AccountingEntry
	for _, entry := range pool {
		if entry.Reconciled {
			continue
		}
		if m.amountsEqual(txn.Amount, entry.NetAmount()) && sameDay(txn.Date, entry.Date) {
			candidates = append(candidates, entry)
		}
	}
	if len(candidates) == 0 {
		return model.ReconciliationMatch{}, false
	}
	return model.ReconciliationMatch{
		Transaction: txn,
		Entries:     candidates,
		Type:        model.MatchExact,
		Confidence:  m.cfg.ExactConfidence,
		Criteria:    []string{model.CriterionAmountExact, model.CriterionDateExact},
		Suggested:   true,
	}, true
}

// matchReference finds entries carrying the identical non-empty reference.
func (m *Matcher) matchReference(txn model.BankTransaction, pool []model.AccountingEntry) (model.ReconciliationMatch, bool) {
	if txn.Reference == "" {
		return model.ReconciliationMatch{}, false
	}
	var candidates []model.AccountingEntry
	for _, entry := range pool {
		if entry.Reconciled {
			continue
		}
		if entry.Reference != "" && entry.Reference == txn.Reference {
			candidates = append(candidates, entry)
		}
	}
	if len(candidates) == 0 {
		return model.ReconciliationMatch{}, false
	}
	return model.ReconciliationMatch{
		Transaction: txn,
		Entries:     candidates,
		Type:        model.MatchExact,
		Confidence:  m.cfg.ReferenceConfidence,
		Criteria:    []string{model.CriterionReferenceExact},
		Suggested:   true,
	}, true
}

// matchFuzzy finds entries whose description similarity reaches the
// threshold (inclusive).
func (m *Matcher) matchFuzzy(txn model.BankTransaction, pool []model.AccountingEntry) (model.ReconciliationMatch, bool) {
	var candidates []model.AccountingEntry
	for _, entry := range pool {
		if entry.Reconciled {
			continue
		}
		if Similarity(txn.Description, entry.Description) >= m.cfg.FuzzyThreshold {
			candidates = append(candidates, entry)
		}
	}
	if len(candidates) == 0 {
		return model.ReconciliationMatch{}, false
	}
	return model.ReconciliationMatch{
		Transaction: txn,
		Entries:     candidates,
		Type:        model.MatchFuzzy,
		Confidence:  m.cfg.FuzzyConfidence,
		Criteria:    []string{model.CriterionDescriptionSimilar},
		Suggested:   true,
	}, true
}

// matchRules evaluates every active rule against the pool. Each rule that
// captures at least one entry yields its own match. Priority orders the
// rules for human review only; it does not change evaluation.
func (m *Matcher) matchRules(txn model.BankTransaction, pool []model.AccountingEntry, rules []model.ReconciliationRule) []model.ReconciliationMatch {
	var matches []model.ReconciliationMatch

	for _, rule := range rules {
		if !rule.Active || len(rule.Conditions) == 0 {
			continue
		}

		var candidates []model.AccountingEntry
		for _, entry := range pool {
			if entry.Reconciled {
				continue
			}
			if m.ruleMatches(rule, entry) {
				candidates = append(candidates, entry)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		matches = append(matches, model.ReconciliationMatch{
			Transaction: txn,
			Entries:     candidates,
			Type:        model.MatchFuzzy,
			Confidence:  m.cfg.RuleConfidence,
			Criteria:    []string{"rule_" + rule.Name},
			Suggested:   true,
		})
	}

	return matches
}

func (m *Matcher) amountsEqual(a, b float64) bool {
	return math.Abs(math.Abs(a)-math.Abs(b)) <= m.cfg.AmountTolerance
}

// sameDay reports whether two timestamps fall on the same calendar day.
func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// bestEntry returns the candidate closest in amount and date to the
// transaction, for score annotation.
func bestEntry(entries []model.AccountingEntry, txn model.BankTransaction) model.AccountingEntry {
	best := entries[0]
	bestDelta := math.Inf(1)
	for _, entry := range entries {
		delta := math.Abs(math.Abs(entry.NetAmount())-math.Abs(txn.Amount)) +
			math.Abs(entry.Date.Sub(txn.Date).Hours())/24
		if delta < bestDelta {
			best = entry
			bestDelta = delta
		}
	}
	return best
}
