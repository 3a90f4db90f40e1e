package engine

import (
	"testing"
	"time"

	"github.com/petrel-io/ledgermatch/internal/model"
)

var day = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func testTxn() model.BankTransaction {
	return model.BankTransaction{
		ID:          "txn1",
		AccountID:   "acc1",
		Date:        day,
		Amount:      -250.50,
		Description: "PAYMENT TO SUPPLIER ABC",
		Reference:   "REF123",
	}
}

func TestMatcher_ExactMatch(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	pool := []model.AccountingEntry{
		{ID: "e1", Date: day, Amount: -250.50, Description: "SUPPLIER ABC INVOICE"},
		{ID: "e2", Date: day.AddDate(0, 0, 5), Amount: -250.50, Description: "OTHER DAY"},
		{ID: "e3", Date: day, Amount: -99.00, Description: "OTHER AMOUNT"},
	}

	matches := m.FindMatches(testTxn(), pool, nil)
	exact := findByType(matches, model.MatchExact)
	if exact == nil {
		t.Fatal("Expected an exact match")
	}
	if exact.Confidence != 0.95 {
		t.Errorf("Confidence = %v, want 0.95", exact.Confidence)
	}
	if len(exact.Entries) != 1 || exact.Entries[0].ID != "e1" {
		t.Fatalf("Exact candidates = %+v", exact.Entries)
	}
	wantCriteria := []string{model.CriterionAmountExact, model.CriterionDateExact}
	if len(exact.Criteria) != 2 || exact.Criteria[0] != wantCriteria[0] || exact.Criteria[1] != wantCriteria[1] {
		t.Errorf("Criteria = %v, want %v", exact.Criteria, wantCriteria)
	}
}

func TestMatcher_ExactMatchIgnoresSign(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	pool := []model.AccountingEntry{
		{ID: "e1", Date: day, Debit: 250.50, Description: "DEBIT SIDE ENTRY"},
	}

	matches := m.FindMatches(testTxn(), pool, nil)
	if findByType(matches, model.MatchExact) == nil {
		t.Fatal("Entry with opposite-sign amount on the same day should match")
	}
}

func TestMatcher_ReferenceMatch(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	pool := []model.AccountingEntry{
		{ID: "e1", Date: day.AddDate(0, 0, 10), Amount: -999.00, Description: "UNRELATED", Reference: "REF123"},
	}

	matches := m.FindMatches(testTxn(), pool, nil)
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}
	match := matches[0]
	if match.Type != model.MatchExact {
		t.Errorf("Type = %q, want exact", match.Type)
	}
	if match.Confidence != 0.90 {
		t.Errorf("Confidence = %v, want 0.90", match.Confidence)
	}
	if len(match.Criteria) != 1 || match.Criteria[0] != model.CriterionReferenceExact {
		t.Errorf("Criteria = %v", match.Criteria)
	}
}

func TestMatcher_EmptyReferenceNeverMatches(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	txn := testTxn()
	txn.Reference = ""
	pool := []model.AccountingEntry{
		{ID: "e1", Date: day.AddDate(0, 0, 10), Amount: -999.00, Description: "UNRELATED", Reference: ""},
	}

	if matches := m.FindMatches(txn, pool, nil); len(matches) != 0 {
		t.Fatalf("Two empty references must not match, got %+v", matches)
	}
}

func TestMatcher_FuzzyThresholdInclusive(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	txn := testTxn()
	txn.Reference = ""
	txn.Description = "aaaaaaaaaa"

	pool := []model.AccountingEntry{
		// Distance 3 over length 10: similarity exactly 0.70.
		{ID: "at", Date: day.AddDate(0, 0, 9), Amount: -1.0, Description: "aaaaaaabbb"},
		// Distance 4 over length 10: similarity 0.60.
		{ID: "below", Date: day.AddDate(0, 0, 9), Amount: -1.0, Description: "aaaaaabbbb"},
	}

	matches := m.FindMatches(txn, pool, nil)
	fuzzy := findByType(matches, model.MatchFuzzy)
	if fuzzy == nil {
		t.Fatal("Expected a fuzzy match at the threshold")
	}
	if fuzzy.Confidence != 0.70 {
		t.Errorf("Confidence = %v, want 0.70", fuzzy.Confidence)
	}
	if len(fuzzy.Entries) != 1 || fuzzy.Entries[0].ID != "at" {
		t.Fatalf("Candidates = %+v, want only the 0.70 entry", fuzzy.Entries)
	}
}

func TestMatcher_SkipsReconciledEntries(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	pool := []model.AccountingEntry{
		{ID: "e1", Date: day, Amount: -250.50, Description: "PAYMENT TO SUPPLIER ABC", Reference: "REF123", Reconciled: true},
	}

	if matches := m.FindMatches(testTxn(), pool, nil); len(matches) != 0 {
		t.Fatalf("Reconciled entries must never be candidates, got %+v", matches)
	}
}

func TestMatcher_RuleMatch(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	txn := testTxn()
	txn.Reference = ""
	rules := []model.ReconciliationRule{
		{
			ID:     "r1",
			Name:   "supplier-abc",
			Active: true,
			Conditions: []model.ReconciliationCondition{
				{Field: model.FieldDescription, Operator: model.OpContains, Value: "SUPPLIER ABC"},
			},
		},
		{
			ID:     "r2",
			Name:   "disabled",
			Active: false,
			Conditions: []model.ReconciliationCondition{
				{Field: model.FieldDescription, Operator: model.OpContains, Value: "SUPPLIER"},
			},
		},
		{ID: "r3", Name: "no-conditions", Active: true},
	}
	pool := []model.AccountingEntry{
		{ID: "e1", Date: day.AddDate(0, 0, 20), Amount: -1.0, Description: "INVOICE SUPPLIER ABC 42"},
	}

	matches := m.FindMatches(txn, pool, rules)

	var ruleMatches []model.ReconciliationMatch
	for _, match := range matches {
		if len(match.Criteria) == 1 && match.Criteria[0] == "rule_supplier-abc" {
			ruleMatches = append(ruleMatches, match)
		}
	}
	if len(ruleMatches) != 1 {
		t.Fatalf("Expected exactly one rule match, got %d (all: %+v)", len(ruleMatches), matches)
	}
	if ruleMatches[0].Confidence != 0.80 {
		t.Errorf("Confidence = %v, want 0.80", ruleMatches[0].Confidence)
	}
	if ruleMatches[0].Type != model.MatchFuzzy {
		t.Errorf("Type = %q, want fuzzy", ruleMatches[0].Type)
	}

	for _, match := range matches {
		for _, criterion := range match.Criteria {
			if criterion == "rule_disabled" || criterion == "rule_no-conditions" {
				t.Errorf("Inactive or empty rule produced a match: %v", match.Criteria)
			}
		}
	}
}

func TestMatcher_MultipleStrategiesReportIndependently(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	pool := []model.AccountingEntry{
		{ID: "e1", Date: day, Amount: -250.50, Description: "PAYMENT TO SUPPLIER ABC", Reference: "REF123"},
	}

	matches := m.FindMatches(testTxn(), pool, nil)
	// Exact, reference and fuzzy all hit the same entry.
	if len(matches) < 3 {
		t.Fatalf("Expected one match per strategy, got %d: %+v", len(matches), matches)
	}
	for _, match := range matches {
		if match.Score <= 0 {
			t.Errorf("Match %v has no score annotation", match.Criteria)
		}
		if !match.Suggested {
			t.Errorf("Match %v not flagged as suggested", match.Criteria)
		}
	}
}

func findByType(matches []model.ReconciliationMatch, matchType model.MatchType) *model.ReconciliationMatch {
	for i := range matches {
		if matches[i].Type == matchType {
			return &matches[i]
		}
	}
	return nil
}
