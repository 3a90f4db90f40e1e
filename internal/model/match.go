package model

// MatchType tags how a candidate pairing was produced.
type MatchType string

// Match type constants.
const (
	MatchExact  MatchType = "exact"
	MatchFuzzy  MatchType = "fuzzy"
	MatchManual MatchType = "manual"
)

// Match criteria tags reported on ReconciliationMatch.Criteria.
const (
	CriterionAmountExact        = "amount_exact"
	CriterionDateExact          = "date_exact"
	CriterionReferenceExact     = "reference_exact"
	CriterionDescriptionSimilar = "description_similar"
)

// ReconciliationMatch is a candidate pairing produced by the matching
// engine. It is transient output, never persisted as its own entity.
// A single bank transaction may appear in several matches with different
// types and confidences; the state controller picks the best one.
type ReconciliationMatch struct {
	Transaction BankTransaction   `json:"transaction"`
	Entries     []AccountingEntry `json:"entries"`
	Criteria    []string          `json:"criteria"`
	Type        MatchType         `json:"match_type"`
	Confidence  float64           `json:"confidence"`
	Score       int               `json:"score"`
	Suggested   bool              `json:"suggested"`
}
