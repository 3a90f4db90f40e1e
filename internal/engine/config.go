// Package engine implements the reconciliation matching engine: layered
// candidate strategies over a pool of unreconciled accounting entries,
// each producing matches with a fixed confidence.
package engine

// Config holds the tunable constants of the matching engine. Confidences
// are fixed per strategy rather than additively composed; see Score for
// the alternative weighted model.
type Config struct {
	// ExactConfidence is assigned to amount+date matches.
	ExactConfidence float64
	// ReferenceConfidence is assigned to identical-reference matches.
	ReferenceConfidence float64
	// RuleConfidence is assigned to rule-based matches.
	RuleConfidence float64
	// FuzzyConfidence is assigned to description-similarity matches.
	FuzzyConfidence float64
	// FuzzyThreshold is the inclusive similarity floor for fuzzy matches.
	FuzzyThreshold float64
	// AmountTolerance bounds absolute amount comparison, in currency units.
	AmountTolerance float64
	// RangeTolerance is the default relative tolerance of the range operator.
	RangeTolerance float64
	// AutoValidateThreshold is the minimum confidence for automatic
	// validation of single-candidate matches.
	AutoValidateThreshold float64
}

// DefaultConfig returns the standard engine constants.
func DefaultConfig() Config {
	return Config{
		ExactConfidence:       0.95,
		ReferenceConfidence:   0.90,
		RuleConfidence:        0.80,
		FuzzyConfidence:       0.70,
		FuzzyThreshold:        0.70,
		AmountTolerance:       0.01,
		RangeTolerance:        0.05,
		AutoValidateThreshold: 0.90,
	}
}
