package engine

import (
	"math"
	"strconv"
	"strings"

	"github.com/petrel-io/ledgermatch/internal/model"
)

// Additive score weights, expressed on a 0-100 scale.
const (
	scoreAmount         = 40
	scoreDateExact      = 30
	scoreDateNear       = 20 // within one day
	scoreDateClose      = 10 // within three days
	scoreReference      = 20
	scoreDescriptionMax = 10
	scoreCap            = 100
)

// Score computes the additive weighted score of a pairing on a 0-100
// scale. It annotates matches for human review; the fixed per-strategy
// confidence remains the canonical gate for automatic validation.
func (m *Matcher) Score(txn model.BankTransaction, entry model.AccountingEntry) int {
	score := 0

	if m.amountsEqual(txn.Amount, entry.NetAmount()) {
		score += scoreAmount
	}

	dayDiff := math.Abs(txn.Date.Sub(entry.Date).Hours()) / 24
	switch {
	case sameDay(txn.Date, entry.Date):
		score += scoreDateExact
	case dayDiff <= 1:
		score += scoreDateNear
	case dayDiff <= 3:
		score += scoreDateClose
	}

	if txn.Reference != "" && txn.Reference == entry.Reference {
		score += scoreReference
	}

	score += int(Similarity(txn.Description, entry.Description) * scoreDescriptionMax)

	if score > scoreCap {
		score = scoreCap
	}
	return score
}

// parseConditionNumber parses a rule condition value as a number,
// tolerating comma decimal separators.
func parseConditionNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}

func abs(f float64) float64 {
	return math.Abs(f)
}
