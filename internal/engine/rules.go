package engine

import (
	"regexp"
	"strings"
	"time"

	"github.com/petrel-io/ledgermatch/internal/model"
)

// ruleMatches reports whether an entry satisfies every condition of a
// rule. Conditions combine with logical AND; evaluation is fail-closed,
// so malformed conditions never match and never abort the pass.
func (m *Matcher) ruleMatches(rule model.ReconciliationRule, entry model.AccountingEntry) bool {
	for _, cond := range rule.Conditions {
		if !m.conditionHolds(cond, entry) {
			return false
		}
	}
	return true
}

func (m *Matcher) conditionHolds(cond model.ReconciliationCondition, entry model.AccountingEntry) bool {
	switch cond.Field {
	case model.FieldAmount:
		return m.numericCondition(cond, entry.NetAmount())
	case model.FieldDescription:
		return stringCondition(cond, entry.Description)
	case model.FieldReference:
		return stringCondition(cond, entry.Reference)
	case model.FieldDate:
		return dateCondition(cond, entry.Date)
	case model.FieldAccount:
		return stringCondition(cond, entry.AccountCode)
	default:
		return false
	}
}

func (m *Matcher) numericCondition(cond model.ReconciliationCondition, value float64) bool {
	target, err := parseConditionNumber(cond.Value)
	if err != nil {
		return false
	}

	switch cond.Operator {
	case model.OpEquals:
		tolerance := m.cfg.AmountTolerance
		if cond.Tolerance != nil {
			tolerance = *cond.Tolerance
		}
		return abs(value-target) <= tolerance
	case model.OpRange:
		tolerance := m.cfg.RangeTolerance
		if cond.Tolerance != nil {
			tolerance = *cond.Tolerance
		}
		if target == 0 {
			return abs(value) <= tolerance
		}
		return abs(value-target)/abs(target) <= tolerance
	default:
		return false
	}
}

func stringCondition(cond model.ReconciliationCondition, value string) bool {
	switch cond.Operator {
	case model.OpEquals:
		return value == cond.Value
	case model.OpContains:
		// Substring in either direction.
		lv := strings.ToLower(value)
		lc := strings.ToLower(cond.Value)
		return strings.Contains(lv, lc) || strings.Contains(lc, lv)
	case model.OpStartsWith:
		return strings.HasPrefix(strings.ToLower(value), strings.ToLower(cond.Value))
	case model.OpEndsWith:
		return strings.HasSuffix(strings.ToLower(value), strings.ToLower(cond.Value))
	case model.OpRegex:
		re, err := regexp.Compile("(?i)" + cond.Value)
		if err != nil {
			return false
		}
		return re.MatchString(value)
	default:
		return false
	}
}

func dateCondition(cond model.ReconciliationCondition, value time.Time) bool {
	switch cond.Operator {
	case model.OpEquals:
		target, err := time.Parse("2006-01-02", cond.Value)
		if err != nil {
			return false
		}
		return sameDay(value, target)
	default:
		return false
	}
}
