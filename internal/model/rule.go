package model

import "time"

// ConditionField is the closed set of transaction fields a rule condition
// can inspect. Unknown fields never match.
type ConditionField string

// Condition field constants.
const (
	FieldAmount      ConditionField = "amount"
	FieldDescription ConditionField = "description"
	FieldReference   ConditionField = "reference"
	FieldDate        ConditionField = "date"
	FieldAccount     ConditionField = "account"
)

// ConditionOperator is the comparison applied by a rule condition.
type ConditionOperator string

// Condition operator constants. An unrecognized operator evaluates false.
const (
	OpEquals     ConditionOperator = "equals"
	OpContains   ConditionOperator = "contains"
	OpStartsWith ConditionOperator = "starts_with"
	OpEndsWith   ConditionOperator = "ends_with"
	OpRegex      ConditionOperator = "regex"
	OpRange      ConditionOperator = "range"
)

// ReconciliationCondition is one predicate of a rule. Conditions on the
// same rule combine with logical AND.
type ReconciliationCondition struct {
	Field     ConditionField    `json:"field"`
	Operator  ConditionOperator `json:"operator"`
	Value     string            `json:"value"`
	Tolerance *float64          `json:"tolerance,omitempty"`
}

// ActionType describes what a rule does when its conditions hold.
type ActionType string

// Action type constants.
const (
	ActionMatch      ActionType = "match"
	ActionCategorize ActionType = "categorize"
	ActionFlag       ActionType = "flag"
)

// ReconciliationAction is the single action attached to a rule.
type ReconciliationAction struct {
	Type          ActionType `json:"type"`
	TargetAccount string     `json:"target_account,omitempty"`
	MinConfidence *float64   `json:"min_confidence,omitempty"`
}

// ReconciliationRule is a tenant-defined automation rule. A rule with no
// conditions is inert: it matches nothing.
type ReconciliationRule struct {
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
	ID          string                    `json:"id"`
	CompanyID   string                    `json:"company_id"`
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Conditions  []ReconciliationCondition `json:"conditions"`
	Action      ReconciliationAction      `json:"action"`
	Priority    int                       `json:"priority"`
	Active      bool                      `json:"is_active"`
}
