package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/petrel-io/ledgermatch/internal/common"
	"github.com/petrel-io/ledgermatch/internal/model"
)

const ruleColumns = `id, company_id, name, description, conditions, action, priority, is_active,
	created_at, updated_at`

// CreateRule persists a new reconciliation rule. Conditions and the action
// are stored as JSON.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.ReconciliationRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	conditions, action, err := marshalRuleParts(rule)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_rules (
			id, company_id, name, description, conditions, action, priority, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.CompanyID,
		rule.Name,
		rule.Description,
		conditions,
		action,
		rule.Priority,
		rule.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}
	return nil
}

// GetRule retrieves a rule by id.
func (s *SQLiteStorage) GetRule(ctx context.Context, id string) (*model.ReconciliationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM reconciliation_rules WHERE id = ?`, id)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// ListRules retrieves a company's rules ordered by priority. Priority
// ordering is advisory for humans; the engine evaluates all active rules.
func (s *SQLiteStorage) ListRules(ctx context.Context, companyID string, activeOnly bool) ([]model.ReconciliationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(companyID, "companyID"); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + ` FROM reconciliation_rules WHERE company_id = ?`
	args := []any{companyID}
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY priority ASC, name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.ReconciliationRule
	for rows.Next() {
		rule, scanErr := scanRule(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", scanErr)
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// UpdateRule replaces a rule's mutable fields.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.ReconciliationRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	if err := validateString(rule.ID, "rule.ID"); err != nil {
		return err
	}

	conditions, action, err := marshalRuleParts(rule)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE reconciliation_rules
		SET name = ?, description = ?, conditions = ?, action = ?, priority = ?, is_active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		rule.Name,
		rule.Description,
		conditions,
		action,
		rule.Priority,
		rule.Active,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %s: %w", rule.ID, common.ErrNotFound)
	}
	return nil
}

// DeleteRule removes a rule. Deleting an unknown rule is an error.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM reconciliation_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func marshalRuleParts(rule *model.ReconciliationRule) (string, string, error) {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode rule conditions: %w", err)
	}
	action, err := json.Marshal(rule.Action)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode rule action: %w", err)
	}
	return string(conditions), string(action), nil
}

func scanRule(row rowScanner) (*model.ReconciliationRule, error) {
	var rule model.ReconciliationRule
	var conditions, action string

	err := row.Scan(
		&rule.ID,
		&rule.CompanyID,
		&rule.Name,
		&rule.Description,
		&conditions,
		&action,
		&rule.Priority,
		&rule.Active,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
		return nil, fmt.Errorf("failed to decode rule conditions: %w", err)
	}
	if err := json.Unmarshal([]byte(action), &rule.Action); err != nil {
		return nil, fmt.Errorf("failed to decode rule action: %w", err)
	}
	return &rule, nil
}
