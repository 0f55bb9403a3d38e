package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finchwallet/finch/internal/calendar"
	"github.com/finchwallet/finch/internal/common"
	"github.com/finchwallet/finch/internal/model"
)

const ruleColumns = `id, user_id, account_id, category_id, kind, transfer_account_id,
	amount, frequency, start_date, end_date, status, next_occurrence, description,
	created_at, updated_at`

// CreateRule creates a recurring rule, filling in its generated ID.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.RecurringRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.createRule(ctx, s.db, rule)
}

func (s *SQLiteStorage) createRule(ctx context.Context, q queryer, rule *model.RecurringRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}

	now := nowUTC()
	res, err := q.ExecContext(ctx, `
		INSERT INTO recurring_rules (user_id, account_id, category_id, kind,
			transfer_account_id, amount, frequency, start_date, end_date, status,
			next_occurrence, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rule.UserID, rule.AccountID, rule.CategoryID, string(rule.Kind),
		rule.TransferAccountID, rule.Amount.String(), string(rule.Frequency),
		calendar.DateStamp(rule.StartDate), stampOrNil(rule.EndDate), string(rule.Status),
		calendar.DateStamp(rule.NextOccurrence), rule.Description, now, now)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read rule ID: %w", err)
	}
	rule.ID = id
	rule.CreatedAt = now
	rule.UpdatedAt = now
	return nil
}

// GetRule retrieves a rule by ID, scoped to its owner.
func (s *SQLiteStorage) GetRule(ctx context.Context, userID, id int64) (*model.RecurringRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getRule(ctx, s.db, userID, id)
}

func (s *SQLiteStorage) getRule(ctx context.Context, q queryer, userID, id int64) (*model.RecurringRule, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+ruleColumns+` FROM recurring_rules WHERE id = ? AND user_id = ?
	`, id, userID)

	rule, err := scanRule(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("rule %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// ListRules returns all of a user's rules, newest first.
func (s *SQLiteStorage) ListRules(ctx context.Context, userID int64) ([]model.RecurringRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listRules(ctx, s.db, userID)
}

func (s *SQLiteStorage) listRules(ctx context.Context, q queryer, userID int64) ([]model.RecurringRule, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+ruleColumns+` FROM recurring_rules WHERE user_id = ?
		ORDER BY id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectRules(rows)
}

// ListDueRules returns ACTIVE rules whose occurrence cursor is on or before
// throughStamp and whose end date, if set, is on or after fromStamp. Day
// stamps are stored as YYYY-MM-DD text, so string comparison in SQL matches
// calendar ordering.
func (s *SQLiteStorage) ListDueRules(ctx context.Context, userID int64, throughStamp, fromStamp string) ([]model.RecurringRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listDueRules(ctx, s.db, userID, throughStamp, fromStamp)
}

func (s *SQLiteStorage) listDueRules(ctx context.Context, q queryer, userID int64, throughStamp, fromStamp string) ([]model.RecurringRule, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+ruleColumns+` FROM recurring_rules
		WHERE user_id = ?
			AND status = ?
			AND next_occurrence <= ?
			AND (end_date IS NULL OR end_date >= ?)
		ORDER BY id
	`, userID, string(model.RuleActive), throughStamp, fromStamp)
	if err != nil {
		return nil, fmt.Errorf("failed to list due rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectRules(rows)
}

// UpdateRule rewrites a rule's mutable fields.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.RecurringRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.updateRule(ctx, s.db, rule)
}

func (s *SQLiteStorage) updateRule(ctx context.Context, q queryer, rule *model.RecurringRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}

	res, err := q.ExecContext(ctx, `
		UPDATE recurring_rules
		SET account_id = ?, category_id = ?, kind = ?, transfer_account_id = ?,
			amount = ?, frequency = ?, start_date = ?, end_date = ?, status = ?,
			next_occurrence = ?, description = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, rule.AccountID, rule.CategoryID, string(rule.Kind), rule.TransferAccountID,
		rule.Amount.String(), string(rule.Frequency), calendar.DateStamp(rule.StartDate),
		stampOrNil(rule.EndDate), string(rule.Status), calendar.DateStamp(rule.NextOccurrence),
		rule.Description, nowUTC(), rule.ID, rule.UserID)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rule update: %w", err)
	}
	if affected == 0 {
		return common.NotFoundf("rule %d", rule.ID)
	}
	return nil
}

// AdvanceRuleCursor moves a rule's next-occurrence cursor forward. The WHERE
// guard makes regression impossible: a stamp at or behind the stored cursor
// leaves the row untouched.
func (s *SQLiteStorage) AdvanceRuleCursor(ctx context.Context, ruleID int64, cursorStamp string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.advanceRuleCursor(ctx, s.db, ruleID, cursorStamp)
}

func (s *SQLiteStorage) advanceRuleCursor(ctx context.Context, q queryer, ruleID int64, cursorStamp string) error {
	if err := validateString(cursorStamp, "cursorStamp"); err != nil {
		return err
	}

	_, err := q.ExecContext(ctx, `
		UPDATE recurring_rules
		SET next_occurrence = ?, updated_at = ?
		WHERE id = ? AND next_occurrence < ?
	`, cursorStamp, nowUTC(), ruleID, cursorStamp)
	if err != nil {
		return fmt.Errorf("failed to advance rule cursor: %w", err)
	}
	return nil
}

func collectRules(rows *sql.Rows) ([]model.RecurringRule, error) {
	var rules []model.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

func scanRule(scan func(dest ...any) error) (*model.RecurringRule, error) {
	rule := &model.RecurringRule{}
	var kind, frequency, status, startDate, nextOccurrence, amount string
	var endDate *string

	if err := scan(&rule.ID, &rule.UserID, &rule.AccountID, &rule.CategoryID,
		&kind, &rule.TransferAccountID, &amount, &frequency, &startDate, &endDate,
		&status, &nextOccurrence, &rule.Description, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return nil, err
	}

	rule.Kind = model.TransactionKind(kind)
	rule.Frequency = model.Frequency(frequency)
	rule.Status = model.RuleStatus(status)

	var err error
	if rule.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("corrupt amount for rule %d: %w", rule.ID, err)
	}
	if rule.StartDate, err = calendar.ParseDate(startDate); err != nil {
		return nil, err
	}
	if rule.NextOccurrence, err = calendar.ParseDate(nextOccurrence); err != nil {
		return nil, err
	}
	if endDate != nil {
		end, err := calendar.ParseDate(*endDate)
		if err != nil {
			return nil, err
		}
		rule.EndDate = &end
	}
	return rule, nil
}

// stampOrNil maps an optional civil date to its nullable stored stamp.
func stampOrNil(d *time.Time) *string {
	if d == nil {
		return nil
	}
	stamp := calendar.DateStamp(*d)
	return &stamp
}
