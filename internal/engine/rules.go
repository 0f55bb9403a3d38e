package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finchwallet/finch/internal/calendar"
	"github.com/finchwallet/finch/internal/common"
	"github.com/finchwallet/finch/internal/model"
	"github.com/finchwallet/finch/internal/service"
)

// Rules manages recurring rule lifecycle and validation.
type Rules struct {
	storage service.Storage
}

// NewRules creates a rule service backed by the given storage.
func NewRules(storage service.Storage) *Rules {
	return &Rules{storage: storage}
}

// RuleInput carries the caller-editable fields of a recurring rule.
type RuleInput struct {
	StartDate         time.Time
	Description       string
	Kind              model.TransactionKind
	Frequency         model.Frequency
	Amount            decimal.Decimal
	EndDate           *time.Time
	CategoryID        *int64
	TransferAccountID *int64
	AccountID         int64
}

// Create validates and stores a new rule. The occurrence cursor starts at the
// rule's start date and the rule is born ACTIVE.
func (r *Rules) Create(ctx context.Context, userID int64, input RuleInput) (*model.RecurringRule, error) {
	if err := r.validate(ctx, userID, &input); err != nil {
		return nil, err
	}

	rule := &model.RecurringRule{
		UserID:            userID,
		AccountID:         input.AccountID,
		CategoryID:        input.CategoryID,
		Kind:              input.Kind,
		TransferAccountID: input.TransferAccountID,
		Amount:            input.Amount,
		Frequency:         input.Frequency,
		StartDate:         dateOnly(input.StartDate),
		EndDate:           dateOnlyPtr(input.EndDate),
		Status:            model.RuleActive,
		NextOccurrence:    dateOnly(input.StartDate),
		Description:       input.Description,
	}
	if err := r.storage.CreateRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// Update validates and applies edits to an existing rule. Stopped rules are
// immutable, and the occurrence cursor never moves backward: pushing the
// start date past the cursor drags the cursor forward with it, while moving
// it earlier leaves already-processed dates alone.
func (r *Rules) Update(ctx context.Context, userID, ruleID int64, input RuleInput) (*model.RecurringRule, error) {
	rule, err := r.storage.GetRule(ctx, userID, ruleID)
	if err != nil {
		return nil, err
	}
	if rule.Status == model.RuleStopped {
		return nil, common.Validationf("rule %d is stopped and cannot be modified", ruleID)
	}

	if err := r.validate(ctx, userID, &input); err != nil {
		return nil, err
	}

	rule.AccountID = input.AccountID
	rule.CategoryID = input.CategoryID
	rule.Kind = input.Kind
	rule.TransferAccountID = input.TransferAccountID
	rule.Amount = input.Amount
	rule.Frequency = input.Frequency
	rule.StartDate = dateOnly(input.StartDate)
	rule.EndDate = dateOnlyPtr(input.EndDate)
	rule.Description = input.Description
	if rule.StartDate.After(rule.NextOccurrence) {
		rule.NextOccurrence = rule.StartDate
	}

	if err := r.storage.UpdateRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// Pause suspends an active rule.
func (r *Rules) Pause(ctx context.Context, userID, ruleID int64) (*model.RecurringRule, error) {
	return r.transition(ctx, userID, ruleID, model.RulePaused)
}

// Resume reactivates a paused rule. Stopped rules stay stopped.
func (r *Rules) Resume(ctx context.Context, userID, ruleID int64) (*model.RecurringRule, error) {
	return r.transition(ctx, userID, ruleID, model.RuleActive)
}

// Stop terminates a rule permanently.
func (r *Rules) Stop(ctx context.Context, userID, ruleID int64) (*model.RecurringRule, error) {
	return r.transition(ctx, userID, ruleID, model.RuleStopped)
}

func (r *Rules) transition(ctx context.Context, userID, ruleID int64, target model.RuleStatus) (*model.RecurringRule, error) {
	rule, err := r.storage.GetRule(ctx, userID, ruleID)
	if err != nil {
		return nil, err
	}
	if rule.Status == model.RuleStopped {
		return nil, common.Validationf("rule %d is stopped and cannot change status", ruleID)
	}
	rule.Status = target
	if err := r.storage.UpdateRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// validate enforces the rule contract: a positive amount, a known kind and
// frequency, an owned source account, a transfer target that is owned and
// distinct from the source (and only for transfers), a category only on
// non-transfers, and an end date no earlier than the start date.
func (r *Rules) validate(ctx context.Context, userID int64, input *RuleInput) error {
	if !input.Kind.Valid() {
		return common.Validationf("unknown transaction kind %q", input.Kind)
	}
	if !input.Frequency.Valid() {
		return common.Validationf("unknown frequency %q", input.Frequency)
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return common.Validationf("amount must be positive")
	}
	if input.StartDate.IsZero() {
		return common.Validationf("start date is required")
	}
	if input.EndDate != nil && dateOnly(*input.EndDate).Before(dateOnly(input.StartDate)) {
		return common.Validationf("end date is before start date")
	}

	if _, err := r.storage.GetAccount(ctx, userID, input.AccountID); err != nil {
		return err
	}

	switch input.Kind {
	case model.KindTransfer:
		if input.TransferAccountID == nil {
			return common.Validationf("transfer rule requires a target account")
		}
		if *input.TransferAccountID == input.AccountID {
			return common.Validationf("transfer target must differ from source account")
		}
		if input.CategoryID != nil {
			return common.Validationf("transfer rules cannot carry a category")
		}
		if _, err := r.storage.GetAccount(ctx, userID, *input.TransferAccountID); err != nil {
			return err
		}
	default:
		if input.TransferAccountID != nil {
			return common.Validationf("only transfer rules carry a target account")
		}
		if input.CategoryID != nil {
			if _, err := r.storage.GetCategory(ctx, userID, *input.CategoryID); err != nil {
				return err
			}
		}
	}
	return nil
}

// dateOnly strips any time-of-day component, keeping the civil date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return calendar.Date(y, m, d)
}

func dateOnlyPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := dateOnly(*t)
	return &d
}
