// Package engine materializes recurring rules into posted transactions and
// manages rule lifecycle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finchwallet/finch/internal/calendar"
	"github.com/finchwallet/finch/internal/common"
	"github.com/finchwallet/finch/internal/model"
	"github.com/finchwallet/finch/internal/service"
)

// Materializer turns due rule occurrences into posted transactions. It is
// safe to invoke concurrently or repeatedly for overlapping windows: the
// (rule, occurrence day) uniqueness key absorbs duplicate inserts, and each
// rule's batch runs in its own storage transaction.
type Materializer struct {
	storage service.Storage
	clock   func() time.Time
}

// NewMaterializer creates a materializer backed by the given storage.
func NewMaterializer(storage service.Storage) *Materializer {
	return &Materializer{
		storage: storage,
		clock:   time.Now,
	}
}

// WithClock overrides the source of "now" (the horizon clamp anchor).
func (m *Materializer) WithClock(clock func() time.Time) *Materializer {
	m.clock = clock
	return m
}

// RuleError records a single rule's failure during a materialization batch.
type RuleError struct {
	Err    error
	RuleID int64
}

// Result reports the outcome of one materialization call.
type Result struct {
	RuleErrors []RuleError
	Generated  int
}

// Materialize generates transactions for every ACTIVE rule of the user that
// has occurrences inside the window. The window is clamped to whole civil
// days in the user's time zone and never extends past "today" there, so
// future-dated rows are impossible no matter what the caller asks for.
//
// Per-rule failures (missing account, invalid data) are recorded in the
// result and do not abort sibling rules; only storage-layer failures are
// fatal. Re-invoking with the same or an overlapping window is a no-op for
// already-materialized occurrences.
func (m *Materializer) Materialize(ctx context.Context, userID int64, from, to time.Time) (*Result, error) {
	user, err := m.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	loc, err := calendar.LoadZone(user.Timezone)
	if err != nil {
		return nil, err
	}

	effectiveFrom := calendar.StartOfDay(from, loc)
	effectiveTo := calendar.EndOfDay(to, loc)
	if today := calendar.EndOfDay(m.clock(), loc); effectiveTo.After(today) {
		effectiveTo = today
	}

	result := &Result{}
	if effectiveFrom.After(effectiveTo) {
		return result, nil
	}

	fromStamp := calendar.DayStamp(effectiveFrom, loc)
	toStamp := calendar.DayStamp(effectiveTo, loc)

	rules, err := m.storage.ListDueRules(ctx, userID, toStamp, fromStamp)
	if err != nil {
		return nil, fmt.Errorf("failed to load due rules: %w", err)
	}

	for i := range rules {
		rule := &rules[i]
		generated, err := m.materializeRule(ctx, rule, loc, fromStamp, toStamp)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrValidation) {
				common.LogError(err, "Skipping rule during materialization", common.Fields{
					"rule_id": rule.ID,
					"user_id": userID,
				})
				result.RuleErrors = append(result.RuleErrors, RuleError{RuleID: rule.ID, Err: err})
				continue
			}
			return nil, fmt.Errorf("materialization failed at rule %d: %w", rule.ID, err)
		}
		result.Generated += generated
	}

	slog.Info("Materialization complete",
		"user_id", userID,
		"from", fromStamp,
		"to", toStamp,
		"generated", result.Generated,
		"failed_rules", len(result.RuleErrors))
	return result, nil
}

// materializeRule walks one rule's occurrences inside a single storage
// transaction: every insert, balance delta, and the final cursor advance
// commit together or not at all.
func (m *Materializer) materializeRule(ctx context.Context, rule *model.RecurringRule, loc *time.Location, fromStamp, toStamp string) (int, error) {
	tx, err := m.storage.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// A rule pointing at a deleted or foreign account fails here, before any
	// occurrence posts.
	if _, err := tx.GetAccount(ctx, rule.UserID, rule.AccountID); err != nil {
		return 0, err
	}
	if rule.Kind == model.KindTransfer {
		if rule.TransferAccountID == nil {
			return 0, common.Validationf("transfer rule %d has no target account", rule.ID)
		}
		if _, err := tx.GetAccount(ctx, rule.UserID, *rule.TransferAccountID); err != nil {
			return 0, err
		}
	}

	generated := 0
	cursor := rule.NextOccurrence

	for calendar.DateStamp(cursor) <= toStamp {
		stamp := calendar.DateStamp(cursor)

		// The last occurrence on the end date itself is still generated;
		// anything past it ends the rule's walk without consuming the date.
		if rule.EndDate != nil && stamp > calendar.DateStamp(*rule.EndDate) {
			break
		}

		// Occurrences before the window are consumed without posting so the
		// cursor still lands on the first unprocessed date.
		if stamp >= fromStamp {
			inserted, err := tx.InsertOccurrence(ctx, m.occurrenceTransaction(rule, cursor, stamp, loc))
			if err != nil {
				return 0, err
			}
			if inserted {
				if err := m.applyOccurrenceDeltas(ctx, tx, rule); err != nil {
					return 0, err
				}
				generated++
			}
		}

		cursor = calendar.NextOccurrence(cursor, rule.Frequency)
	}

	// Persist the walk's stopping point as the next cursor. AdvanceRuleCursor
	// only ever moves forward, so an overlapping concurrent call cannot drag
	// the rule back.
	if cursor.After(rule.NextOccurrence) {
		if err := tx.AdvanceRuleCursor(ctx, rule.ID, calendar.DateStamp(cursor)); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rule %d batch: %w", rule.ID, err)
	}
	return generated, nil
}

// occurrenceTransaction builds the ledger row for one occurrence. The row is
// dated at start of day in the user's zone on the occurrence's civil day.
func (m *Materializer) occurrenceTransaction(rule *model.RecurringRule, occurrence time.Time, stamp string, loc *time.Location) *model.Transaction {
	y, mo, d := occurrence.UTC().Date()
	ruleID := rule.ID
	return &model.Transaction{
		ID:                uuid.NewString(),
		UserID:            rule.UserID,
		AccountID:         rule.AccountID,
		CategoryID:        rule.CategoryID,
		Kind:              rule.Kind,
		Amount:            rule.Amount,
		Date:              time.Date(y, mo, d, 0, 0, 0, 0, loc),
		Description:       rule.Description,
		TransferAccountID: rule.TransferAccountID,
		RecurringRuleID:   &ruleID,
		OccurrenceDay:     stamp,
	}
}

// applyOccurrenceDeltas posts the balance effect of one generated row:
// income credits the source, expense debits it, and a transfer debits the
// source while crediting the target.
func (m *Materializer) applyOccurrenceDeltas(ctx context.Context, tx service.Transaction, rule *model.RecurringRule) error {
	if err := tx.ApplyBalanceDelta(ctx, rule.AccountID, rule.Kind.SourceDelta(rule.Amount)); err != nil {
		return err
	}
	if rule.Kind == model.KindTransfer {
		return tx.ApplyBalanceDelta(ctx, *rule.TransferAccountID, rule.Amount)
	}
	return nil
}
