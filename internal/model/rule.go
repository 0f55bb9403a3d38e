package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency determines how a recurring rule's occurrence dates advance.
type Frequency string

const (
	// FrequencyDaily advances one calendar day at a time.
	FrequencyDaily Frequency = "DAILY"
	// FrequencyWeekly advances seven calendar days at a time.
	FrequencyWeekly Frequency = "WEEKLY"
	// FrequencyMonthlyStart lands on day 1 of each successive month.
	FrequencyMonthlyStart Frequency = "MONTHLY_START"
	// FrequencyMonthlyEnd lands on the true last day of each successive month.
	FrequencyMonthlyEnd Frequency = "MONTHLY_END"
	// FrequencyYearly advances one year, keeping month and day.
	FrequencyYearly Frequency = "YEARLY"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthlyStart, FrequencyMonthlyEnd, FrequencyYearly:
		return true
	}
	return false
}

// RuleStatus is the lifecycle state of a recurring rule.
type RuleStatus string

const (
	// RuleActive rules are picked up by materialization.
	RuleActive RuleStatus = "ACTIVE"
	// RulePaused rules are skipped but may be resumed.
	RulePaused RuleStatus = "PAUSED"
	// RuleStopped is terminal; a stopped rule never reactivates.
	RuleStopped RuleStatus = "STOPPED"
)

// RecurringRule describes a transaction that posts on a calendar schedule.
// NextOccurrence is the first occurrence day not yet materialized; the engine
// only ever advances it forward.
type RecurringRule struct {
	StartDate         time.Time
	NextOccurrence    time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Description       string
	Kind              TransactionKind
	Frequency         Frequency
	Status            RuleStatus
	Amount            decimal.Decimal
	EndDate           *time.Time
	CategoryID        *int64
	TransferAccountID *int64
	ID                int64
	UserID            int64
	AccountID         int64
}
