// Package model defines the typed domain entities shared across the ledger.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind represents the ledger effect of a transaction.
type TransactionKind string

const (
	// KindIncome credits the source account.
	KindIncome TransactionKind = "INCOME"
	// KindExpense debits the source account.
	KindExpense TransactionKind = "EXPENSE"
	// KindTransfer debits the source account and credits the transfer target.
	KindTransfer TransactionKind = "TRANSFER"
)

// Valid reports whether k is a known transaction kind.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer:
		return true
	}
	return false
}

// SourceDelta returns the signed balance effect of a transaction of this kind
// on its source account. Amount is always positive; the kind carries the sign.
func (k TransactionKind) SourceDelta(amount decimal.Decimal) decimal.Decimal {
	if k == KindIncome {
		return amount
	}
	return amount.Neg()
}

// Transaction represents a single posted ledger row. Rows generated by the
// recurrence engine carry a back-reference to their rule and the occurrence
// day they represent; at most one row exists per (rule, occurrence day) pair.
type Transaction struct {
	Date              time.Time
	CreatedAt         time.Time
	ID                string
	Description       string
	Kind              TransactionKind
	Amount            decimal.Decimal
	UserID            int64
	AccountID         int64
	CategoryID        *int64
	TransferAccountID *int64
	RecurringRuleID   *int64
	OccurrenceDay     string // YYYY-MM-DD, set only on generated rows
}
