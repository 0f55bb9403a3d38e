// Package service defines the contracts between the ledger core and its
// persistence layer.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finchwallet/finch/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	AccountID *int64
	Limit     int
}

// Store is the set of entity operations available both on the root storage
// handle and inside an open transaction. Every mutation path that touches an
// account balance calls these through a Transaction so row writes and balance
// deltas commit or roll back together.
type Store interface {
	// User operations
	GetUser(ctx context.Context, id int64) (*model.User, error)
	SetUserTimezone(ctx context.Context, id int64, timezone string) error

	// Account operations
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, userID, id int64) (*model.Account, error)
	ListAccounts(ctx context.Context, userID int64) ([]model.Account, error)
	// ApplyBalanceDelta atomically adds a signed amount to an account's
	// stored balance. It is a pure ledger primitive: no overdraft or policy
	// checks happen here.
	ApplyBalanceDelta(ctx context.Context, accountID int64, delta decimal.Decimal) error

	// Category operations
	CreateCategory(ctx context.Context, category *model.Category) error
	GetCategory(ctx context.Context, userID, id int64) (*model.Category, error)
	ListCategories(ctx context.Context, userID int64) ([]model.Category, error)

	// Transaction operations
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	// InsertOccurrence writes a rule-generated transaction keyed by
	// (rule, occurrence day). It reports false, without error, when a row
	// for that key already exists.
	InsertOccurrence(ctx context.Context, txn *model.Transaction) (bool, error)
	ListTransactions(ctx context.Context, userID int64, filter TransactionFilter) ([]model.Transaction, error)

	// Recurring rule operations
	CreateRule(ctx context.Context, rule *model.RecurringRule) error
	GetRule(ctx context.Context, userID, id int64) (*model.RecurringRule, error)
	ListRules(ctx context.Context, userID int64) ([]model.RecurringRule, error)
	// ListDueRules returns ACTIVE rules whose cursor is on or before the
	// given day stamp and whose end date, if any, is on or after fromStamp.
	ListDueRules(ctx context.Context, userID int64, throughStamp, fromStamp string) ([]model.RecurringRule, error)
	UpdateRule(ctx context.Context, rule *model.RecurringRule) error
	// AdvanceRuleCursor moves a rule's next-occurrence cursor forward. The
	// cursor never regresses; a stamp at or behind the stored one is a no-op.
	AdvanceRuleCursor(ctx context.Context, ruleID int64, cursorStamp string) error

	// Lend/debt operations
	CreateLendDebt(ctx context.Context, entry *model.LendDebt) error
	GetLendDebt(ctx context.Context, userID, id int64) (*model.LendDebt, error)
	ListLendDebts(ctx context.Context, userID int64) ([]model.LendDebt, error)
	UpdateLendDebt(ctx context.Context, entry *model.LendDebt) error
	DeleteLendDebt(ctx context.Context, id int64) error
	SetLendDebtStatus(ctx context.Context, id int64, status model.LendDebtStatus) error

	// Lend/debt payment operations
	CreatePayment(ctx context.Context, payment *model.LendDebtPayment) error
	GetPayment(ctx context.Context, userID, id int64) (*model.LendDebtPayment, error)
	ListPayments(ctx context.Context, lendDebtID int64) ([]model.LendDebtPayment, error)
	UpdatePayment(ctx context.Context, payment *model.LendDebtPayment) error
	DeletePayment(ctx context.Context, id int64) error
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	Store

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all entity operations for use within the transaction
	Store
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
