package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a money account owned by a single user. Its balance is
// maintained incrementally: every posted transaction, lend/debt entry, and
// payment applies a matching signed delta, so the stored balance always equals
// the opening balance plus the sum of all posted effects.
type Account struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Name      string
	Group     string
	Balance   decimal.Decimal
	ID        int64
	UserID    int64
}

// User holds the per-user settings the ledger core consumes. Timezone is an
// IANA identifier; an empty value means UTC.
type User struct {
	CreatedAt time.Time
	Name      string
	Timezone  string
	ID        int64
}
