package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LendDebtKind distinguishes money given away from money received.
type LendDebtKind string

const (
	// KindLend tracks money lent to a counterparty.
	KindLend LendDebtKind = "LEND"
	// KindDebt tracks money borrowed from a counterparty.
	KindDebt LendDebtKind = "DEBT"
)

// Valid reports whether k is a known lend/debt kind.
func (k LendDebtKind) Valid() bool {
	return k == KindLend || k == KindDebt
}

// EntryDelta returns the signed balance effect of creating an entry of this
// kind: lending money out debits the source account, taking on a debt credits it.
func (k LendDebtKind) EntryDelta(amount decimal.Decimal) decimal.Decimal {
	if k == KindLend {
		return amount.Neg()
	}
	return amount
}

// PaymentDelta returns the signed balance effect of a payment against an entry
// of this kind: repayments on a lend bring money back, payments on a debt send
// money out.
func (k LendDebtKind) PaymentDelta(amount decimal.Decimal) decimal.Decimal {
	if k == KindLend {
		return amount
	}
	return amount.Neg()
}

// LendDebtStatus is derived from outstanding amount, never set directly.
type LendDebtStatus string

const (
	// LendDebtOpen means the entry still has outstanding amount above zero.
	LendDebtOpen LendDebtStatus = "OPEN"
	// LendDebtSettled means payments cover the full principal.
	LendDebtSettled LendDebtStatus = "SETTLED"
)

// LendDebt tracks a peer lending or borrowing position. Outstanding amount is
// always derived as principal minus the sum of payment amounts; Status follows
// from it (SETTLED exactly when outstanding <= 0).
type LendDebt struct {
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Counterparty string
	Notes        string
	Kind         LendDebtKind
	Status       LendDebtStatus
	Amount       decimal.Decimal
	DueDate      *time.Time
	ID           int64
	UserID       int64
	AccountID    int64
}

// LendDebtPayment is a single repayment (or payoff installment) against a
// lend/debt entry, flowing through a specific account.
type LendDebtPayment struct {
	Date       time.Time
	CreatedAt  time.Time
	Notes      string
	Amount     decimal.Decimal
	ID         int64
	LendDebtID int64
	AccountID  int64
}

// Outstanding returns the remaining unpaid amount given the entry's payments.
func (l *LendDebt) Outstanding(payments []LendDebtPayment) decimal.Decimal {
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	return l.Amount.Sub(paid)
}

// StatusFor derives the settlement status for an outstanding amount.
func StatusFor(outstanding decimal.Decimal) LendDebtStatus {
	if outstanding.LessThanOrEqual(decimal.Zero) {
		return LendDebtSettled
	}
	return LendDebtOpen
}
