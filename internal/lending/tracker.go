// Package lending tracks peer lend/debt positions, their payments, and the
// settlement status derived from them, keeping account balances synchronized
// with every mutation.
package lending

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finchwallet/finch/internal/common"
	"github.com/finchwallet/finch/internal/model"
	"github.com/finchwallet/finch/internal/service"
)

// Tracker is the lend/debt settlement service. Every mutation runs in one
// storage transaction: the row change, its balance delta (with any reversal
// of a prior delta first), and the status recomputation commit together.
type Tracker struct {
	storage service.Storage
}

// NewTracker creates a tracker backed by the given storage.
func NewTracker(storage service.Storage) *Tracker {
	return &Tracker{storage: storage}
}

// EntryInput carries the caller-editable fields of a lend/debt entry.
type EntryInput struct {
	Counterparty string
	Notes        string
	Kind         model.LendDebtKind
	Amount       decimal.Decimal
	DueDate      *time.Time
	AccountID    int64
}

// PaymentInput carries the caller-editable fields of a payment.
type PaymentInput struct {
	Date      time.Time
	Notes     string
	Amount    decimal.Decimal
	AccountID int64
}

// CreateEntry records a new lend or debt and applies its balance effect:
// lending money debits the source account, taking on a debt credits it.
func (t *Tracker) CreateEntry(ctx context.Context, userID int64, input EntryInput) (*model.LendDebt, error) {
	if err := validateEntryInput(&input); err != nil {
		return nil, err
	}

	tx, err := t.storage.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.GetAccount(ctx, userID, input.AccountID); err != nil {
		return nil, err
	}

	entry := &model.LendDebt{
		UserID:       userID,
		Kind:         input.Kind,
		Counterparty: input.Counterparty,
		AccountID:    input.AccountID,
		Amount:       input.Amount,
		DueDate:      input.DueDate,
		Status:       model.StatusFor(input.Amount),
		Notes:        input.Notes,
	}
	if err := tx.CreateLendDebt(ctx, entry); err != nil {
		return nil, err
	}
	if err := tx.ApplyBalanceDelta(ctx, entry.AccountID, entry.Kind.EntryDelta(entry.Amount)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// UpdateEntry edits an entry, reversing the old balance delta on the old
// account before applying the new one on the (possibly different) account,
// then re-deriving the settlement status against the new principal.
func (t *Tracker) UpdateEntry(ctx context.Context, userID, entryID int64, input EntryInput) (*model.LendDebt, error) {
	if err := validateEntryInput(&input); err != nil {
		return nil, err
	}

	tx, err := t.storage.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	entry, err := tx.GetLendDebt(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.GetAccount(ctx, userID, input.AccountID); err != nil {
		return nil, err
	}

	if err := tx.ApplyBalanceDelta(ctx, entry.AccountID, entry.Kind.EntryDelta(entry.Amount).Neg()); err != nil {
		return nil, err
	}

	entry.Kind = input.Kind
	entry.Counterparty = input.Counterparty
	entry.AccountID = input.AccountID
	entry.Amount = input.Amount
	entry.DueDate = input.DueDate
	entry.Notes = input.Notes

	if err := tx.ApplyBalanceDelta(ctx, entry.AccountID, entry.Kind.EntryDelta(entry.Amount)); err != nil {
		return nil, err
	}
	if err := tx.UpdateLendDebt(ctx, entry); err != nil {
		return nil, err
	}
	if err := t.recomputeStatus(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// DeleteEntry removes an entry and all its payments, reversing every balance
// effect they ever applied before the rows disappear.
func (t *Tracker) DeleteEntry(ctx context.Context, userID, entryID int64) error {
	tx, err := t.storage.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	entry, err := tx.GetLendDebt(ctx, userID, entryID)
	if err != nil {
		return err
	}
	payments, err := tx.ListPayments(ctx, entryID)
	if err != nil {
		return err
	}

	if err := tx.ApplyBalanceDelta(ctx, entry.AccountID, entry.Kind.EntryDelta(entry.Amount).Neg()); err != nil {
		return err
	}
	for _, payment := range payments {
		if err := tx.ApplyBalanceDelta(ctx, payment.AccountID, entry.Kind.PaymentDelta(payment.Amount).Neg()); err != nil {
			return err
		}
	}
	if err := tx.DeleteLendDebt(ctx, entryID); err != nil {
		return err
	}

	return tx.Commit()
}

// AddPayment records a repayment: money coming back on a lend, money going
// out on a debt. Status is re-derived afterwards.
func (t *Tracker) AddPayment(ctx context.Context, userID, entryID int64, input PaymentInput) (*model.LendDebtPayment, error) {
	if err := validatePaymentInput(&input); err != nil {
		return nil, err
	}

	tx, err := t.storage.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	entry, err := tx.GetLendDebt(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.GetAccount(ctx, userID, input.AccountID); err != nil {
		return nil, err
	}

	payment := &model.LendDebtPayment{
		LendDebtID: entryID,
		AccountID:  input.AccountID,
		Amount:     input.Amount,
		Date:       input.Date,
		Notes:      input.Notes,
	}
	if err := tx.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}
	if err := tx.ApplyBalanceDelta(ctx, payment.AccountID, entry.Kind.PaymentDelta(payment.Amount)); err != nil {
		return nil, err
	}
	if err := t.recomputeStatus(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return payment, nil
}

// UpdatePayment amends a payment, reversing its old balance effect on its old
// account before applying the new one.
func (t *Tracker) UpdatePayment(ctx context.Context, userID, paymentID int64, input PaymentInput) (*model.LendDebtPayment, error) {
	if err := validatePaymentInput(&input); err != nil {
		return nil, err
	}

	tx, err := t.storage.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	payment, err := tx.GetPayment(ctx, userID, paymentID)
	if err != nil {
		return nil, err
	}
	entry, err := tx.GetLendDebt(ctx, userID, payment.LendDebtID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.GetAccount(ctx, userID, input.AccountID); err != nil {
		return nil, err
	}

	if err := tx.ApplyBalanceDelta(ctx, payment.AccountID, entry.Kind.PaymentDelta(payment.Amount).Neg()); err != nil {
		return nil, err
	}

	payment.AccountID = input.AccountID
	payment.Amount = input.Amount
	payment.Date = input.Date
	payment.Notes = input.Notes

	if err := tx.ApplyBalanceDelta(ctx, payment.AccountID, entry.Kind.PaymentDelta(payment.Amount)); err != nil {
		return nil, err
	}
	if err := tx.UpdatePayment(ctx, payment); err != nil {
		return nil, err
	}
	if err := t.recomputeStatus(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return payment, nil
}

// DeletePayment removes a payment, reversing its balance effect. Deleting the
// payment that settled an entry reopens it.
func (t *Tracker) DeletePayment(ctx context.Context, userID, paymentID int64) error {
	tx, err := t.storage.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	payment, err := tx.GetPayment(ctx, userID, paymentID)
	if err != nil {
		return err
	}
	entry, err := tx.GetLendDebt(ctx, userID, payment.LendDebtID)
	if err != nil {
		return err
	}

	if err := tx.ApplyBalanceDelta(ctx, payment.AccountID, entry.Kind.PaymentDelta(payment.Amount).Neg()); err != nil {
		return err
	}
	if err := tx.DeletePayment(ctx, paymentID); err != nil {
		return err
	}
	if err := t.recomputeStatus(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// MarkSettled closes an entry by posting a payment for the full outstanding
// amount through its source account. It is exactly equivalent to AddPayment
// with that amount; no status is ever written directly.
func (t *Tracker) MarkSettled(ctx context.Context, userID, entryID int64, date time.Time) (*model.LendDebtPayment, error) {
	entry, payments, err := t.entryWithPayments(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}

	outstanding := entry.Outstanding(payments)
	if outstanding.LessThanOrEqual(decimal.Zero) {
		return nil, common.Validationf("entry %d is already settled", entryID)
	}

	return t.AddPayment(ctx, userID, entryID, PaymentInput{
		AccountID: entry.AccountID,
		Amount:    outstanding,
		Date:      date,
		Notes:     "settled in full",
	})
}

// Outstanding returns an entry's remaining unpaid amount and derived status.
// It is computed from the payment rows on every call; the stored status is
// just a cached projection of the same derivation.
func (t *Tracker) Outstanding(ctx context.Context, userID, entryID int64) (decimal.Decimal, model.LendDebtStatus, error) {
	entry, payments, err := t.entryWithPayments(ctx, userID, entryID)
	if err != nil {
		return decimal.Zero, "", err
	}
	outstanding := entry.Outstanding(payments)
	return outstanding, model.StatusFor(outstanding), nil
}

func (t *Tracker) entryWithPayments(ctx context.Context, userID, entryID int64) (*model.LendDebt, []model.LendDebtPayment, error) {
	entry, err := t.storage.GetLendDebt(ctx, userID, entryID)
	if err != nil {
		return nil, nil, err
	}
	payments, err := t.storage.ListPayments(ctx, entryID)
	if err != nil {
		return nil, nil, err
	}
	return entry, payments, nil
}

// recomputeStatus is the single home of the OPEN/SETTLED decision: it
// re-derives outstanding from the payment rows visible inside the transaction
// and persists the status only when it changed.
func (t *Tracker) recomputeStatus(ctx context.Context, tx service.Transaction, entry *model.LendDebt) error {
	payments, err := tx.ListPayments(ctx, entry.ID)
	if err != nil {
		return err
	}
	status := model.StatusFor(entry.Outstanding(payments))
	if status == entry.Status {
		return nil
	}
	if err := tx.SetLendDebtStatus(ctx, entry.ID, status); err != nil {
		return err
	}
	entry.Status = status
	return nil
}

func validateEntryInput(input *EntryInput) error {
	if !input.Kind.Valid() {
		return common.Validationf("unknown lend/debt kind %q", input.Kind)
	}
	if input.Counterparty == "" {
		return common.Validationf("counterparty is required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return common.Validationf("amount must be positive")
	}
	return nil
}

func validatePaymentInput(input *PaymentInput) error {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return common.Validationf("amount must be positive")
	}
	if input.Date.IsZero() {
		return common.Validationf("payment date is required")
	}
	return nil
}
