package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finchwallet/finch/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidKind       = errors.New("invalid transaction kind")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidRule       = errors.New("invalid recurring rule")
	ErrInvalidLendDebt   = errors.New("invalid lend/debt entry")
	ErrInvalidPayment    = errors.New("invalid lend/debt payment")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validatePositiveAmount ensures an amount carries no sign of its own.
func validatePositiveAmount(amount decimal.Decimal, paramName string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, paramName)
	}
	return nil
}

// validateTransaction validates a transaction row before it is written.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if txn.AccountID == 0 {
		return fmt.Errorf("%w: missing account ID", ErrInvalidTransaction)
	}
	if !txn.Kind.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidKind, txn.Kind)
	}
	if err := validatePositiveAmount(txn.Amount, "amount"); err != nil {
		return err
	}
	if txn.Kind == model.KindTransfer && txn.TransferAccountID == nil {
		return fmt.Errorf("%w: transfer without target account", ErrInvalidTransaction)
	}
	return nil
}

// validateRule validates a recurring rule row before it is written.
func validateRule(rule *model.RecurringRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if rule.AccountID == 0 {
		return fmt.Errorf("%w: missing account ID", ErrInvalidRule)
	}
	if !rule.Kind.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidKind, rule.Kind)
	}
	if !rule.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %s", ErrInvalidRule, rule.Frequency)
	}
	if rule.StartDate.IsZero() {
		return fmt.Errorf("%w: missing start date", ErrInvalidRule)
	}
	if rule.NextOccurrence.IsZero() {
		return fmt.Errorf("%w: missing occurrence cursor", ErrInvalidRule)
	}
	return validatePositiveAmount(rule.Amount, "amount")
}

// validateLendDebt validates a lend/debt entry before it is written.
func validateLendDebt(entry *model.LendDebt) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if !entry.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %s", ErrInvalidLendDebt, entry.Kind)
	}
	if strings.TrimSpace(entry.Counterparty) == "" {
		return fmt.Errorf("%w: missing counterparty", ErrInvalidLendDebt)
	}
	if entry.AccountID == 0 {
		return fmt.Errorf("%w: missing account ID", ErrInvalidLendDebt)
	}
	return validatePositiveAmount(entry.Amount, "amount")
}

// validatePayment validates a lend/debt payment before it is written.
func validatePayment(payment *model.LendDebtPayment) error {
	if payment == nil {
		return fmt.Errorf("%w: payment", ErrNilParameter)
	}
	if payment.LendDebtID == 0 {
		return fmt.Errorf("%w: missing parent entry", ErrInvalidPayment)
	}
	if payment.AccountID == 0 {
		return fmt.Errorf("%w: missing account ID", ErrInvalidPayment)
	}
	if payment.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidPayment)
	}
	return validatePositiveAmount(payment.Amount, "amount")
}
