package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finchwallet/finch/internal/calendar"
	"github.com/finchwallet/finch/internal/common"
	"github.com/finchwallet/finch/internal/model"
)

const lendDebtColumns = `id, user_id, kind, counterparty, account_id, amount,
	due_date, status, notes, created_at, updated_at`

// CreateLendDebt creates a lend/debt entry, filling in its generated ID.
func (s *SQLiteStorage) CreateLendDebt(ctx context.Context, entry *model.LendDebt) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.createLendDebt(ctx, s.db, entry)
}

func (s *SQLiteStorage) createLendDebt(ctx context.Context, q queryer, entry *model.LendDebt) error {
	if err := validateLendDebt(entry); err != nil {
		return err
	}

	now := nowUTC()
	res, err := q.ExecContext(ctx, `
		INSERT INTO lend_debts (user_id, kind, counterparty, account_id, amount,
			due_date, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.UserID, string(entry.Kind), entry.Counterparty, entry.AccountID,
		entry.Amount.String(), stampOrNil(entry.DueDate), string(entry.Status),
		entry.Notes, now, now)
	if err != nil {
		return fmt.Errorf("failed to create lend/debt entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read lend/debt ID: %w", err)
	}
	entry.ID = id
	entry.CreatedAt = now
	entry.UpdatedAt = now
	return nil
}

// GetLendDebt retrieves a lend/debt entry by ID, scoped to its owner.
func (s *SQLiteStorage) GetLendDebt(ctx context.Context, userID, id int64) (*model.LendDebt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getLendDebt(ctx, s.db, userID, id)
}

func (s *SQLiteStorage) getLendDebt(ctx context.Context, q queryer, userID, id int64) (*model.LendDebt, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+lendDebtColumns+` FROM lend_debts WHERE id = ? AND user_id = ?
	`, id, userID)

	entry, err := scanLendDebt(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("lend/debt entry %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lend/debt entry: %w", err)
	}
	return entry, nil
}

// ListLendDebts returns all of a user's lend/debt entries, newest first.
func (s *SQLiteStorage) ListLendDebts(ctx context.Context, userID int64) ([]model.LendDebt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listLendDebts(ctx, s.db, userID)
}

func (s *SQLiteStorage) listLendDebts(ctx context.Context, q queryer, userID int64) ([]model.LendDebt, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+lendDebtColumns+` FROM lend_debts WHERE user_id = ? ORDER BY id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lend/debt entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.LendDebt
	for rows.Next() {
		entry, err := scanLendDebt(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lend/debt entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// UpdateLendDebt rewrites an entry's mutable fields.
func (s *SQLiteStorage) UpdateLendDebt(ctx context.Context, entry *model.LendDebt) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.updateLendDebt(ctx, s.db, entry)
}

func (s *SQLiteStorage) updateLendDebt(ctx context.Context, q queryer, entry *model.LendDebt) error {
	if err := validateLendDebt(entry); err != nil {
		return err
	}

	res, err := q.ExecContext(ctx, `
		UPDATE lend_debts
		SET kind = ?, counterparty = ?, account_id = ?, amount = ?, due_date = ?,
			status = ?, notes = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, string(entry.Kind), entry.Counterparty, entry.AccountID, entry.Amount.String(),
		stampOrNil(entry.DueDate), string(entry.Status), entry.Notes, nowUTC(),
		entry.ID, entry.UserID)
	if err != nil {
		return fmt.Errorf("failed to update lend/debt entry: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check lend/debt update: %w", err)
	}
	if affected == 0 {
		return common.NotFoundf("lend/debt entry %d", entry.ID)
	}
	return nil
}

// DeleteLendDebt removes an entry and its payments. Callers are responsible
// for reversing balance effects first, inside the same transaction.
func (s *SQLiteStorage) DeleteLendDebt(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.deleteLendDebt(ctx, s.db, id)
}

func (s *SQLiteStorage) deleteLendDebt(ctx context.Context, q queryer, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM lend_debt_payments WHERE lend_debt_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete payments for entry %d: %w", id, err)
	}

	res, err := q.ExecContext(ctx, `DELETE FROM lend_debts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lend/debt entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check lend/debt delete: %w", err)
	}
	if affected == 0 {
		return common.NotFoundf("lend/debt entry %d", id)
	}
	return nil
}

// SetLendDebtStatus persists a derived settlement status.
func (s *SQLiteStorage) SetLendDebtStatus(ctx context.Context, id int64, status model.LendDebtStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.setLendDebtStatus(ctx, s.db, id, status)
}

func (s *SQLiteStorage) setLendDebtStatus(ctx context.Context, q queryer, id int64, status model.LendDebtStatus) error {
	res, err := q.ExecContext(ctx, `
		UPDATE lend_debts SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), nowUTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set lend/debt status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check status update: %w", err)
	}
	if affected == 0 {
		return common.NotFoundf("lend/debt entry %d", id)
	}
	return nil
}

// CreatePayment creates a payment row, filling in its generated ID.
func (s *SQLiteStorage) CreatePayment(ctx context.Context, payment *model.LendDebtPayment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.createPayment(ctx, s.db, payment)
}

func (s *SQLiteStorage) createPayment(ctx context.Context, q queryer, payment *model.LendDebtPayment) error {
	if err := validatePayment(payment); err != nil {
		return err
	}

	now := nowUTC()
	res, err := q.ExecContext(ctx, `
		INSERT INTO lend_debt_payments (lend_debt_id, account_id, amount, date, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, payment.LendDebtID, payment.AccountID, payment.Amount.String(),
		calendar.DateStamp(payment.Date), payment.Notes, now)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read payment ID: %w", err)
	}
	payment.ID = id
	payment.CreatedAt = now
	return nil
}

// GetPayment retrieves a payment by ID, scoped through its parent entry's
// owner.
func (s *SQLiteStorage) GetPayment(ctx context.Context, userID, id int64) (*model.LendDebtPayment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getPayment(ctx, s.db, userID, id)
}

func (s *SQLiteStorage) getPayment(ctx context.Context, q queryer, userID, id int64) (*model.LendDebtPayment, error) {
	row := q.QueryRowContext(ctx, `
		SELECT p.id, p.lend_debt_id, p.account_id, p.amount, p.date, p.notes, p.created_at
		FROM lend_debt_payments p
		JOIN lend_debts l ON l.id = p.lend_debt_id
		WHERE p.id = ? AND l.user_id = ?
	`, id, userID)

	payment, err := scanPayment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("payment %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

// ListPayments returns an entry's payments in date order.
func (s *SQLiteStorage) ListPayments(ctx context.Context, lendDebtID int64) ([]model.LendDebtPayment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listPayments(ctx, s.db, lendDebtID)
}

func (s *SQLiteStorage) listPayments(ctx context.Context, q queryer, lendDebtID int64) ([]model.LendDebtPayment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, lend_debt_id, account_id, amount, date, notes, created_at
		FROM lend_debt_payments WHERE lend_debt_id = ?
		ORDER BY date, id
	`, lendDebtID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var payments []model.LendDebtPayment
	for rows.Next() {
		payment, err := scanPayment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *payment)
	}
	return payments, rows.Err()
}

// UpdatePayment rewrites a payment's mutable fields.
func (s *SQLiteStorage) UpdatePayment(ctx context.Context, payment *model.LendDebtPayment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.updatePayment(ctx, s.db, payment)
}

func (s *SQLiteStorage) updatePayment(ctx context.Context, q queryer, payment *model.LendDebtPayment) error {
	if err := validatePayment(payment); err != nil {
		return err
	}

	res, err := q.ExecContext(ctx, `
		UPDATE lend_debt_payments
		SET account_id = ?, amount = ?, date = ?, notes = ?
		WHERE id = ?
	`, payment.AccountID, payment.Amount.String(), calendar.DateStamp(payment.Date),
		payment.Notes, payment.ID)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check payment update: %w", err)
	}
	if affected == 0 {
		return common.NotFoundf("payment %d", payment.ID)
	}
	return nil
}

// DeletePayment removes a payment row. Callers reverse its balance effect
// first, inside the same transaction.
func (s *SQLiteStorage) DeletePayment(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.deletePayment(ctx, s.db, id)
}

func (s *SQLiteStorage) deletePayment(ctx context.Context, q queryer, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM lend_debt_payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check payment delete: %w", err)
	}
	if affected == 0 {
		return common.NotFoundf("payment %d", id)
	}
	return nil
}

func scanLendDebt(scan func(dest ...any) error) (*model.LendDebt, error) {
	entry := &model.LendDebt{}
	var kind, status, amount string
	var dueDate *string

	if err := scan(&entry.ID, &entry.UserID, &kind, &entry.Counterparty,
		&entry.AccountID, &amount, &dueDate, &status, &entry.Notes,
		&entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return nil, err
	}

	entry.Kind = model.LendDebtKind(kind)
	entry.Status = model.LendDebtStatus(status)

	var err error
	if entry.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("corrupt amount for lend/debt %d: %w", entry.ID, err)
	}
	if dueDate != nil {
		due, err := calendar.ParseDate(*dueDate)
		if err != nil {
			return nil, err
		}
		entry.DueDate = &due
	}
	return entry, nil
}

func scanPayment(scan func(dest ...any) error) (*model.LendDebtPayment, error) {
	payment := &model.LendDebtPayment{}
	var amount, date string

	if err := scan(&payment.ID, &payment.LendDebtID, &payment.AccountID,
		&amount, &date, &payment.Notes, &payment.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if payment.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("corrupt amount for payment %d: %w", payment.ID, err)
	}
	if payment.Date, err = calendar.ParseDate(date); err != nil {
		return nil, err
	}
	return payment, nil
}
