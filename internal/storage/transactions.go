package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finchwallet/finch/internal/model"
	"github.com/finchwallet/finch/internal/service"
)

const transactionColumns = `id, user_id, account_id, category_id, kind, amount, date,
	description, transfer_account_id, recurring_rule_id, occurrence_day, created_at`

// SaveTransaction writes a manually entered transaction row.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.saveTransaction(ctx, s.db, txn)
}

func (s *SQLiteStorage) saveTransaction(ctx context.Context, q queryer, txn *model.Transaction) error {
	if err := validateTransaction(txn); err != nil {
		return err
	}

	now := nowUTC()
	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, txn.ID, txn.UserID, txn.AccountID, txn.CategoryID, string(txn.Kind),
		txn.Amount.String(), txn.Date.UTC(), txn.Description, txn.TransferAccountID,
		txn.RecurringRuleID, nullableStamp(txn.OccurrenceDay), now)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
	}
	txn.CreatedAt = now
	return nil
}

// InsertOccurrence writes a rule-generated transaction keyed by
// (rule, occurrence day). The partial unique index on that pair turns a
// duplicate attempt into a no-op; the return value reports whether a row was
// actually written so callers know to skip the balance delta.
func (s *SQLiteStorage) InsertOccurrence(ctx context.Context, txn *model.Transaction) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	return s.insertOccurrence(ctx, s.db, txn)
}

func (s *SQLiteStorage) insertOccurrence(ctx context.Context, q queryer, txn *model.Transaction) (bool, error) {
	if err := validateTransaction(txn); err != nil {
		return false, err
	}
	if txn.RecurringRuleID == nil || txn.OccurrenceDay == "" {
		return false, fmt.Errorf("%w: occurrence insert without rule key", ErrInvalidTransaction)
	}

	res, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, txn.ID, txn.UserID, txn.AccountID, txn.CategoryID, string(txn.Kind),
		txn.Amount.String(), txn.Date.UTC(), txn.Description, txn.TransferAccountID,
		txn.RecurringRuleID, txn.OccurrenceDay, nowUTC())
	if err != nil {
		return false, fmt.Errorf("failed to insert occurrence for rule %d: %w", *txn.RecurringRuleID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check occurrence insert: %w", err)
	}
	return affected > 0, nil
}

// ListTransactions returns a user's transactions matching the filter, newest
// first.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, userID int64, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listTransactions(ctx, s.db, userID, filter)
}

func (s *SQLiteStorage) listTransactions(ctx context.Context, q queryer, userID int64, filter service.TransactionFilter) ([]model.Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`)
	args := []any{userID}

	if filter.StartDate != nil {
		sb.WriteString(` AND date >= ?`)
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		sb.WriteString(` AND date <= ?`)
		args = append(args, filter.EndDate.UTC())
	}
	if filter.AccountID != nil {
		sb.WriteString(` AND (account_id = ? OR transfer_account_id = ?)`)
		args = append(args, *filter.AccountID, *filter.AccountID)
	}
	sb.WriteString(` ORDER BY date DESC, created_at DESC`)
	if filter.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		var amount string
		var kind string
		var occurrenceDay *string
		if err := rows.Scan(&txn.ID, &txn.UserID, &txn.AccountID, &txn.CategoryID,
			&kind, &amount, &txn.Date, &txn.Description, &txn.TransferAccountID,
			&txn.RecurringRuleID, &occurrenceDay, &txn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Kind = model.TransactionKind(kind)
		txn.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount for transaction %s: %w", txn.ID, err)
		}
		if occurrenceDay != nil {
			txn.OccurrenceDay = *occurrenceDay
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// nullableStamp maps an empty day stamp to NULL so the partial unique index
// only ever sees real occurrence keys.
func nullableStamp(stamp string) *string {
	if stamp == "" {
		return nil
	}
	return &stamp
}
