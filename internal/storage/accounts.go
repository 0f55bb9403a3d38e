package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finchwallet/finch/internal/common"
	"github.com/finchwallet/finch/internal/model"
)

// GetUser retrieves a user by ID.
func (s *SQLiteStorage) GetUser(ctx context.Context, id int64) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getUser(ctx, s.db, id)
}

func (s *SQLiteStorage) getUser(ctx context.Context, q queryer, id int64) (*model.User, error) {
	user := &model.User{}
	err := q.QueryRowContext(ctx, `
		SELECT id, name, timezone, created_at
		FROM users WHERE id = ?
	`, id).Scan(&user.ID, &user.Name, &user.Timezone, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("user %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// SetUserTimezone updates a user's configured IANA time-zone identifier.
func (s *SQLiteStorage) SetUserTimezone(ctx context.Context, id int64, timezone string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.setUserTimezone(ctx, s.db, id, timezone)
}

func (s *SQLiteStorage) setUserTimezone(ctx context.Context, q queryer, id int64, timezone string) error {
	res, err := q.ExecContext(ctx, `UPDATE users SET timezone = ? WHERE id = ?`, timezone, id)
	if err != nil {
		return fmt.Errorf("failed to set timezone: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check timezone update: %w", err)
	}
	if affected == 0 {
		return common.NotFoundf("user %d", id)
	}
	return nil
}

// CreateAccount creates a new account, filling in its generated ID.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.createAccount(ctx, s.db, account)
}

func (s *SQLiteStorage) createAccount(ctx context.Context, q queryer, account *model.Account) error {
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if err := validateString(account.Name, "name"); err != nil {
		return err
	}

	now := nowUTC()
	res, err := q.ExecContext(ctx, `
		INSERT INTO accounts (user_id, name, account_group, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, account.UserID, account.Name, account.Group, account.Balance.String(), now, now)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read account ID: %w", err)
	}
	account.ID = id
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

// GetAccount retrieves an account by ID, scoped to its owner. Accounts of
// other users are indistinguishable from absent ones.
func (s *SQLiteStorage) GetAccount(ctx context.Context, userID, id int64) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getAccount(ctx, s.db, userID, id)
}

func (s *SQLiteStorage) getAccount(ctx context.Context, q queryer, userID, id int64) (*model.Account, error) {
	account := &model.Account{}
	var balance string
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, name, account_group, balance, created_at, updated_at
		FROM accounts WHERE id = ? AND user_id = ?
	`, id, userID).Scan(&account.ID, &account.UserID, &account.Name, &account.Group,
		&balance, &account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("account %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("corrupt balance for account %d: %w", id, err)
	}
	return account, nil
}

// ListAccounts returns all of a user's accounts, ordered by name.
func (s *SQLiteStorage) ListAccounts(ctx context.Context, userID int64) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listAccounts(ctx, s.db, userID)
}

func (s *SQLiteStorage) listAccounts(ctx context.Context, q queryer, userID int64) ([]model.Account, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, name, account_group, balance, created_at, updated_at
		FROM accounts WHERE user_id = ?
		ORDER BY name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		var account model.Account
		var balance string
		if err := rows.Scan(&account.ID, &account.UserID, &account.Name, &account.Group,
			&balance, &account.CreatedAt, &account.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		account.Balance, err = decimal.NewFromString(balance)
		if err != nil {
			return nil, fmt.Errorf("corrupt balance for account %d: %w", account.ID, err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// ApplyBalanceDelta atomically adds a signed amount to an account's balance.
// Decimal arithmetic happens in Go; the read and write stay inside whatever
// transaction the caller is running, so the update is atomic with the row
// mutation it accompanies.
func (s *SQLiteStorage) ApplyBalanceDelta(ctx context.Context, accountID int64, delta decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.applyBalanceDelta(ctx, s.db, accountID, delta)
}

func (s *SQLiteStorage) applyBalanceDelta(ctx context.Context, q queryer, accountID int64, delta decimal.Decimal) error {
	var balance string
	err := q.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return common.NotFoundf("account %d", accountID)
	}
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}

	current, err := decimal.NewFromString(balance)
	if err != nil {
		return fmt.Errorf("corrupt balance for account %d: %w", accountID, err)
	}

	_, err = q.ExecContext(ctx, `
		UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?
	`, current.Add(delta).String(), nowUTC(), accountID)
	if err != nil {
		return fmt.Errorf("failed to apply balance delta: %w", err)
	}
	return nil
}
