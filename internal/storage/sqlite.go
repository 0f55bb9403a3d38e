// Package storage provides the SQLite persistence layer for the ledger.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finchwallet/finch/internal/model"
	"github.com/finchwallet/finch/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// queryer is satisfied by both *sql.DB and *sql.Tx. Entity helpers take it so
// every operation can run either standalone or inside an open transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStorage implements the service.Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Entity operations delegate to the shared helpers with the open transaction.

func (t *sqliteTransaction) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return t.storage.getUser(ctx, t.tx, id)
}

func (t *sqliteTransaction) SetUserTimezone(ctx context.Context, id int64, timezone string) error {
	return t.storage.setUserTimezone(ctx, t.tx, id, timezone)
}

func (t *sqliteTransaction) CreateAccount(ctx context.Context, account *model.Account) error {
	return t.storage.createAccount(ctx, t.tx, account)
}

func (t *sqliteTransaction) GetAccount(ctx context.Context, userID, id int64) (*model.Account, error) {
	return t.storage.getAccount(ctx, t.tx, userID, id)
}

func (t *sqliteTransaction) ListAccounts(ctx context.Context, userID int64) ([]model.Account, error) {
	return t.storage.listAccounts(ctx, t.tx, userID)
}

func (t *sqliteTransaction) ApplyBalanceDelta(ctx context.Context, accountID int64, delta decimal.Decimal) error {
	return t.storage.applyBalanceDelta(ctx, t.tx, accountID, delta)
}

func (t *sqliteTransaction) CreateCategory(ctx context.Context, category *model.Category) error {
	return t.storage.createCategory(ctx, t.tx, category)
}

func (t *sqliteTransaction) GetCategory(ctx context.Context, userID, id int64) (*model.Category, error) {
	return t.storage.getCategory(ctx, t.tx, userID, id)
}

func (t *sqliteTransaction) ListCategories(ctx context.Context, userID int64) ([]model.Category, error) {
	return t.storage.listCategories(ctx, t.tx, userID)
}

func (t *sqliteTransaction) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	return t.storage.saveTransaction(ctx, t.tx, txn)
}

func (t *sqliteTransaction) InsertOccurrence(ctx context.Context, txn *model.Transaction) (bool, error) {
	return t.storage.insertOccurrence(ctx, t.tx, txn)
}

func (t *sqliteTransaction) ListTransactions(ctx context.Context, userID int64, filter service.TransactionFilter) ([]model.Transaction, error) {
	return t.storage.listTransactions(ctx, t.tx, userID, filter)
}

func (t *sqliteTransaction) CreateRule(ctx context.Context, rule *model.RecurringRule) error {
	return t.storage.createRule(ctx, t.tx, rule)
}

func (t *sqliteTransaction) GetRule(ctx context.Context, userID, id int64) (*model.RecurringRule, error) {
	return t.storage.getRule(ctx, t.tx, userID, id)
}

func (t *sqliteTransaction) ListRules(ctx context.Context, userID int64) ([]model.RecurringRule, error) {
	return t.storage.listRules(ctx, t.tx, userID)
}

func (t *sqliteTransaction) ListDueRules(ctx context.Context, userID int64, throughStamp, fromStamp string) ([]model.RecurringRule, error) {
	return t.storage.listDueRules(ctx, t.tx, userID, throughStamp, fromStamp)
}

func (t *sqliteTransaction) UpdateRule(ctx context.Context, rule *model.RecurringRule) error {
	return t.storage.updateRule(ctx, t.tx, rule)
}

func (t *sqliteTransaction) AdvanceRuleCursor(ctx context.Context, ruleID int64, cursorStamp string) error {
	return t.storage.advanceRuleCursor(ctx, t.tx, ruleID, cursorStamp)
}

func (t *sqliteTransaction) CreateLendDebt(ctx context.Context, entry *model.LendDebt) error {
	return t.storage.createLendDebt(ctx, t.tx, entry)
}

func (t *sqliteTransaction) GetLendDebt(ctx context.Context, userID, id int64) (*model.LendDebt, error) {
	return t.storage.getLendDebt(ctx, t.tx, userID, id)
}

func (t *sqliteTransaction) ListLendDebts(ctx context.Context, userID int64) ([]model.LendDebt, error) {
	return t.storage.listLendDebts(ctx, t.tx, userID)
}

func (t *sqliteTransaction) UpdateLendDebt(ctx context.Context, entry *model.LendDebt) error {
	return t.storage.updateLendDebt(ctx, t.tx, entry)
}

func (t *sqliteTransaction) DeleteLendDebt(ctx context.Context, id int64) error {
	return t.storage.deleteLendDebt(ctx, t.tx, id)
}

func (t *sqliteTransaction) SetLendDebtStatus(ctx context.Context, id int64, status model.LendDebtStatus) error {
	return t.storage.setLendDebtStatus(ctx, t.tx, id, status)
}

func (t *sqliteTransaction) CreatePayment(ctx context.Context, payment *model.LendDebtPayment) error {
	return t.storage.createPayment(ctx, t.tx, payment)
}

func (t *sqliteTransaction) GetPayment(ctx context.Context, userID, id int64) (*model.LendDebtPayment, error) {
	return t.storage.getPayment(ctx, t.tx, userID, id)
}

func (t *sqliteTransaction) ListPayments(ctx context.Context, lendDebtID int64) ([]model.LendDebtPayment, error) {
	return t.storage.listPayments(ctx, t.tx, lendDebtID)
}

func (t *sqliteTransaction) UpdatePayment(ctx context.Context, payment *model.LendDebtPayment) error {
	return t.storage.updatePayment(ctx, t.tx, payment)
}

func (t *sqliteTransaction) DeletePayment(ctx context.Context, id int64) error {
	return t.storage.deletePayment(ctx, t.tx, id)
}

// nowUTC is the single timestamp source for created_at/updated_at columns.
func nowUTC() time.Time {
	return time.Now().UTC()
}
