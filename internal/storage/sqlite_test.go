package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/finchwallet/finch/internal/common"
	"github.com/finchwallet/finch/internal/model"
)

// Helper function to create migrated test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// Helper function to create an account for the default user.
func createTestAccount(t *testing.T, store *SQLiteStorage, name string) *model.Account {
	t.Helper()
	account := &model.Account{
		UserID:  1,
		Name:    name,
		Group:   "checking",
		Balance: decimal.NewFromInt(1000),
	}
	if err := store.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("Failed to create account %s: %v", name, err)
	}
	return account
}

func TestMigrate_SchemaVersion(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	version, err := store.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("Failed to read schema version: %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("Schema version = %d, want %d", version, ExpectedSchemaVersion)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Second migrate failed: %v", err)
	}

	// The seeded default user must exist exactly once.
	user, err := store.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get default user: %v", err)
	}
	if user.Name != "default" {
		t.Errorf("Default user name = %q, want %q", user.Name, "default")
	}
	if user.Timezone != "" {
		t.Errorf("Default user timezone = %q, want empty", user.Timezone)
	}
}

func TestSetUserTimezone(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	if err := store.SetUserTimezone(ctx, 1, "Asia/Jakarta"); err != nil {
		t.Fatalf("Failed to set timezone: %v", err)
	}

	user, err := store.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if user.Timezone != "Asia/Jakarta" {
		t.Errorf("Timezone = %q, want %q", user.Timezone, "Asia/Jakarta")
	}

	err = store.SetUserTimezone(ctx, 999, "UTC")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Setting timezone for missing user: err = %v, want ErrNotFound", err)
	}
}

func TestCreateAndGetAccount(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	account := createTestAccount(t, store, "Main")
	if account.ID == 0 {
		t.Fatal("CreateAccount did not fill in the generated ID")
	}

	got, err := store.GetAccount(ctx, 1, account.ID)
	if err != nil {
		t.Fatalf("Failed to get account: %v", err)
	}
	if got.Name != "Main" || got.Group != "checking" {
		t.Errorf("Got account %+v", got)
	}
	if !got.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Balance = %s, want 1000", got.Balance)
	}
}

func TestGetAccount_OwnershipScoped(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	account := createTestAccount(t, store, "Main")

	// Another user's lookup must not see it.
	_, err := store.GetAccount(ctx, 2, account.ID)
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Cross-user account lookup: err = %v, want ErrNotFound", err)
	}
}

func TestListAccounts_OrderedByName(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	createTestAccount(t, store, "Savings")
	createTestAccount(t, store, "Checking")

	accounts, err := store.ListAccounts(context.Background(), 1)
	if err != nil {
		t.Fatalf("Failed to list accounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("Got %d accounts, want 2", len(accounts))
	}
	if accounts[0].Name != "Checking" || accounts[1].Name != "Savings" {
		t.Errorf("Accounts not ordered by name: %q, %q", accounts[0].Name, accounts[1].Name)
	}
}

func TestApplyBalanceDelta(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	account := createTestAccount(t, store, "Main")

	deltas := []string{"-250.75", "100.25", "-1000"}
	for _, d := range deltas {
		delta, _ := decimal.NewFromString(d)
		if err := store.ApplyBalanceDelta(ctx, account.ID, delta); err != nil {
			t.Fatalf("Failed to apply delta %s: %v", d, err)
		}
	}

	got, err := store.GetAccount(ctx, 1, account.ID)
	if err != nil {
		t.Fatalf("Failed to get account: %v", err)
	}
	want, _ := decimal.NewFromString("-150.50")
	if !got.Balance.Equal(want) {
		t.Errorf("Balance = %s, want %s", got.Balance, want)
	}
}

func TestApplyBalanceDelta_MissingAccount(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	err := store.ApplyBalanceDelta(context.Background(), 999, decimal.NewFromInt(1))
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCategories(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	category := &model.Category{UserID: 1, Name: "Groceries", Type: model.CategoryTypeExpense}
	if err := store.CreateCategory(ctx, category); err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}
	if category.ID == 0 {
		t.Fatal("CreateCategory did not fill in the generated ID")
	}

	got, err := store.GetCategory(ctx, 1, category.ID)
	if err != nil {
		t.Fatalf("Failed to get category: %v", err)
	}
	if got.Name != "Groceries" || got.Type != model.CategoryTypeExpense {
		t.Errorf("Got category %+v", got)
	}

	if _, err := store.GetCategory(ctx, 2, category.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Cross-user category lookup: err = %v, want ErrNotFound", err)
	}

	categories, err := store.ListCategories(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to list categories: %v", err)
	}
	if len(categories) != 1 {
		t.Errorf("Got %d categories, want 1", len(categories))
	}
}

func TestBeginTx_RollbackDiscardsWrites(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	account := createTestAccount(t, store, "Main")

	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	if err := tx.ApplyBalanceDelta(ctx, account.ID, decimal.NewFromInt(-500)); err != nil {
		t.Fatalf("Failed to apply delta in tx: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Failed to rollback: %v", err)
	}

	got, err := store.GetAccount(ctx, 1, account.ID)
	if err != nil {
		t.Fatalf("Failed to get account: %v", err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Balance after rollback = %s, want 1000", got.Balance)
	}
}

func TestBeginTx_CommitPersistsWrites(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	account := createTestAccount(t, store, "Main")

	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	if err := tx.ApplyBalanceDelta(ctx, account.ID, decimal.NewFromInt(-500)); err != nil {
		t.Fatalf("Failed to apply delta in tx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	got, err := store.GetAccount(ctx, 1, account.ID)
	if err != nil {
		t.Fatalf("Failed to get account: %v", err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Balance after commit = %s, want 500", got.Balance)
	}
}
