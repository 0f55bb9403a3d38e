package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/finchwallet/finch/internal/config"
	"github.com/finchwallet/finch/internal/service"
	"github.com/finchwallet/finch/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/finch/finch.db"
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// currentUserID returns the configured ledger user. A fresh database always
// owns user 1.
func currentUserID() int64 {
	if id := viper.GetInt64("user.id"); id > 0 {
		return id
	}
	return 1
}

// parseAmount parses a positive decimal amount from a flag value.
func parseAmount(value string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}

// parseDateFlag parses a YYYY-MM-DD flag value; empty means "not set".
func parseDateFlag(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", value, err)
	}
	return &d, nil
}

// optionalID maps a zero flag value to nil.
func optionalID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
