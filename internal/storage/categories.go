package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/finchwallet/finch/internal/common"
	"github.com/finchwallet/finch/internal/model"
)

// CreateCategory creates a new category, filling in its generated ID.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.createCategory(ctx, s.db, category)
}

func (s *SQLiteStorage) createCategory(ctx context.Context, q queryer, category *model.Category) error {
	if category == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if err := validateString(category.Name, "name"); err != nil {
		return err
	}
	if category.Type != model.CategoryTypeIncome && category.Type != model.CategoryTypeExpense {
		return common.Validationf("unknown category type %q", category.Type)
	}

	now := nowUTC()
	res, err := q.ExecContext(ctx, `
		INSERT INTO categories (user_id, name, type, created_at)
		VALUES (?, ?, ?, ?)
	`, category.UserID, category.Name, string(category.Type), now)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read category ID: %w", err)
	}
	category.ID = id
	category.CreatedAt = now
	return nil
}

// GetCategory retrieves a category by ID, scoped to its owner.
func (s *SQLiteStorage) GetCategory(ctx context.Context, userID, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCategory(ctx, s.db, userID, id)
}

func (s *SQLiteStorage) getCategory(ctx context.Context, q queryer, userID, id int64) (*model.Category, error) {
	category := &model.Category{}
	var categoryType string
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, name, type, created_at
		FROM categories WHERE id = ? AND user_id = ?
	`, id, userID).Scan(&category.ID, &category.UserID, &category.Name, &categoryType, &category.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("category %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	category.Type = model.CategoryType(categoryType)
	return category, nil
}

// ListCategories returns all of a user's categories, ordered by name.
func (s *SQLiteStorage) ListCategories(ctx context.Context, userID int64) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listCategories(ctx, s.db, userID)
}

func (s *SQLiteStorage) listCategories(ctx context.Context, q queryer, userID int64) ([]model.Category, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, name, type, created_at
		FROM categories WHERE user_id = ?
		ORDER BY name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var category model.Category
		var categoryType string
		if err := rows.Scan(&category.ID, &category.UserID, &category.Name,
			&categoryType, &category.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		category.Type = model.CategoryType(categoryType)
		categories = append(categories, category)
	}
	return categories, rows.Err()
}
