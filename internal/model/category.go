package model

import "time"

// CategoryType indicates whether a category applies to income or expense rows.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "expense"
)

// Category represents a user-defined transaction category. Categories are only
// meaningful for INCOME and EXPENSE rows; transfers carry no category.
type Category struct {
	CreatedAt time.Time
	Name      string
	Type      CategoryType
	ID        int64
	UserID    int64
}
