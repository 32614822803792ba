package models

import "time"

// Expense is a single expense record. Amounts are stored as an integer
// count of minor currency units (cents, pence) to avoid floating-point
// rounding.
type Expense struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	CategoryID  int64      `json:"category_id"`
	Category    string     `json:"category,omitempty"`
	StatusID    int64      `json:"status_id"`
	Status      string     `json:"status,omitempty"`
	AmountMinor int64      `json:"amount_minor"`
	Currency    string     `json:"currency"`
	Date        time.Time  `json:"date"`
	Description string     `json:"description,omitempty"`
	ReceiptPath string     `json:"receipt_path,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	ReviewerID  *int64     `json:"reviewer_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ExpenseFilter narrows expense listings. Zero values match everything.
type ExpenseFilter struct {
	UserID     int64
	StatusID   int64
	CategoryID int64
}

// CreateExpenseInput carries the fields needed to create a draft expense
type CreateExpenseInput struct {
	UserID      int64
	CategoryID  int64
	AmountMinor int64
	Currency    string
	Date        time.Time
	Description string
}

// UpdateExpenseInput carries the mutable fields of a draft expense
type UpdateExpenseInput struct {
	CategoryID  int64
	AmountMinor int64
	Currency    string
	Date        time.Time
	Description string
}

// StatusTotal aggregates expenses by status
type StatusTotal struct {
	Status      string `json:"status"`
	Count       int64  `json:"count"`
	AmountMinor int64  `json:"amount_minor"`
}

// CategoryTotal aggregates expenses by category
type CategoryTotal struct {
	Category    string `json:"category"`
	Count       int64  `json:"count"`
	AmountMinor int64  `json:"amount_minor"`
}

// ExpenseStats is the aggregate view over all expenses
type ExpenseStats struct {
	TotalCount       int64           `json:"total_count"`
	TotalAmountMinor int64           `json:"total_amount_minor"`
	ByStatus         []StatusTotal   `json:"by_status"`
	ByCategory       []CategoryTotal `json:"by_category"`
}
