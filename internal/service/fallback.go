package service

import (
	"time"

	"github.com/expenseflow/expenseflow/internal/models"
)

// FallbackProvider supplies fixed placeholder datasets for list endpoints
// when the backing store is unreachable. It is a separate capability from
// the ExpenseService so that the service contract stays error-only; the
// HTTP layer decides when to substitute placeholder data.
type FallbackProvider struct{}

// NewFallbackProvider creates a new fallback provider
func NewFallbackProvider() *FallbackProvider {
	return &FallbackProvider{}
}

// Expenses returns a small fixed expense dataset
func (f *FallbackProvider) Expenses() []*models.Expense {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	return []*models.Expense{
		{
			ID: 1, UserID: 1, CategoryID: 1, Category: "Travel",
			StatusID: 2, Status: "Submitted",
			AmountMinor: 12500, Currency: "USD", Date: date,
			Description: "Client visit train tickets",
		},
		{
			ID: 2, UserID: 1, CategoryID: 2, Category: "Meals",
			StatusID: 1, Status: "Draft",
			AmountMinor: 3400, Currency: "USD", Date: date.AddDate(0, 0, 2),
			Description: "Team lunch",
		},
		{
			ID: 3, UserID: 3, CategoryID: 4, Category: "Software",
			StatusID: 3, Status: "Approved",
			AmountMinor: 9900, Currency: "USD", Date: date.AddDate(0, 0, 5),
			Description: "IDE license renewal",
		},
	}
}

// Categories returns the fixed category dataset
func (f *FallbackProvider) Categories() []*models.Category {
	return []*models.Category{
		{ID: 1, Name: "Travel"},
		{ID: 2, Name: "Meals"},
		{ID: 3, Name: "Office Supplies"},
		{ID: 4, Name: "Software"},
		{ID: 5, Name: "Training"},
		{ID: 6, Name: "Other"},
	}
}

// Statuses returns the fixed status dataset
func (f *FallbackProvider) Statuses() []*models.Status {
	return []*models.Status{
		{ID: 1, Name: "Draft"},
		{ID: 2, Name: "Submitted"},
		{ID: 3, Name: "Approved"},
		{ID: 4, Name: "Rejected"},
	}
}

// Users returns the fixed user dataset
func (f *FallbackProvider) Users() []*models.User {
	return []*models.User{
		{ID: 1, Name: "Alex Doe", Email: "alex.doe@example.com", RoleID: 1, Role: "Employee"},
		{ID: 2, Name: "Morgan Reed", Email: "morgan.reed@example.com", RoleID: 2, Role: "Manager"},
		{ID: 3, Name: "Sam Patel", Email: "sam.patel@example.com", RoleID: 1, Role: "Employee"},
	}
}

// Roles returns the fixed role dataset
func (f *FallbackProvider) Roles() []*models.Role {
	return []*models.Role{
		{ID: 1, Name: "Employee"},
		{ID: 2, Name: "Manager"},
		{ID: 3, Name: "Admin"},
	}
}
