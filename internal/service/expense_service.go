// Package service implements the business operations over the expense
// store. Every operation returns a (value, error) pair; domain failures
// such as a missing expense or a disallowed status transition are
// returned as errors, never panics.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/expenseflow/expenseflow/internal/domain/expense"
	"github.com/expenseflow/expenseflow/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when the referenced expense does not exist
	ErrNotFound = errors.New("expense not found")

	// ErrValidation is returned when an input fails a domain check
	ErrValidation = errors.New("validation failed")
)

// ExpenseStore is the persistence surface the service needs for expenses
type ExpenseStore interface {
	Create(ctx context.Context, e *models.Expense) error
	GetByID(ctx context.Context, id int64) (*models.Expense, error)
	List(ctx context.Context, filter models.ExpenseFilter) ([]*models.Expense, error)
	Update(ctx context.Context, id int64, in models.UpdateExpenseInput) error
	Delete(ctx context.Context, id int64) error
	MarkSubmitted(ctx context.Context, id, statusID int64, at time.Time) error
	MarkReviewed(ctx context.Context, id, statusID, reviewerID int64, at time.Time) error
	SetReceiptPath(ctx context.Context, id int64, path string) error
	Stats(ctx context.Context) (*models.ExpenseStats, error)
}

// ReferenceStore is the persistence surface for reference tables
type ReferenceStore interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
	ListStatuses(ctx context.Context) ([]*models.Status, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListRoles(ctx context.Context) ([]*models.Role, error)
}

// ExpenseService implements the business operations
type ExpenseService struct {
	expenses ExpenseStore
	refs     ReferenceStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewExpenseService creates a new expense service
func NewExpenseService(expenses ExpenseStore, refs ReferenceStore, logger *zap.Logger) *ExpenseService {
	return &ExpenseService{
		expenses: expenses,
		refs:     refs,
		logger:   logger,
		now:      time.Now,
	}
}

// ListExpenses returns expenses matching the filter
func (s *ExpenseService) ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]*models.Expense, error) {
	return s.expenses.List(ctx, filter)
}

// GetExpense returns a single expense by id
func (s *ExpenseService) GetExpense(ctx context.Context, id int64) (*models.Expense, error) {
	e, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return e, nil
}

// CreateExpense validates the input and creates a draft expense
func (s *ExpenseService) CreateExpense(ctx context.Context, in models.CreateExpenseInput) (*models.Expense, error) {
	if err := validateExpenseInput(in.AmountMinor, in.Currency, in.Date); err != nil {
		return nil, err
	}
	if in.UserID <= 0 {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if in.CategoryID <= 0 {
		return nil, fmt.Errorf("%w: category_id is required", ErrValidation)
	}

	e := &models.Expense{
		UserID:      in.UserID,
		CategoryID:  in.CategoryID,
		StatusID:    expense.StatusDraft.ID(),
		AmountMinor: in.AmountMinor,
		Currency:    in.Currency,
		Date:        in.Date,
		Description: in.Description,
	}

	if err := s.expenses.Create(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info("Expense created",
		zap.Int64("id", e.ID),
		zap.Int64("user_id", e.UserID),
		zap.Int64("amount_minor", e.AmountMinor))

	return s.GetExpense(ctx, e.ID)
}

// UpdateExpense replaces the mutable fields of a draft expense
func (s *ExpenseService) UpdateExpense(ctx context.Context, id int64, in models.UpdateExpenseInput) (*models.Expense, error) {
	if err := validateExpenseInput(in.AmountMinor, in.Currency, in.Date); err != nil {
		return nil, err
	}

	current, err := s.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	if status := expense.Status(current.Status); status != expense.StatusDraft {
		return nil, fmt.Errorf("%w: cannot update an expense in status %s",
			expense.ErrInvalidTransition, status)
	}

	if err := s.expenses.Update(ctx, id, in); err != nil {
		return nil, err
	}

	return s.GetExpense(ctx, id)
}

// DeleteExpense removes a draft expense
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	current, err := s.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if status := expense.Status(current.Status); status != expense.StatusDraft {
		return fmt.Errorf("%w: cannot delete an expense in status %s",
			expense.ErrInvalidTransition, status)
	}

	return s.expenses.Delete(ctx, id)
}

// SubmitExpense moves a draft expense to Submitted
func (s *ExpenseService) SubmitExpense(ctx context.Context, id int64) (*models.Expense, error) {
	current, err := s.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := expense.Fire(expense.Status(current.Status), expense.TriggerSubmit)
	if err != nil {
		return nil, err
	}

	if err := s.expenses.MarkSubmitted(ctx, id, next.ID(), s.now().UTC()); err != nil {
		return nil, err
	}

	s.logger.Info("Expense submitted", zap.Int64("id", id))
	return s.GetExpense(ctx, id)
}

// ApproveExpense moves a submitted expense to Approved
func (s *ExpenseService) ApproveExpense(ctx context.Context, id, reviewerID int64) (*models.Expense, error) {
	return s.review(ctx, id, reviewerID, expense.TriggerApprove)
}

// RejectExpense moves a submitted expense to Rejected
func (s *ExpenseService) RejectExpense(ctx context.Context, id, reviewerID int64) (*models.Expense, error) {
	return s.review(ctx, id, reviewerID, expense.TriggerReject)
}

func (s *ExpenseService) review(ctx context.Context, id, reviewerID int64, trigger expense.Trigger) (*models.Expense, error) {
	if reviewerID <= 0 {
		return nil, fmt.Errorf("%w: reviewer_id is required", ErrValidation)
	}

	current, err := s.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := expense.Fire(expense.Status(current.Status), trigger)
	if err != nil {
		return nil, err
	}

	if err := s.expenses.MarkReviewed(ctx, id, next.ID(), reviewerID, s.now().UTC()); err != nil {
		return nil, err
	}

	s.logger.Info("Expense reviewed",
		zap.Int64("id", id),
		zap.Int64("reviewer_id", reviewerID),
		zap.String("status", next.String()))

	return s.GetExpense(ctx, id)
}

// AttachReceipt records the stored receipt path on an expense
func (s *ExpenseService) AttachReceipt(ctx context.Context, id int64, path string) (*models.Expense, error) {
	if _, err := s.GetExpense(ctx, id); err != nil {
		return nil, err
	}

	if err := s.expenses.SetReceiptPath(ctx, id, path); err != nil {
		return nil, err
	}

	return s.GetExpense(ctx, id)
}

// ListCategories returns all expense categories
func (s *ExpenseService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return s.refs.ListCategories(ctx)
}

// GetCategoryByName resolves a category by its name
func (s *ExpenseService) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	c, err := s.refs.GetCategoryByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, name)
	}
	return c, nil
}

// ListStatuses returns all expense statuses
func (s *ExpenseService) ListStatuses(ctx context.Context) ([]*models.Status, error) {
	return s.refs.ListStatuses(ctx)
}

// ListUsers returns all known users
func (s *ExpenseService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.refs.ListUsers(ctx)
}

// ListRoles returns all user roles
func (s *ExpenseService) ListRoles(ctx context.Context) ([]*models.Role, error) {
	return s.refs.ListRoles(ctx)
}

// GetStats returns aggregate expense totals
func (s *ExpenseService) GetStats(ctx context.Context) (*models.ExpenseStats, error) {
	return s.expenses.Stats(ctx)
}

func validateExpenseInput(amountMinor int64, currency string, date time.Time) error {
	if amountMinor < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	if len(currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter code", ErrValidation)
	}
	if date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	return nil
}
