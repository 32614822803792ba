package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/domain/expense"
	"github.com/expenseflow/expenseflow/internal/models"
)

// Mock stores

type mockExpenseStore struct {
	createFunc        func(ctx context.Context, e *models.Expense) error
	getByIDFunc       func(ctx context.Context, id int64) (*models.Expense, error)
	listFunc          func(ctx context.Context, filter models.ExpenseFilter) ([]*models.Expense, error)
	updateFunc        func(ctx context.Context, id int64, in models.UpdateExpenseInput) error
	deleteFunc        func(ctx context.Context, id int64) error
	markSubmittedFunc func(ctx context.Context, id, statusID int64, at time.Time) error
	markReviewedFunc  func(ctx context.Context, id, statusID, reviewerID int64, at time.Time) error
	setReceiptFunc    func(ctx context.Context, id int64, path string) error
	statsFunc         func(ctx context.Context) (*models.ExpenseStats, error)
}

func (m *mockExpenseStore) Create(ctx context.Context, e *models.Expense) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, e)
	}
	e.ID = 1
	return nil
}

func (m *mockExpenseStore) GetByID(ctx context.Context, id int64) (*models.Expense, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &models.Expense{ID: id, Status: "Draft", StatusID: 1}, nil
}

func (m *mockExpenseStore) List(ctx context.Context, filter models.ExpenseFilter) ([]*models.Expense, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*models.Expense{}, nil
}

func (m *mockExpenseStore) Update(ctx context.Context, id int64, in models.UpdateExpenseInput) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, in)
	}
	return nil
}

func (m *mockExpenseStore) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockExpenseStore) MarkSubmitted(ctx context.Context, id, statusID int64, at time.Time) error {
	if m.markSubmittedFunc != nil {
		return m.markSubmittedFunc(ctx, id, statusID, at)
	}
	return nil
}

func (m *mockExpenseStore) MarkReviewed(ctx context.Context, id, statusID, reviewerID int64, at time.Time) error {
	if m.markReviewedFunc != nil {
		return m.markReviewedFunc(ctx, id, statusID, reviewerID, at)
	}
	return nil
}

func (m *mockExpenseStore) SetReceiptPath(ctx context.Context, id int64, path string) error {
	if m.setReceiptFunc != nil {
		return m.setReceiptFunc(ctx, id, path)
	}
	return nil
}

func (m *mockExpenseStore) Stats(ctx context.Context) (*models.ExpenseStats, error) {
	if m.statsFunc != nil {
		return m.statsFunc(ctx)
	}
	return &models.ExpenseStats{}, nil
}

type mockReferenceStore struct {
	getCategoryByNameFunc func(ctx context.Context, name string) (*models.Category, error)
}

func (m *mockReferenceStore) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return []*models.Category{{ID: 1, Name: "Travel"}}, nil
}

func (m *mockReferenceStore) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	if m.getCategoryByNameFunc != nil {
		return m.getCategoryByNameFunc(ctx, name)
	}
	if name == "Travel" {
		return &models.Category{ID: 1, Name: "Travel"}, nil
	}
	return nil, nil
}

func (m *mockReferenceStore) ListStatuses(ctx context.Context) ([]*models.Status, error) {
	return []*models.Status{{ID: 1, Name: "Draft"}}, nil
}

func (m *mockReferenceStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	return []*models.User{{ID: 1, Name: "Alex Doe"}}, nil
}

func (m *mockReferenceStore) ListRoles(ctx context.Context) ([]*models.Role, error) {
	return []*models.Role{{ID: 1, Name: "Employee"}}, nil
}

func newTestService(expenses *mockExpenseStore) *ExpenseService {
	return NewExpenseService(expenses, &mockReferenceStore{}, zap.NewNop())
}

func validInput() models.CreateExpenseInput {
	return models.CreateExpenseInput{
		UserID:      1,
		CategoryID:  1,
		AmountMinor: 2550,
		Currency:    "USD",
		Date:        time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateExpense_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.CreateExpenseInput)
	}{
		{"negative amount", func(in *models.CreateExpenseInput) { in.AmountMinor = -1 }},
		{"bad currency", func(in *models.CreateExpenseInput) { in.Currency = "DOLLARS" }},
		{"zero date", func(in *models.CreateExpenseInput) { in.Date = time.Time{} }},
		{"missing user", func(in *models.CreateExpenseInput) { in.UserID = 0 }},
		{"missing category", func(in *models.CreateExpenseInput) { in.CategoryID = 0 }},
	}

	svc := newTestService(&mockExpenseStore{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := svc.CreateExpense(context.Background(), in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateExpense_ZeroAmountAllowed(t *testing.T) {
	svc := newTestService(&mockExpenseStore{})
	in := validInput()
	in.AmountMinor = 0
	_, err := svc.CreateExpense(context.Background(), in)
	assert.NoError(t, err)
}

func TestGetExpense_NotFound(t *testing.T) {
	store := &mockExpenseStore{
		getByIDFunc: func(ctx context.Context, id int64) (*models.Expense, error) {
			return nil, nil
		},
	}
	svc := newTestService(store)

	_, err := svc.GetExpense(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitExpense_MarksSubmitted(t *testing.T) {
	var gotStatusID int64
	var gotAt time.Time
	store := &mockExpenseStore{
		getByIDFunc: func(ctx context.Context, id int64) (*models.Expense, error) {
			if gotStatusID == 0 {
				return &models.Expense{ID: id, Status: "Draft", StatusID: 1}, nil
			}
			at := gotAt
			return &models.Expense{ID: id, Status: "Submitted", StatusID: 2, SubmittedAt: &at}, nil
		},
		markSubmittedFunc: func(ctx context.Context, id, statusID int64, at time.Time) error {
			gotStatusID = statusID
			gotAt = at
			return nil
		},
	}
	svc := newTestService(store)

	e, err := svc.SubmitExpense(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, expense.StatusSubmitted.ID(), gotStatusID)
	assert.False(t, gotAt.IsZero())
	assert.Equal(t, "Submitted", e.Status)
	require.NotNil(t, e.SubmittedAt)
}

func TestApproveExpense_RecordsReviewer(t *testing.T) {
	var gotStatusID, gotReviewer int64
	store := &mockExpenseStore{
		getByIDFunc: func(ctx context.Context, id int64) (*models.Expense, error) {
			if gotStatusID == 0 {
				return &models.Expense{ID: id, Status: "Submitted", StatusID: 2}, nil
			}
			return &models.Expense{ID: id, Status: "Approved", StatusID: 3, ReviewerID: &gotReviewer}, nil
		},
		markReviewedFunc: func(ctx context.Context, id, statusID, reviewerID int64, at time.Time) error {
			gotStatusID = statusID
			gotReviewer = reviewerID
			return nil
		},
	}
	svc := newTestService(store)

	e, err := svc.ApproveExpense(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, expense.StatusApproved.ID(), gotStatusID)
	assert.Equal(t, int64(2), gotReviewer)
	assert.Equal(t, "Approved", e.Status)
}

func TestApproveExpense_RequiresReviewer(t *testing.T) {
	svc := newTestService(&mockExpenseStore{})
	_, err := svc.ApproveExpense(context.Background(), 1, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

// Transition guards are enforced at this layer: the store never sees a
// disallowed transition.
func TestTransitionGuards(t *testing.T) {
	tests := []struct {
		name   string
		status string
		op     func(svc *ExpenseService) error
	}{
		{"approve draft", "Draft", func(svc *ExpenseService) error {
			_, err := svc.ApproveExpense(context.Background(), 1, 2)
			return err
		}},
		{"reject draft", "Draft", func(svc *ExpenseService) error {
			_, err := svc.RejectExpense(context.Background(), 1, 2)
			return err
		}},
		{"submit submitted", "Submitted", func(svc *ExpenseService) error {
			_, err := svc.SubmitExpense(context.Background(), 1)
			return err
		}},
		{"reject approved", "Approved", func(svc *ExpenseService) error {
			_, err := svc.RejectExpense(context.Background(), 1, 2)
			return err
		}},
		{"approve rejected", "Rejected", func(svc *ExpenseService) error {
			_, err := svc.ApproveExpense(context.Background(), 1, 2)
			return err
		}},
		{"update submitted", "Submitted", func(svc *ExpenseService) error {
			_, err := svc.UpdateExpense(context.Background(), 1, models.UpdateExpenseInput{
				CategoryID: 1, AmountMinor: 100, Currency: "USD",
				Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			})
			return err
		}},
		{"delete approved", "Approved", func(svc *ExpenseService) error {
			return svc.DeleteExpense(context.Background(), 1)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storeTouched := false
			store := &mockExpenseStore{
				getByIDFunc: func(ctx context.Context, id int64) (*models.Expense, error) {
					return &models.Expense{ID: id, Status: tt.status}, nil
				},
				markSubmittedFunc: func(ctx context.Context, id, statusID int64, at time.Time) error {
					storeTouched = true
					return nil
				},
				markReviewedFunc: func(ctx context.Context, id, statusID, reviewerID int64, at time.Time) error {
					storeTouched = true
					return nil
				},
				updateFunc: func(ctx context.Context, id int64, in models.UpdateExpenseInput) error {
					storeTouched = true
					return nil
				},
				deleteFunc: func(ctx context.Context, id int64) error {
					storeTouched = true
					return nil
				},
			}
			svc := newTestService(store)

			err := tt.op(svc)
			assert.ErrorIs(t, err, expense.ErrInvalidTransition)
			assert.False(t, storeTouched, "store should not be written on a guarded transition")
		})
	}
}

func TestGetCategoryByName_Unknown(t *testing.T) {
	svc := newTestService(&mockExpenseStore{})
	_, err := svc.GetCategoryByName(context.Background(), "Yachts")
	assert.ErrorIs(t, err, ErrValidation)
}
