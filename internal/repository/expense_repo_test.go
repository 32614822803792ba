package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/pkg/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrations("../../migrations"))
	return db
}

func newDraft(userID, categoryID, amount int64, date time.Time) *models.Expense {
	return &models.Expense{
		UserID:      userID,
		CategoryID:  categoryID,
		StatusID:    1, // Draft
		AmountMinor: amount,
		Currency:    "USD",
		Date:        date,
	}
}

func TestExpenseRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewExpenseRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	e := newDraft(1, 1, 2550, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	e.Description = "taxi"
	require.NoError(t, repo.Create(ctx, e))
	require.NotZero(t, e.ID)

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(2550), got.AmountMinor)
	assert.Equal(t, "Travel", got.Category)
	assert.Equal(t, "Draft", got.Status)
	assert.Equal(t, "taxi", got.Description)
	assert.Nil(t, got.SubmittedAt)
	assert.Nil(t, got.ReviewerID)
}

func TestExpenseRepository_GetMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewExpenseRepository(db.DB, zap.NewNop())

	got, err := repo.GetByID(context.Background(), 12345)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExpenseRepository_ListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewExpenseRepository(db.DB, zap.NewNop())
	ctx := context.Background()
	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newDraft(1, 1, 100, date)))
	require.NoError(t, repo.Create(ctx, newDraft(1, 2, 200, date.AddDate(0, 0, 1))))
	require.NoError(t, repo.Create(ctx, newDraft(3, 1, 300, date.AddDate(0, 0, 2))))

	all, err := repo.List(ctx, models.ExpenseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	// newest first
	assert.Equal(t, int64(300), all[0].AmountMinor)

	byUser, err := repo.List(ctx, models.ExpenseFilter{UserID: 1})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	byCategory, err := repo.List(ctx, models.ExpenseFilter{CategoryID: 2})
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)

	both, err := repo.List(ctx, models.ExpenseFilter{UserID: 3, CategoryID: 1})
	require.NoError(t, err)
	assert.Len(t, both, 1)
}

func TestExpenseRepository_StatusTimestamps(t *testing.T) {
	db := newTestDB(t)
	repo := NewExpenseRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	e := newDraft(1, 1, 500, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, e))

	submittedAt := time.Date(2024, 1, 11, 9, 30, 0, 0, time.UTC)
	require.NoError(t, repo.MarkSubmitted(ctx, e.ID, 2, submittedAt))

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Submitted", got.Status)
	require.NotNil(t, got.SubmittedAt)

	reviewedAt := time.Date(2024, 1, 12, 14, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkReviewed(ctx, e.ID, 3, 2, reviewedAt))

	got, err = repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Approved", got.Status)
	require.NotNil(t, got.ReviewerID)
	assert.Equal(t, int64(2), *got.ReviewerID)
	require.NotNil(t, got.ReviewedAt)
}

func TestExpenseRepository_UpdateAndDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewExpenseRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	e := newDraft(1, 1, 500, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, e))

	require.NoError(t, repo.Update(ctx, e.ID, models.UpdateExpenseInput{
		CategoryID:  2,
		AmountMinor: 750,
		Currency:    "EUR",
		Date:        time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		Description: "updated",
	}))

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(750), got.AmountMinor)
	assert.Equal(t, "EUR", got.Currency)
	assert.Equal(t, "Meals", got.Category)
	assert.Equal(t, "updated", got.Description)

	require.NoError(t, repo.Delete(ctx, e.ID))
	gone, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestReferenceRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewReferenceRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 6)

	statuses, err := repo.ListStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 4)
	assert.Equal(t, "Draft", statuses[0].Name)

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "Manager", users[1].Role)

	roles, err := repo.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 3)

	travel, err := repo.GetCategoryByName(ctx, "Travel")
	require.NoError(t, err)
	require.NotNil(t, travel)
	assert.Equal(t, int64(1), travel.ID)

	missing, err := repo.GetCategoryByName(ctx, "Yachts")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
