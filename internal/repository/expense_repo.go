package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/expenseflow/expenseflow/internal/models"
	"go.uber.org/zap"
)

// ExpenseRepository handles expense database operations
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) *ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

const expenseColumns = `
	e.id, e.user_id, e.category_id, c.name, e.status_id, s.name,
	e.amount_minor, e.currency, e.expense_date, e.description, e.receipt_path,
	e.submitted_at, e.reviewed_at, e.reviewer_id, e.created_at, e.updated_at
`

func scanExpense(row interface{ Scan(...any) error }) (*models.Expense, error) {
	var e models.Expense
	var description, receiptPath sql.NullString
	var submittedAt, reviewedAt sql.NullTime
	var reviewerID sql.NullInt64

	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.CategoryID,
		&e.Category,
		&e.StatusID,
		&e.Status,
		&e.AmountMinor,
		&e.Currency,
		&e.Date,
		&description,
		&receiptPath,
		&submittedAt,
		&reviewedAt,
		&reviewerID,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Description = description.String
	e.ReceiptPath = receiptPath.String
	if submittedAt.Valid {
		e.SubmittedAt = &submittedAt.Time
	}
	if reviewedAt.Valid {
		e.ReviewedAt = &reviewedAt.Time
	}
	if reviewerID.Valid {
		e.ReviewerID = &reviewerID.Int64
	}

	return &e, nil
}

// Create inserts a new expense and sets its generated id
func (r *ExpenseRepository) Create(ctx context.Context, e *models.Expense) error {
	query := `
		INSERT INTO expenses (
			user_id, category_id, status_id, amount_minor, currency,
			expense_date, description, receipt_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		e.UserID,
		e.CategoryID,
		e.StatusID,
		e.AmountMinor,
		e.Currency,
		e.Date,
		nullString(e.Description),
		nullString(e.ReceiptPath),
	)
	if err != nil {
		r.logger.Error("Failed to create expense", zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	e.ID = id
	return nil
}

// GetByID retrieves an expense by id; returns (nil, nil) when absent
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*models.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses e
		JOIN categories c ON c.id = e.category_id
		JOIN statuses s ON s.id = e.status_id
		WHERE e.id = ?
	`

	e, err := scanExpense(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get expense", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	return e, nil
}

// List retrieves expenses matching the filter, newest first
func (r *ExpenseRepository) List(ctx context.Context, filter models.ExpenseFilter) ([]*models.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses e
		JOIN categories c ON c.id = e.category_id
		JOIN statuses s ON s.id = e.status_id
	`

	var conditions []string
	var args []any
	if filter.UserID != 0 {
		conditions = append(conditions, "e.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.StatusID != 0 {
		conditions = append(conditions, "e.status_id = ?")
		args = append(args, filter.StatusID)
	}
	if filter.CategoryID != 0 {
		conditions = append(conditions, "e.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY e.expense_date DESC, e.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list expenses", zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}

	return expenses, rows.Err()
}

// Update replaces the mutable fields of an expense
func (r *ExpenseRepository) Update(ctx context.Context, id int64, in models.UpdateExpenseInput) error {
	query := `
		UPDATE expenses
		SET category_id = ?, amount_minor = ?, currency = ?, expense_date = ?,
			description = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		in.CategoryID,
		in.AmountMinor,
		in.Currency,
		in.Date,
		nullString(in.Description),
		id,
	)
	if err != nil {
		r.logger.Error("Failed to update expense", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update expense: %w", err)
	}

	return nil
}

// Delete removes an expense
func (r *ExpenseRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to delete expense", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

// MarkSubmitted sets the status and submission timestamp
func (r *ExpenseRepository) MarkSubmitted(ctx context.Context, id, statusID int64, at time.Time) error {
	query := `
		UPDATE expenses
		SET status_id = ?, submitted_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query, statusID, at, id)
	if err != nil {
		r.logger.Error("Failed to mark expense submitted", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark expense submitted: %w", err)
	}
	return nil
}

// MarkReviewed sets the status, reviewer and review timestamp
func (r *ExpenseRepository) MarkReviewed(ctx context.Context, id, statusID, reviewerID int64, at time.Time) error {
	query := `
		UPDATE expenses
		SET status_id = ?, reviewer_id = ?, reviewed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query, statusID, reviewerID, at, id)
	if err != nil {
		r.logger.Error("Failed to mark expense reviewed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark expense reviewed: %w", err)
	}
	return nil
}

// SetReceiptPath records the stored receipt location for an expense
func (r *ExpenseRepository) SetReceiptPath(ctx context.Context, id int64, path string) error {
	query := `UPDATE expenses SET receipt_path = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query, path, id)
	if err != nil {
		r.logger.Error("Failed to set receipt path", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to set receipt path: %w", err)
	}
	return nil
}

// Stats computes aggregate totals grouped by status and category
func (r *ExpenseRepository) Stats(ctx context.Context) (*models.ExpenseStats, error) {
	stats := &models.ExpenseStats{}

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(amount_minor), 0) FROM expenses",
	).Scan(&stats.TotalCount, &stats.TotalAmountMinor)
	if err != nil {
		r.logger.Error("Failed to compute expense totals", zap.Error(err))
		return nil, fmt.Errorf("failed to compute expense totals: %w", err)
	}

	byStatus, err := r.db.QueryContext(ctx, `
		SELECT s.name, COUNT(*), COALESCE(SUM(e.amount_minor), 0)
		FROM expenses e
		JOIN statuses s ON s.id = e.status_id
		GROUP BY s.name
		ORDER BY s.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute status totals: %w", err)
	}
	defer byStatus.Close()

	for byStatus.Next() {
		var t models.StatusTotal
		if err := byStatus.Scan(&t.Status, &t.Count, &t.AmountMinor); err != nil {
			return nil, fmt.Errorf("failed to scan status total: %w", err)
		}
		stats.ByStatus = append(stats.ByStatus, t)
	}
	if err := byStatus.Err(); err != nil {
		return nil, err
	}

	byCategory, err := r.db.QueryContext(ctx, `
		SELECT c.name, COUNT(*), COALESCE(SUM(e.amount_minor), 0)
		FROM expenses e
		JOIN categories c ON c.id = e.category_id
		GROUP BY c.name
		ORDER BY c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute category totals: %w", err)
	}
	defer byCategory.Close()

	for byCategory.Next() {
		var t models.CategoryTotal
		if err := byCategory.Scan(&t.Category, &t.Count, &t.AmountMinor); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		stats.ByCategory = append(stats.ByCategory, t)
	}

	return stats, byCategory.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
