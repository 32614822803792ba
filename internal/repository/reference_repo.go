package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/expenseflow/expenseflow/internal/models"
	"go.uber.org/zap"
)

// ReferenceRepository reads the small reference tables: categories,
// statuses, users and roles.
type ReferenceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReferenceRepository creates a new reference repository
func NewReferenceRepository(db *sql.DB, logger *zap.Logger) *ReferenceRepository {
	return &ReferenceRepository{
		db:     db,
		logger: logger,
	}
}

// ListCategories returns all expense categories
func (r *ReferenceRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM categories ORDER BY id")
	if err != nil {
		r.logger.Error("Failed to list categories", zap.Error(err))
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// GetCategoryByName returns the category with the given name, or (nil, nil)
func (r *ReferenceRepository) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name FROM categories WHERE name = ?", name,
	).Scan(&c.ID, &c.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get category", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// ListStatuses returns all expense statuses
func (r *ReferenceRepository) ListStatuses(ctx context.Context) ([]*models.Status, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM statuses ORDER BY id")
	if err != nil {
		r.logger.Error("Failed to list statuses", zap.Error(err))
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	defer rows.Close()

	var statuses []*models.Status
	for rows.Next() {
		var s models.Status
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		statuses = append(statuses, &s)
	}
	return statuses, rows.Err()
}

// ListUsers returns all known users with their role names
func (r *ReferenceRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT u.id, u.name, u.email, u.role_id, r.name
		FROM users u
		JOIN roles r ON r.id = u.role_id
		ORDER BY u.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.RoleID, &u.Role); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// ListRoles returns all user roles
func (r *ReferenceRepository) ListRoles(ctx context.Context) ([]*models.Role, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM roles ORDER BY id")
	if err != nil {
		r.logger.Error("Failed to list roles", zap.Error(err))
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}
