package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/expenseflow/expenseflow/internal/models"
)

// referenceLister is the slice of the domain service the prompt builder
// needs to describe the data to the model.
type referenceLister interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
	ListStatuses(ctx context.Context) ([]*models.Status, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// buildSystemPrompt composes the fixed system instruction: what the
// assistant is, what reference data exists, and which actor ids to use
// by default. Reference lookups are best effort; a failing store just
// leaves that section out.
func buildSystemPrompt(ctx context.Context, refs referenceLister, defaults Defaults) string {
	var b strings.Builder

	b.WriteString("You are an expense-tracking assistant. ")
	b.WriteString("You can query and manage expenses using the provided functions. ")
	b.WriteString("Amounts are in major currency units when talking to users. ")
	b.WriteString("Expenses move Draft -> Submitted -> Approved or Rejected; ")
	b.WriteString("Approved and Rejected are final.\n")

	if categories, err := refs.ListCategories(ctx); err == nil && len(categories) > 0 {
		names := make([]string, 0, len(categories))
		for _, c := range categories {
			names = append(names, c.Name)
		}
		fmt.Fprintf(&b, "Available categories: %s.\n", strings.Join(names, ", "))
	}

	if statuses, err := refs.ListStatuses(ctx); err == nil && len(statuses) > 0 {
		names := make([]string, 0, len(statuses))
		for _, s := range statuses {
			names = append(names, s.Name)
		}
		fmt.Fprintf(&b, "Expense statuses: %s.\n", strings.Join(names, ", "))
	}

	if users, err := refs.ListUsers(ctx); err == nil && len(users) > 0 {
		entries := make([]string, 0, len(users))
		for _, u := range users {
			entries = append(entries, fmt.Sprintf("%s (id %d, %s)", u.Name, u.ID, u.Role))
		}
		fmt.Fprintf(&b, "Known users: %s.\n", strings.Join(entries, "; "))
	}

	fmt.Fprintf(&b, "When no user is specified, act for user id %d. ", defaults.UserID)
	fmt.Fprintf(&b, "When no reviewer is specified, reviews are by user id %d.", defaults.ReviewerID)

	return b.String()
}
