// Package chat implements the assistant: a registry of database-backed
// tools and a bounded tool-calling loop against a chat-completion
// endpoint.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/expenseflow/expenseflow/internal/domain/expense"
	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/service"
)

// Defaults are the actor ids used when the model omits them. They come
// from configuration, not from the instructional text.
type Defaults struct {
	UserID     int64
	ReviewerID int64
}

// Args is the parsed argument payload of a single tool call
type Args map[string]any

// Int64 reads an integer argument. JSON numbers arrive as float64.
func (a Args) Int64(key string) (int64, bool) {
	v, ok := a[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// Float64 reads a number argument
func (a Args) Float64(key string) (float64, bool) {
	v, ok := a[key]
	if !ok {
		return 0, false
	}
	n, ok := v.(float64)
	return n, ok
}

// String reads a string argument
func (a Args) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Handler executes one tool call against the domain service
type Handler func(ctx context.Context, args Args) (any, error)

// Tool is one named, schema-declared operation the model may request
type Tool struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
	Handle      Handler
}

// Registry is the fixed, ordered set of tools. Built once at startup and
// immutable afterwards.
type Registry struct {
	tools        []Tool
	index        map[string]int
	declarations []openai.Tool
}

// NewRegistry builds the registry over the given service. Duplicate tool
// names are a programming error and panic at startup.
func NewRegistry(svc *service.ExpenseService, defaults Defaults) *Registry {
	r := &Registry{index: make(map[string]int)}
	for _, t := range buildTools(svc, defaults) {
		r.register(t)
	}
	return r
}

func (r *Registry) register(t Tool) {
	if _, exists := r.index[t.Name]; exists {
		panic(fmt.Sprintf("chat: duplicate tool name %q", t.Name))
	}
	r.index[t.Name] = len(r.tools)
	r.tools = append(r.tools, t)
	r.declarations = append(r.declarations, openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		},
	})
}

// Declarations returns the tool declarations for a completion request
func (r *Registry) Declarations() []openai.Tool {
	return r.declarations
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	return len(r.tools)
}

// Dispatch looks up and invokes the named tool, returning the serialized
// tool-result payload. Failures inside the tool are data: they come back
// as an {"error": ...} payload for the model to narrate, never as an
// error to the caller.
func (r *Registry) Dispatch(ctx context.Context, name, rawArgs string) string {
	idx, ok := r.index[name]
	if !ok {
		return errorPayload(fmt.Sprintf("Unknown function: %s", name))
	}

	args := Args{}
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return errorPayload(fmt.Sprintf("invalid arguments: %v", err))
		}
	}

	result, err := r.tools[idx].Handle(ctx, args)
	if err != nil {
		return errorPayload(err.Error())
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return errorPayload(fmt.Sprintf("failed to serialize result: %v", err))
	}
	return string(payload)
}

func errorPayload(msg string) string {
	payload, _ := json.Marshal(map[string]string{"error": msg})
	return string(payload)
}

// minorUnits converts a major-unit amount (e.g. 25.50) to minor units
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

func buildTools(svc *service.ExpenseService, defaults Defaults) []Tool {
	dateParam := jsonschema.Definition{
		Type:        jsonschema.String,
		Description: "Expense date in YYYY-MM-DD format",
	}
	expenseIDParam := jsonschema.Definition{
		Type:        jsonschema.Integer,
		Description: "Numeric id of the expense",
	}

	return []Tool{
		{
			Name:        "list_expenses",
			Description: "List expenses, optionally filtered by user, status or category.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"user_id":  {Type: jsonschema.Integer, Description: "Filter by owning user id"},
					"status":   {Type: jsonschema.String, Description: "Filter by status name: Draft, Submitted, Approved or Rejected"},
					"category": {Type: jsonschema.String, Description: "Filter by category name, e.g. Travel"},
				},
			},
			Handle: func(ctx context.Context, args Args) (any, error) {
				var filter models.ExpenseFilter
				if userID, ok := args.Int64("user_id"); ok {
					filter.UserID = userID
				}
				if status, ok := args.String("status"); ok && status != "" {
					st := expense.Status(status)
					if !st.IsValid() {
						return nil, fmt.Errorf("unknown status %q", status)
					}
					filter.StatusID = st.ID()
				}
				if category, ok := args.String("category"); ok && category != "" {
					c, err := svc.GetCategoryByName(ctx, category)
					if err != nil {
						return nil, err
					}
					filter.CategoryID = c.ID
				}
				return svc.ListExpenses(ctx, filter)
			},
		},
		{
			Name:        "get_expense",
			Description: "Get a single expense by id.",
			Parameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: map[string]jsonschema.Definition{"expense_id": expenseIDParam},
				Required:   []string{"expense_id"},
			},
			Handle: func(ctx context.Context, args Args) (any, error) {
				id, ok := args.Int64("expense_id")
				if !ok {
					return nil, fmt.Errorf("expense_id is required")
				}
				return svc.GetExpense(ctx, id)
			},
		},
		{
			Name:        "create_expense",
			Description: "Create a new draft expense. Amount is in major currency units, e.g. 25.50.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"category":    {Type: jsonschema.String, Description: "Category name, e.g. Travel"},
					"amount":      {Type: jsonschema.Number, Description: "Amount in major currency units"},
					"date":        dateParam,
					"description": {Type: jsonschema.String, Description: "Free-text description"},
					"currency":    {Type: jsonschema.String, Description: "3-letter currency code, defaults to USD"},
					"user_id":     {Type: jsonschema.Integer, Description: "Owning user id, defaults to the current user"},
				},
				Required: []string{"category", "amount", "date"},
			},
			Handle: func(ctx context.Context, args Args) (any, error) {
				category, _ := args.String("category")
				c, err := svc.GetCategoryByName(ctx, category)
				if err != nil {
					return nil, err
				}

				amount, ok := args.Float64("amount")
				if !ok {
					return nil, fmt.Errorf("amount is required")
				}
				dateStr, _ := args.String("date")
				date, err := parseDate(dateStr)
				if err != nil {
					return nil, err
				}

				in := models.CreateExpenseInput{
					UserID:      defaults.UserID,
					CategoryID:  c.ID,
					AmountMinor: minorUnits(amount),
					Currency:    "USD",
					Date:        date,
				}
				if userID, ok := args.Int64("user_id"); ok {
					in.UserID = userID
				}
				if currency, ok := args.String("currency"); ok && currency != "" {
					in.Currency = currency
				}
				if description, ok := args.String("description"); ok {
					in.Description = description
				}
				return svc.CreateExpense(ctx, in)
			},
		},
		{
			Name:        "update_expense",
			Description: "Update fields of a draft expense. Omitted fields keep their current value.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"expense_id":  expenseIDParam,
					"category":    {Type: jsonschema.String, Description: "New category name"},
					"amount":      {Type: jsonschema.Number, Description: "New amount in major currency units"},
					"date":        dateParam,
					"description": {Type: jsonschema.String, Description: "New description"},
					"currency":    {Type: jsonschema.String, Description: "New 3-letter currency code"},
				},
				Required: []string{"expense_id"},
			},
			Handle: func(ctx context.Context, args Args) (any, error) {
				id, ok := args.Int64("expense_id")
				if !ok {
					return nil, fmt.Errorf("expense_id is required")
				}
				current, err := svc.GetExpense(ctx, id)
				if err != nil {
					return nil, err
				}

				in := models.UpdateExpenseInput{
					CategoryID:  current.CategoryID,
					AmountMinor: current.AmountMinor,
					Currency:    current.Currency,
					Date:        current.Date,
					Description: current.Description,
				}
				if category, ok := args.String("category"); ok && category != "" {
					c, err := svc.GetCategoryByName(ctx, category)
					if err != nil {
						return nil, err
					}
					in.CategoryID = c.ID
				}
				if amount, ok := args.Float64("amount"); ok {
					in.AmountMinor = minorUnits(amount)
				}
				if dateStr, ok := args.String("date"); ok && dateStr != "" {
					date, err := parseDate(dateStr)
					if err != nil {
						return nil, err
					}
					in.Date = date
				}
				if description, ok := args.String("description"); ok {
					in.Description = description
				}
				if currency, ok := args.String("currency"); ok && currency != "" {
					in.Currency = currency
				}
				return svc.UpdateExpense(ctx, id, in)
			},
		},
		{
			Name:        "delete_expense",
			Description: "Delete a draft expense by id.",
			Parameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: map[string]jsonschema.Definition{"expense_id": expenseIDParam},
				Required:   []string{"expense_id"},
			},
			Handle: func(ctx context.Context, args Args) (any, error) {
				id, ok := args.Int64("expense_id")
				if !ok {
					return nil, fmt.Errorf("expense_id is required")
				}
				if err := svc.DeleteExpense(ctx, id); err != nil {
					return nil, err
				}
				return map[string]any{"deleted": true, "expense_id": id}, nil
			},
		},
		{
			Name:        "submit_expense",
			Description: "Submit a draft expense for review.",
			Parameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: map[string]jsonschema.Definition{"expense_id": expenseIDParam},
				Required:   []string{"expense_id"},
			},
			Handle: func(ctx context.Context, args Args) (any, error) {
				id, ok := args.Int64("expense_id")
				if !ok {
					return nil, fmt.Errorf("expense_id is required")
				}
				return svc.SubmitExpense(ctx, id)
			},
		},
		{
			Name:        "approve_expense",
			Description: "Approve a submitted expense.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"expense_id":  expenseIDParam,
					"reviewer_id": {Type: jsonschema.Integer, Description: "Reviewing user id, defaults to the current reviewer"},
				},
				Required: []string{"expense_id"},
			},
			Handle: func(ctx context.Context, args Args) (any, error) {
				id, ok := args.Int64("expense_id")
				if !ok {
					return nil, fmt.Errorf("expense_id is required")
				}
				reviewerID := defaults.ReviewerID
				if v, ok := args.Int64("reviewer_id"); ok {
					reviewerID = v
				}
				return svc.ApproveExpense(ctx, id, reviewerID)
			},
		},
		{
			Name:        "reject_expense",
			Description: "Reject a submitted expense.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"expense_id":  expenseIDParam,
					"reviewer_id": {Type: jsonschema.Integer, Description: "Reviewing user id, defaults to the current reviewer"},
				},
				Required: []string{"expense_id"},
			},
			Handle: func(ctx context.Context, args Args) (any, error) {
				id, ok := args.Int64("expense_id")
				if !ok {
					return nil, fmt.Errorf("expense_id is required")
				}
				reviewerID := defaults.ReviewerID
				if v, ok := args.Int64("reviewer_id"); ok {
					reviewerID = v
				}
				return svc.RejectExpense(ctx, id, reviewerID)
			},
		},
		{
			Name:        "list_categories",
			Description: "List all expense categories.",
			Parameters:  jsonschema.Definition{Type: jsonschema.Object, Properties: map[string]jsonschema.Definition{}},
			Handle: func(ctx context.Context, args Args) (any, error) {
				return svc.ListCategories(ctx)
			},
		},
		{
			Name:        "list_statuses",
			Description: "List all expense statuses.",
			Parameters:  jsonschema.Definition{Type: jsonschema.Object, Properties: map[string]jsonschema.Definition{}},
			Handle: func(ctx context.Context, args Args) (any, error) {
				return svc.ListStatuses(ctx)
			},
		},
		{
			Name:        "list_users",
			Description: "List all known users.",
			Parameters:  jsonschema.Definition{Type: jsonschema.Object, Properties: map[string]jsonschema.Definition{}},
			Handle: func(ctx context.Context, args Args) (any, error) {
				return svc.ListUsers(ctx)
			},
		},
		{
			Name:        "get_expense_stats",
			Description: "Get aggregate expense totals grouped by status and category.",
			Parameters:  jsonschema.Definition{Type: jsonschema.Object, Properties: map[string]jsonschema.Definition{}},
			Handle: func(ctx context.Context, args Args) (any, error) {
				return svc.GetStats(ctx)
			},
		},
	}
}
