package chat

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/service"
)

// In-memory stores backing the real service for chat tests

type stubExpenseStore struct {
	expenses map[int64]*models.Expense
	nextID   int64
}

func newStubExpenseStore(seed ...*models.Expense) *stubExpenseStore {
	s := &stubExpenseStore{expenses: map[int64]*models.Expense{}, nextID: 1}
	for _, e := range seed {
		s.expenses[e.ID] = e
		if e.ID >= s.nextID {
			s.nextID = e.ID + 1
		}
	}
	return s
}

func (s *stubExpenseStore) Create(ctx context.Context, e *models.Expense) error {
	e.ID = s.nextID
	s.nextID++
	e.Status = "Draft"
	e.Category = "Travel"
	s.expenses[e.ID] = e
	return nil
}

func (s *stubExpenseStore) GetByID(ctx context.Context, id int64) (*models.Expense, error) {
	return s.expenses[id], nil
}

func (s *stubExpenseStore) List(ctx context.Context, filter models.ExpenseFilter) ([]*models.Expense, error) {
	var out []*models.Expense
	for _, e := range s.expenses {
		out = append(out, e)
	}
	return out, nil
}

func (s *stubExpenseStore) Update(ctx context.Context, id int64, in models.UpdateExpenseInput) error {
	return nil
}

func (s *stubExpenseStore) Delete(ctx context.Context, id int64) error {
	delete(s.expenses, id)
	return nil
}

func (s *stubExpenseStore) MarkSubmitted(ctx context.Context, id, statusID int64, at time.Time) error {
	e, ok := s.expenses[id]
	if !ok {
		return errors.New("no such expense")
	}
	e.StatusID = statusID
	e.Status = "Submitted"
	e.SubmittedAt = &at
	return nil
}

func (s *stubExpenseStore) MarkReviewed(ctx context.Context, id, statusID, reviewerID int64, at time.Time) error {
	e, ok := s.expenses[id]
	if !ok {
		return errors.New("no such expense")
	}
	e.StatusID = statusID
	if statusID == 3 {
		e.Status = "Approved"
	} else {
		e.Status = "Rejected"
	}
	e.ReviewerID = &reviewerID
	e.ReviewedAt = &at
	return nil
}

func (s *stubExpenseStore) SetReceiptPath(ctx context.Context, id int64, path string) error {
	return nil
}

func (s *stubExpenseStore) Stats(ctx context.Context) (*models.ExpenseStats, error) {
	return &models.ExpenseStats{TotalCount: int64(len(s.expenses))}, nil
}

type stubReferenceStore struct{}

func (stubReferenceStore) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return []*models.Category{{ID: 1, Name: "Travel"}, {ID: 2, Name: "Meals"}}, nil
}

func (stubReferenceStore) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	switch name {
	case "Travel":
		return &models.Category{ID: 1, Name: "Travel"}, nil
	case "Meals":
		return &models.Category{ID: 2, Name: "Meals"}, nil
	}
	return nil, nil
}

func (stubReferenceStore) ListStatuses(ctx context.Context) ([]*models.Status, error) {
	return []*models.Status{
		{ID: 1, Name: "Draft"}, {ID: 2, Name: "Submitted"},
		{ID: 3, Name: "Approved"}, {ID: 4, Name: "Rejected"},
	}, nil
}

func (stubReferenceStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	return []*models.User{
		{ID: 1, Name: "Alex Doe", Role: "Employee"},
		{ID: 2, Name: "Morgan Reed", Role: "Manager"},
	}, nil
}

func (stubReferenceStore) ListRoles(ctx context.Context) ([]*models.Role, error) {
	return []*models.Role{{ID: 1, Name: "Employee"}}, nil
}

func newStubService(store *stubExpenseStore) *service.ExpenseService {
	return service.NewExpenseService(store, stubReferenceStore{}, zap.NewNop())
}

var testDefaults = Defaults{UserID: 1, ReviewerID: 2}

// scriptedClient replays canned completion responses in order. With
// repeatLast set, the final response repeats forever.
type scriptedClient struct {
	responses  []openai.ChatCompletionResponse
	err        error
	repeatLast bool
	calls      int
	requests   []openai.ChatCompletionRequest
}

func (c *scriptedClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.requests = append(c.requests, req)
	c.calls++
	if c.err != nil {
		return openai.ChatCompletionResponse{}, c.err
	}
	i := c.calls - 1
	if i >= len(c.responses) {
		if !c.repeatLast || len(c.responses) == 0 {
			return openai.ChatCompletionResponse{}, errors.New("scripted client exhausted")
		}
		i = len(c.responses) - 1
	}
	return c.responses[i], nil
}

func textResponse(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: text,
			},
			FinishReason: openai.FinishReasonStop,
		}},
	}
}

func toolCallResponse(callID, name, args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   callID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      name,
						Arguments: args,
					},
				}},
			},
			FinishReason: openai.FinishReasonToolCalls,
		}},
	}
}

func newTestOrchestrator(client CompletionClient, store *stubExpenseStore, maxRounds int) *Orchestrator {
	svc := newStubService(store)
	return NewOrchestrator(client, NewRegistry(svc, testDefaults), svc, Options{
		Model:     "test-model",
		MaxRounds: maxRounds,
		Defaults:  testDefaults,
	}, zap.NewNop())
}
