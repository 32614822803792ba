package chat

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/config"
	"github.com/expenseflow/expenseflow/internal/models"
)

// ErrTooManyRounds is returned when the model keeps requesting tool calls
// past the configured round limit.
var ErrTooManyRounds = errors.New("tool-call round limit exceeded")

const (
	disabledResponse = "The chat assistant is not configured on this server. " +
		"Expense data is still available through the regular API."
	apologyResponse = "Sorry, something went wrong while handling your request. " +
		"Please try again."
)

// CompletionClient is the slice of the OpenAI client the orchestrator
// uses. Injected so tests can script responses.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewClient builds a completion client from configuration, or nil when
// the endpoint is not configured.
func NewClient(cfg config.OpenAIConfig) CompletionClient {
	if cfg.Endpoint == "" {
		return nil
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.Endpoint
	return openai.NewClientWithConfig(clientCfg)
}

// Reply is the outcome of one Converse turn. ErrorDetail carries the raw
// failure for operator logs; Response is always safe to show the user.
type Reply struct {
	Response    string
	Success     bool
	ErrorDetail string
}

// Options holds orchestrator tuning
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
	MaxRounds   int
	Defaults    Defaults
}

// Orchestrator drives the bounded tool-calling conversation loop. It is
// stateless between calls: history is resupplied by the caller on every
// request.
type Orchestrator struct {
	client   CompletionClient
	registry *Registry
	refs     referenceLister
	opts     Options
	logger   *zap.Logger
}

// NewOrchestrator creates a new orchestrator. A nil client means the
// assistant is disabled and Converse returns a fixed informational reply.
func NewOrchestrator(client CompletionClient, registry *Registry, refs referenceLister, opts Options, logger *zap.Logger) *Orchestrator {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 10
	}
	return &Orchestrator{
		client:   client,
		registry: registry,
		refs:     refs,
		opts:     opts,
		logger:   logger,
	}
}

// Enabled reports whether a model endpoint is configured
func (o *Orchestrator) Enabled() bool {
	return o.client != nil
}

// Converse runs one full turn: replay history, send the user message,
// dispatch any requested tool calls, and return the model's final text.
// Failures around the loop never propagate; they come back as an
// unsuccessful Reply.
func (o *Orchestrator) Converse(ctx context.Context, message string, history []models.ChatTurn) Reply {
	if !o.Enabled() {
		return Reply{Response: disabledResponse, Success: true}
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: buildSystemPrompt(ctx, o.refs, o.opts.Defaults),
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	rounds := 0
	for {
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       o.opts.Model,
			Temperature: o.opts.Temperature,
			MaxTokens:   o.opts.MaxTokens,
			Messages:    messages,
			Tools:       o.registry.Declarations(),
		})
		if err != nil {
			return o.failTurn(fmt.Errorf("completion request failed: %w", err))
		}
		if len(resp.Choices) == 0 {
			return o.failTurn(errors.New("completion response contained no choices"))
		}

		reply := resp.Choices[0].Message
		if len(reply.ToolCalls) == 0 {
			o.logger.Debug("Chat turn completed", zap.Int("tool_rounds", rounds))
			return Reply{Response: reply.Content, Success: true}
		}

		rounds++
		if rounds > o.opts.MaxRounds {
			return o.failTurn(fmt.Errorf("%w: %d rounds", ErrTooManyRounds, rounds))
		}

		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			o.logger.Debug("Dispatching tool call",
				zap.String("tool", call.Function.Name),
				zap.String("call_id", call.ID))

			payload := o.registry.Dispatch(ctx, call.Function.Name, call.Function.Arguments)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    payload,
				ToolCallID: call.ID,
			})
		}
	}
}

func (o *Orchestrator) failTurn(err error) Reply {
	o.logger.Error("Chat turn failed", zap.Error(err))
	return Reply{
		Response:    apologyResponse,
		Success:     false,
		ErrorDetail: err.Error(),
	}
}
