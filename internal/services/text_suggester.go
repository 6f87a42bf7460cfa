package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	apierrors "github.com/yukikurage/taskpilot/internal/errors"
	"go.uber.org/zap"
)

// CompletedTask is a finished task as presented to the text suggester.
type CompletedTask struct {
	Title       string
	Description string
	Assignee    string
}

// TextSuggester drafts task text. Failures are *errors.UpstreamError values
// from the text-suggester service.
type TextSuggester interface {
	SuggestDescription(ctx context.Context, title string) (string, error)
	SummarizeCompletedWork(ctx context.Context, tasks []CompletedTask) (string, error)
}

// Completer sends a single prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLMSuggester implements TextSuggester on top of a Completer guarded by a
// circuit breaker. Calls are not retried.
type LLMSuggester struct {
	completer Completer
	breaker   *gobreaker.CircuitBreaker
	logger    *zap.Logger
}

// NewLLMSuggester wraps completer with a circuit breaker that opens after
// more than three consecutive failures.
func NewLLMSuggester(completer Completer, timeout time.Duration, logger *zap.Logger) *LLMSuggester {
	logger = logger.Named("text-suggester")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "text-suggester",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &LLMSuggester{
		completer: completer,
		breaker:   breaker,
		logger:    logger,
	}
}

// SuggestDescription drafts a description for a task title.
func (s *LLMSuggester) SuggestDescription(ctx context.Context, title string) (string, error) {
	prompt := fmt.Sprintf(`You are an AI assistant helping project managers create clear and concise task descriptions.

Given the task title, suggest a detailed description that clarifies the task's objectives, required steps, and expected outcomes.
The task description should be easy to understand for the assigned user.
Reply with the description only.

Task Title: %s

Suggested Task Description:`, title)

	return s.complete(ctx, prompt)
}

// SummarizeCompletedWork summarizes the given finished tasks.
func (s *LLMSuggester) SummarizeCompletedWork(ctx context.Context, tasks []CompletedTask) (string, error) {
	var lines strings.Builder
	for i, t := range tasks {
		fmt.Fprintf(&lines, "Task %d: %s completed by %s. %s\n", i+1, t.Title, t.Assignee, t.Description)
	}

	prompt := fmt.Sprintf(`You are a project management assistant. Your task is to summarize the completed tasks for the week.

Completed Tasks:
%s
Provide a concise summary of the progress made this week, highlighting key achievements and any potential roadblocks.
Reply with the summary only.`, lines.String())

	return s.complete(ctx, prompt)
}

func (s *LLMSuggester) complete(ctx context.Context, prompt string) (string, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.completer.Complete(ctx, prompt)
	})
	if err != nil {
		s.logger.Error("Text suggestion failed", zap.Error(err))
		return "", classifyCompletionError(err)
	}

	text := strings.TrimSpace(result.(string))
	if text == "" {
		return "", apierrors.NewUpstreamError(apierrors.ServiceTextSuggester, apierrors.UpstreamOther, errors.New("empty completion"))
	}
	return text, nil
}

func classifyCompletionError(err error) error {
	var upstream *apierrors.UpstreamError
	if errors.As(err, &upstream) {
		return upstream
	}

	code := apierrors.UpstreamOther
	var (
		openAIErr    *openai.APIError
		anthropicErr *anthropic.APIError
	)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		code = apierrors.UpstreamUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = apierrors.UpstreamUnavailable
	case errors.As(err, &openAIErr):
		switch {
		case openAIErr.HTTPStatusCode == 429:
			code = apierrors.UpstreamRateLimited
		case openAIErr.HTTPStatusCode >= 500:
			code = apierrors.UpstreamUnavailable
		}
	case errors.As(err, &anthropicErr):
		switch {
		case anthropicErr.IsRateLimitErr():
			code = apierrors.UpstreamRateLimited
		case anthropicErr.IsOverloadedErr(), anthropicErr.IsApiErr():
			code = apierrors.UpstreamUnavailable
		}
	}
	return apierrors.NewUpstreamError(apierrors.ServiceTextSuggester, code, err)
}

// OpenAICompleter completes prompts with the OpenAI chat API.
type OpenAICompleter struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAICompleter(apiKey, model string, logger *zap.Logger) *OpenAICompleter {
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAICompleter{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger.Named("llm.openai"),
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	c.logger.Debug("LLM request completed",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Choices[0].Message.Content, nil
}

// AnthropicCompleter completes prompts with the Anthropic messages API.
type AnthropicCompleter struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

func NewAnthropicCompleter(apiKey, model string, logger *zap.Logger) *AnthropicCompleter {
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}
	return &AnthropicCompleter{
		client: anthropic.NewClient(apiKey),
		model:  model,
		logger: logger.Named("llm.anthropic"),
	}
}

func (c *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	c.logger.Debug("LLM request completed",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(start)))

	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text, nil
		}
	}
	return "", fmt.Errorf("no text in Anthropic response")
}
