package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Yiteng-CHEN/snaplearn/internal/ai"
	"github.com/Yiteng-CHEN/snaplearn/internal/llm/prompts"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps an OpenAI-compatible API client. It implements ai.Backend.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.PromptVariant
	lang    string
	timeout time.Duration
}

// Config holds the LLM client settings.
type Config struct {
	BaseURL       string
	APIKey        string
	Model         string
	PromptVariant string
	Lang          string
	Timeout       time.Duration
}

// New creates a new LLM client and loads the prompt templates.
func New(cfg Config) (*Client, error) {
	if err := prompts.Load(prompts.Templates); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	variant := prompts.PromptVariant(cfg.PromptVariant)
	if !prompts.IsValidVariant(cfg.PromptVariant) {
		return nil, fmt.Errorf("invalid prompt variant %q", cfg.PromptVariant)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = ai.DefaultTimeout
	}
	lang := cfg.Lang
	if lang == "" {
		lang = "zh"
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   cfg.Model,
		variant: variant,
		lang:    lang,
		timeout: timeout,
	}, nil
}

// Grade asks the LLM to score a free-text answer. The reply is parsed
// leniently: a reply without a readable score line scores 0.
func (c *Client) Grade(ctx context.Context, req ai.GradeRequest) (ai.GradeResult, error) {
	prompt, err := prompts.BuildGradePrompt(c.variant, c.lang, req.Question, req.ReferenceAnswer, req.Answer, req.MaxScore)
	if err != nil {
		return ai.GradeResult{}, fmt.Errorf("build grading prompt: %w", err)
	}
	content, err := c.complete(ctx, prompt, 0.1)
	if err != nil {
		return ai.GradeResult{}, err
	}
	slog.Debug("LLM grading response", "raw", content)
	return ai.ParseGrade(content), nil
}

// Ask answers a student's question.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	prompt, err := prompts.BuildAskPrompt(c.lang, question)
	if err != nil {
		return "", fmt.Errorf("build ask prompt: %w", err)
	}
	return c.complete(ctx, prompt, 0.3)
}

// Ping checks that the endpoint is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("%w: list models: %w", ai.ErrBackend, err)
	}
	return nil
}

// complete sends prompt as a single user turn and returns the reply text.
func (c *Client) complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: LLM API call: %w", ai.ErrBackend, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: LLM returned no choices", ai.ErrBackend)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
