package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/Yiteng-CHEN/snaplearn/internal/ai"
	"github.com/Yiteng-CHEN/snaplearn/internal/llm"
	"github.com/Yiteng-CHEN/snaplearn/internal/llm/prompts"
)

const (
	aiModeDirect = "direct"
	aiModeRemote = "remote"
)

func addLLMFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("prompt-variant", string(prompts.PromptStandard), "Grading prompt variant (strict, standard, lenient)")
	f.Duration("ai-timeout", ai.DefaultTimeout, "Timeout of a single AI call")
	f.Bool("llm-ping", true, "Check the LLM endpoint at startup")
}

func addAIFlags(cmd *cobra.Command) {
	addLLMFlags(cmd)
	f := cmd.Flags()
	f.String("ai-mode", aiModeDirect, "How to reach the AI: direct (LLM API) or remote (AI backend service)")
	f.String("ai-url", "http://localhost:8081", "AI backend service URL (ai-mode=remote)")
	f.Float64("ai-rate", 0, "Maximum AI calls per second (0 = unlimited)")
	f.Int("ai-burst", 1, "Burst size of the AI rate limit")
}

// newLLMClient builds the LLM client and optionally pings the endpoint.
func newLLMClient(ctx context.Context, v *viper.Viper) (*llm.Client, error) {
	variant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(variant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", variant)
		variant = string(prompts.PromptStandard)
	}
	client, err := llm.New(llm.Config{
		BaseURL:       v.GetString("llm-url"),
		APIKey:        v.GetString("llm-key"),
		Model:         v.GetString("llm-model"),
		PromptVariant: variant,
		Lang:          v.GetString("lang"),
		Timeout:       v.GetDuration("ai-timeout"),
	})
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	if v.GetBool("llm-ping") {
		if err := client.Ping(ctx); err != nil {
			return nil, fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}
	return client, nil
}

// newBackend returns the AI collaborator selected by ai-mode, rate limited if requested.
func newBackend(ctx context.Context, v *viper.Viper) (ai.Backend, error) {
	var backend ai.Backend
	switch mode := strings.ToLower(v.GetString("ai-mode")); mode {
	case aiModeDirect:
		client, err := newLLMClient(ctx, v)
		if err != nil {
			return nil, err
		}
		backend = client
	case aiModeRemote:
		backend = ai.NewRemote(v.GetString("ai-url"), v.GetDuration("ai-timeout"))
		slog.Info("using remote AI backend", "url", v.GetString("ai-url"))
	default:
		return nil, fmt.Errorf("invalid ai-mode %q (want %s or %s)", mode, aiModeDirect, aiModeRemote)
	}

	if r := v.GetFloat64("ai-rate"); r > 0 {
		burst := max(v.GetInt("ai-burst"), 1)
		slog.Info("rate limiting AI calls", "rate", r, "burst", burst)
		return ai.RateLimited(backend, rate.NewLimiter(rate.Limit(r), burst)), nil
	}
	return backend, nil
}
