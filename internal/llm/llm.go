// Package llm talks to the upstream chat-completion provider.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/quillpost/apiserver/config"
)

// ErrEmptyCompletion is returned when the provider answers without any text.
var ErrEmptyCompletion = errors.New("no completion returned")

// Client turns a prompt into generated text with a single request.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// New constructs the client selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "", "openai", "groq":
		return NewChatCompletionClient(cfg)
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
