package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// ErrEmptyResponse is returned when the model replied without any text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Completer implements ai.Completer for a single model.
type Completer struct {
	llm         llms.Model
	model       string
	temperature float64
	logger      *slog.Logger
}

// Complete sends a single-turn prompt and returns the reply content.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug("sending completion request", "prompt_length", len(prompt))

	answer, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, llms.WithTemperature(c.temperature))
	if err != nil {
		c.logger.Debug("completion failed", "err", err)
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return "", ErrEmptyResponse
	}
	return answer, nil
}
