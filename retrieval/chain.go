package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/poiesic/kbase/ai"
	"github.com/poiesic/kbase/core"
)

// Result is the outcome of one chain invocation. A degraded result carries
// the fallback apology as its answer, no sources, and the joined failure in Err.
type Result struct {
	Answer   string
	Sources  []string
	Model    string
	Degraded bool
	Err      error
}

// Invoker runs a prompt through one or more language models.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) Result
}

// FallbackChain tries each candidate model in order until one answers.
// Its candidate list is fixed at construction.
type FallbackChain struct {
	candidates      []ai.Candidate
	factory         ai.CompleterFactory
	retryDelay      time.Duration
	fallbackMessage string
	limiter         *rate.Limiter
	logger          *slog.Logger
}

// ChainOption configures a FallbackChain.
type ChainOption func(*FallbackChain) error

// WithChainLogger sets a custom logger.
// Default is slog.Default().
func WithChainLogger(logger *slog.Logger) ChainOption {
	return func(c *FallbackChain) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithLimiter replaces the limiter derived from Config.RequestsPerSecond.
// A nil limiter disables limiting.
func WithLimiter(limiter *rate.Limiter) ChainOption {
	return func(c *FallbackChain) error {
		c.limiter = limiter
		return nil
	}
}

// NewFallbackChain builds a chain over cfg.Candidates(). Later changes to cfg
// do not affect the chain.
func NewFallbackChain(cfg *ai.Config, factory ai.CompleterFactory, opts ...ChainOption) (*FallbackChain, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if factory == nil {
		return nil, ErrCompleterFactoryRequired
	}

	snapshot := *cfg
	snapshot.Normalize()
	candidates := snapshot.Candidates()
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	c := &FallbackChain{
		candidates:      candidates,
		factory:         factory,
		retryDelay:      snapshot.RetryDelay,
		fallbackMessage: snapshot.FallbackMessage,
		logger:          slog.Default(),
	}
	if snapshot.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(snapshot.RequestsPerSecond), 1)
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "fallback-chain")
	return c, nil
}

// Candidates returns a copy of the ordered candidate list.
func (c *FallbackChain) Candidates() []ai.Candidate {
	return append([]ai.Candidate(nil), c.candidates...)
}

// Invoke sends prompt to each candidate in order and returns the first
// successful answer. When every candidate has failed it returns the degraded
// apology built from the last error.
func (c *FallbackChain) Invoke(ctx context.Context, prompt string) Result {
	var (
		failures []error
		lastErr  error
	)
	for i, candidate := range c.candidates {
		if err := ctx.Err(); err != nil {
			lastErr = err
			failures = append(failures, err)
			break
		}

		answer, err := c.try(ctx, candidate, prompt)
		if err == nil {
			if i > 0 {
				c.logger.Info("answered by backup model", "model", candidate.Model, "position", i+1)
			}
			return Result{Answer: answer, Sources: []string{}, Model: candidate.Model}
		}

		lastErr = err
		failures = append(failures, fmt.Errorf("%w: %s: %w", core.ErrCandidateFailure, candidate.Model, err))
		c.logger.Warn("candidate failed",
			"model", candidate.Model,
			"position", i+1,
			"attempts", candidate.Attempts(),
			"error", err)
	}

	c.logger.Error("all candidates failed", "candidates", len(c.candidates), "error", lastErr)
	return Result{
		Answer:   c.degradedAnswer(lastErr),
		Sources:  []string{},
		Degraded: true,
		Err:      fmt.Errorf("%w: %w", core.ErrChainExhausted, errors.Join(failures...)),
	}
}

func (c *FallbackChain) try(ctx context.Context, candidate ai.Candidate, prompt string) (string, error) {
	completer, err := c.factory.Completer(candidate)
	if err != nil {
		return "", err
	}

	var answer string
	err = RetryWithBackoff(ctx, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		attemptCtx := ctx
		if candidate.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, candidate.Timeout)
			defer cancel()
		}
		out, err := completer.Complete(attemptCtx, prompt)
		if err != nil {
			return err
		}
		answer = out
		return nil
	}, candidate.Attempts(), c.retryDelay)
	return answer, err
}

func (c *FallbackChain) degradedAnswer(lastErr error) string {
	text := "unknown error"
	if lastErr != nil {
		text = lastErr.Error()
	}
	if !strings.Contains(c.fallbackMessage, "%s") {
		return c.fallbackMessage
	}
	return fmt.Sprintf(c.fallbackMessage, text)
}
