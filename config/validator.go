package config

import (
	"errors"
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate reports every invalid field.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if c.DataDir == "" {
		add("data_dir", "data directory is required")
	}
	if c.QuotaBytes < 1 {
		add("quota_bytes", "quota_bytes must be positive")
	}

	if c.Chat.BaseURL == "" {
		add("chat.base_url", "chat base URL is required")
	} else if _, err := url.ParseRequestURI(c.Chat.BaseURL); err != nil {
		add("chat.base_url", "invalid chat base URL")
	}
	if c.Chat.PrimaryModel == "" {
		add("chat.primary_model", "primary model is required")
	}
	if c.Chat.TimeoutSecs < 1 {
		add("chat.timeout_secs", "timeout_secs must be positive")
	}
	if c.Chat.MaxRetries < 0 {
		add("chat.max_retries", "max_retries cannot be negative")
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		add("chat.temperature", "temperature must be between 0 and 2")
	}
	if c.Chat.RequestsPerSecond < 0 {
		add("chat.requests_per_second", "requests_per_second cannot be negative")
	}

	if c.Embedding.Host == "" {
		add("embedding.host", "embedding host is required")
	} else if _, err := url.ParseRequestURI(c.Embedding.Host); err != nil {
		add("embedding.host", "invalid embedding host URL")
	}
	if c.Embedding.Model == "" {
		add("embedding.model", "embedding model is required")
	}
	if c.Embedding.BatchSize < 1 {
		add("embedding.batch_size", "batch_size must be positive")
	}
	if c.Embedding.Workers < 0 {
		add("embedding.workers", "workers cannot be negative")
	}

	if c.Chunking.Size < 1 {
		add("chunking.size", "size must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		add("chunking.overlap", "overlap must be non-negative and less than size")
	}

	if c.Retrieval.TopK < 1 {
		add("retrieval.top_k", "top_k must be positive")
	}

	switch c.Store.Type {
	case StoreBadger:
	case StorePgvector:
		if c.Store.DatabaseURL == "" {
			add("store.database_url", "database_url is required for pgvector")
		}
		if c.Store.Dimension < 1 {
			add("store.dimension", "dimension must be positive")
		}
	default:
		add("store.type", fmt.Sprintf("unknown store type %q", c.Store.Type))
	}

	return errs
}

// Check is Validate folded into a single error, nil when the config is valid.
func (c *Config) Check() error {
	verrs := c.Validate()
	errs := make([]error, len(verrs))
	for i, e := range verrs {
		errs[i] = e
	}
	return errors.Join(errs...)
}
