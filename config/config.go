// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config loads kbase settings from YAML, a .env file and the
// environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/kbase/ai"
	"github.com/poiesic/kbase/chunker"
	"github.com/poiesic/kbase/retrieval"
	"github.com/poiesic/kbase/storage/pgvector"
)

// Vector store backends.
const (
	StoreBadger   = "badger"
	StorePgvector = "pgvector"
)

// DefaultQuotaBytes is the per-user storage allowance.
const DefaultQuotaBytes int64 = 10 * 1024 * 1024

type ChatConfig struct {
	BaseURL           string   `yaml:"base_url"`
	APIKey            string   `yaml:"api_key"`
	PrimaryModel      string   `yaml:"primary_model"`
	BackupModels      []string `yaml:"backup_models"`
	TimeoutSecs       int      `yaml:"timeout_secs"`
	MaxRetries        int      `yaml:"max_retries"`
	Temperature       float64  `yaml:"temperature"`
	Referer           string   `yaml:"referer"`
	Title             string   `yaml:"title"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
}

type EmbeddingConfig struct {
	Host      string `yaml:"host"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BatchSize int    `yaml:"batch_size"`
	Workers   int    `yaml:"workers"`
}

type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

type StoreConfig struct {
	Type        string `yaml:"type"`
	DatabaseURL string `yaml:"database_url"`
	Table       string `yaml:"table"`
	Dimension   int    `yaml:"dimension"`
}

// Config is the root application configuration.
type Config struct {
	// DataDir holds the badger database and, unless MediaDir is set, uploads.
	DataDir    string `yaml:"data_dir"`
	MediaDir   string `yaml:"media_dir"`
	QuotaBytes int64  `yaml:"quota_bytes"`

	Chat      ChatConfig      `yaml:"chat"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Store     StoreConfig     `yaml:"store"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:    "data",
		QuotaBytes: DefaultQuotaBytes,
		Chat: ChatConfig{
			BaseURL:      ai.DefaultBaseURL,
			PrimaryModel: ai.DefaultPrimaryModel,
			BackupModels: append([]string(nil), ai.DefaultBackupModels...),
			TimeoutSecs:  int(ai.DefaultTimeout / time.Second),
			MaxRetries:   ai.DefaultMaxRetries,
			Temperature:  ai.DefaultTemperature,
			Referer:      ai.DefaultReferer,
			Title:        ai.DefaultTitle,
		},
		Embedding: EmbeddingConfig{
			Host:      "http://localhost:11434/v1",
			Model:     "embeddinggemma",
			BatchSize: 32,
		},
		Chunking: ChunkingConfig{
			Size:    chunker.DefaultChunkSize,
			Overlap: chunker.DefaultChunkOverlap,
		},
		Retrieval: RetrievalConfig{TopK: retrieval.DefaultTopK},
		Store: StoreConfig{
			Type:      StoreBadger,
			Table:     pgvector.DefaultTable,
			Dimension: pgvector.DefaultDimension,
		},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path searches ./kbase.yaml and ~/.config/kbase/config.yaml
// and falls back to defaults when neither exists.
func Load(path string) (*Config, error) {
	if path == "" {
		path = findConfigFile()
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	}

	if err := mergeWithEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFiles loads variables from .env style files into the process
// environment without overriding ones already set. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Save writes cfg to path as YAML, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func findConfigFile() string {
	locations := []string{"kbase.yaml", "kbase.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "kbase", "config.yaml"))
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

func mergeWithEnv(cfg *Config) error {
	setString(&cfg.Chat.BaseURL, "OPENROUTER_BASE_URL")
	setString(&cfg.Chat.APIKey, "OPENROUTER_API_KEY")
	setString(&cfg.Chat.PrimaryModel, "OPENROUTER_MODEL")
	if raw := os.Getenv("OPENROUTER_BACKUP_MODELS"); raw != "" {
		cfg.Chat.BackupModels = ai.ParseModelList(raw)
	}
	setString(&cfg.Embedding.Host, "EMBEDDING_HOST")
	setString(&cfg.Embedding.Model, "EMBEDDING_MODEL")
	setString(&cfg.Embedding.APIKey, "EMBEDDING_API_KEY")
	setString(&cfg.DataDir, "KBASE_DATA_DIR")
	setString(&cfg.Store.DatabaseURL, "DATABASE_URL")

	var errs []error
	if err := setInt(&cfg.Chat.TimeoutSecs, "OPENROUTER_TIMEOUT"); err != nil {
		errs = append(errs, err)
	}
	if err := setInt(&cfg.Chat.MaxRetries, "OPENROUTER_MAX_RETRIES"); err != nil {
		errs = append(errs, err)
	}
	if raw := os.Getenv("OPENROUTER_TEMPERATURE"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, ValidationError{Field: "OPENROUTER_TEMPERATURE", Message: "not a number: " + raw})
		} else {
			cfg.Chat.Temperature = v
		}
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return ValidationError{Field: key, Message: "not an integer: " + raw}
	}
	*dst = v
	return nil
}

// MediaRoot returns the directory uploads are stored under.
func (c *Config) MediaRoot() string {
	if c.MediaDir != "" {
		return c.MediaDir
	}
	return filepath.Join(c.DataDir, "media")
}

// DatabasePath returns the badger directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "db")
}

// AIConfig converts the chat and embedding sections into an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithBaseURL(c.Chat.BaseURL),
		ai.WithAPIKey(c.Chat.APIKey),
		ai.WithPrimaryModel(c.Chat.PrimaryModel),
		ai.WithBackupModels(c.Chat.BackupModels...),
		ai.WithTimeout(time.Duration(c.Chat.TimeoutSecs)*time.Second),
		ai.WithMaxRetries(c.Chat.MaxRetries),
		ai.WithTemperature(c.Chat.Temperature),
		ai.WithHeaders(c.Chat.Referer, c.Chat.Title),
		ai.WithRequestsPerSecond(c.Chat.RequestsPerSecond),
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithEmbeddingToken(c.Embedding.APIKey),
	)
}

// PgvectorConfig converts the store section into a pgvector.Config.
func (c *Config) PgvectorConfig() pgvector.Config {
	return pgvector.Config{
		ConnString: c.Store.DatabaseURL,
		Table:      c.Store.Table,
		Dimension:  c.Store.Dimension,
		BatchSize:  c.Embedding.BatchSize,
		Workers:    c.Embedding.Workers,
	}
}
