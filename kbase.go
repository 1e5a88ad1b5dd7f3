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


package kbase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/poiesic/kbase/ai"
	"github.com/poiesic/kbase/ai/openai"
	"github.com/poiesic/kbase/chunker"
	"github.com/poiesic/kbase/config"
	"github.com/poiesic/kbase/core"
	"github.com/poiesic/kbase/ingestion"
	"github.com/poiesic/kbase/retrieval"
	"github.com/poiesic/kbase/storage"
	"github.com/poiesic/kbase/storage/badger"
	"github.com/poiesic/kbase/storage/pgvector"
)

// Service is the application facade over storage, ingestion and retrieval.
type Service struct {
	stores     *badger.Stores
	vectors    storage.VectorStore
	provider   ai.AIProvider
	pipeline   *ingestion.Pipeline
	engine     *retrieval.Engine
	mediaRoot  string
	quotaBytes int64
	now        func() time.Time
	progress   func(done, total int)
	logger     *slog.Logger

	ownsProvider bool
	ownsVectors  bool
}

// Option configures a Service.
type Option func(*options)

type options struct {
	aiConfig     *ai.Config
	provider     ai.AIProvider
	vectors      storage.VectorStore
	mediaRoot    string
	quotaBytes   int64
	chunkSize    int
	chunkOverlap int
	topK         int
	embedBatch   int
	embedWorkers int
	now          func() time.Time
	progress     func(done, total int)
	logger       *slog.Logger
	ownsProvider bool
	ownsVectors  bool
}

// WithAIConfig sets the chat and embedding configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = cfg
	}
}

// WithProvider supplies the AI provider instead of building one from the
// AI config. The caller keeps ownership of it.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithVectorStore replaces the embedded badger chunk store. The caller keeps
// ownership of it.
func WithVectorStore(store storage.VectorStore) Option {
	return func(o *options) {
		o.vectors = store
	}
}

// WithMediaRoot sets where uploaded files are kept.
// Default is <dataDir>/media.
func WithMediaRoot(dir string) Option {
	return func(o *options) {
		o.mediaRoot = dir
	}
}

// WithQuota sets the per-owner storage allowance reported by Documents.
func WithQuota(bytes int64) Option {
	return func(o *options) {
		o.quotaBytes = bytes
	}
}

// WithChunking sets the chunk size and overlap.
func WithChunking(size, overlap int) Option {
	return func(o *options) {
		o.chunkSize = size
		o.chunkOverlap = overlap
	}
}

// WithTopK sets how many chunks are placed in each prompt.
func WithTopK(k int) Option {
	return func(o *options) {
		o.topK = k
	}
}

// WithEmbedding sets the embedding batch size and worker count of the
// badger chunk store.
func WithEmbedding(batchSize, workers int) Option {
	return func(o *options) {
		o.embedBatch = batchSize
		o.embedWorkers = workers
	}
}

// WithClock overrides time.Now for upload paths and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithProgress registers a callback invoked after each document of an
// upload or re-ingest batch.
func WithProgress(fn func(done, total int)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Open opens the service with its database under dataDir. An empty dataDir
// keeps everything in memory and requires WithMediaRoot.
func Open(dataDir string, opts ...Option) (*Service, error) {
	o := &options{
		quotaBytes:   config.DefaultQuotaBytes,
		chunkOverlap: -1,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.aiConfig == nil {
		o.aiConfig = ai.DefaultConfig()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	dbPath := ""
	if dataDir != "" {
		dbPath = filepath.Join(dataDir, "db")
		if o.mediaRoot == "" {
			o.mediaRoot = filepath.Join(dataDir, "media")
		}
	}
	if o.mediaRoot == "" {
		return nil, ErrMediaRootRequired
	}

	s := &Service{
		mediaRoot:    o.mediaRoot,
		quotaBytes:   o.quotaBytes,
		now:          o.now,
		progress:     o.progress,
		logger:       o.logger.With("component", "kbase"),
		provider:     o.provider,
		vectors:      o.vectors,
		ownsProvider: o.ownsProvider,
		ownsVectors:  o.ownsVectors,
	}

	if s.provider == nil {
		provider, err := openai.NewProvider(o.aiConfig)
		if err != nil {
			return nil, err
		}
		s.provider = provider
		s.ownsProvider = true
	}

	var chunkOpts []badger.ChunkStoreOption
	if o.embedBatch > 0 {
		chunkOpts = append(chunkOpts, badger.WithEmbedBatchSize(o.embedBatch))
	}
	if o.embedWorkers > 0 {
		chunkOpts = append(chunkOpts, badger.WithEmbedWorkers(o.embedWorkers))
	}
	chunkOpts = append(chunkOpts, badger.WithChunkLogger(o.logger))

	stores, err := badger.OpenStores(dbPath, s.provider.Embedder(), chunkOpts...)
	if err != nil {
		s.closeOwned()
		return nil, err
	}
	s.stores = stores
	if s.vectors == nil {
		s.vectors = stores.Chunks
	}

	if err := s.build(o); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// FromConfig opens a service described by cfg, connecting to Postgres when
// the pgvector store is selected.
func FromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}

	aiCfg := cfg.AIConfig()
	provider, err := openai.NewProvider(aiCfg)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithAIConfig(aiCfg),
		WithProvider(provider),
		WithMediaRoot(cfg.MediaRoot()),
		WithQuota(cfg.QuotaBytes),
		WithChunking(cfg.Chunking.Size, cfg.Chunking.Overlap),
		WithTopK(cfg.Retrieval.TopK),
		WithEmbedding(cfg.Embedding.BatchSize, cfg.Embedding.Workers),
		func(o *options) { o.ownsProvider = true },
	}

	if cfg.Store.Type == config.StorePgvector {
		store, err := pgvector.New(ctx, cfg.PgvectorConfig(), provider.Embedder())
		if err != nil {
			provider.Close()
			return nil, err
		}
		base = append(base, WithVectorStore(store), func(o *options) { o.ownsVectors = true })
	}

	return Open(cfg.DataDir, append(base, opts...)...)
}

func (s *Service) build(o *options) error {
	var chunkerOpts []chunker.Option
	if o.chunkSize > 0 {
		chunkerOpts = append(chunkerOpts, chunker.WithChunkSize(o.chunkSize))
	}
	if o.chunkOverlap >= 0 {
		chunkerOpts = append(chunkerOpts, chunker.WithChunkOverlap(o.chunkOverlap))
	}

	pipeline, err := ingestion.NewPipeline(s.vectors,
		ingestion.WithSplitter(chunker.New(chunkerOpts...)),
		ingestion.WithLogger(o.logger))
	if err != nil {
		return err
	}

	chain, err := retrieval.NewFallbackChain(o.aiConfig, s.provider, retrieval.WithChainLogger(o.logger))
	if err != nil {
		return err
	}

	engineOpts := []retrieval.Option{retrieval.WithLogger(o.logger)}
	if o.topK > 0 {
		engineOpts = append(engineOpts, retrieval.WithTopK(o.topK))
	}
	engine, err := retrieval.NewEngine(s.vectors, chain, engineOpts...)
	if err != nil {
		return err
	}

	s.pipeline = pipeline
	s.engine = engine
	return nil
}

// Close releases the stores and any provider or vector store the service created.
func (s *Service) Close() error {
	var errs []error
	if s.stores != nil {
		if err := s.stores.Close(); err != nil {
			s.logger.Error("error closing stores", "err", err)
			errs = append(errs, err)
		}
	}
	errs = append(errs, s.closeOwned())
	return errors.Join(errs...)
}

func (s *Service) closeOwned() error {
	var errs []error
	if s.ownsVectors && s.vectors != nil {
		if err := s.vectors.Close(); err != nil {
			s.logger.Error("error closing vector store", "err", err)
			errs = append(errs, err)
		}
	}
	if s.ownsProvider && s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) report(done, total int) {
	if s.progress != nil {
		s.progress(done, total)
	}
}

func (s *Service) DocumentRepository() storage.DocumentRepository {
	return s.stores.Documents
}

func (s *Service) ChatRepository() storage.ChatRepository {
	return s.stores.Chats
}

func (s *Service) VectorStore() storage.VectorStore {
	return s.vectors
}

// ChatReply is the answer to one question.
type ChatReply struct {
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
	Degraded bool     `json:"degraded,omitempty"`
}

// Ask answers question from ownerID's documents and records the exchange.
// A degraded answer is recorded and returned like any other.
func (s *Service) Ask(ctx context.Context, ownerID core.ID, question string) (*ChatReply, error) {
	answer, err := s.engine.Ask(ctx, ownerID, question)
	if err != nil {
		return nil, err
	}

	exchange := &core.ChatExchange{
		OwnerId:   ownerID,
		Question:  question,
		Answer:    answer.Answer,
		Sources:   answer.Sources,
		Timestamp: s.now(),
	}
	if _, err := s.stores.Chats.AddExchange(ctx, exchange); err != nil {
		return nil, fmt.Errorf("%w: saving chat: %w", core.ErrStorageFailure, err)
	}

	return &ChatReply{Answer: answer.Answer, Sources: answer.Sources, Degraded: answer.Degraded}, nil
}

// History returns every exchange of ownerID, oldest first.
func (s *Service) History(ctx context.Context, ownerID core.ID) ([]*core.ChatExchange, error) {
	return s.stores.Chats.ListExchanges(ctx, ownerID, 0)
}
