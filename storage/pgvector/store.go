// Package pgvector implements storage.VectorStore on PostgreSQL with the
// pgvector extension. Metadata lives in a JSONB column and filters use the
// containment operator, so every filter key must match exactly.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"runtime"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/panjf2000/ants/v2"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/kbase/ai"
	"github.com/poiesic/kbase/core"
	"github.com/poiesic/kbase/storage"
)

// Defaults applied to a zero Config.
const (
	DefaultTable     = "kbase_chunks"
	DefaultDimension = 768
	DefaultBatchSize = 32
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config describes the database and table holding the chunks.
type Config struct {
	ConnString string
	Table      string
	Dimension  int
	BatchSize  int
	Workers    int
}

func (c *Config) applyDefaults() {
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.Dimension == 0 {
		c.Dimension = DefaultDimension
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Workers == 0 {
		c.Workers = max(runtime.NumCPU()/2, 1)
	}
}

func (c *Config) validate() error {
	if c.ConnString == "" {
		return errors.New("pgvector: connection string is required")
	}
	if !tableNamePattern.MatchString(c.Table) {
		return fmt.Errorf("pgvector: invalid table name %q", c.Table)
	}
	if c.Dimension < 1 {
		return fmt.Errorf("pgvector: invalid dimension %d", c.Dimension)
	}
	return nil
}

// Store implements storage.VectorStore.
type Store struct {
	config   Config
	pool     *pgxpool.Pool
	workers  *ants.Pool
	embedder ai.Embedder
	logger   *slog.Logger
}

var _ storage.VectorStore = (*Store)(nil)

// New connects to the database and creates the extension, table and index
// if they don't exist.
func New(ctx context.Context, config Config, embedder ai.Embedder) (*Store, error) {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, errors.New("pgvector: embedder required")
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", core.ErrStorageFailure, err)
	}
	workers, err := ants.NewPool(config.Workers)
	if err != nil {
		pool.Close()
		return nil, err
	}

	s := &Store{
		config:   config,
		pool:     pool,
		workers:  workers,
		embedder: embedder,
		logger:   slog.Default().With("component", "pgvector", "table", config.Table),
	}
	if err := s.initialize(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	statements := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL,
			embedding vector(%d) NOT NULL
		)`, s.config.Table, s.config.Dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_metadata_idx ON %s USING gin (metadata jsonb_path_ops)`,
			s.config.Table, s.config.Table),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: initialize: %w", core.ErrStorageFailure, err)
		}
	}
	return nil
}

// Close releases the connection and worker pools.
func (s *Store) Close() error {
	s.workers.Release()
	s.pool.Close()
	return nil
}

// AddTexts embeds texts and inserts them in a single transaction.
func (s *Store) AddTexts(ctx context.Context, texts []string, metadatas []core.Metadata) error {
	if len(texts) != len(metadatas) {
		return fmt.Errorf("%w: %d texts, %d metadatas", storage.ErrLengthMismatch, len(texts), len(metadatas))
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := storage.EmbedBatches(ctx, s.workers, s.embedder, texts, s.config.BatchSize)
	if err != nil {
		return fmt.Errorf("%w: embed: %w", core.ErrStorageFailure, err)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3::jsonb, $4)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`,
		s.config.Table)

	batch := &pgx.Batch{}
	for i, text := range texts {
		meta, err := encodeMetadata(metadatas[i])
		if err != nil {
			return err
		}
		batch.Queue(stmt, chunkKey(metadatas[i], i, text), text, meta, pgvector.NewVector(vectors[i]))
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("%w: insert: %w", core.ErrStorageFailure, err)
	}

	s.logger.Debug("stored chunks", "count", len(texts))
	return nil
}

// SimilaritySearch orders the chunks matching filter by cosine distance.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int, filter core.Metadata) ([]core.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", storage.ErrInvalidQuery)
	}
	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", core.ErrStorageFailure, err)
	}
	meta, err := encodeMetadata(filter)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(`
		SELECT content, metadata, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE metadata @> $2::jsonb
		ORDER BY embedding <=> $1
		LIMIT $3`,
		s.config.Table)

	rows, err := s.pool.Query(ctx, sql, pgvector.NewVector(vector), meta, k)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", core.ErrStorageFailure, err)
	}
	defer rows.Close()

	var results []core.ScoredChunk
	for rows.Next() {
		var (
			content string
			raw     []byte
			score   float64
		)
		if err := rows.Scan(&content, &raw, &score); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", core.ErrStorageFailure, err)
		}
		md, err := decodeMetadata(raw)
		if err != nil {
			return nil, err
		}
		results = append(results, core.ScoredChunk{
			Chunk: core.Chunk{Text: content, Metadata: md},
			Score: float32(score),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStorageFailure, err)
	}
	return results, nil
}

// Delete removes every chunk whose metadata contains filter.
func (s *Store) Delete(ctx context.Context, filter core.Metadata) (int, error) {
	if len(filter) == 0 {
		return 0, fmt.Errorf("%w: delete requires a filter", storage.ErrInvalidQuery)
	}
	meta, err := encodeMetadata(filter)
	if err != nil {
		return 0, err
	}

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE metadata @> $1::jsonb`, s.config.Table), meta)
	if err != nil {
		return 0, fmt.Errorf("%w: delete: %w", core.ErrStorageFailure, err)
	}
	return int(tag.RowsAffected()), nil
}

func encodeMetadata(md core.Metadata) (string, error) {
	if md == nil {
		md = core.Metadata{}
	}
	data, err := json.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("%w: %v", storage.ErrSerializationFailed, err)
	}
	return string(data), nil
}

func decodeMetadata(raw []byte) (core.Metadata, error) {
	md := core.Metadata{}
	if err := json.Unmarshal(raw, &md); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrSerializationFailed, err)
	}
	return md, nil
}

// chunkKey derives the row id from the chunk's metadata, position and text.
func chunkKey(md core.Metadata, index int, text string) string {
	data, _ := json.Marshal(md) // map keys are sorted by encoding/json
	return strconv.FormatUint(uint64(core.IDFromContent(string(data)+"\x00"+strconv.Itoa(index)+"\x00"+text)), 10)
}
