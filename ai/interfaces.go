package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer answers a single prompt with one configured model.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete sends prompt to the model and returns the textual content of
	// the reply. Timeouts, transport errors and malformed replies are all
	// reported as errors.
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFactory builds a client bound to one fallback candidate.
type CompleterFactory interface {
	Completer(candidate Candidate) (Completer, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	CompleterFactory

	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
