// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Completer,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder())
//	provider.GetMockCompleter("primary").Fail(errors.New("503"))
//	provider.GetMockCompleter("backup").Reply("Senin, 08.00")
//
//	// Check call counts
//	count := provider.GetMockCompleter("primary").CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockCompleter: Answers "answer from <model>"
//   - MockProvider: Aggregates the mock embedder and one completer per model
package mock
