package core

import "errors"

var (
	// ErrUnsupportedFormat indicates a file extension no parser handles.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrParseFailure indicates a format-specific decode error.
	ErrParseFailure = errors.New("parse failure")

	// ErrEmptyContent indicates parsing or chunking produced nothing usable.
	ErrEmptyContent = errors.New("content is empty")

	// ErrStorageFailure indicates the vector store was unreachable or rejected a write.
	ErrStorageFailure = errors.New("storage failure")

	// ErrCandidateFailure indicates a single language-model candidate failed.
	ErrCandidateFailure = errors.New("model candidate failed")

	// ErrChainExhausted indicates every language-model candidate failed.
	ErrChainExhausted = errors.New("all model candidates failed")

	// ErrTenantMismatch indicates a chunk or filter named a different tenant
	// than the scope it was submitted through.
	ErrTenantMismatch = errors.New("tenant mismatch")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChatExchange indicates a ChatExchange failed validation.
	ErrInvalidChatExchange = errors.New("invalid chat exchange")

	// ErrMissingOwner indicates an entity has no owning tenant.
	ErrMissingOwner = errors.New("owner is required")
)
