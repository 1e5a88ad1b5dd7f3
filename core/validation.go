package core

import (
	"fmt"
	"strings"
	"time"
)

// ValidateDocument checks that a Document is ready to be stored.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if doc.OwnerId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrMissingOwner)
	}
	if strings.TrimSpace(doc.Title) == "" {
		return fmt.Errorf("%w: title is empty", ErrInvalidDocument)
	}
	if doc.FilePath == "" {
		return fmt.Errorf("%w: file path is empty", ErrInvalidDocument)
	}
	if doc.Generation < 0 {
		return fmt.Errorf("%w: negative generation %d", ErrInvalidDocument, doc.Generation)
	}
	return nil
}

// ValidateChatExchange checks that a ChatExchange is ready to be stored.
func ValidateChatExchange(ex *ChatExchange) error {
	if ex == nil {
		return fmt.Errorf("%w: exchange is nil", ErrInvalidChatExchange)
	}
	if ex.OwnerId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChatExchange, ErrMissingOwner)
	}
	if ex.Question == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChatExchange, ErrEmptyContent)
	}
	if ex.Timestamp.After(time.Now()) {
		return fmt.Errorf("%w: timestamp cannot be in the future", ErrInvalidChatExchange)
	}
	return nil
}
