package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "valid document",
			doc:     &Document{OwnerId: 1, Title: "krs.pdf", FilePath: "/tmp/krs.pdf", Format: "pdf"},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "missing owner",
			doc:     &Document{Title: "krs.pdf", FilePath: "/tmp/krs.pdf"},
			wantErr: ErrMissingOwner,
		},
		{
			name:    "blank title",
			doc:     &Document{OwnerId: 1, Title: "  ", FilePath: "/tmp/krs.pdf"},
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "missing file path",
			doc:     &Document{OwnerId: 1, Title: "krs.pdf"},
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "negative generation",
			doc:     &Document{OwnerId: 1, Title: "krs.pdf", FilePath: "/tmp/krs.pdf", Generation: -1},
			wantErr: ErrInvalidDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChatExchange(t *testing.T) {
	past := time.Now().Add(-time.Minute)

	tests := []struct {
		name    string
		ex      *ChatExchange
		wantErr error
	}{
		{
			name:    "valid exchange",
			ex:      &ChatExchange{OwnerId: 1, Question: "jadwal hari senin?", Answer: "Kalkulus", Timestamp: past},
			wantErr: nil,
		},
		{
			name:    "empty answer is allowed",
			ex:      &ChatExchange{OwnerId: 1, Question: "halo", Timestamp: past},
			wantErr: nil,
		},
		{
			name:    "nil exchange",
			ex:      nil,
			wantErr: ErrInvalidChatExchange,
		},
		{
			name:    "missing owner",
			ex:      &ChatExchange{Question: "halo", Timestamp: past},
			wantErr: ErrMissingOwner,
		},
		{
			name:    "empty question",
			ex:      &ChatExchange{OwnerId: 1, Timestamp: past},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "future timestamp",
			ex:      &ChatExchange{OwnerId: 1, Question: "halo", Timestamp: time.Now().Add(time.Hour)},
			wantErr: ErrInvalidChatExchange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChatExchange(tt.ex)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChatExchange() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChatExchange() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
