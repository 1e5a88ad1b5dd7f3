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

package parser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/kbase/core"
)

// Format is the declared parse-format tag of a document, the lowercased file
// extension without its dot.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatXLSX     Format = "xlsx"
	FormatXLS      Format = "xls"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatHTML     Format = "html"
	FormatHTM      Format = "htm"
)

// FormatFromPath derives the format tag from a file name.
func FormatFromPath(path string) Format {
	return Format(strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")))
}

// Supported reports whether f has an extraction policy.
func (f Format) Supported() bool {
	switch f {
	case FormatPDF, FormatXLSX, FormatXLS, FormatCSV, FormatMarkdown, FormatText, FormatHTML, FormatHTM:
		return true
	}
	return false
}

// Parser extracts text from files on disk. It is safe for concurrent use.
type Parser struct {
	logger *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "parser")
	return p
}

// Parse extracts the text of the file at path using a default Parser.
func Parse(ctx context.Context, path string, format Format) (string, error) {
	return New().Parse(ctx, path, format)
}

// Parse extracts the text of the file at path according to format. An empty
// format is derived from the path.
func (p *Parser) Parse(ctx context.Context, path string, format Format) (string, error) {
	if format == "" {
		format = FormatFromPath(path)
	}
	format = Format(strings.ToLower(string(format)))
	if !format.Supported() {
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, format)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	logger := p.logger.With("path", path, "format", format)
	logger.Debug("parsing document")

	var (
		text string
		err  error
	)
	switch format {
	case FormatPDF:
		text, err = parsePDF(ctx, path)
	case FormatXLSX:
		text, err = parseXLSX(path)
	case FormatXLS:
		text, err = parseXLS(path)
	case FormatCSV:
		text, err = parseCSV(path, logger)
	case FormatHTML, FormatHTM:
		text, err = parseHTML(path)
	default:
		text, err = readVerbatim(path)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text extracted from %s", core.ErrEmptyContent, filepath.Base(path))
	}
	logger.Debug("parsed document", "chars", utf8.RuneCountInString(text))
	return text, nil
}

func readVerbatim(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrParseFailure, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", core.ErrParseFailure, filepath.Base(path))
	}
	return string(data), nil
}
