package parser

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/poiesic/kbase/core"
)

const (
	// glyphWidth estimates the advance of one rune in points; the row
	// extractor does not report text widths.
	glyphWidth = 6.0

	// cellGap is the horizontal whitespace, in points, that separates two
	// table cells on the same row.
	cellGap = 18.0
)

func parsePDF(ctx context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: pdf: %v", core.ErrParseFailure, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %v", core.ErrParseFailure, err)
	}
	defer f.Close()

	var out strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("%w: pdf page %d: %v", core.ErrParseFailure, i, err)
		}
		for _, row := range tableRows(rows) {
			out.WriteString(strings.Join(row, " | "))
			out.WriteString("\n")
		}

		plain, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: pdf page %d: %v", core.ErrParseFailure, i, err)
		}
		out.WriteString(plain)
		out.WriteString("\n")
	}
	return out.String(), nil
}

// tableRows returns the rows of every table detected on a page. A table is a
// run of at least two consecutive rows that each split into two or more cells.
func tableRows(rows pdf.Rows) [][]string {
	var (
		tables [][]string
		run    [][]string
	)
	flush := func() {
		if len(run) >= 2 {
			tables = append(tables, run...)
		}
		run = nil
	}
	for _, row := range rows {
		cells := splitCells(row.Content)
		if len(cells) < 2 {
			flush()
			continue
		}
		run = append(run, cells)
	}
	flush()
	return tables
}

// splitCells groups the text fragments of one row into cells by horizontal
// gap. Fragments closer than cellGap belong to the same cell.
func splitCells(texts []pdf.Text) []string {
	if len(texts) == 0 {
		return nil
	}
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var (
		cells []string
		cell  strings.Builder
		end   float64
	)
	for i, t := range sorted {
		if i > 0 && t.X-end > cellGap {
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		} else if i > 0 && t.X-end > glyphWidth/2 && !strings.HasSuffix(cell.String(), " ") && !strings.HasPrefix(t.S, " ") {
			cell.WriteString(" ")
		}
		cell.WriteString(t.S)
		end = max(end, t.X+textWidth(t))
	}
	cells = append(cells, strings.TrimSpace(cell.String()))
	return cells
}

func textWidth(t pdf.Text) float64 {
	if t.W > 0 {
		return t.W
	}
	return float64(utf8.RuneCountInString(t.S)) * glyphWidth
}
