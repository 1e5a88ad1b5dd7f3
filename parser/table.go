package parser

import (
	"strings"

	"github.com/olekukonko/tablewriter"
)

// renderTable renders a header-led pipe table without a row index column.
// Rows shorter than the widest row are padded with empty cells.
func renderTable(records [][]string) string {
	if len(records) == 0 {
		return ""
	}

	width := 0
	for _, r := range records {
		width = max(width, len(r))
	}
	if width == 0 {
		return ""
	}
	padded := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, width)
		for j := range row {
			if j < len(r) {
				row[j] = flattenCell(r[j])
			}
		}
		padded[i] = row
	}

	var buf strings.Builder
	tw := tablewriter.NewWriter(&buf)
	tw.SetHeader(padded[0])
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	tw.SetCenterSeparator("|")
	tw.AppendBulk(padded[1:])
	tw.Render()
	return buf.String()
}

// flattenCell keeps a cell on a single table line.
func flattenCell(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
