package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/poiesic/kbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// pdfText is one string drawn at an absolute position.
type pdfText struct {
	x, y int
	s    string
}

// buildPDF assembles a single-page PDF using the standard Helvetica font.
func buildPDF(texts []pdfText) []byte {
	var content strings.Builder
	for _, t := range texts {
		fmt.Fprintf(&content, "BT /F1 12 Tf %d %d Td (%s) Tj ET\n", t.x, t.y, t.s)
	}
	stream := content.String()

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
	}{
		{"documents/2025/01/Jadwal.PDF", FormatPDF},
		{"nilai.xlsx", FormatXLSX},
		{"krs.xls", FormatXLS},
		{"data.csv", FormatCSV},
		{"notes.md", FormatMarkdown},
		{"readme.txt", FormatText},
		{"page.htm", FormatHTM},
		{"noext", Format("")},
		{"slides.pptx", Format("pptx")},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatFromPath(tt.path))
		})
	}
}

func TestParse_UnsupportedFormat(t *testing.T) {
	path := writeFile(t, "slides.pptx", []byte("binary"))

	_, err := Parse(context.Background(), path, "")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	_, err = Parse(context.Background(), path, "docx")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestParse_PlainText(t *testing.T) {
	body := "# Catatan\n\nUjian tengah semester dimulai minggu depan.\n"

	for _, name := range []string{"catatan.md", "catatan.txt"} {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, name, []byte(body))
			text, err := Parse(context.Background(), path, FormatFromPath(name))
			require.NoError(t, err)
			assert.Equal(t, body, text)
		})
	}
}

func TestParse_EmptyContentFails(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty.txt", nil},
		{"blank.md", []byte("  \n\t\n")},
		{"empty.pdf", buildPDF(nil)},
		{"blank.html", []byte("<html><body>  </body></html>")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.name, tt.data)
			_, err := Parse(context.Background(), path, "")
			assert.ErrorIs(t, err, core.ErrEmptyContent)
		})
	}
}

func TestParse_EmptyCSVFails(t *testing.T) {
	path := writeFile(t, "empty.csv", nil)
	_, err := Parse(context.Background(), path, FormatCSV)
	assert.Error(t, err)
}

func TestParse_InvalidUTF8TextFails(t *testing.T) {
	path := writeFile(t, "latin.txt", []byte{'c', 'a', 'f', 0xE9})
	_, err := Parse(context.Background(), path, FormatText)
	assert.ErrorIs(t, err, core.ErrParseFailure)
}

func TestParse_CanceledContext(t *testing.T) {
	path := writeFile(t, "a.txt", []byte("hello"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Parse(ctx, path, FormatText)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse_PDF(t *testing.T) {
	data := buildPDF([]pdfText{
		{72, 720, "Hari"}, {200, 720, "Mata Kuliah"}, {380, 720, "Ruang"},
		{72, 700, "Senin"}, {200, 700, "Algoritma"}, {380, 700, "R101"},
		{72, 650, "Catatan jadwal dapat berubah"},
	})
	path := writeFile(t, "jadwal.pdf", data)

	text, err := Parse(context.Background(), path, FormatPDF)
	require.NoError(t, err)

	assert.Contains(t, text, "Hari | Mata Kuliah | Ruang\n")
	assert.Contains(t, text, "Senin | Algoritma | R101\n")
	assert.Contains(t, text, "Catatan jadwal dapat berubah")
	assert.Less(t, strings.Index(text, "Hari | Mata Kuliah"), strings.LastIndex(text, "Catatan"),
		"table rows come before the page text")
}

func TestParse_CorruptPDF(t *testing.T) {
	path := writeFile(t, "broken.pdf", []byte("%PDF-1.4\nnot really a pdf"))
	_, err := Parse(context.Background(), path, FormatPDF)
	assert.ErrorIs(t, err, core.ErrParseFailure)
}

func TestParse_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Kode", "Mata Kuliah", "Nilai"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"IF101", "Algoritma", "A"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"IF102", "Basis Data"}))
	path := filepath.Join(t.TempDir(), "transkrip.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	text, err := Parse(context.Background(), path, FormatXLSX)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 4, "header, separator and two rows")
	assert.Contains(t, lines[0], "Kode")
	assert.Contains(t, lines[0], "Mata Kuliah")
	assert.Contains(t, lines[2], "IF101")
	assert.Contains(t, lines[3], "Basis Data")
	assert.Equal(t, strings.Count(lines[2], "|"), strings.Count(lines[3], "|"),
		"missing cells are rendered as empty cells")
}

func TestParse_XLS(t *testing.T) {
	// krs.xls: a header row, one full row, no row 2, and a row missing its
	// middle cell.
	text, err := Parse(context.Background(), filepath.Join("testdata", "krs.xls"), FormatXLS)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 4, "header, separator and two rows")
	assert.Contains(t, lines[0], "Kode")
	assert.Contains(t, lines[0], "Mata Kuliah")
	assert.Contains(t, lines[0], "SKS")
	assert.Contains(t, lines[2], "IF101")
	assert.Contains(t, lines[2], "Algoritma")
	assert.Contains(t, lines[2], "3")
	assert.Contains(t, lines[3], "IF102")
	assert.Contains(t, lines[3], "4")
	assert.Equal(t, strings.Count(lines[2], "|"), strings.Count(lines[3], "|"),
		"missing cells are rendered as empty cells")
}

func TestParse_CorruptXLS(t *testing.T) {
	path := writeFile(t, "krs.xls", []byte("not a workbook"))
	_, err := Parse(context.Background(), path, FormatXLS)
	assert.ErrorIs(t, err, core.ErrParseFailure)
}

func TestParse_CSVTiers(t *testing.T) {
	t.Run("comma", func(t *testing.T) {
		path := writeFile(t, "a.csv", []byte("hari,ruang\nSenin,R101\n"))
		text, err := Parse(context.Background(), path, FormatCSV)
		require.NoError(t, err)
		assert.Contains(t, text, "hari")
		assert.Contains(t, text, "R101")
	})

	t.Run("short rows padded", func(t *testing.T) {
		path := writeFile(t, "nilai.csv", []byte("kode,mata kuliah,nilai\nIF101,Algoritma,A\nIF102,Basis Data\n"))
		text, err := Parse(context.Background(), path, FormatCSV)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(text), "\n")
		require.Len(t, lines, 4)
		assert.Contains(t, lines[0], "mata kuliah")
		assert.NotContains(t, lines[0], "kode,mata")
		assert.Contains(t, lines[3], "Basis Data")
		assert.Equal(t, 4, strings.Count(lines[3], "|"), "three columns, the missing one empty")
	})

	t.Run("semicolon fallback", func(t *testing.T) {
		path := writeFile(t, "b.csv", []byte("a;b\n1,5;2\n"))
		text, err := Parse(context.Background(), path, FormatCSV)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(text), "\n")
		require.Len(t, lines, 3)
		assert.Contains(t, lines[2], "1,5")
		assert.Contains(t, lines[2], "2")
		assert.NotContains(t, lines[2], ";")
	})

	t.Run("latin-1 with sniffed delimiter", func(t *testing.T) {
		data := []byte("nama\tkota\nJos\xe9\tBogor\n")
		path := writeFile(t, "c.csv", data)
		text, err := Parse(context.Background(), path, FormatCSV)
		require.NoError(t, err)
		assert.Contains(t, text, "José")
		assert.Contains(t, text, "Bogor")
	})

	t.Run("all tiers fail", func(t *testing.T) {
		path := writeFile(t, "d.csv", []byte("a,b;c\n1\n2,3,4;5;6;7\n"))
		_, err := Parse(context.Background(), path, FormatCSV)
		assert.ErrorIs(t, err, core.ErrParseFailure)
	})
}

func TestParse_HTML(t *testing.T) {
	page := `<html><head><style>p{}</style><script>var x = 1;</script></head>
<body>
<h1>Pengumuman</h1>
<p>Kuliah pengganti hari Sabtu.</p>
<table><tr><th>Hari</th><th>Ruang</th></tr><tr><td>Sabtu</td><td>R202</td></tr></table>
</body></html>`
	path := writeFile(t, "info.html", []byte(page))

	text, err := Parse(context.Background(), path, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Hari | Ruang\nSabtu | R202\n"))
	assert.Contains(t, text, "Pengumuman")
	assert.Contains(t, text, "Kuliah pengganti hari Sabtu.")
	assert.NotContains(t, text, "var x")
}

func TestSplitCells(t *testing.T) {
	tests := []struct {
		name     string
		texts    []pdf.Text
		expected []string
	}{
		{
			name:     "single run",
			texts:    []pdf.Text{{X: 72, S: "Hello"}, {X: 106, S: "world"}},
			expected: []string{"Hello world"},
		},
		{
			name:     "two cells",
			texts:    []pdf.Text{{X: 300, S: "R101"}, {X: 72, S: "Senin"}},
			expected: []string{"Senin", "R101"},
		},
		{
			name:     "glyph fragments",
			texts:    []pdf.Text{{X: 72, S: "A"}, {X: 78, S: "B"}, {X: 200, S: "C"}},
			expected: []string{"AB", "C"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitCells(tt.texts))
		})
	}
}

func TestTableRows(t *testing.T) {
	row := func(texts ...pdf.Text) *pdf.Row { return &pdf.Row{Content: texts} }
	rows := pdf.Rows{
		row(pdf.Text{X: 72, S: "Judul dokumen"}),
		row(pdf.Text{X: 72, S: "Kode"}, pdf.Text{X: 200, S: "Nilai"}),
		row(pdf.Text{X: 72, S: "IF101"}, pdf.Text{X: 200, S: "A"}),
		row(pdf.Text{X: 72, S: "paragraf biasa"}),
		row(pdf.Text{X: 72, S: "lone"}, pdf.Text{X: 200, S: "pair"}),
	}

	assert.Equal(t, [][]string{{"Kode", "Nilai"}, {"IF101", "A"}}, tableRows(rows))
}

func TestRenderTable(t *testing.T) {
	out := renderTable([][]string{{"a", "b", "c"}, {"1"}, {"2", "x\ny", "3"}})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, "|"), l)
	}
	assert.Contains(t, lines[3], "x y")
	assert.Empty(t, renderTable(nil))
}
