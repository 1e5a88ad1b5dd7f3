package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/poiesic/kbase/core"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sniffDelimiters are the candidates tried by the last CSV tier, in order.
var sniffDelimiters = []rune{',', ';', '\t', '|'}

// parseCSV runs the three-tier fallback: comma, then semicolon, then a sniffed
// delimiter over a Latin-1 decode that maps every byte to a rune.
func parseCSV(path string, logger *slog.Logger) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: csv: %v", core.ErrParseFailure, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	records, err := readStrictCSV(data, ',')
	if err == nil {
		return renderTable(records), nil
	}
	logger.Warn("comma CSV parse failed, retrying with semicolon", "err", err)

	records, err = readStrictCSV(data, ';')
	if err == nil {
		return renderTable(records), nil
	}
	logger.Warn("semicolon CSV parse failed, retrying with detected delimiter and latin-1", "err", err)

	records, err = readSniffedCSV(data)
	if err == nil {
		return renderTable(records), nil
	}
	logger.Warn("all CSV parse tiers failed", "err", err)
	return "", fmt.Errorf("%w: csv: %v", core.ErrParseFailure, err)
}

func readStrictCSV(data []byte, delim rune) ([][]string, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("input is not valid UTF-8")
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	return readAll(r)
}

func readSniffedCSV(data []byte) ([][]string, error) {
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(bytes.NewReader(decoded))
	r.Comma = sniffDelimiter(decoded)
	r.LazyQuotes = true
	return readAll(r)
}

// readAll accepts rows shorter than the header, which render padded with
// empty cells, and rejects rows longer than it.
func readAll(r *csv.Reader) ([][]string, error) {
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	width := len(records[0])
	for i, rec := range records[1:] {
		if len(rec) > width {
			return nil, fmt.Errorf("record on line %d: expected at most %d fields, saw %d", i+2, width, len(rec))
		}
	}
	return records, nil
}

// sniffDelimiter picks the first candidate that splits every sampled line
// into the same number of fields, at least two. It falls back to a comma.
func sniffDelimiter(data []byte) rune {
	lines := sampleLines(data, 20)
	for _, d := range sniffDelimiters {
		want := -1
		consistent := len(lines) > 0
		for _, line := range lines {
			n := bytes.Count(line, []byte(string(d))) + 1
			if want == -1 {
				want = n
			}
			if n != want || n < 2 {
				consistent = false
				break
			}
		}
		if consistent {
			return d
		}
	}
	return ','
}

func sampleLines(data []byte, limit int) [][]byte {
	var lines [][]byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lines = append(lines, line)
		if len(lines) == limit {
			break
		}
	}
	return lines
}
