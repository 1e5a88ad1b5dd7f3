package parser

import (
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/kbase/core"
)

func parseHTML(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: html: %v", core.ErrParseFailure, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("%w: html: %v", core.ErrParseFailure, err)
	}
	doc.Find("script, style, noscript, template").Remove()

	var out strings.Builder
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, flattenCell(cell.Text()))
			})
			if len(cells) > 0 {
				out.WriteString(strings.Join(cells, " | "))
				out.WriteString("\n")
			}
		})
	})

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	for _, line := range strings.Split(body.Text(), "\n") {
		if line = flattenCell(line); line != "" {
			out.WriteString(line)
			out.WriteString("\n")
		}
	}
	return out.String(), nil
}
