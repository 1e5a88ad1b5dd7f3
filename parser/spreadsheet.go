package parser

import (
	"fmt"

	"github.com/extrame/xls"
	"github.com/poiesic/kbase/core"
	"github.com/xuri/excelize/v2"
)

func parseXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: xlsx: %v", core.ErrParseFailure, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("%w: xlsx: workbook has no sheets", core.ErrEmptyContent)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("%w: xlsx sheet %q: %v", core.ErrParseFailure, sheets[0], err)
	}
	return renderTable(trimEmptyRows(rows)), nil
}

func parseXLS(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: xls: %v", core.ErrParseFailure, r)
		}
	}()

	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return "", fmt.Errorf("%w: xls: %v", core.ErrParseFailure, err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return "", fmt.Errorf("%w: xls: workbook has no sheets", core.ErrEmptyContent)
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheetRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells[c] = row.Col(c)
		}
		rows = append(rows, cells)
	}
	return renderTable(trimEmptyRows(rows)), nil
}

// trimEmptyRows drops rows without any non-blank cell, the way a data frame
// load skips blank lines.
// sheetRow returns row i, or nil when the sheet has no record for it.
// xls.WorkSheet.Row dereferences the missing row instead of returning nil.
func sheetRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func trimEmptyRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, r := range rows {
		for _, c := range r {
			if c != "" {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
