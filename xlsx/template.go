// Copyright 2020, 2023, 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"fmt"

	"github.com/UNO-SOFT/xlsxstream"
	"github.com/xuri/excelize/v2"
)

const (
	// SheetPart is the archive path of the (only) worksheet.
	SheetPart = "xl/worksheets/sheet1.xml"

	defaultSheetName = "Sheet1"
)

// Synthesize returns an xlsx archive with one sheet named sheetName,
// holding cells in its first row.
//
// The cells' number formats are applied as cell styles,
// so they show up in the worksheet XML as style ids.
func Synthesize(sheetName string, cells []Cell) ([]byte, error) {
	xl := excelize.NewFile()
	defer xl.Close()
	if sheetName == "" {
		sheetName = defaultSheetName
	} else if sheetName != defaultSheetName {
		if err := xl.SetSheetName(defaultSheetName, sheetName); err != nil {
			return nil, fmt.Errorf("rename sheet to %q: %w", sheetName, err)
		}
	}
	styles := make(map[string]int)
	for i, c := range cells {
		axis, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("%d/1: %w", i+1, err)
		}
		if c.Value == nil {
			continue
		}
		switch x := c.Value.(type) {
		case string:
			err = xl.SetCellStr(sheetName, axis, x)
		case xlsxstream.Number:
			err = xl.SetCellDefault(sheetName, axis, string(x))
		case float64:
			err = xl.SetCellFloat(sheetName, axis, x, -1, 64)
		default:
			err = xl.SetCellValue(sheetName, axis, x)
		}
		if err != nil {
			return nil, fmt.Errorf("%s[%s]: %w", sheetName, axis, err)
		}
		if c.NumberFormat == "" {
			continue
		}
		s, ok := styles[c.NumberFormat]
		if !ok {
			nf := c.NumberFormat
			if s, err = xl.NewStyle(&excelize.Style{CustomNumFmt: &nf}); err != nil {
				return nil, fmt.Errorf("style %q: %w", nf, err)
			}
			styles[nf] = s
		}
		if err = xl.SetCellStyle(sheetName, axis, axis, s); err != nil {
			return nil, fmt.Errorf("%s[%s]: %w", sheetName, axis, err)
		}
	}
	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
