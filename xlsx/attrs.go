// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/UNO-SOFT/xlsxstream"
	"github.com/xuri/excelize/v2"
)

const (
	nsMain          = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	nsRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	typeInlineStr = "inlineStr"
)

// ColumnAttrs are the attributes of a template cell, without its "r" reference.
type ColumnAttrs []xml.Attr

// Get returns the value of the named attribute.
func (a ColumnAttrs) Get(name string) (string, bool) {
	for _, x := range a {
		if x.Name.Local == name {
			return x.Value, true
		}
	}
	return "", false
}

// Type returns the cell type; "n" (number) when not set.
func (a ColumnAttrs) Type() string {
	if t, ok := a.Get("t"); ok && t != "" {
		return t
	}
	return "n"
}

// HasValue reports whether cells of this column hold a <v> value
// instead of an inline string.
func (a ColumnAttrs) HasValue() bool {
	switch a.Type() {
	case "n", "b", "e", "d":
		return true
	default:
		return false
	}
}

// inlineStrAttrs is shared, never modify it.
var inlineStrAttrs = ColumnAttrs{{Name: xml.Name{Local: "t"}, Value: typeInlineStr}}

// ExtractColumnAttributes reads a worksheet and returns the attributes
// of the cells of its first row, in column order.
//
// Shared string (and formula string) types are replaced with inline strings.
// Columns missing from the row get inline string attributes.
func ExtractColumnAttributes(r io.Reader) ([]ColumnAttrs, error) {
	dec := xml.NewDecoder(r)
	malformed := func(err error) error {
		return &xlsxstream.MalformedTemplateError{Part: SheetPart, Err: err}
	}
	var inSheetData bool
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if !inSheetData {
					return nil, malformed(errors.New("no sheetData"))
				}
				return nil, malformed(io.ErrUnexpectedEOF)
			}
			return nil, malformed(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !isMain(t.Name) {
				continue
			}
			if !inSheetData {
				inSheetData = t.Name.Local == "sheetData"
				continue
			}
			if t.Name.Local != "row" {
				if err := dec.Skip(); err != nil {
					return nil, malformed(err)
				}
				continue
			}
			attrs, err := rowAttributes(dec)
			if err != nil {
				return nil, malformed(err)
			}
			return attrs, nil
		case xml.EndElement:
			if inSheetData && t.Name.Local == "sheetData" {
				return nil, nil
			}
		}
	}
}

// rowAttributes reads the children of a row till its end element.
func rowAttributes(dec *xml.Decoder) ([]ColumnAttrs, error) {
	var attrs []ColumnAttrs
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return attrs, nil
		case xml.StartElement:
			if !isMain(t.Name) || t.Name.Local != "c" {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			col := len(attrs) + 1
			ca := make(ColumnAttrs, 0, len(t.Attr))
			for _, a := range t.Attr {
				if a.Name.Space != "" || a.Name.Local == "xmlns" {
					continue
				}
				switch a.Name.Local {
				case "r":
					if col, _, err = excelize.CellNameToCoordinates(a.Value); err != nil {
						return nil, fmt.Errorf("cell %q: %w", a.Value, err)
					}
					continue
				case "t":
					if a.Value == "s" || a.Value == "str" {
						a.Value = typeInlineStr
					}
				}
				ca = append(ca, a)
			}
			if col <= len(attrs) {
				return nil, fmt.Errorf("cell of column %d after column %d", col, len(attrs))
			}
			for len(attrs) < col-1 {
				attrs = append(attrs, inlineStrAttrs)
			}
			attrs = append(attrs, ca)
			if err := dec.Skip(); err != nil {
				return nil, err
			}
		}
	}
}

func isMain(name xml.Name) bool { return name.Space == nsMain || name.Space == "" }
