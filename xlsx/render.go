// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"io"
	"strconv"
	"strings"

	"github.com/valyala/bytebufferpool"
	"github.com/valyala/quicktemplate"
	"github.com/xuri/excelize/v2"
)

const (
	worksheetHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<worksheet xmlns="` + nsMain + `" xmlns:r="` + nsRelationships + `"><sheetData>`
	worksheetFooter = `</sheetData></worksheet>`
)

// ColumnLetter returns the name of the 0-based column index: 0 is "A", 26 is "AA".
//
// It returns "" for indexes out of the sheet's column range.
func ColumnLetter(i int) string {
	s, err := excelize.ColumnNumberToName(i + 1)
	if err != nil {
		return ""
	}
	return s
}

// CellRef returns the reference of the cell in the 0-based column and 1-based row.
func CellRef(col, row int) string {
	return ColumnLetter(col) + strconv.Itoa(row)
}

// RenderRow writes the <row> element of the normalized values.
//
// The i-th value is rendered using attrs[i]. A row without values
// is not written at all.
func RenderRow(w io.Writer, values []any, row int, attrs []ColumnAttrs) error {
	if len(values) == 0 {
		return nil
	}
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	rr := newRowRenderer(attrs, len(values))
	rr.render(bb, row, values)
	_, err := w.Write(bb.B)
	return err
}

// RenderHeaderRow writes the labels as inline strings into the first row.
func RenderHeaderRow(w io.Writer, labels []string) error {
	return RenderRow(w, labelValues(labels), 1, nil)
}

func labelValues(labels []string) []any {
	values := make([]any, len(labels))
	for i, s := range labels {
		values[i] = s
	}
	return values
}

// rowRenderer renders rows with a fixed attribute table.
type rowRenderer struct {
	attrs   []ColumnAttrs
	letters []string
}

func newRowRenderer(attrs []ColumnAttrs, columns int) rowRenderer {
	rr := rowRenderer{attrs: attrs, letters: make([]string, max(len(attrs), columns))}
	for i := range rr.letters {
		rr.letters[i] = ColumnLetter(i)
	}
	return rr
}

func (rr rowRenderer) letter(i int) string {
	if i < len(rr.letters) {
		return rr.letters[i]
	}
	return ColumnLetter(i)
}

func (rr rowRenderer) columnAttrs(i int) ColumnAttrs {
	if i < len(rr.attrs) && rr.attrs[i] != nil {
		return rr.attrs[i]
	}
	return inlineStrAttrs
}

// render appends the row to w.
func (rr rowRenderer) render(w io.Writer, row int, values []any) {
	if len(values) == 0 {
		return
	}
	qw := quicktemplate.AcquireWriter(w)
	defer quicktemplate.ReleaseWriter(qw)
	n, e := qw.N(), qw.E()

	n.S(`<row r="`)
	n.D(row)
	n.S(`">`)
	for i, v := range values {
		attrs := rr.columnAttrs(i)
		n.S(`<c r="`)
		n.S(rr.letter(i))
		n.D(row)
		n.S(`"`)
		for _, a := range attrs {
			n.S(` `)
			n.S(a.Name.Local)
			n.S(`="`)
			e.S(a.Value)
			n.S(`"`)
		}
		if v == nil {
			n.S(`/>`)
			continue
		}
		if attrs.HasValue() {
			n.S(`><v>`)
			e.S(xmlText(formatValue(v, true)))
			n.S(`</v></c>`)
			continue
		}
		s := xmlText(formatValue(v, false))
		if s != strings.TrimSpace(s) {
			n.S(`><is><t xml:space="preserve">`)
		} else {
			n.S(`><is><t>`)
		}
		e.S(s)
		n.S(`</t></is></c>`)
	}
	n.S(`</row>`)
}

// xmlText drops the characters not allowed in XML 1.0 documents.
func xmlText(s string) string {
	if strings.IndexFunc(s, notXMLChar) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if notXMLChar(r) {
			return -1
		}
		return r
	}, s)
}

func notXMLChar(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return false
	case r < 0x20:
		return true
	case r <= 0xD7FF:
		return false
	case r < 0xE000:
		return true
	case r <= 0xFFFD:
		return false
	case r < 0x10000:
		return true
	default:
		return r > 0x10FFFF
	}
}
