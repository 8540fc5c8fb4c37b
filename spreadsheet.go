// Copyright 2020, 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package xlsxstream holds the data model shared by the streaming
// spreadsheet writers: columns, rows, row sources and the errors
// surfaced at the boundary.
package xlsxstream

import (
	"errors"
	"fmt"
	"io"
)

// Writer writes the spreadsheet consisting of the sheets created
// with NewSheet. The write finishes when Close is called.
//
// The writer SHOULD allow writing to separate sheets concurrently,
// and document if it does not provide this functionality.
type Writer interface {
	io.Closer
	NewSheet(name string, cols []Column) (Sheet, error)
}

// Sheet should be Closed when finished.
type Sheet interface {
	io.Closer
	AppendRow(values ...any) error
}

// Style is a style for a column/row/cell.
type Style struct {
	// Format is the number format
	Format string
	// FontBold is true if the font is bold
	FontBold bool
}

// CellType is the declared type of a column's values.
type CellType uint8

const (
	// TypeAuto derives the cell type from the Go type of the value.
	TypeAuto CellType = iota
	// TypeString writes every value as text.
	TypeString
	// TypeNumber writes numbers, parsing strings if needed.
	TypeNumber
	// TypeBool accepts booleans only.
	TypeBool
	// TypeDate accepts time.Time only.
	TypeDate
)

func (t CellType) String() string {
	switch t {
	case TypeAuto:
		return "auto"
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBool:
		return "bool"
	case TypeDate:
		return "date"
	default:
		return fmt.Sprintf("CellType(%d)", uint8(t))
	}
}

// Column contains the Name of the column and header's style and column's style.
//
// Type and Column.Format together declare how the column's values are encoded.
type Column struct {
	Name           string
	Header, Column Style
	Type           CellType
}

// Labels returns the column names, or nil if all of them are empty.
func Labels(cols []Column) []string {
	var hasName bool
	labels := make([]string, len(cols))
	for i, c := range cols {
		labels[i] = c.Name
		hasName = hasName || c.Name != ""
	}
	if !hasName {
		return nil
	}
	return labels
}

// Row is one record, values in column declaration order.
type Row []any

// Batch is a group of rows delivered together, e.g. a page of a query.
type Batch []Row

// Number is a string that contains a number.
type Number string

// Formatted is a value with an attached number format directive.
type Formatted struct {
	Value  any
	Format string
}

// CurrencyFormat returns the number format of amounts in the given currency.
func CurrencyFormat(symbol string) string {
	return `#,##0.00_)"` + symbol + `";\-#,##0.00"` + symbol + `"`
}

// Currency tags amount with the number format of the currency.
func Currency(amount any, symbol string) Formatted {
	return Formatted{Value: amount, Format: CurrencyFormat(symbol)}
}

var (
	ErrTooManyRows = errors.New("too many rows")

	// ErrEmptySource is returned when the row source yields no rows at all.
	ErrEmptySource = errors.New("empty row source")
	// ErrUnsupportedValueType is matched by *UnsupportedValueTypeError.
	ErrUnsupportedValueType = errors.New("unsupported value type")
	// ErrMalformedTemplate is matched by *MalformedTemplateError.
	ErrMalformedTemplate = errors.New("malformed template")
	// ErrColumnMismatch is returned in strict mode for rows not matching the first one.
	ErrColumnMismatch = errors.New("column mismatch")
	ErrMultipleSheets = errors.New("only one sheet is supported")
	ErrClosed         = errors.New("writer is closed")
)

// UnsupportedValueTypeError reports a value with no cell encoding.
type UnsupportedValueTypeError struct {
	Value  any
	Reason string
}

func (e *UnsupportedValueTypeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%T: %s", e.Value, e.Reason)
	}
	return fmt.Sprintf("%T: %s", e.Value, ErrUnsupportedValueType.Error())
}
func (e *UnsupportedValueTypeError) Is(target error) bool { return target == ErrUnsupportedValueType }

// MalformedTemplateError is returned when the synthesized template
// does not have the expected shape.
type MalformedTemplateError struct {
	Part string
	Err  error
}

func (e *MalformedTemplateError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrMalformedTemplate.Error(), e.Part, e.Err)
}
func (e *MalformedTemplateError) Is(target error) bool { return target == ErrMalformedTemplate }
func (e *MalformedTemplateError) Unwrap() error         { return e.Err }
