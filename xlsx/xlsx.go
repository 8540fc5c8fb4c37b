// Copyright 2020, 2023, 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package xlsx writes xlsx files of unbounded size.
//
// Only the first row is given to excelize, to build a one-row template.
// The template's parts are copied into the output as is,
// except the worksheet, which is rendered row by row from the attributes
// of the template's cells, straight into the compressed output.
package xlsx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"
	"time"

	"github.com/UNO-SOFT/xlsxstream"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/valyala/bytebufferpool"
	"github.com/xuri/excelize/v2"
)

const (
	// MediaType of the xlsx files.
	MediaType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// Extension of the xlsx files.
	Extension = ".xlsx"
)

// MaxRowCount is the number of maximum rows.
const MaxRowCount = 1_048_576

var _ = (xlsxstream.Writer)((*Writer)(nil))

type phase uint8

const (
	// waiting for the first row
	phaseBootstrap phase = iota
	// building the template and its attribute table
	phaseTemplate
	// copying the template's parts
	phaseCopy
	// rendering rows into the worksheet
	phaseEmit
	phaseClosed
)

func (p phase) String() string {
	switch p {
	case phaseBootstrap:
		return "bootstrap"
	case phaseTemplate:
		return "template"
	case phaseCopy:
		return "copy"
	case phaseEmit:
		return "emit"
	case phaseClosed:
		return "closed"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// Writer is a streaming xlsx writer of one sheet.
//
// At any time it holds only the batch being written and the attributes
// of the template's columns.
type Writer struct {
	cfg     config
	w       io.Writer
	zw      *zip.Writer
	sheet   io.Writer
	rr      rowRenderer
	columns []xlsxstream.Column
	// columns whose first value was nil, so their type is unknown
	lenient []bool
	err     error
	phase   phase
	width   int
	row     int
	// empty rows seen before the first row with values
	skipped int

	hasSheet     bool
	peakPending  int
	peakBuffered int

	mu sync.Mutex
}

// Sheet is the only sheet of a Writer.
type Sheet struct {
	xw *Writer
}

// NewWriter returns a new spreadsheet.Writer.
//
// This writer supports only one sheet.
// Nothing is written till the first row arrives.
func NewWriter(w io.Writer, opts ...Option) *Writer {
	cfg := defaultConfig().with(opts)
	return &Writer{cfg: cfg, w: w, columns: cfg.columns}
}

// NewSheet returns the sheet. It can be called only once.
//
// Named columns provide the header row, unless WithHeader is given.
func (xw *Writer) NewSheet(name string, columns []xlsxstream.Column) (xlsxstream.Sheet, error) {
	xw.mu.Lock()
	defer xw.mu.Unlock()
	if xw.phase == phaseClosed {
		return nil, xlsxstream.ErrClosed
	}
	if xw.hasSheet || xw.phase != phaseBootstrap {
		return nil, xlsxstream.ErrMultipleSheets
	}
	xw.hasSheet = true
	if name != "" {
		xw.cfg.sheetName = name
	}
	if columns != nil {
		xw.columns = columns
	}
	return &Sheet{xw: xw}, nil
}

func (xls *Sheet) Close() error { return nil }

// AppendRow writes one row. The first row determines the type of the columns.
func (xls *Sheet) AppendRow(values ...any) error {
	return xls.xw.WriteBatch(context.Background(), xlsxstream.Batch{values})
}

// WriteBatch writes the rows of batch.
//
// The batch is normalized as a whole before any of it is written.
func (xw *Writer) WriteBatch(ctx context.Context, batch xlsxstream.Batch) error {
	xw.mu.Lock()
	defer xw.mu.Unlock()
	if xw.err != nil {
		return xw.err
	}
	if xw.phase == phaseClosed {
		return xlsxstream.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	if err := xw.writeBatch(batch); err != nil {
		xw.err = err
		return err
	}
	return nil
}

func (xw *Writer) writeBatch(batch xlsxstream.Batch) error {
	values, err := xw.normalizeBatch(batch)
	if err != nil {
		return err
	}
	xw.peakPending = max(xw.peakPending, len(values))
	if xw.phase == phaseBootstrap {
		var first xlsxstream.Row
		for _, row := range batch {
			if len(row) != 0 {
				first = row
				break
			}
		}
		if first == nil {
			// empty rows still take their row numbers
			xw.skipped += len(batch)
			return nil
		}
		if err := xw.bootstrap(first); err != nil {
			return err
		}
		xw.row += xw.skipped
	}
	if xw.cfg.strict {
		if err := xw.validate(values); err != nil {
			return err
		}
	}
	if xw.row+len(values) > MaxRowCount {
		return xlsxstream.ErrTooManyRows
	}

	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	for _, row := range values {
		xw.row++
		xw.rr.render(bb, xw.row, row)
	}
	xw.peakBuffered = max(xw.peakBuffered, bb.Len())
	if _, err := xw.sheet.Write(bb.B); err != nil {
		return err
	}
	return xw.flush()
}

func (xw *Writer) normalizeBatch(batch xlsxstream.Batch) ([][]any, error) {
	values := make([][]any, len(batch))
	for i, row := range batch {
		if len(row) == 0 {
			continue
		}
		vv := make([]any, len(row))
		for j, v := range row {
			c, err := Normalize(v, xw.column(j), true)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", xw.row+i+1, ColumnLetter(j), err)
			}
			vv[j] = c.Value
		}
		values[i] = vv
	}
	return values, nil
}

func (xw *Writer) column(i int) xlsxstream.Column {
	if i < len(xw.columns) {
		return xw.columns[i]
	}
	return xlsxstream.Column{}
}

// bootstrap builds the template from the first row,
// copies its parts and starts the worksheet.
func (xw *Writer) bootstrap(first xlsxstream.Row) error {
	logger := xw.cfg.logger
	if len(first) > excelize.MaxColumns {
		return fmt.Errorf("%d columns: %w", len(first), excelize.ErrColumnNumber)
	}
	cells := make([]Cell, len(first))
	xw.lenient = make([]bool, len(first))
	for i, v := range first {
		var err error
		if cells[i], err = Normalize(v, xw.column(i), xw.cfg.convert); err != nil {
			return fmt.Errorf("first row column %s: %w", ColumnLetter(i), err)
		}
		xw.lenient[i] = cells[i].Value == nil
	}

	xw.setPhase(phaseTemplate)
	image, err := Synthesize(xw.cfg.sheetName, cells)
	if err != nil {
		logger.Error("synthesize template", "error", err)
		return fmt.Errorf("synthesize template: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(image), int64(len(image)))
	if err != nil {
		err = &xlsxstream.MalformedTemplateError{Part: "archive", Err: err}
		logger.Error("open template", "error", err)
		return err
	}
	var sheetFile *zip.File
	for _, f := range zr.File {
		if f.Name == SheetPart {
			sheetFile = f
			break
		}
	}
	if sheetFile == nil {
		err = &xlsxstream.MalformedTemplateError{Part: SheetPart, Err: fs.ErrNotExist}
		logger.Error("template", "error", err)
		return err
	}
	attrs, err := readColumnAttributes(sheetFile)
	if err != nil {
		logger.Error("extract column attributes", "error", err)
		return err
	}
	for len(attrs) < len(first) {
		attrs = append(attrs, inlineStrAttrs)
	}
	xw.width = len(first)
	xw.rr = newRowRenderer(attrs, len(first))

	xw.setPhase(phaseCopy)
	xw.zw = zip.NewWriter(xw.w)
	level := xw.cfg.level
	xw.zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})
	for _, f := range zr.File {
		if f == sheetFile {
			continue
		}
		if err := xw.zw.Copy(f); err != nil {
			return fmt.Errorf("copy %q: %w", f.Name, err)
		}
	}

	xw.setPhase(phaseEmit)
	modified := sheetFile.Modified
	if modified.IsZero() {
		modified = time.Now()
	}
	if xw.sheet, err = xw.zw.CreateHeader(&zip.FileHeader{
		Name: SheetPart, Method: zip.Deflate, Modified: modified,
	}); err != nil {
		return fmt.Errorf("create %q: %w", SheetPart, err)
	}
	if _, err := io.WriteString(xw.sheet, worksheetHeader); err != nil {
		return err
	}
	header := xw.cfg.header
	if header == nil {
		header = xlsxstream.Labels(xw.columns)
	}
	if len(header) != 0 {
		if err := RenderHeaderRow(xw.sheet, header); err != nil {
			return err
		}
		xw.row = 1
	}
	logger.Debug("template ready", "columns", len(attrs), "header", len(header) != 0)
	return nil
}

func readColumnAttributes(f *zip.File) ([]ColumnAttrs, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, &xlsxstream.MalformedTemplateError{Part: f.Name, Err: err}
	}
	defer rc.Close()
	return ExtractColumnAttributes(rc)
}

// validate checks that the rows have the same shape as the first one.
func (xw *Writer) validate(values [][]any) error {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		rowNum := xw.row + i + 1
		if len(row) != xw.width {
			return fmt.Errorf("row %d has %d columns instead of %d: %w", rowNum, len(row), xw.width, xlsxstream.ErrColumnMismatch)
		}
		for j, v := range row {
			if xw.lenient[j] || fits(xw.rr.columnAttrs(j), v) {
				continue
			}
			return fmt.Errorf("row %d column %s: %T does not fit %q: %w", rowNum, ColumnLetter(j), v, xw.rr.columnAttrs(j).Type(), xlsxstream.ErrColumnMismatch)
		}
	}
	return nil
}

func fits(attrs ColumnAttrs, v any) bool {
	if v == nil {
		return true
	}
	switch attrs.Type() {
	case "n":
		switch v.(type) {
		case int64, uint64, float64, xlsxstream.Number:
			return true
		}
		return false
	case "b":
		_, ok := v.(bool)
		return ok
	case typeInlineStr:
		switch v.(type) {
		case string, xlsxstream.Number:
			return true
		}
		return false
	default:
		return true
	}
}

func (xw *Writer) setPhase(p phase) {
	xw.cfg.logger.Debug("xlsx", "phase", p.String(), "from", xw.phase.String())
	xw.phase = p
}

type flusher interface{ Flush() }

func (xw *Writer) flush() error {
	if err := xw.zw.Flush(); err != nil {
		return err
	}
	if f, ok := xw.w.(flusher); ok {
		f.Flush()
	}
	return nil
}

// Close finishes the worksheet and writes the archive's central directory.
//
// It returns xlsxstream.ErrEmptySource if no row has been written,
// and the first write error, if any; in that case the output is not finalized.
func (xw *Writer) Close() error {
	if xw == nil {
		return nil
	}
	xw.mu.Lock()
	defer xw.mu.Unlock()
	p := xw.phase
	if p == phaseClosed {
		return nil
	}
	xw.setPhase(phaseClosed)
	if xw.err != nil {
		return xw.err
	}
	if p != phaseEmit {
		return xlsxstream.ErrEmptySource
	}
	if _, err := io.WriteString(xw.sheet, worksheetFooter); err != nil {
		return err
	}
	xw.sheet = nil
	return xw.zw.Close()
}

// abort stops the writer without finalizing the output.
func (xw *Writer) abort(err error) {
	xw.mu.Lock()
	defer xw.mu.Unlock()
	if xw.err == nil {
		xw.err = err
	}
	xw.phase = phaseClosed
	xw.sheet = nil
}

// Render writes the rows of src as an xlsx file to w.
//
// The first row is used to build the template; every batch is written
// and flushed before the next is pulled from src.
// Errors of src or w stop the export at once, leaving w truncated.
func Render(ctx context.Context, w io.Writer, src xlsxstream.RowSource, opts ...Option) error {
	return NewWriter(w, opts...).WriteFrom(ctx, src)
}

// WriteFrom writes all rows of src, then closes the Writer.
func (xw *Writer) WriteFrom(ctx context.Context, src xlsxstream.RowSource) error {
	for {
		batch, err := src.Next(ctx)
		if len(batch) != 0 {
			if werr := xw.WriteBatch(ctx, batch); werr != nil {
				xw.abort(werr)
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			err = fmt.Errorf("row source: %w", err)
			xw.abort(err)
			return err
		}
	}
	return xw.Close()
}
