// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"log/slog"

	"github.com/UNO-SOFT/xlsxstream"
	"github.com/klauspost/compress/flate"
)

// Option configures a Writer.
type Option func(*config)

type config struct {
	logger    *slog.Logger
	sheetName string
	header    []string
	columns   []xlsxstream.Column
	level     int
	convert   bool
	strict    bool
}

func defaultConfig() config {
	return config{
		convert: true,
		level:   flate.DefaultCompression,
	}
}

func (c config) with(opts []Option) config {
	for _, o := range opts {
		o(&c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// WithHeader sets the labels of the header row.
// The header is written as the first row, shifting the data rows by one.
func WithHeader(labels ...string) Option {
	return func(c *config) { c.header = labels }
}

// WithColumns sets the column declarations used to normalize values.
// Named columns also provide the header labels, unless WithHeader is given.
func WithColumns(cols []xlsxstream.Column) Option {
	return func(c *config) { c.columns = cols }
}

// WithSheetName sets the name of the sheet (default "Sheet1").
func WithSheetName(name string) Option {
	return func(c *config) { c.sheetName = name }
}

// WithConvert sets whether the first row's values are converted to their
// serial representation (the default) before building the template,
// or passed raw to the authoring library.
func WithConvert(convert bool) Option {
	return func(c *config) { c.convert = convert }
}

// WithStrict makes the writer reject rows whose column count or value types
// differ from the first row's, with ErrColumnMismatch.
//
// By default such rows are rendered with the first row's attributes as is.
func WithStrict(strict bool) Option {
	return func(c *config) { c.strict = strict }
}

// WithCompressionLevel sets the deflate level of the worksheet (flate.NoCompression..flate.BestCompression).
func WithCompressionLevel(level int) Option {
	return func(c *config) {
		if flate.HuffmanOnly <= level && level <= flate.BestCompression {
			c.level = level
		}
	}
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}
