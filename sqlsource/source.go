// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package sqlsource reads the result of an SQL query page by page.
package sqlsource

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/UNO-SOFT/xlsxstream"
	"github.com/jmoiron/sqlx"
)

// DefaultPageSize is the number of rows fetched by one Next call.
const DefaultPageSize = 1000

// Source is a xlsxstream.RowSource returning the rows of a query,
// one page per batch.
//
// Each page is a separate query, so the query should have a stable order.
type Source struct {
	db       *sqlx.DB
	query    string
	args     []any
	pageSize int
	offset   int
	done     bool
}

var _ xlsxstream.RowSource = (*Source)(nil)

// New returns a Source for query, with "?" placeholders for args.
func New(db *sqlx.DB, query string, args ...any) *Source {
	return &Source{
		db:       db,
		query:    strings.TrimRight(strings.TrimSpace(query), ";"),
		args:     args,
		pageSize: DefaultPageSize,
	}
}

// WithPageSize sets the number of rows fetched at once.
func (s *Source) WithPageSize(n int) *Source {
	if n > 0 {
		s.pageSize = n
	}
	return s
}

// pageQuery returns the query of the page, still with "?" placeholders.
func (s *Source) pageQuery() (string, []any) {
	args := make([]any, 0, len(s.args)+2)
	args = append(args, s.args...)
	args = append(args, s.pageSize, s.offset)
	return "SELECT * FROM (" + s.query + ") pg LIMIT ? OFFSET ?", args
}

// Next returns the next page, io.EOF after the last one.
func (s *Source) Next(ctx context.Context) (xlsxstream.Batch, error) {
	if s.done {
		return nil, io.EOF
	}
	qry, args := s.pageQuery()
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(qry), args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", qry, err)
	}
	defer rows.Close()
	batch := make(xlsxstream.Batch, 0, s.pageSize)
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		batch = append(batch, convertRow(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", qry, err)
	}
	s.offset += len(batch)
	if len(batch) < s.pageSize {
		s.done = true
	}
	if len(batch) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}

// Columns returns the names of the result columns.
func (s *Source) Columns(ctx context.Context) ([]xlsxstream.Column, error) {
	qry := "SELECT * FROM (" + s.query + ") pg WHERE 1=0"
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(qry), s.args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", qry, err)
	}
	defer rows.Close()
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	cols := make([]xlsxstream.Column, len(names))
	for i, nm := range names {
		cols[i].Name = nm
	}
	return cols, rows.Close()
}

// convertRow turns the driver's []byte values into strings.
func convertRow(values []any) xlsxstream.Row {
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return xlsxstream.Row(values)
}
