// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package httpexport serves row sources as xlsx downloads.
package httpexport

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/UNO-SOFT/xlsxstream"
	"github.com/UNO-SOFT/xlsxstream/xlsx"
)

// Handler streams the rows of Source as an xlsx attachment.
//
// Without Columns, the columns of a source having a
// Columns() []xlsxstream.Column method are used.
//
// Errors happening before the first byte of the response are reported
// with an HTTP status (404 for an empty source, 500 otherwise);
// later ones can only be logged, the client gets a truncated file.
type Handler struct {
	// Name is the default file name, without extension.
	Name    string
	Columns []xlsxstream.Column
	// Source returns the rows for the request.
	Source  func(*http.Request) (xlsxstream.RowSource, error)
	Options []xlsx.Option
	Logger  *slog.Logger
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("method", r.Method, "path", r.URL.Path)

	src, err := h.Source(r)
	if err != nil {
		logger.Error("source", "error", err)
		httpError(w, err)
		return
	}
	if c, ok := src.(interface{ Close() error }); ok {
		defer c.Close()
	}

	name := h.Name
	if name == "" {
		name = "export"
	}
	if !strings.HasSuffix(name, xlsx.Extension) {
		name += xlsx.Extension
	}
	lw := &lazyWriter{ResponseWriter: w, header: func(hdr http.Header) {
		hdr.Set("Content-Type", xlsx.MediaType)
		hdr.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	}}

	cols := h.Columns
	if c, ok := src.(columner); ok && len(cols) == 0 {
		cols = c.Columns()
	}
	opts := make([]xlsx.Option, 0, len(h.Options)+2)
	opts = append(opts, xlsx.WithLogger(logger))
	if len(cols) != 0 {
		opts = append(opts, xlsx.WithColumns(cols))
	}
	opts = append(opts, h.Options...)
	if err = xlsx.Render(r.Context(), lw, src, opts...); err == nil {
		return
	}
	if lw.written {
		logger.Error("stream interrupted", "file", name, "error", err)
		return
	}
	logger.Error("render", "file", name, "error", err)
	httpError(w, err)
}

type columner interface {
	Columns() []xlsxstream.Column
}

func httpError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, xlsxstream.ErrEmptySource) {
		code = http.StatusNotFound
	}
	http.Error(w, err.Error(), code)
}

// lazyWriter sets the headers and the status only on the first Write,
// so an early error can still be turned into an error response.
type lazyWriter struct {
	http.ResponseWriter
	header  func(http.Header)
	written bool
}

func (w *lazyWriter) Write(p []byte) (int, error) {
	if !w.written {
		w.written = true
		w.header(w.ResponseWriter.Header())
		w.ResponseWriter.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(p)
}

// Flush sends the buffered data to the client.
func (w *lazyWriter) Flush() {
	if !w.written {
		return
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *lazyWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
