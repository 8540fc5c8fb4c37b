// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"context"
	"io"

	"github.com/UNO-SOFT/xlsxstream"
)

type reader struct {
	*io.PipeReader
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReader returns the xlsx file of the rows of src as a reader.
//
// Rows are pulled from src only as the output is read.
// Closing the reader before EOF cancels the export and waits until
// it stops pulling src.
func NewReader(ctx context.Context, src xlsxstream.RowSource, opts ...Option) io.ReadCloser {
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	r := &reader{PipeReader: pr, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		defer cancel()
		pw.CloseWithError(Render(ctx, pw, src, opts...))
	}()
	return r
}

func (r *reader) Close() error {
	r.cancel()
	err := r.PipeReader.CloseWithError(xlsxstream.ErrClosed)
	<-r.done
	return err
}
