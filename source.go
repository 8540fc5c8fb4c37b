// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsxstream

import (
	"context"
	"io"
	"iter"
)

// RowSource yields batches of rows.
//
// Next returns io.EOF when there are no more batches.
// Next may block (e.g. fetching the next page of a query);
// it should return when ctx is cancelled.
type RowSource interface {
	Next(ctx context.Context) (Batch, error)
}

// RowSourceFunc is a function implementing RowSource.
type RowSourceFunc func(ctx context.Context) (Batch, error)

func (f RowSourceFunc) Next(ctx context.Context) (Batch, error) { return f(ctx) }

// SliceSource returns a RowSource yielding the given batches.
func SliceSource(batches ...Batch) RowSource {
	return RowSourceFunc(func(ctx context.Context) (Batch, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(batches) == 0 {
			return nil, io.EOF
		}
		b := batches[0]
		batches[0] = nil
		batches = batches[1:]
		return b, nil
	})
}

// SeqSource returns a RowSource pulling from seq.
//
// The returned stop function must be called if the source is not
// drained till io.EOF.
func SeqSource(seq iter.Seq2[Batch, error]) (RowSource, func()) {
	next, stop := iter.Pull2(seq)
	return RowSourceFunc(func(ctx context.Context) (Batch, error) {
		if err := ctx.Err(); err != nil {
			stop()
			return nil, err
		}
		b, err, ok := next()
		if !ok {
			return nil, io.EOF
		}
		return b, err
	}), stop
}

// Rebatch returns a RowSource that yields the rows of src in batches of
// at most size rows.
//
// Only one batch of src is held at a time.
func Rebatch(src RowSource, size int) RowSource {
	if size <= 0 {
		size = 1
	}
	var pending Batch
	var srcErr error
	return RowSourceFunc(func(ctx context.Context) (Batch, error) {
		for len(pending) == 0 {
			if srcErr != nil {
				return nil, srcErr
			}
			if pending, srcErr = src.Next(ctx); srcErr != nil && len(pending) == 0 {
				return nil, srcErr
			}
		}
		n := min(size, len(pending))
		b := pending[:n:n]
		pending = pending[n:]
		return b, nil
	})
}
