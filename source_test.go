// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsxstream_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/UNO-SOFT/xlsxstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, src xlsxstream.RowSource) ([]int, error) {
	t.Helper()
	var sizes []int
	for {
		b, err := src.Next(context.Background())
		if err != nil {
			if errors.Is(err, io.EOF) {
				return sizes, nil
			}
			return sizes, err
		}
		sizes = append(sizes, len(b))
	}
}

func numbered(n int) xlsxstream.Batch {
	b := make(xlsxstream.Batch, n)
	for i := range b {
		b[i] = xlsxstream.Row{i}
	}
	return b
}

func TestSliceSource(t *testing.T) {
	sizes, err := drain(t, xlsxstream.SliceSource(numbered(2), numbered(3)))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, sizes)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = xlsxstream.SliceSource(numbered(1)).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSeqSource(t *testing.T) {
	boom := errors.New("boom")
	src, stop := xlsxstream.SeqSource(func(yield func(xlsxstream.Batch, error) bool) {
		for i := 1; i <= 3; i++ {
			if !yield(numbered(i), nil) {
				return
			}
		}
		yield(nil, boom)
	})
	defer stop()
	sizes, err := drain(t, src)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2, 3}, sizes)
}

func TestRebatch(t *testing.T) {
	for _, tc := range []struct {
		Size int
		Want []int
	}{
		{Size: 1, Want: []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}},
		{Size: 7, Want: []int{7, 3}},
		{Size: 100, Want: []int{10}},
		{Size: 0, Want: []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}},
	} {
		sizes, err := drain(t, xlsxstream.Rebatch(xlsxstream.SliceSource(numbered(10)), tc.Size))
		require.NoError(t, err)
		assert.Equal(t, tc.Want, sizes, "size=%d", tc.Size)
	}

	sizes, err := drain(t, xlsxstream.Rebatch(xlsxstream.SliceSource(numbered(3), nil, numbered(4)), 5))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, sizes, "batches are not merged")
}

func TestRebatchOrder(t *testing.T) {
	src := xlsxstream.Rebatch(xlsxstream.SliceSource(numbered(5), numbered(5)), 3)
	var got []any
	for {
		b, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		for _, r := range b {
			got = append(got, r[0])
		}
	}
	assert.Equal(t, []any{0, 1, 2, 3, 4, 0, 1, 2, 3, 4}, got)
}

func TestLabels(t *testing.T) {
	assert.Nil(t, xlsxstream.Labels([]xlsxstream.Column{{}, {}}))
	assert.Equal(t, []string{"a", ""}, xlsxstream.Labels([]xlsxstream.Column{{Name: "a"}, {}}))
}

func TestCurrencyFormat(t *testing.T) {
	assert.Equal(t, `#,##0.00_)"€";\-#,##0.00"€"`, xlsxstream.CurrencyFormat("€"))
	f := xlsxstream.Currency(100, "$")
	assert.Equal(t, 100, f.Value)
	assert.Equal(t, xlsxstream.CurrencyFormat("$"), f.Format)
}

func TestErrors(t *testing.T) {
	var err error = &xlsxstream.UnsupportedValueTypeError{Value: []int{1}}
	assert.ErrorIs(t, err, xlsxstream.ErrUnsupportedValueType)
	assert.Contains(t, err.Error(), "[]int")

	inner := errors.New("eof")
	err = &xlsxstream.MalformedTemplateError{Part: "xl/worksheets/sheet1.xml", Err: inner}
	assert.ErrorIs(t, err, xlsxstream.ErrMalformedTemplate)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "string", xlsxstream.TypeString.String())
}
