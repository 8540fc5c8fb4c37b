// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsxstream_test

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/UNO-SOFT/xlsxstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestGetEncoding(t *testing.T) {
	for _, nm := range []string{"", "utf-8", "UTF8"} {
		enc, err := xlsxstream.GetEncoding(nm)
		require.NoError(t, err)
		assert.Nil(t, enc, nm)
	}
	enc, err := xlsxstream.GetEncoding("ISO-8859-2")
	require.NoError(t, err)
	assert.NotNil(t, enc)
	_, err = xlsxstream.GetEncoding("no-such-charset")
	assert.Error(t, err)
}

func TestOpenCsv(t *testing.T) {
	latin2, err := charmap.ISO8859_2.NewEncoder().String("név;összeg\nÁrvíztűrő;12\n")
	require.NoError(t, err)
	fn := filepath.Join(t.TempDir(), "a.csv")
	require.NoError(t, os.WriteFile(fn, []byte(latin2), 0o644))

	cr, err := xlsxstream.OpenCsv(fn, "iso-8859-2")
	require.NoError(t, err)
	defer cr.Close()
	assert.Equal(t, ';', cr.Comma)
	rec, err := cr.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"név", "összeg"}, rec)
	rec, err = cr.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"Árvíztűrő", "12"}, rec)
}

func TestCsvSource(t *testing.T) {
	cr := csv.NewReader(strings.NewReader("a,1\nb,-2.5\nc,0123\nd,1e3\ne,\n"))
	cr.ReuseRecord = true
	src := xlsxstream.NewCsvSource(cr, 2, true)
	var rows []xlsxstream.Row
	var sizes []int
	for {
		b, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, len(b))
		rows = append(rows, b...)
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, []xlsxstream.Row{
		{"a", xlsxstream.Number("1")},
		{"b", xlsxstream.Number("-2.5")},
		{"c", "0123"},
		{"d", xlsxstream.Number("1e3")},
		{"e", ""},
	}, rows)
}

func TestCsvSourceText(t *testing.T) {
	src := xlsxstream.NewCsvSource(csv.NewReader(strings.NewReader("1,2\n")), 10, false)
	b, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, xlsxstream.Batch{{"1", "2"}}, b)
	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}
