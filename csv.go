// Copyright 2020, 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsxstream

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// EncName is the default CSV charset, taken from $LANG.
var EncName = "utf-8"

func init() {
	lang := os.Getenv("LANG")
	if i := strings.IndexByte(lang, '.'); i >= 0 {
		lang = strings.ToLower(lang[i+1:])
		if j := strings.IndexByte(lang, '@'); j >= 0 {
			lang = lang[:j]
		}
		if lang != "" {
			EncName = lang
		}
	}
}

// GetEncoding returns the encoding named encName, nil for UTF-8.
func GetEncoding(encName string) (encoding.Encoding, error) {
	encName = strings.ToLower(encName)
	if encName == "" || encName == "utf-8" || encName == "utf8" {
		return nil, nil
	}
	enc, err := htmlindex.Get(encName)
	if err != nil {
		err = fmt.Errorf("%q: %w", encName, err)
	}
	return enc, err
}

type csvReadCloser struct {
	*csv.Reader
	io.Closer
}

// OpenCsv opens fn ("" or "-" is stdin) for CSV reading, decoding it from encName.
//
// The field separator is guessed from the first non-word character.
func OpenCsv(fn, encName string) (csvReadCloser, error) {
	var enc encoding.Encoding
	if encName != "" {
		var err error
		if enc, err = GetEncoding(encName); err != nil {
			return csvReadCloser{}, err
		}
	}
	fh := os.Stdin
	if !(fn == "" || fn == "-") {
		var err error
		if fh, err = os.Open(fn); err != nil {
			return csvReadCloser{}, err
		}
	}
	r := io.ReadCloser(fh)
	if enc != nil {
		r = struct {
			io.Reader
			io.Closer
		}{enc.NewDecoder().Reader(r), r}
	}
	br := bufio.NewReaderSize(r, 1<<20)
	b, err := br.Peek(1024)
	if err != nil && len(b) == 0 {
		r.Close()
		return csvReadCloser{}, err
	}
	sep := rune(',')
	for _, r := range string(b) {
		if r == '"' || r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) {
			continue
		}
		sep = r
		break
	}

	cr := csv.NewReader(br)
	cr.ReuseRecord = true
	cr.Comma = sep
	return csvReadCloser{cr, r}, nil
}

// NewCsvSource returns a RowSource reading the records of cr, size records per batch.
//
// With numbers, fields looking like a number are returned as Number.
func NewCsvSource(cr *csv.Reader, size int, numbers bool) RowSource {
	if size <= 0 {
		size = 1
	}
	var eof bool
	return RowSourceFunc(func(ctx context.Context) (Batch, error) {
		if eof {
			return nil, io.EOF
		}
		batch := make(Batch, 0, size)
		for len(batch) < size {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rec, err := cr.Read()
			if err != nil {
				if errors.Is(err, io.EOF) {
					eof = true
					break
				}
				return nil, err
			}
			row := make(Row, len(rec))
			for i, s := range rec {
				if numbers && looksNumeric(s) {
					row[i] = Number(s)
				} else {
					row[i] = s
				}
			}
			batch = append(batch, row)
		}
		if len(batch) == 0 {
			return nil, io.EOF
		}
		return batch, nil
	})
}

// looksNumeric reports whether s is a plain decimal number.
// Zero-prefixed codes such as "0123" are not.
func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	t := strings.TrimPrefix(s, "-")
	if t == "" || t[0] < '0' || t[0] > '9' {
		return false
	}
	if len(t) > 1 && t[0] == '0' && t[1] != '.' {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
