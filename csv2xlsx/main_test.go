// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/UNO-SOFT/xlsxstream/xlsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRouter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "people.csv"), []byte("name;age\nAnna;31\nBéla;0042\n"), 0o644))
	srv := httptest.NewServer(newRouter(dir, "utf-8", true, nil))
	defer srv.Close()

	get := func(path string) (*http.Response, []byte) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		var buf bytes.Buffer
		_, err = buf.ReadFrom(resp.Body)
		require.NoError(t, err)
		return resp, buf.Bytes()
	}

	resp, body := get("/csv/people.xlsx")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, xlsx.MediaType, resp.Header.Get("Content-Type"))
	xl, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer xl.Close()
	rows, err := xl.GetRows("people")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"name", "age"}, {"Anna", "31"}, {"Béla", "0042"}}, rows)

	for _, path := range []string{"/csv/missing.xlsx", "/csv/.hidden.xlsx", "/sql/people.xlsx"} {
		resp, _ = get(path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	inp, out := filepath.Join(dir, "a.csv"), filepath.Join(dir, "a.xlsx")
	require.NoError(t, os.WriteFile(inp, []byte("x,y\n1,a\n2,b\n"), 0o644))
	require.NoError(t, convert(context.Background(), out, inp, "utf-8", "Data", true))

	xl, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer xl.Close()
	rows, err := xl.GetRows("Data")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x", "y"}, {"1", "a"}, {"2", "b"}}, rows)
	v, err := xl.GetCellValue("Data", "A3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}
