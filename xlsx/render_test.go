// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/UNO-SOFT/xlsxstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnLetter(t *testing.T) {
	for i, want := range map[int]string{
		0:     "A",
		25:    "Z",
		26:    "AA",
		51:    "AZ",
		52:    "BA",
		701:   "ZZ",
		702:   "AAA",
		16383: "XFD",
		16384: "",
		-1:    "",
	} {
		assert.Equal(t, want, ColumnLetter(i), "column %d", i)
	}
}

func TestCellRef(t *testing.T) {
	assert.Equal(t, "A1", CellRef(0, 1))
	assert.Equal(t, "Z26", CellRef(25, 26))
	assert.Equal(t, "AA27", CellRef(26, 27))
	assert.Equal(t, "AZ52", CellRef(51, 52))
	assert.Equal(t, "BA1048576", CellRef(52, 1048576))
}

func TestRenderRow(t *testing.T) {
	attrs := []ColumnAttrs{
		{attr("t", "inlineStr")},
		{},
		{attr("s", "1")},
		{attr("s", "2")},
		{attr("t", "b")},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderRow(&buf, []any{"Test string", int64(2), 40180.5, int64(100), true}, 2, attrs))
	assert.Equal(t,
		`<row r="2">`+
			`<c r="A2" t="inlineStr"><is><t>Test string</t></is></c>`+
			`<c r="B2"><v>2</v></c>`+
			`<c r="C2" s="1"><v>40180.5</v></c>`+
			`<c r="D2" s="2"><v>100</v></c>`+
			`<c r="E2" t="b"><v>1</v></c>`+
			`</row>`,
		buf.String())
}

func TestRenderRowEscape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderRow(&buf, []any{`<a & "b">`, " pad ", "bell\x07", nil}, 7, nil))
	s := buf.String()
	assert.Contains(t, s, `<c r="A7" t="inlineStr"><is><t>&lt;a &amp; &quot;b&quot;&gt;</t></is></c>`)
	assert.Contains(t, s, `<c r="B7" t="inlineStr"><is><t xml:space="preserve"> pad </t></is></c>`)
	assert.Contains(t, s, `<c r="C7" t="inlineStr"><is><t>bell</t></is></c>`)
	assert.Contains(t, s, `<c r="D7" t="inlineStr"/>`)

	var row struct {
		R     int `xml:"r,attr"`
		Cells []struct {
			R string `xml:"r,attr"`
			T string `xml:"is>t"`
		} `xml:"c"`
	}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &row))
	assert.Equal(t, 7, row.R)
	require.Len(t, row.Cells, 4)
	assert.Equal(t, `<a & "b">`, row.Cells[0].T)
	assert.Equal(t, " pad ", row.Cells[1].T)
}

func TestRenderRowEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderRow(&buf, nil, 3, nil))
	require.NoError(t, RenderRow(&buf, []any{}, 4, []ColumnAttrs{{}}))
	assert.Zero(t, buf.Len(), "empty rows must not render a <row>")
}

func TestRenderRowBeyondAttributes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderRow(&buf, []any{int64(1), int64(2)}, 5, []ColumnAttrs{{}}))
	assert.Equal(t, `<row r="5"><c r="A5"><v>1</v></c><c r="B5" t="inlineStr"><is><t>2</t></is></c></row>`, buf.String())
}

func TestRenderHeaderRow(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHeaderRow(&buf, []string{"field one", "field two"}))
	assert.Equal(t, `<row r="1">`+
		`<c r="A1" t="inlineStr"><is><t>field one</t></is></c>`+
		`<c r="B1" t="inlineStr"><is><t>field two</t></is></c>`+
		`</row>`, buf.String())
}

// The attributes of the first row are used for every later row.
func TestAttributePropagation(t *testing.T) {
	first := []Cell{{Value: "x"}, {Value: int64(100), NumberFormat: xlsxstream.CurrencyFormat("€")}}
	image, err := Synthesize("", first)
	require.NoError(t, err)
	attrs := templateAttrs(t, image)
	require.Len(t, attrs, 2)

	style, ok := attrs[1].Get("s")
	require.True(t, ok)
	var buf bytes.Buffer
	for row := 2; row < 5; row++ {
		require.NoError(t, RenderRow(&buf, []any{"y", int64(row)}, row, attrs))
	}
	got := buf.String()
	assert.Equal(t, 3, strings.Count(got, `s="`+style+`"><v>`))
	assert.Equal(t, 3, strings.Count(got, `t="inlineStr"><is><t>y</t>`))
	assert.NotContains(t, got, `t="s"`)
}
