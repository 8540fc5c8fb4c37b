// Copyright 2020, 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/UNO-SOFT/xlsxstream"
)

const (
	// DateTimeFormat is the number format of dates without an explicit one.
	DateTimeFormat = "yyyy-mm-dd hh:mm:ss"
	// DurationFormat is the number format of durations without an explicit one.
	DurationFormat = "[h]:mm:ss"
)

// Cell is a normalized value with its number format.
//
// Value is nil, string, xlsxstream.Number, bool, int64, uint64 or float64;
// time.Time and time.Duration only when not converted.
type Cell struct {
	Value        any
	NumberFormat string
}

// Normalize converts v to the representation written into a cell.
//
// With convert, dates and durations become serial day numbers;
// without it they are returned untouched.
func Normalize(v any, col xlsxstream.Column, convert bool) (Cell, error) {
	c, err := normalize(v, convert)
	if err != nil {
		return c, err
	}
	if c.NumberFormat == "" {
		c.NumberFormat = col.Column.Format
	}
	if c, err = coerce(c, col.Type); err != nil {
		return c, err
	}
	return c, nil
}

func normalize(v any, convert bool) (Cell, error) {
	if vr, ok := v.(driver.Valuer); ok {
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return Cell{}, nil
		}
		vv, err := vr.Value()
		if err != nil {
			return Cell{}, fmt.Errorf("%T.Value: %w", v, err)
		}
		v = vv
	}
	switch x := v.(type) {
	case nil:
		return Cell{}, nil
	case xlsxstream.Formatted:
		c, err := normalize(x.Value, convert)
		if x.Format != "" {
			c.NumberFormat = x.Format
		}
		return c, err
	case string:
		return Cell{Value: x}, nil
	case []byte:
		return Cell{Value: string(x)}, nil
	case xlsxstream.Number:
		return Cell{Value: x}, nil
	case bool:
		return Cell{Value: x}, nil
	case int:
		return Cell{Value: int64(x)}, nil
	case int64:
		return Cell{Value: x}, nil
	case float64:
		return floatCell(x)
	case time.Time:
		if x.IsZero() {
			return Cell{}, nil
		}
		if !convert {
			return Cell{Value: x, NumberFormat: DateTimeFormat}, nil
		}
		f, err := TimeToSerial(x)
		if err != nil {
			return Cell{}, err
		}
		return Cell{Value: f, NumberFormat: DateTimeFormat}, nil
	case time.Duration:
		if !convert {
			return Cell{Value: x, NumberFormat: DurationFormat}, nil
		}
		return Cell{Value: x.Seconds() / 86400, NumberFormat: DurationFormat}, nil
	case fmt.Stringer:
		return Cell{Value: x.String()}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Cell{Value: rv.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Cell{Value: rv.Uint()}, nil
	case reflect.Float32, reflect.Float64:
		return floatCell(rv.Float())
	case reflect.String:
		return Cell{Value: rv.String()}, nil
	case reflect.Bool:
		return Cell{Value: rv.Bool()}, nil
	case reflect.Pointer:
		if rv.IsNil() {
			return Cell{}, nil
		}
		return normalize(rv.Elem().Interface(), convert)
	}
	return Cell{}, &xlsxstream.UnsupportedValueTypeError{Value: v}
}

func floatCell(f float64) (Cell, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Cell{}, &xlsxstream.UnsupportedValueTypeError{Value: f, Reason: "not a finite number"}
	}
	return Cell{Value: f}, nil
}

// coerce forces the declared column type onto a normalized cell.
func coerce(c Cell, typ xlsxstream.CellType) (Cell, error) {
	if c.Value == nil {
		return c, nil
	}
	switch typ {
	case xlsxstream.TypeString:
		switch c.Value.(type) {
		case string:
		case time.Time, time.Duration:
			c.Value = fmt.Sprint(c.Value)
		default:
			c.Value = formatValue(c.Value, false)
		}
		c.NumberFormat = ""
	case xlsxstream.TypeNumber:
		switch x := c.Value.(type) {
		case int64, uint64, float64, xlsxstream.Number:
		case string:
			s := strings.TrimSpace(x)
			if s == "" {
				c.Value = nil
				return c, nil
			}
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				return c, &xlsxstream.UnsupportedValueTypeError{Value: x, Reason: fmt.Sprintf("%q is not a number", x)}
			}
			c.Value = xlsxstream.Number(s)
		default:
			return c, &xlsxstream.UnsupportedValueTypeError{Value: x, Reason: "not a number"}
		}
	case xlsxstream.TypeBool:
		if _, ok := c.Value.(bool); !ok {
			return c, &xlsxstream.UnsupportedValueTypeError{Value: c.Value, Reason: "not a bool"}
		}
	case xlsxstream.TypeDate:
		switch c.Value.(type) {
		case float64, time.Time:
		default:
			return c, &xlsxstream.UnsupportedValueTypeError{Value: c.Value, Reason: "not a date"}
		}
	}
	return c, nil
}

var (
	epoch1900       = time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)
	epoch1900Minus1 = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	// the day after the fictitious 1900-02-29
	leapBugEnd = time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC)
)

// TimeToSerial returns the serial day number of t's wall clock in the
// 1900 date system.
//
// Serial 60 is the non-existent 1900-02-29, so dates from 1900-03-01
// are counted from 1899-12-30.
func TimeToSerial(t time.Time) (float64, error) {
	u := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	epoch := epoch1900Minus1
	if u.Before(leapBugEnd) {
		epoch = epoch1900
	}
	secs := u.Unix() - epoch.Unix()
	if secs < 86400 {
		return 0, &xlsxstream.UnsupportedValueTypeError{Value: t, Reason: fmt.Sprintf("%s is before 1900-01-01", t.Format(time.DateOnly))}
	}
	return float64(secs)/86400 + float64(u.Nanosecond())/(86400*1e9), nil
}

// formatValue returns the text of a normalized value.
// asValue selects the <v> form (booleans as 1/0).
func formatValue(v any, asValue bool) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case xlsxstream.Number:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if asValue {
			if x {
				return "1"
			}
			return "0"
		}
		if x {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		if f, err := TimeToSerial(x); err == nil && asValue {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return x.Format(time.DateTime)
	case time.Duration:
		if asValue {
			return strconv.FormatFloat(x.Seconds()/86400, 'f', -1, 64)
		}
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
