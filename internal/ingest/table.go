// Package ingest turns uploaded files and vendor tables into dataset frames.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/dataset"
)

var (
	// ErrMissingDate is returned when the input has no date column
	ErrMissingDate = errors.New("data must contain 'date' column")
	// ErrMissingMetric is returned when no recognized financial metric is present
	ErrMissingMetric = errors.New("data must contain at least one financial metric column")
	// ErrInvalidDate is returned for a date cell no layout accepts
	ErrInvalidDate = errors.New("invalid date")
)

// MetricColumns are the recognized financial metric names, in target preference order
var MetricColumns = []string{"revenue", "sales", "expenses", "profit", "cashflow", "demand"}

// TargetAlias is accepted as a metric and preferred as the default target
const TargetAlias = "target"

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1/2/06",
	"2006-01",
	"Jan 2006",
	"02-Jan-2006",
	"20060102",
}

// ParseDate accepts the common date layouts, Unix epoch milliseconds and Excel serial numbers
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		switch {
		case f > 1e11:
			return time.UnixMilli(int64(f)).UTC(), nil
		case f > 0 && f < 1e6:
			return excelize.ExcelDateToTime(f, false)
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// normalizeColumns trims and lower-cases header names
func normalizeColumns(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return out
}

// parseNumber reads a numeric cell; empty cells are undefined
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
		return math.NaN(), true
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FrameFromTable parses the date column and every numeric column of t.
// Columns holding any non-numeric cell are dropped.
func FrameFromTable(t *contracts.Table) (*dataset.Frame, error) {
	if t == nil {
		return dataset.Empty(), nil
	}
	cols := normalizeColumns(t.Columns)

	dateIdx := -1
	for i, c := range cols {
		if c == dataset.DateColumn {
			dateIdx = i
			break
		}
	}
	if dateIdx == -1 {
		return nil, ErrMissingDate
	}

	dates := make([]time.Time, len(t.Rows))
	for r, row := range t.Rows {
		d, err := ParseDate(cell(row, dateIdx))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r+1, err)
		}
		dates[r] = d
	}

	var names []string
	data := make(map[string][]float64)
	for i, c := range cols {
		if i == dateIdx || c == "" {
			continue
		}
		if _, dup := data[c]; dup {
			continue
		}
		vals := make([]float64, len(t.Rows))
		numeric := true
		for r, row := range t.Rows {
			v, ok := parseNumber(cell(row, i))
			if !ok {
				numeric = false
				break
			}
			vals[r] = v
		}
		if !numeric {
			continue
		}
		names = append(names, c)
		data[c] = vals
	}

	return dataset.NewFrame(dates, names, data)
}

// FrameToTable renders a frame as a string table with a leading date column
func FrameToTable(source string, f *dataset.Frame) *contracts.Table {
	t := &contracts.Table{Source: source, FetchedAt: time.Now().UTC()}
	if f.HasDates() {
		t.Columns = append(t.Columns, dataset.DateColumn)
	}
	t.Columns = append(t.Columns, f.Columns()...)

	dates := f.Dates()
	columns := make([][]float64, 0, len(f.Columns()))
	for _, c := range f.Columns() {
		vals, _ := f.Column(c)
		columns = append(columns, vals)
	}

	t.Rows = make([][]string, f.Len())
	for r := range t.Rows {
		row := make([]string, 0, len(t.Columns))
		if dates != nil {
			row = append(row, dates[r].Format("2006-01-02"))
		}
		for _, vals := range columns {
			row = append(row, formatNumber(vals[r]))
		}
		t.Rows[r] = row
	}
	return t
}

// ValidateStructure requires a date index and at least one recognized metric column
func ValidateStructure(f *dataset.Frame) error {
	if !f.HasDates() {
		return ErrMissingDate
	}
	if f.Has(TargetAlias) {
		return nil
	}
	for _, m := range MetricColumns {
		if f.Has(m) {
			return nil
		}
	}
	return ErrMissingMetric
}

// DefaultTarget returns "target" when present, else the first recognized metric, else ""
func DefaultTarget(f *dataset.Frame) string {
	if f.Has(TargetAlias) {
		return TargetAlias
	}
	for _, m := range MetricColumns {
		if f.Has(m) {
			return m
		}
	}
	return ""
}

// DecodeJSONTable accepts either an array of records or an object of columns.
// Column values may be arrays or index-keyed objects.
func DecodeJSONTable(source string, raw []byte) (*contracts.Table, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return TableFromValue(source, v)
}

// TableFromValue converts an already decoded JSON value
func TableFromValue(source string, v interface{}) (*contracts.Table, error) {
	t := &contracts.Table{Source: source, FetchedAt: time.Now().UTC()}

	switch val := v.(type) {
	case []interface{}:
		records := make([]map[string]interface{}, 0, len(val))
		for i, item := range val {
			rec, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("record %d is not an object", i)
			}
			records = append(records, rec)
		}
		t.Columns = recordColumns(records)
		for _, rec := range records {
			row := make([]string, len(t.Columns))
			for j, c := range t.Columns {
				row[j] = stringify(rec[c])
			}
			t.Rows = append(t.Rows, row)
		}

	case map[string]interface{}:
		t.Columns = sortedKeys(val)
		columns := make([][]string, len(t.Columns))
		rows := 0
		for j, c := range t.Columns {
			columns[j] = columnCells(val[c])
			rows = max(rows, len(columns[j]))
		}
		t.Rows = make([][]string, rows)
		for r := range t.Rows {
			row := make([]string, len(t.Columns))
			for j := range t.Columns {
				if r < len(columns[j]) {
					row[j] = columns[j][r]
				}
			}
			t.Rows[r] = row
		}

	default:
		return nil, fmt.Errorf("unsupported json shape %T", v)
	}
	return t, nil
}

func recordColumns(records []map[string]interface{}) []string {
	seen := make(map[string]interface{})
	for _, rec := range records {
		for k := range rec {
			seen[k] = nil
		}
	}
	return sortedKeys(seen)
}

// sortedKeys orders keys alphabetically with the date column first
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		di, dj := strings.EqualFold(keys[i], dataset.DateColumn), strings.EqualFold(keys[j], dataset.DateColumn)
		if di != dj {
			return di
		}
		return keys[i] < keys[j]
	})
	return keys
}

func columnCells(v interface{}) []string {
	switch val := v.(type) {
	case []interface{}:
		out := make([]string, len(val))
		for i, x := range val {
			out[i] = stringify(x)
		}
		return out
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			a, errA := strconv.Atoi(keys[i])
			b, errB := strconv.Atoi(keys[j])
			if errA == nil && errB == nil {
				return a < b
			}
			return keys[i] < keys[j]
		})
		out := make([]string, len(keys))
		for i, k := range keys {
			out[i] = stringify(val[k])
		}
		return out
	default:
		return []string{stringify(v)}
	}
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}

func formatNumber(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
