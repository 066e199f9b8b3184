package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/dataset"
)

// ErrUnsupportedFile is returned for an extension outside .csv/.xlsx/.xls/.json
var ErrUnsupportedFile = errors.New("unsupported file type")

// Format identifies an input file type
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
	FormatJSON  Format = "json"
)

// DetectFormat maps a file name to its format by extension
func DetectFormat(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xls":
		return FormatExcel, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, ext)
	}
}

// LoadFile reads, parses and validates a data file
func LoadFile(path string) (*dataset.Frame, error) {
	if _, err := DetectFormat(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return LoadReader(filepath.Base(path), f)
}

// LoadReader parses an upload; name only selects the format
func LoadReader(name string, r io.Reader) (*dataset.Frame, error) {
	t, err := ReadTable(name, r)
	if err != nil {
		return nil, err
	}
	frame, err := FrameFromTable(t)
	if err != nil {
		return nil, err
	}
	if err := ValidateStructure(frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// ReadTable reads a file into an untyped table without validation
func ReadTable(name string, r io.Reader) (*contracts.Table, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatCSV:
		return readCSV(name, r)
	case FormatExcel:
		return readExcel(name, r)
	default:
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return DecodeJSONTable(name, raw)
	}
}

func readCSV(name string, r io.Reader) (*contracts.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", name, err)
	}
	return rowsToTable(name, records), nil
}

// readExcel reads the first sheet. Legacy binary .xls workbooks are not readable by excelize.
func readExcel(name string, r io.Reader) (*contracts.Table, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", name, err)
	}
	defer wb.Close()

	sheet := wb.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", name)
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rowsToTable(name, rows), nil
}

func rowsToTable(source string, rows [][]string) *contracts.Table {
	t := &contracts.Table{Source: source, FetchedAt: time.Now().UTC()}
	if len(rows) == 0 {
		return t
	}
	t.Columns = rows[0]
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteCSV writes a frame with a leading date column when it has one
func WriteCSV(w io.Writer, f *dataset.Frame) error {
	t := FrameToTable("", f)
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteExcel writes a frame to a single-sheet workbook
func WriteExcel(w io.Writer, f *dataset.Frame) error {
	t := FrameToTable("", f)
	wb := excelize.NewFile()
	defer wb.Close()

	sheet := wb.GetSheetName(0)
	rows := append([][]string{t.Columns}, t.Rows...)
	for r, row := range rows {
		for c, v := range row {
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			var value interface{} = v
			if r > 0 && (c > 0 || !f.HasDates()) {
				if n, ok := parseNumber(v); ok && v != "" {
					value = n
				}
			}
			if err := wb.SetCellValue(sheet, ref, value); err != nil {
				return err
			}
		}
	}
	_, err := wb.WriteTo(w)
	return err
}
