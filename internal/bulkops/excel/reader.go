// Package excel turns an uploaded spreadsheet into typed records using a
// header-name to column map, so row shape is driven by a schema instead of
// positional cell access.
package excel

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Schema names the columns a job kind expects. Required columns must be
// present in the header row by case-insensitive name match; optional columns
// are read when present and treated as absent per row otherwise.
type Schema struct {
	Required []string
	Optional []string
}

// Record is one data row resolved against a Schema. Field access is by
// column name; absent optional columns read as empty.
type Record struct {
	// RowNumber is the 1-based spreadsheet row index (the header is row 1).
	RowNumber int

	fields map[string]string
}

// Get returns the trimmed cell value for the named column, or "" when the
// column is absent or the cell empty.
func (r Record) Get(column string) string {
	return r.fields[strings.ToLower(column)]
}

// NewRecord builds a record directly from column values, keyed by column
// name. Used by callers that source rows from somewhere other than a
// spreadsheet, and by tests.
func NewRecord(rowNumber int, values map[string]string) Record {
	fields := make(map[string]string, len(values))
	for column, value := range values {
		fields[strings.ToLower(column)] = strings.TrimSpace(value)
	}
	return Record{RowNumber: rowNumber, fields: fields}
}

type Reader struct {
	logger *slog.Logger
}

func NewReader(logger *slog.Logger) *Reader {
	return &Reader{logger: logger.With("component", "excel_reader")}
}

// Parse materializes the first worksheet into records, starting after the
// header row. Rows blank across every required column are skipped silently.
// A missing required column fails the whole read.
func (r *Reader) Parse(data []byte, schema Schema) ([]Record, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet contains no worksheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("worksheet %q is empty", sheets[0])
	}

	// Header-name to column-index map, case-insensitive.
	headers := make(map[string]int)
	for col, name := range rows[0] {
		name = strings.TrimSpace(name)
		if name != "" {
			headers[strings.ToLower(name)] = col
		}
	}

	for _, required := range schema.Required {
		if _, ok := headers[strings.ToLower(required)]; !ok {
			return nil, fmt.Errorf("required column %q not found in header row", required)
		}
	}

	r.logger.Debug("Spreadsheet headers resolved", "sheet", sheets[0], "columns", len(headers))

	cell := func(row []string, column string) string {
		col, ok := headers[strings.ToLower(column)]
		if !ok || col >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	var records []Record
	for i, row := range rows[1:] {
		rowNumber := i + 2 // header is spreadsheet row 1

		blank := true
		for _, required := range schema.Required {
			if cell(row, required) != "" {
				blank = false
				break
			}
		}
		if blank {
			continue
		}

		fields := make(map[string]string, len(schema.Required)+len(schema.Optional))
		for _, column := range schema.Required {
			fields[strings.ToLower(column)] = cell(row, column)
		}
		for _, column := range schema.Optional {
			fields[strings.ToLower(column)] = cell(row, column)
		}
		records = append(records, Record{RowNumber: rowNumber, fields: fields})
	}

	return records, nil
}
