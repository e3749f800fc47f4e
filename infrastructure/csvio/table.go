// Package csvio reads and writes the pipeline's CSV files: raw scrapes,
// cleaned reviews, analysed reviews and the fallback snapshot.
package csvio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Table is a CSV file loaded as header-keyed rows.
type Table struct {
	Headers []string
	Rows    []map[string]string
}

// Has reports whether the table has the named column.
func (t Table) Has(column string) bool {
	for _, h := range t.Headers {
		if h == column {
			return true
		}
	}
	return false
}

// RenameColumns returns a table whose headers and row keys are passed through fn.
func (t Table) RenameColumns(fn func(string) string) Table {
	out := Table{
		Headers: make([]string, len(t.Headers)),
		Rows:    make([]map[string]string, len(t.Rows)),
	}
	for i, h := range t.Headers {
		out.Headers[i] = fn(h)
	}
	for i, row := range t.Rows {
		renamed := make(map[string]string, len(row))
		for k, v := range row {
			renamed[fn(k)] = v
		}
		out.Rows[i] = renamed
	}
	return out
}

// ReadFile loads a CSV file with a header row.
func ReadFile(path string) (Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	t, err := Read(bytes.NewReader(b))
	if err != nil {
		return Table{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV with a header row. A UTF-8 byte order mark is ignored and
// short rows are padded with empty values.
func Read(r io.Reader) (Table, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Table{}, err
	}
	b = bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})

	cr := csv.NewReader(bytes.NewReader(b))
	cr.FieldsPerRecord = -1
	headers, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, err
	}

	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, err
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return Table{Headers: headers, Rows: rows}, nil
}

// WriteFile writes a header and records to path, creating parent directories.
func WriteFile(path string, headers []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, headers, records); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// Write writes a header and records as CSV.
func Write(w io.Writer, headers []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}
