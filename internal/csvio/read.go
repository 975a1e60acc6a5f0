// Package csvio reads raw scrape output and reads/writes canonical job files.
package csvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
)

// Input-level errors. Callers test with errors.Is.
var (
	ErrMissingFile  = errors.New("input file not found")
	ErrEmptyFile    = errors.New("input file is empty")
	ErrMalformedRow = errors.New("malformed row")
)

const bom = "\uFEFF"

// RowError describes a skipped row.
type RowError struct {
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s: %s", e.Line, ErrMalformedRow, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformedRow.
func (e *RowError) Unwrap() error {
	return ErrMalformedRow
}

// Table is a parsed file: lower-cased header plus column-keyed rows.
type Table struct {
	Header  []string
	Rows    []map[string]string
	Skipped []*RowError
}

// ReadTable parses a CSV file. A leading UTF-8 BOM is ignored. Rows whose
// field count differs from the header, or that fail to parse, are skipped
// and reported in Skipped.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	return parse(f, path)
}

func parse(r io.Reader, name string) (*Table, error) {
	br := bufio.NewReader(r)
	if peek, err := br.Peek(len(bom)); err == nil && string(peek) == bom {
		_, _ = br.Discard(len(bom))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", name, err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, bom)))
	}

	t := &Table{Header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				t.Skipped = append(t.Skipped, &RowError{Line: perr.StartLine, Reason: perr.Err.Error()})
				continue
			}
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if len(row) != len(header) {
			line, _ := cr.FieldPos(0)
			t.Skipped = append(t.Skipped, &RowError{
				Line:   line,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(header), len(row)),
			})
			continue
		}
		fields := make(map[string]string, len(header))
		for i, col := range header {
			fields[col] = row[i]
		}
		t.Rows = append(t.Rows, fields)
	}
	return t, nil
}

// ReadRaw reads a raw scrape file. Missing optional columns are tolerated;
// a file with a header but no rows yields ErrEmptyFile.
func ReadRaw(path string) ([]jobs.RawRecord, []*RowError, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, nil, err
	}
	if len(t.Rows) == 0 {
		return nil, t.Skipped, fmt.Errorf("%w: %s has no rows", ErrEmptyFile, path)
	}
	out := make([]jobs.RawRecord, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = jobs.RawRecord(row)
	}
	return out, t.Skipped, nil
}

// ReadCanonical reads a canonical file. Columns absent from the file keep
// their canonical defaults.
func ReadCanonical(path string) ([]jobs.Record, []*RowError, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, nil, err
	}
	out := make([]jobs.Record, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = jobs.FromFields(row)
	}
	return out, t.Skipped, nil
}
