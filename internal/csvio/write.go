package csvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
)

// WriteCanonical writes records in jobs.Columns order to path atomically: the
// data goes to a temp file in the same directory which is then renamed over
// path. The parent directory is created if absent.
func WriteCanonical(path string, records []jobs.Record) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if _, err = bw.WriteString(bom); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	w := csv.NewWriter(bw)
	if err = w.Write(jobs.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err = w.Write(rec.Values()); err != nil {
			return fmt.Errorf("write record %s: %w", rec.JobID, err)
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("flush file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// RawWriter appends raw rows to a scrape output file, flushing after every
// row so a killed scraper leaves every completed row on disk.
type RawWriter struct {
	f      *os.File
	w      *csv.Writer
	header []string
	rows   int
}

// NewRawWriter truncates path and writes header.
func NewRawWriter(path string, header []string) (*RawWriter, error) {
	if len(header) == 0 {
		return nil, errors.New("raw header is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create raw directory: %w", err)
	}
	f, err := os.Create(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("create raw file: %w", err)
	}
	rw := &RawWriter{f: f, w: csv.NewWriter(f), header: append([]string(nil), header...)}
	if err := rw.writeLine(rw.header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return rw, nil
}

// Write appends one row; absent keys are written empty.
func (rw *RawWriter) Write(row jobs.RawRecord) error {
	line := make([]string, len(rw.header))
	for i, col := range rw.header {
		line[i] = row[col]
	}
	if err := rw.writeLine(line); err != nil {
		return err
	}
	rw.rows++
	return nil
}

// Rows reports how many data rows were written.
func (rw *RawWriter) Rows() int {
	return rw.rows
}

func (rw *RawWriter) writeLine(line []string) error {
	if err := rw.w.Write(line); err != nil {
		return fmt.Errorf("write raw row: %w", err)
	}
	rw.w.Flush()
	if err := rw.w.Error(); err != nil {
		return fmt.Errorf("flush raw row: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (rw *RawWriter) Close() error {
	rw.w.Flush()
	if err := rw.w.Error(); err != nil {
		_ = rw.f.Close()
		return fmt.Errorf("flush raw file: %w", err)
	}
	if err := rw.f.Close(); err != nil {
		return fmt.Errorf("close raw file: %w", err)
	}
	return nil
}
