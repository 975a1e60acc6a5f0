// Package export writes the canonical per-source files into one XLSX
// workbook, one sheet per source.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/EmnaWalha99/Job-Portal/internal/cleaner"
	"github.com/EmnaWalha99/Job-Portal/internal/csvio"
	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
)

// ErrNothingToExport is returned when no source has a canonical file.
var ErrNothingToExport = errors.New("no canonical files to export")

const defaultSheet = "Sheet1"

// longColumns are given a wider column.
var longColumns = map[string]float64{
	jobs.ColTitle:       36,
	jobs.ColDetailLink:  48,
	jobs.ColDescription: 60,
	jobs.ColSkills:      36,
}

// Result reports what was written.
type Result struct {
	Path   string
	Sheets map[jobs.Source]int
}

// Exporter builds workbooks from the cleaned directory.
type Exporter struct {
	paths   cleaner.Paths
	sources []jobs.Source
	logger  *zap.Logger
}

// New creates an Exporter over sources. An empty list means every source.
func New(paths cleaner.Paths, sources []jobs.Source, logger *zap.Logger) *Exporter {
	if len(sources) == 0 {
		sources = jobs.Sources()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{paths: paths, sources: sources, logger: logger.Named("export")}
}

// Export writes the workbook to out. Sources without a canonical file are
// skipped; a source with an empty file still gets a header-only sheet.
func (e *Exporter) Export(out string) (*Result, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DCE6F1"}},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	res := &Result{Path: out, Sheets: make(map[jobs.Source]int)}
	for _, src := range e.sources {
		records, skipped, err := csvio.ReadCanonical(e.paths.CleanedFile(src))
		switch {
		case errors.Is(err, csvio.ErrMissingFile):
			e.logger.Warn("canonical file missing, skipping", zap.String("source", string(src)))
			continue
		case errors.Is(err, csvio.ErrEmptyFile):
			records = nil
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", src, err)
		}
		if len(skipped) > 0 {
			e.logger.Warn("malformed canonical rows skipped",
				zap.String("source", string(src)), zap.Int("rows", len(skipped)))
		}
		if err := writeSheet(f, string(src), header, records); err != nil {
			return nil, fmt.Errorf("write sheet %s: %w", src, err)
		}
		res.Sheets[src] = len(records)
	}
	if len(res.Sheets) == 0 {
		return nil, ErrNothingToExport
	}
	if err := f.DeleteSheet(defaultSheet); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	if err := f.SaveAs(out); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	e.logger.Info("export written",
		zap.String("path", out),
		zap.Int("sheets", len(res.Sheets)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, records []jobs.Record) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	for i, col := range jobs.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, col); err != nil {
			return err
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := 16.0
		if w, ok := longColumns[col]; ok {
			width = w
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(jobs.Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, rec := range records {
		row := r + 2
		for i, col := range jobs.Columns {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return err
			}
			if err := writeCell(f, sheet, cell, col, rec); err != nil {
				return err
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	lastRow, err := excelize.CoordinatesToCellName(len(jobs.Columns), len(records)+1)
	if err != nil {
		return err
	}
	return f.AutoFilter(sheet, "A1:"+lastRow, nil)
}

// writeCell stores salaries as numbers so they sort and sum in a spreadsheet.
func writeCell(f *excelize.File, sheet, cell, col string, rec jobs.Record) error {
	var salary *float64
	switch col {
	case jobs.ColSalaryMin:
		salary = rec.SalaryMin
	case jobs.ColSalaryMax:
		salary = rec.SalaryMax
	default:
		return f.SetCellStr(sheet, cell, rec.Field(col))
	}
	if salary == nil {
		return nil
	}
	return f.SetCellFloat(sheet, cell, *salary, -1, 64)
}
