// Package cleaner turns one source's raw scrape output into its canonical
// file: map every raw row, merge with the previously cleaned file by job_id,
// then replace the canonical file atomically.
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/EmnaWalha99/Job-Portal/internal/csvio"
	"github.com/EmnaWalha99/Job-Portal/internal/identity"
	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/logging"
	"github.com/EmnaWalha99/Job-Portal/internal/mapper"
	"github.com/EmnaWalha99/Job-Portal/internal/metrics"
)

// Input errors. The clean command treats both as a skipped source.
var (
	ErrMissingInputFile = csvio.ErrMissingFile
	ErrEmptyInputFile   = csvio.ErrEmptyFile
)

// Paths locates raw and canonical files per source.
type Paths struct {
	RawDir     string
	CleanedDir string
}

// RawFile returns <raw_dir>/<source>.csv.
func (p Paths) RawFile(src jobs.Source) string {
	return filepath.Join(p.RawDir, string(src)+".csv")
}

// CleanedFile returns <cleaned_dir>/<source>_cleaned.csv.
func (p Paths) CleanedFile(src jobs.Source) string {
	return filepath.Join(p.CleanedDir, string(src)+"_cleaned.csv")
}

// Result describes one clean run.
type Result struct {
	Source      jobs.Source
	Output      string
	RawRows     int
	SkippedRows int
	Dropped     int
	Merge       identity.MergeStats
	Coverage    *mapper.Coverage
}

// Cleaner runs the clean use case.
type Cleaner struct {
	paths  Paths
	mapper *mapper.Mapper
	logger *zap.Logger
}

// New constructs a Cleaner. A nil mapper uses the default profiles.
func New(paths Paths, m *mapper.Mapper, logger *zap.Logger) *Cleaner {
	if m == nil {
		m = mapper.New()
	}
	return &Cleaner{paths: paths, mapper: m, logger: logging.OrNop(logger).Named("cleaner")}
}

// Clean processes src. Missing or empty raw input returns ErrMissingInputFile
// or ErrEmptyInputFile and leaves the canonical file untouched.
func (c *Cleaner) Clean(ctx context.Context, src jobs.Source) (*Result, error) {
	log := c.logger.With(zap.String("source", string(src)))
	rawPath := c.paths.RawFile(src)

	raws, skipped, err := csvio.ReadRaw(rawPath)
	if err != nil {
		return nil, err
	}
	for _, rowErr := range skipped {
		log.Warn("skipping malformed raw row", zap.Int("line", rowErr.Line), zap.String("reason", rowErr.Reason))
	}
	metrics.ObserveSkippedRows(string(src), len(skipped))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("clean %s: %w", src, err)
	}

	mapped, cov, err := c.mapper.MapBatch(src, raws)
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", src, err)
	}
	incoming := make([]jobs.Record, 0, len(mapped))
	for _, rec := range mapped {
		if rec.JobID == "" {
			continue
		}
		incoming = append(incoming, rec)
	}

	outPath := c.paths.CleanedFile(src)
	previous, err := c.readPrevious(outPath, log)
	if err != nil {
		return nil, err
	}

	merged, stats := identity.Merge(previous, incoming)
	if err := csvio.WriteCanonical(outPath, merged); err != nil {
		return nil, fmt.Errorf("write canonical %s: %w", src, err)
	}

	res := &Result{
		Source:      src,
		Output:      outPath,
		RawRows:     len(raws),
		SkippedRows: len(skipped),
		Dropped:     len(mapped) - len(incoming),
		Merge:       stats,
		Coverage:    cov,
	}
	c.report(log, res)
	return res, nil
}

// readPrevious loads the prior canonical file. Rows written before job_id
// existed get one derived now so they still deduplicate.
func (c *Cleaner) readPrevious(path string, log *zap.Logger) ([]jobs.Record, error) {
	prev, skipped, err := csvio.ReadCanonical(path)
	switch {
	case errors.Is(err, csvio.ErrMissingFile), errors.Is(err, csvio.ErrEmptyFile):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("read previous canonical: %w", err)
	}
	for _, rowErr := range skipped {
		log.Warn("skipping malformed canonical row", zap.Int("line", rowErr.Line), zap.String("reason", rowErr.Reason))
	}
	out := prev[:0]
	for _, rec := range prev {
		if rec.JobID == "" {
			rec.JobID = identity.JobID(rec)
		}
		if rec.JobID == "" {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Cleaner) report(log *zap.Logger, res *Result) {
	ratios := res.Coverage.Ratios()
	fields := make([]zap.Field, 0, len(ratios)+6)
	fields = append(fields,
		zap.Int("raw_rows", res.RawRows),
		zap.Int("previous", res.Merge.Previous),
		zap.Int("new", res.Merge.Added()),
		zap.Int("duplicates", res.Merge.Duplicates),
		zap.Int("total", res.Merge.Total),
		zap.String("output", res.Output),
	)
	for _, col := range jobs.Columns {
		fields = append(fields, zap.Float64("coverage_"+col, ratios[col]))
	}
	log.Info("clean complete", fields...)

	metrics.ObserveMerge(string(res.Source), res.Merge.Added(), res.Merge.Duplicates, res.Merge.Total)
	metrics.SetFieldCoverage(string(res.Source), ratios)
}
