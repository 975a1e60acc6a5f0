// Package loader moves canonical files into the job store.
package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/EmnaWalha99/Job-Portal/internal/cleaner"
	"github.com/EmnaWalha99/Job-Portal/internal/csvio"
	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/metrics"
	"github.com/EmnaWalha99/Job-Portal/internal/storage"
)

// ErrLoadFailure marks a load that wrote nothing.
var ErrLoadFailure = errors.New("load failure")

// NameIDer derives a deterministic id from a name.
type NameIDer interface {
	FromName(name string) string
}

// Result summarizes one load.
type Result struct {
	Files    int            `json:"files"`
	Read     int            `json:"read"`
	Inserted int            `json:"inserted"`
	Skipped  int            `json:"skipped"`
	Derived  int            `json:"derived_ids"`
	BySource map[string]int `json:"by_source"`
}

// Loader reads every source's canonical file and inserts unseen records.
type Loader struct {
	store   storage.JobStore
	paths   cleaner.Paths
	sources []jobs.Source
	ids     NameIDer
	logger  *zap.Logger
}

// New constructs a Loader.
func New(store storage.JobStore, paths cleaner.Paths, sources []jobs.Source, ids NameIDer, logger *zap.Logger) (*Loader, error) {
	if store == nil {
		return nil, errors.New("job store is required")
	}
	if ids == nil {
		return nil, errors.New("id generator is required")
	}
	if len(sources) == 0 {
		return nil, errors.New("at least one source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		store:   store,
		paths:   paths,
		sources: append([]jobs.Source(nil), sources...),
		ids:     ids,
		logger:  logger.Named("loader"),
	}, nil
}

// Load reads all canonical files concurrently, then inserts their records in
// one transaction. Any read or store error aborts the whole load with
// ErrLoadFailure and nothing is written.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	batches := make([][]jobs.Record, len(l.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range l.sources {
		g.Go(func() error {
			recs, err := l.read(gctx, src)
			if err != nil {
				return err
			}
			batches[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailure, err)
	}

	res := &Result{BySource: make(map[string]int, len(l.sources))}
	var all []jobs.Record
	for i, recs := range batches {
		if recs == nil {
			continue
		}
		res.Files++
		res.BySource[string(l.sources[i])] = len(recs)
		for _, rec := range recs {
			if rec.JobID == "" {
				rec.JobID = l.ids.FromName(FallbackName(rec))
				res.Derived++
			}
			all = append(all, rec)
		}
	}
	res.Read = len(all)

	inserted, err := l.store.InsertNew(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailure, err)
	}
	res.Inserted = inserted
	res.Skipped = res.Read - inserted
	metrics.ObserveLoad(res.Inserted, res.Skipped)

	l.logger.Info("load complete",
		zap.Int("files", res.Files),
		zap.Int("read", res.Read),
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped_existing", res.Skipped),
		zap.Int("derived_ids", res.Derived),
	)
	return res, nil
}

// read returns nil when the source has no usable canonical file.
func (l *Loader) read(ctx context.Context, src jobs.Source) ([]jobs.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := l.paths.CleanedFile(src)
	log := l.logger.With(zap.String("source", string(src)), zap.String("path", path))
	recs, skipped, err := csvio.ReadCanonical(path)
	switch {
	case errors.Is(err, csvio.ErrMissingFile), errors.Is(err, csvio.ErrEmptyFile):
		log.Warn("canonical file unavailable; source skipped", zap.Error(err))
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	for _, rowErr := range skipped {
		log.Warn("malformed canonical row skipped", zap.Int("line", rowErr.Line), zap.Error(rowErr))
	}
	return recs, nil
}

// FallbackName is the UUIDv5 name used for records lacking a job_id.
func FallbackName(rec jobs.Record) string {
	return strings.Join([]string{rec.DetailLink, rec.Title, rec.Company, rec.DatePublication}, "|")
}
