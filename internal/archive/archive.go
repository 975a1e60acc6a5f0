// Package archive copies a run's canonical files to a blob store.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/storage"
)

// Archiver writes `<prefix>/<run_id>/<source>_cleaned.csv` for every source
// whose canonical file exists.
type Archiver struct {
	store   storage.BlobStore
	dir     string
	sources []jobs.Source
	prefix  string
	logger  *zap.Logger
}

// DefaultPrefix is the object path prefix for run archives.
const DefaultPrefix = "runs"

// New builds an Archiver that reads canonical files from cleanedDir.
func New(store storage.BlobStore, cleanedDir string, sources []jobs.Source, logger *zap.Logger) (*Archiver, error) {
	if store == nil {
		return nil, errors.New("blob store is required")
	}
	if strings.TrimSpace(cleanedDir) == "" {
		return nil, errors.New("cleaned directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{
		store:   store,
		dir:     cleanedDir,
		sources: append([]jobs.Source(nil), sources...),
		prefix:  DefaultPrefix,
		logger:  logger.Named("archive"),
	}, nil
}

// ObjectPath returns the archive path for a source file of runID.
func (a *Archiver) ObjectPath(runID string, src jobs.Source) string {
	return path.Join(a.prefix, runID, string(src)+"_cleaned.csv")
}

// Archive uploads each canonical file and reports how many were written.
// Missing files are skipped. The first upload error stops the archive.
func (a *Archiver) Archive(ctx context.Context, runID string) (int, error) {
	if runID == "" {
		return 0, errors.New("run id is required")
	}
	written := 0
	for _, src := range a.sources {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		local := filepath.Join(a.dir, string(src)+"_cleaned.csv")
		uri, err := a.put(ctx, local, a.ObjectPath(runID, src))
		if errors.Is(err, os.ErrNotExist) {
			a.logger.Debug("no canonical file to archive", zap.String("source", string(src)))
			continue
		}
		if err != nil {
			return written, fmt.Errorf("archive %s: %w", src, err)
		}
		written++
		a.logger.Info("canonical file archived",
			zap.String("source", string(src)),
			zap.String("uri", uri),
		)
	}
	return written, nil
}

func (a *Archiver) put(ctx context.Context, local, object string) (string, error) {
	f, err := os.Open(local) //nolint:gosec // path is built from configuration
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return a.store.PutObject(ctx, object, "text/csv", f)
}
