// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmnaWalha99/Job-Portal/internal/app"
	"github.com/EmnaWalha99/Job-Portal/internal/config"
	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/orchestrator"
	memstore "github.com/EmnaWalha99/Job-Portal/internal/storage/memory"
	"github.com/EmnaWalha99/Job-Portal/internal/storage/sqlite"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.Paths.RawDir = filepath.Join(dir, "raw")
	cfg.Paths.CleanedDir = filepath.Join(dir, "cleaned")
	cfg.Storage.Driver = config.DriverMemory
	return cfg
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "mongo"

	_, err := app.New(cfg, nil)
	require.ErrorContains(t, err, "storage.driver")
}

func TestNewResolvesSources(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.Sources = []string{"tanitjobs", "keejob"}

	a, err := app.New(cfg, nil)
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.Equal(t, []jobs.Source{jobs.SourceTanitJobs, jobs.SourceKeejob}, a.Sources())
	assert.Equal(t, cfg.Paths.CleanedDir, a.Paths().CleanedDir)
	assert.NotNil(t, a.Logger())
	assert.NotNil(t, a.Cleaner())
	assert.NotNil(t, a.Exporter())
	assert.Equal(t, "Africa/Tunis", a.Clock().Now().Location().String())
}

func TestStoresAreOpenedOnce(t *testing.T) {
	cfg := testConfig(t)
	a, err := app.New(cfg, nil)
	require.NoError(t, err)
	defer a.Close(context.Background())

	ctx := context.Background()
	js, rs, err := a.Stores(ctx)
	require.NoError(t, err)
	assert.IsType(t, &memstore.JobStore{}, js)
	assert.IsType(t, &memstore.RunStore{}, rs)

	js2, rs2, err := a.Stores(ctx)
	require.NoError(t, err)
	assert.Same(t, js, js2)
	assert.Same(t, rs, rs2)

	l, err := a.Loader(ctx)
	require.NoError(t, err)
	res, err := l.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Inserted)

	srv, err := a.APIServer(ctx)
	require.NoError(t, err)
	assert.NotNil(t, srv.Handler())
}

func TestSQLiteStoreServesJobsAndRuns(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = config.DriverSQLite
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "jobs.db")

	a, err := app.New(cfg, nil)
	require.NoError(t, err)
	defer a.Close(context.Background())

	js, rs, err := a.Stores(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, js)
	assert.Same(t, js, rs)
}

func TestPipelineIsBuiltOnce(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notify.Driver = config.DriverMemory
	cfg.Archive.Driver = config.DriverLocal
	cfg.Archive.Dir = filepath.Join(t.TempDir(), "archive")

	a, err := app.New(cfg, nil, app.WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)

	ctx := context.Background()
	cmds := orchestrator.DefaultCommands("/bin/true")
	p, err := a.Pipeline(ctx, cmds)
	require.NoError(t, err)
	require.NotNil(t, p)

	again, err := a.Pipeline(ctx, cmds)
	require.NoError(t, err)
	assert.Same(t, p, again)

	a.Close(ctx)
	a.Close(ctx)
}
