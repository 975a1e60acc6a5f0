package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/EmnaWalha99/Job-Portal/internal/app"
	"github.com/EmnaWalha99/Job-Portal/internal/config"
	"github.com/EmnaWalha99/Job-Portal/internal/export"
	"github.com/EmnaWalha99/Job-Portal/internal/orchestrator"
)

func TestMain(m *testing.M) {
	// Every pipeline registers its progress collectors; keep them off the
	// global registry so several commands can run in one process.
	newApp = func(cfg config.Config, logger *zap.Logger) (*app.App, error) {
		return app.New(cfg, logger, app.WithRegisterer(prometheus.NewRegistry()))
	}
	os.Exit(m.Run())
}

// writeConfig writes a config rooted in a temp dir with a memory store.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`
logging:
  development: false
paths:
  raw_dir: %s
  cleaned_dir: %s
storage:
  driver: memory
%s`, filepath.Join(dir, "raw"), filepath.Join(dir, "cleaned"), extra)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opts := &rootOptions{}
	root := newRootCmd(opts)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	opts.closeApp(context.Background())
	return out.String(), err
}

func TestApplyFlagOverrides(t *testing.T) {
	cmd := newPipelineCmd(&rootOptions{})
	require.NoError(t, cmd.ParseFlags([]string{"--scrape-timeout", "30", "--sources", "keejob,tanitjobs"}))

	var cfg config.Config
	require.NoError(t, applyFlagOverrides(cmd, &cfg))
	assert.Equal(t, 30*time.Second, cfg.Pipeline.ScrapeTimeout)
	assert.Equal(t, []string{"keejob", "tanitjobs"}, cfg.Pipeline.Sources)

	bad := newPipelineCmd(&rootOptions{})
	require.NoError(t, bad.ParseFlags([]string{"--scrape-timeout", "0"}))
	require.ErrorContains(t, applyFlagOverrides(bad, &cfg), "--scrape-timeout")

	// Commands without run flags leave the config alone.
	cfg = config.Config{}
	require.NoError(t, applyFlagOverrides(newLoadCmd(), &cfg))
	assert.Zero(t, cfg.Pipeline.ScrapeTimeout)
}

func TestStageCommands(t *testing.T) {
	cmds, err := stageCommands(config.PipelineConfig{Executable: "/usr/local/bin/jobportal"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/local/bin/jobportal", "scrape", "--source", orchestrator.SourcePlaceholder}, cmds.Scrape)
	assert.Equal(t, []string{"/usr/local/bin/jobportal", "load"}, cmds.Load)

	abs, err := filepath.Abs("jobportal.yaml")
	require.NoError(t, err)
	cmds, err = stageCommands(config.PipelineConfig{
		Executable: "/usr/local/bin/jobportal",
		Commands: config.CommandConfig{
			Scrape: []string{"python", "scrape.py", "{source}"},
		},
	}, "jobportal.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "scrape.py", "{source}"}, cmds.Scrape)
	assert.Equal(t, []string{"/usr/local/bin/jobportal", "clean", "--source", orchestrator.SourcePlaceholder, "--config", abs}, cmds.Clean)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, exitCode(nil))
	assert.Equal(t, ExitFailure, exitCode(errors.New("boom")))
	assert.Equal(t, ExitFailure, exitCode(fmt.Errorf("pipeline: %w", orchestrator.ErrLoadFailed)))
	assert.Equal(t, ExitCanceled, exitCode(fmt.Errorf("scrape: %w", context.Canceled)))
}

func TestResolveAppWithoutApp(t *testing.T) {
	_, err := resolveApp(context.Background())
	require.ErrorContains(t, err, "not initialized")
}

func TestCleanSkipsMissingRawFile(t *testing.T) {
	out, err := runRoot(t, "clean", "--source", "keejob", "--config", writeConfig(t, ""))
	require.NoError(t, err)
	assert.Contains(t, out, "keejob: skipped")
}

func TestCleanRejectsUnknownSource(t *testing.T) {
	_, err := runRoot(t, "clean", "--source", "linkedin", "--config", writeConfig(t, ""))
	require.ErrorContains(t, err, "unknown source")
}

func TestLoadWithNoCanonicalFiles(t *testing.T) {
	out, err := runRoot(t, "load", "--config", writeConfig(t, ""))
	require.NoError(t, err)
	assert.Contains(t, out, "loaded 0 files")
}

func TestListEmptyStore(t *testing.T) {
	out, err := runRoot(t, "list", "--search", "go", "--config", writeConfig(t, ""))
	require.NoError(t, err)
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "no jobs (total 0)")
}

func TestListRejectsBadLimit(t *testing.T) {
	_, err := runRoot(t, "list", "--limit", "500", "--config", writeConfig(t, ""))
	require.ErrorContains(t, err, "limit")
}

func TestExportWithoutCanonicalFiles(t *testing.T) {
	out := filepath.Join(t.TempDir(), "jobs.xlsx")
	_, err := runRoot(t, "export", "--out", out, "--config", writeConfig(t, ""))
	require.ErrorIs(t, err, export.ErrNothingToExport)
}

func TestInvalidConfigFailsBeforeRun(t *testing.T) {
	_, err := runRoot(t, "load", "--config", writeConfig(t, "server:\n  port: 0\n"))
	require.ErrorContains(t, err, "server.port")
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serveHTTP(ctx, zap.NewNop(), "127.0.0.1:0", nil, time.Second)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
