package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
)

func TestDefaultCommandsExpand(t *testing.T) {
	t.Parallel()

	cmds := DefaultCommands("/usr/local/bin/jobportal", "--config", "config.yaml")
	assert.Equal(t,
		[]string{"/usr/local/bin/jobportal", "scrape", "--source", "keejob", "--config", "config.yaml"},
		Expand(cmds.Scrape, jobs.SourceKeejob),
	)
	assert.Equal(t, []string{"/usr/local/bin/jobportal", "load", "--config", "config.yaml"}, Expand(cmds.Load, jobs.SourceKeejob))
}

func TestExpandInsideArgument(t *testing.T) {
	t.Parallel()

	got := Expand([]string{"python", "scrapers/{source}_scraper.py"}, jobs.SourceTanitJobs)
	assert.Equal(t, []string{"python", "scrapers/tanitjobs_scraper.py"}, got)
}

func TestTaskName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "clean:keejob", Task{Stage: StageClean, Source: jobs.SourceKeejob}.Name())
	assert.Equal(t, "load", Task{Stage: StageLoad}.Name())
}

func TestTailBufferKeepsLastBytes(t *testing.T) {
	t.Parallel()

	tb := newTailBuffer(8)
	_, _ = tb.Write([]byte("hello "))
	_, _ = tb.Write([]byte("world"))
	assert.Equal(t, "lo world", tb.String())
	_, _ = tb.Write([]byte(strings.Repeat("x", 20) + "12345678"))
	assert.Equal(t, "12345678", tb.String())
	assert.EqualValues(t, 39, tb.Total())
}
