package orchestrator

import (
	"strings"
	"time"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
)

// Stage names a pipeline phase.
type Stage string

// Pipeline stages.
const (
	StageScrape Stage = "scrape"
	StageClean  Stage = "clean"
	StageLoad   Stage = "load"
)

// SourcePlaceholder is replaced by the source tag in task argv templates.
const SourcePlaceholder = "{source}"

// Task is one supervised process invocation.
type Task struct {
	Stage   Stage
	Source  jobs.Source
	Argv    []string
	Timeout time.Duration
}

// Name identifies the task in logs.
func (t Task) Name() string {
	if t.Source == "" {
		return string(t.Stage)
	}
	return string(t.Stage) + ":" + string(t.Source)
}

// TaskStatus is the outcome of one task.
type TaskStatus string

// Task outcomes. Only StatusSucceeded counts toward a stage's success count.
const (
	StatusSucceeded  TaskStatus = "succeeded"
	StatusFailed     TaskStatus = "failed"
	StatusTimedOut   TaskStatus = "timed_out"
	StatusSpawnError TaskStatus = "spawn_error"
	StatusCanceled   TaskStatus = "canceled"
)

// TaskResult records how a task ended.
type TaskResult struct {
	Stage    Stage         `json:"stage"`
	Source   jobs.Source   `json:"source,omitempty"`
	Status   TaskStatus    `json:"status"`
	ExitCode int           `json:"exit_code"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
	// Tail holds the last bytes of combined stdout and stderr.
	Tail string `json:"-"`
	Err  error  `json:"-"`
}

// Succeeded reports whether the task exited cleanly within its bound.
func (r TaskResult) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// CommandSet holds argv templates per stage.
type CommandSet struct {
	Scrape []string
	Clean  []string
	Load   []string
}

// DefaultCommands re-executes exe for every stage. globalArgs (such as
// --config) are appended after the subcommand.
func DefaultCommands(exe string, globalArgs ...string) CommandSet {
	with := func(args ...string) []string {
		out := append([]string{exe}, args...)
		return append(out, globalArgs...)
	}
	return CommandSet{
		Scrape: with("scrape", "--source", SourcePlaceholder),
		Clean:  with("clean", "--source", SourcePlaceholder),
		Load:   with("load"),
	}
}

// Expand substitutes src into every argument of argv.
func Expand(argv []string, src jobs.Source) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = strings.ReplaceAll(arg, SourcePlaceholder, string(src))
	}
	return out
}
