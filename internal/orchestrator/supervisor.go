package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/EmnaWalha99/Job-Portal/internal/logging"
)

// DefaultGrace is the wait between the graceful and the forced signal.
const DefaultGrace = 3 * time.Second

// ErrProcessTimeout marks a task that exceeded its bound and was terminated.
var ErrProcessTimeout = errors.New("process timeout")

// Runner executes one task to completion.
type Runner interface {
	Run(ctx context.Context, task Task) TaskResult
}

// Supervisor runs tasks as OS processes, each in its own process group. On
// timeout or cancellation the whole group receives SIGTERM, then SIGKILL after
// Grace if anything is still alive.
type Supervisor struct {
	grace     time.Duration
	tailBytes int
	dir       string
	env       []string
	logger    *zap.Logger
	now       func() time.Time
}

// SupervisorOption customizes a Supervisor.
type SupervisorOption func(*Supervisor)

// WithGrace sets the window between SIGTERM and SIGKILL.
func WithGrace(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithTailBytes bounds the captured output per task.
func WithTailBytes(n int) SupervisorOption {
	return func(s *Supervisor) {
		if n > 0 {
			s.tailBytes = n
		}
	}
}

// WithDir sets the working directory of child processes.
func WithDir(dir string) SupervisorOption {
	return func(s *Supervisor) { s.dir = dir }
}

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func WithEnv(env ...string) SupervisorOption {
	return func(s *Supervisor) { s.env = append(s.env, env...) }
}

// WithSupervisorLogger sets the logger.
func WithSupervisorLogger(logger *zap.Logger) SupervisorOption {
	return func(s *Supervisor) { s.logger = logging.OrNop(logger) }
}

// NewSupervisor constructs a Supervisor.
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		grace:     DefaultGrace,
		tailBytes: DefaultTailBytes,
		logger:    zap.NewNop(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts task and blocks until its process group is gone. It never
// returns an error: spawn failures, non-zero exits, timeouts and
// cancellation are all reported through the result status.
func (s *Supervisor) Run(ctx context.Context, task Task) TaskResult {
	res := TaskResult{Stage: task.Stage, Source: task.Source, Start: s.now(), ExitCode: -1}
	log := s.logger.With(zap.String("task", task.Name()))
	finish := func(status TaskStatus, err error) TaskResult {
		res.Status = status
		res.End = s.now()
		res.Duration = res.End.Sub(res.Start)
		res.Err = err
		if err != nil {
			res.Error = err.Error()
		}
		return res
	}

	if len(task.Argv) == 0 {
		return finish(StatusSpawnError, errors.New("empty command"))
	}
	if err := ctx.Err(); err != nil {
		return finish(StatusCanceled, err)
	}

	tail := newTailBuffer(s.tailBytes)
	cmd := exec.Command(task.Argv[0], task.Argv[1:]...) //nolint:gosec // argv comes from configuration
	cmd.Dir = s.dir
	if len(s.env) > 0 {
		cmd.Env = append(os.Environ(), s.env...)
	}
	cmd.Stdout = tail
	cmd.Stderr = tail
	// Descendants that escape the group could keep the pipes open forever.
	cmd.WaitDelay = s.grace
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return finish(StatusSpawnError, fmt.Errorf("start %s: %w", task.Argv[0], err))
	}
	log.Debug("task started", zap.Int("pid", cmd.Process.Pid), zap.Strings("argv", task.Argv))

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var deadline <-chan time.Time
	if task.Timeout > 0 {
		timer := time.NewTimer(task.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	var status TaskStatus
	var runErr error
	select {
	case err := <-done:
		status, runErr = classifyExit(err)
		// Background descendants must not outlive the stage.
		if killErr := signalGroup(cmd, true); killErr != nil {
			log.Warn("kill leftover process group failed", zap.Error(killErr))
		}
	case <-deadline:
		log.Warn("task exceeded timeout, terminating process group", zap.Duration("timeout", task.Timeout))
		s.terminate(cmd, done, log)
		status, runErr = StatusTimedOut, fmt.Errorf("%w after %s", ErrProcessTimeout, task.Timeout)
	case <-ctx.Done():
		log.Warn("run canceled, terminating process group")
		s.terminate(cmd, done, log)
		status, runErr = StatusCanceled, ctx.Err()
	}

	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	res.Tail = tail.String()
	return finish(status, runErr)
}

// terminate signals the group gracefully, escalates after the grace window
// and waits for Wait to return.
func (s *Supervisor) terminate(cmd *exec.Cmd, done <-chan error, log *zap.Logger) {
	if err := signalGroup(cmd, false); err != nil {
		log.Warn("graceful signal failed", zap.Error(err))
	}
	grace := time.NewTimer(s.grace)
	defer grace.Stop()
	select {
	case <-done:
		// The leader is gone; make sure its descendants are too.
		_ = signalGroup(cmd, true)
		return
	case <-grace.C:
	}
	log.Warn("process group ignored SIGTERM, killing", zap.Duration("grace", s.grace))
	if err := signalGroup(cmd, true); err != nil {
		log.Warn("forced kill failed", zap.Error(err))
	}
	<-done
}

func classifyExit(err error) (TaskStatus, error) {
	if err == nil {
		return StatusSucceeded, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return StatusFailed, fmt.Errorf("exit status %d", exitErr.ExitCode())
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		// The process exited cleanly but left descendants holding its output.
		return StatusSucceeded, nil
	}
	return StatusFailed, err
}
