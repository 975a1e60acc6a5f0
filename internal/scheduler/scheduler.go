// Package scheduler runs the pipeline on a cron spec inside the process.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSpec fires every six hours.
const DefaultSpec = "@every 6h"

// RunFunc is one scheduled pipeline run.
type RunFunc func(ctx context.Context) error

// Scheduler wraps robfig/cron. A tick that lands while the previous run is
// still going is skipped.
type Scheduler struct {
	cron       *cron.Cron
	spec       string
	run        RunFunc
	runOnStart bool
	logger     *zap.Logger

	job     cron.Job
	runs    atomic.Int64
	skipped atomic.Int64
}

// New validates spec (standard five fields or a descriptor such as
// "@every 6h") and creates a stopped Scheduler.
func New(spec string, run RunFunc, runOnStart bool, logger *zap.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("schedule.spec %q: %w", spec, err)
	}
	if run == nil {
		return nil, errors.New("run func is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("scheduler")
	s := &Scheduler{
		spec:       spec,
		run:        run,
		runOnStart: runOnStart,
		logger:     logger,
	}
	s.cron = cron.New(cron.WithLogger(cronLogger{s: s, logger: logger}))
	return s, nil
}

// Start registers the job bound to ctx and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	cl := cronLogger{s: s, logger: s.logger}
	s.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).
		Then(cron.FuncJob(func() { s.fire(ctx) }))
	if _, err := s.cron.AddJob(s.spec, s.job); err != nil {
		return fmt.Errorf("cron.AddJob: %w", err)
	}
	s.cron.Start()
	s.logger.Info("cron started", zap.String("spec", s.spec))
	if s.runOnStart {
		go s.job.Run()
	}
	return nil
}

// Stop halts the cron loop and returns a context done once the running job
// (if any) has finished.
func (s *Scheduler) Stop() context.Context {
	done := s.cron.Stop()
	s.logger.Info("cron stopped")
	return done
}

// Run starts the scheduler and blocks until ctx is cancelled and any
// in-flight run has returned.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	<-s.Stop().Done()
	return nil
}

// Runs reports how many runs started.
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

// Skipped reports how many ticks were skipped because a run was in flight.
func (s *Scheduler) Skipped() int64 { return s.skipped.Load() }

func (s *Scheduler) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n := s.runs.Add(1)
	s.logger.Info("scheduled run started", zap.Int64("run", n))
	if err := s.run(ctx); err != nil {
		s.logger.Error("scheduled run failed", zap.Int64("run", n), zap.Error(err))
		return
	}
	s.logger.Info("scheduled run finished", zap.Int64("run", n))
}

// cronLogger adapts zap to cron.Logger and counts skipped ticks.
type cronLogger struct {
	s      *Scheduler
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		l.s.skipped.Add(1)
		l.logger.Warn("previous run still in progress, skipping tick")
		return
	}
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
