package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/logging"
	"github.com/EmnaWalha99/Job-Portal/internal/metrics"
	"github.com/EmnaWalha99/Job-Portal/internal/progress"
)

// Stage bounds.
const (
	DefaultScrapeTimeout = 120 * time.Second
	DefaultCleanTimeout  = 300 * time.Second
	DefaultLoadTimeout   = 600 * time.Second
)

// Run-level failures returned by Pipeline.Run alongside the summary.
var (
	ErrAllCleanTasksFailed = errors.New("all clean tasks failed")
	ErrLoadFailed          = errors.New("load failed")
)

// Clock supplies timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	NewRawID() (uuid.UUID, error)
}

// Archiver copies the run's canonical output somewhere durable after a
// successful load. It reports how many objects were written.
type Archiver interface {
	Archive(ctx context.Context, runID string) (int, error)
}

// Config describes one pipeline.
type Config struct {
	Sources       []jobs.Source
	Commands      CommandSet
	ScrapeTimeout time.Duration
	CleanTimeout  time.Duration
	LoadTimeout   time.Duration
}

// Pipeline drives scrape → clean → load.
type Pipeline struct {
	cfg      Config
	runner   Runner
	emitter  progress.Emitter
	archiver Archiver
	clock    Clock
	ids      IDGenerator
	logger   *zap.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithEmitter sets the progress emitter.
func WithEmitter(e progress.Emitter) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.emitter = e
		}
	}
}

// WithArchiver enables post-load archiving.
func WithArchiver(a Archiver) Option {
	return func(p *Pipeline) { p.archiver = a }
}

// WithClock overrides the clock.
func WithClock(c Clock) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(g IDGenerator) Option {
	return func(p *Pipeline) {
		if g != nil {
			p.ids = g
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logging.OrNop(logger) }
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

type v7Generator struct{}

func (v7Generator) NewRawID() (uuid.UUID, error) { return uuid.NewV7() }

// New constructs a Pipeline. Zero timeouts take the stage defaults.
func New(cfg Config, runner Runner, opts ...Option) (*Pipeline, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if len(cfg.Sources) == 0 {
		return nil, errors.New("at least one source is required")
	}
	if len(cfg.Commands.Scrape) == 0 || len(cfg.Commands.Clean) == 0 || len(cfg.Commands.Load) == 0 {
		return nil, errors.New("scrape, clean and load commands are required")
	}
	if cfg.ScrapeTimeout <= 0 {
		cfg.ScrapeTimeout = DefaultScrapeTimeout
	}
	if cfg.CleanTimeout <= 0 {
		cfg.CleanTimeout = DefaultCleanTimeout
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	p := &Pipeline{
		cfg:     cfg,
		runner:  runner,
		emitter: progress.Nop,
		clock:   utcClock{},
		ids:     v7Generator{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("pipeline")
	return p, nil
}

// run carries the state of one Run call.
type run struct {
	p       *Pipeline
	id      uuid.UUID
	machine *Machine
	summary *RunSummary
	log     *zap.Logger
}

// Run executes the pipeline. The summary is always returned; the error is
// non-nil exactly when the run did not reach DONE.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	id, err := p.ids.NewRawID()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	r := &run{
		p:       p,
		id:      id,
		machine: NewMachine(),
		summary: &RunSummary{RunID: id.String(), Start: p.clock.Now(), State: StateInit},
		log:     p.logger.With(zap.String("run_id", id.String())),
	}
	r.log.Info("pipeline started", zap.Int("sources", len(p.cfg.Sources)), zap.Duration("scrape_timeout", p.cfg.ScrapeTimeout))
	r.emit(progress.Event{Kind: progress.KindRunStart})

	runErr := r.execute(ctx)
	return r.finish(runErr), runErr
}

func (r *run) execute(ctx context.Context) error {
	cfg := r.p.cfg

	// Scrape is best effort: any number of successes, including zero, continues.
	if err := r.enter(ctx, StateScraping); err != nil {
		return err
	}
	r.stage(ctx, StageScrape, r.perSource(cfg.Commands.Scrape, StageScrape, cfg.ScrapeTimeout))

	if err := r.enter(ctx, StateCleaning); err != nil {
		return err
	}
	clean := r.stage(ctx, StageClean, r.perSource(cfg.Commands.Clean, StageClean, cfg.CleanTimeout))
	if err := ctx.Err(); err != nil {
		return r.cancel(err)
	}
	if clean.Succeeded == 0 {
		if err := r.machine.Transition(StateAborted); err != nil {
			return err
		}
		return fmt.Errorf("%w (%d tasks)", ErrAllCleanTasksFailed, clean.Total)
	}

	if err := r.enter(ctx, StateLoading); err != nil {
		return err
	}
	load := r.stage(ctx, StageLoad, []Task{{Stage: StageLoad, Argv: cfg.Commands.Load, Timeout: cfg.LoadTimeout}})
	if err := ctx.Err(); err != nil {
		return r.cancel(err)
	}
	if load.Succeeded == 0 {
		if err := r.machine.Transition(StateFailed); err != nil {
			return err
		}
		cause := "load task failed"
		if len(load.Tasks) > 0 && load.Tasks[0].Error != "" {
			cause = load.Tasks[0].Error
		}
		return fmt.Errorf("%w: %s", ErrLoadFailed, cause)
	}
	if err := r.machine.Transition(StateDone); err != nil {
		return err
	}
	r.archive(ctx)
	return nil
}

// enter moves to next unless the run was canceled first.
func (r *run) enter(ctx context.Context, next State) error {
	if err := ctx.Err(); err != nil {
		return r.cancel(err)
	}
	if err := r.machine.Transition(next); err != nil {
		return err
	}
	r.log.Info("stage transition", zap.String("state", string(next)))
	return nil
}

func (r *run) cancel(cause error) error {
	if err := r.machine.Transition(StateCanceled); err != nil {
		return err
	}
	return fmt.Errorf("pipeline canceled: %w", cause)
}

func (r *run) perSource(argv []string, stage Stage, timeout time.Duration) []Task {
	tasks := make([]Task, 0, len(r.p.cfg.Sources))
	for _, src := range r.p.cfg.Sources {
		tasks = append(tasks, Task{Stage: stage, Source: src, Argv: Expand(argv, src), Timeout: timeout})
	}
	return tasks
}

// stage runs tasks concurrently and waits for every one of them, so no work
// crosses a stage boundary. Results keep task order.
func (r *run) stage(ctx context.Context, stage Stage, tasks []Task) StageSummary {
	r.emit(progress.Event{Kind: progress.KindStageStart, Stage: string(stage), Total: len(tasks)})
	started := r.p.clock.Now()

	results := make([]TaskResult, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			res := r.p.runner.Run(ctx, task)
			results[i] = res
			r.logTask(res)
			metrics.ObserveTask(string(res.Stage), string(res.Status), res.Duration)
			r.emit(progress.Event{
				Kind:   progress.KindTaskDone,
				Stage:  string(stage),
				Source: string(res.Source),
				Status: string(res.Status),
				Dur:    res.Duration,
				Note:   res.Error,
			})
		}(i, task)
	}
	wg.Wait()

	summary := newStageSummary(stage, results)
	r.summary.Stages = append(r.summary.Stages, summary)
	r.log.Info("stage finished",
		zap.String("stage", string(stage)),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("total", summary.Total),
	)
	r.emit(progress.Event{
		Kind:      progress.KindStageDone,
		Stage:     string(stage),
		Succeeded: summary.Succeeded,
		Total:     summary.Total,
		Dur:       r.p.clock.Now().Sub(started),
	})
	return summary
}

func (r *run) logTask(res TaskResult) {
	fields := []zap.Field{
		zap.String("stage", string(res.Stage)),
		zap.String("status", string(res.Status)),
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", res.Duration),
	}
	if res.Source != "" {
		fields = append(fields, zap.String("source", string(res.Source)))
	}
	if res.Succeeded() {
		r.log.Info("task finished", fields...)
		return
	}
	fields = append(fields, zap.String("error", res.Error), zap.String("output_tail", res.Tail))
	r.log.Warn("task failed", fields...)
}

// archive never changes the run outcome.
func (r *run) archive(ctx context.Context) {
	if r.p.archiver == nil {
		return
	}
	n, err := r.p.archiver.Archive(ctx, r.summary.RunID)
	if err != nil {
		r.log.Warn("archive failed", zap.Error(err))
		return
	}
	r.summary.Archived = n
	r.log.Info("canonical files archived", zap.Int("objects", n))
}

func (r *run) finish(runErr error) *RunSummary {
	s := r.summary
	s.End = r.p.clock.Now()
	s.Duration = s.End.Sub(s.Start)
	s.State = r.machine.Current()
	s.Success = s.State == StateDone
	if runErr != nil {
		s.Error = runErr.Error()
	}
	metrics.ObserveRun(string(s.State))

	payload, err := s.JSON()
	if err != nil {
		r.log.Warn("encode run summary", zap.Error(err))
	}
	succeeded, total := 0, 0
	for _, st := range s.Stages {
		succeeded += st.Succeeded
		total += st.Total
	}
	r.emit(progress.Event{
		Kind:      progress.KindRunDone,
		Succeeded: succeeded,
		Total:     total,
		Dur:       s.Duration,
		Note:      s.Error,
		Payload:   payload,
	})
	level := zap.InfoLevel
	if !s.Success {
		level = zap.ErrorLevel
	}
	r.log.Log(level, "pipeline finished",
		zap.String("state", string(s.State)),
		zap.Bool("success", s.Success),
		zap.Duration("duration", s.Duration),
		zap.NamedError("cause", runErr),
	)
	return s
}

func (r *run) emit(evt progress.Event) {
	evt.RunID = r.id
	evt.TS = r.p.clock.Now()
	evt.State = string(r.machine.Current())
	r.p.emitter.Emit(evt)
}
