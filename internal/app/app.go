// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/EmnaWalha99/Job-Portal/internal/api"
	"github.com/EmnaWalha99/Job-Portal/internal/archive"
	"github.com/EmnaWalha99/Job-Portal/internal/cache"
	"github.com/EmnaWalha99/Job-Portal/internal/cleaner"
	"github.com/EmnaWalha99/Job-Portal/internal/clock/system"
	"github.com/EmnaWalha99/Job-Portal/internal/config"
	"github.com/EmnaWalha99/Job-Portal/internal/export"
	"github.com/EmnaWalha99/Job-Portal/internal/id/uuid"
	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/loader"
	"github.com/EmnaWalha99/Job-Portal/internal/logging"
	"github.com/EmnaWalha99/Job-Portal/internal/mapper"
	"github.com/EmnaWalha99/Job-Portal/internal/orchestrator"
	"github.com/EmnaWalha99/Job-Portal/internal/progress"
	"github.com/EmnaWalha99/Job-Portal/internal/progress/sinks"
	"github.com/EmnaWalha99/Job-Portal/internal/publisher"
	"github.com/EmnaWalha99/Job-Portal/internal/publisher/memory"
	"github.com/EmnaWalha99/Job-Portal/internal/publisher/pubsub"
	"github.com/EmnaWalha99/Job-Portal/internal/storage"
	"github.com/EmnaWalha99/Job-Portal/internal/storage/gcs"
	"github.com/EmnaWalha99/Job-Portal/internal/storage/local"
	memstore "github.com/EmnaWalha99/Job-Portal/internal/storage/memory"
	"github.com/EmnaWalha99/Job-Portal/internal/storage/postgres"
	"github.com/EmnaWalha99/Job-Portal/internal/storage/sqlite"
)

// App holds the shared, long-lived services for one command invocation.
// Services that touch the network or disk are opened on first use so that
// commands such as scrape never connect to the job store.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	sources []jobs.Source
	clock   *system.Clock
	ids     *uuid.Generator
	reg     prometheus.Registerer

	mu       sync.Mutex
	jobStore storage.JobStore
	runStore storage.RunStore
	pipeline *orchestrator.Pipeline
	closers  []closer
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// Option customizes an App.
type Option func(*App)

// WithRegisterer sets where pipeline progress collectors are registered.
// The default is the global Prometheus registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(a *App) { a.reg = reg }
}

// New validates cfg and creates an App. No connections are opened yet.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sources, err := cfg.Pipeline.ParsedSources()
	if err != nil {
		return nil, err
	}
	clock, err := system.LoadLocation(cfg.Mapper.Timezone)
	if err != nil {
		return nil, fmt.Errorf("mapper.timezone: %w", err)
	}
	a := &App{
		cfg:     cfg,
		logger:  logging.OrNop(logger),
		sources: sources,
		clock:   clock,
		ids:     uuid.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Sources returns the configured sources in pipeline order.
func (a *App) Sources() []jobs.Source { return append([]jobs.Source(nil), a.sources...) }

// Paths returns the raw and cleaned file locations.
func (a *App) Paths() cleaner.Paths { return a.cfg.Paths.Cleaner() }

// Clock returns the wall clock in the job market's zone.
func (a *App) Clock() *system.Clock { return a.clock }

// Mapper builds a field mapper from the mapper settings.
func (a *App) Mapper() *mapper.Mapper {
	return mapper.New(
		mapper.WithClock(a.clock),
		mapper.WithMaxItems(a.cfg.Mapper.MaxItems),
		mapper.WithCountries(a.cfg.Mapper.Countries),
	)
}

// Cleaner builds the clean stage.
func (a *App) Cleaner() *cleaner.Cleaner {
	return cleaner.New(a.Paths(), a.Mapper(), a.logger)
}

// Exporter builds the spreadsheet exporter over the cleaned files.
func (a *App) Exporter() *export.Exporter {
	return export.New(a.Paths(), a.sources, a.logger)
}

// Stores opens the job and run stores on first call and returns the same
// instances afterwards. When the cache is enabled the job store is wrapped
// by the Redis listing cache.
func (a *App) Stores(ctx context.Context) (storage.JobStore, storage.RunStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.jobStore != nil {
		return a.jobStore, a.runStore, nil
	}

	sc := a.cfg.Storage
	var (
		js storage.JobStore
		rs storage.RunStore
	)
	switch sc.Driver {
	case config.DriverMemory:
		a.logger.Info("using in-memory job store, data is lost on exit")
		js, rs = memstore.NewJobStore(), memstore.NewRunStore()
	case config.DriverSQLite:
		a.logger.Info("opening sqlite job store", zap.String("path", sc.DSN))
		s, err := sqlite.Open(ctx, sc.DSN)
		if err != nil {
			return nil, nil, err
		}
		js, rs = s, s
	case config.DriverPostgres:
		a.logger.Info("connecting to postgres")
		pcfg := postgres.Config{DSN: sc.DSN, Table: sc.Table, RunsTable: sc.RunsTable, MaxConns: sc.MaxConns}
		pool, err := postgres.Connect(ctx, pcfg)
		if err != nil {
			return nil, nil, err
		}
		pj, err := postgres.NewJobStoreWithPool(pool, sc.Table)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		pr, err := postgres.NewRunStoreWithPool(pool, sc.RunsTable)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := errors.Join(pj.EnsureSchema(ctx), pr.EnsureSchema(ctx)); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure postgres schema: %w", err)
		}
		js, rs = pj, pr
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
	}
	a.addCloser("job store", func(context.Context) error { return js.Close() })

	if a.cfg.Cache.Enabled {
		client, err := cache.Dial(ctx, a.cfg.Cache.URL)
		if err != nil {
			return nil, nil, err
		}
		a.addCloser("redis", func(context.Context) error { return client.Close() })
		a.logger.Info("listing cache enabled", zap.Duration("ttl", a.cfg.Cache.TTL))
		js = cache.NewStore(js, cache.New(client, a.cfg.Cache.Prefix, a.cfg.Cache.TTL, a.logger))
	}

	a.jobStore, a.runStore = js, rs
	return js, rs, nil
}

// Loader builds the load stage over the job store.
func (a *App) Loader(ctx context.Context) (*loader.Loader, error) {
	js, _, err := a.Stores(ctx)
	if err != nil {
		return nil, err
	}
	return loader.New(js, a.Paths(), a.sources, a.ids, a.logger)
}

// APIServer builds the read API over the stores.
func (a *App) APIServer(ctx context.Context) (*api.Server, error) {
	js, rs, err := a.Stores(ctx)
	if err != nil {
		return nil, err
	}
	return api.NewServer(js, rs, api.Options{
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		RequestTimeout: a.cfg.Server.RequestTimeout,
	}, a.logger), nil
}

// Pipeline builds the orchestrator on first call, wiring the process
// supervisor, the progress hub and its sinks, and the archiver. Later calls
// return the same pipeline.
func (a *App) Pipeline(ctx context.Context, commands orchestrator.CommandSet) (*orchestrator.Pipeline, error) {
	_, runs, err := a.Stores(ctx)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pipeline != nil {
		return a.pipeline, nil
	}

	promSink, err := sinks.NewPrometheusSink(a.reg)
	if err != nil {
		return nil, err
	}
	hubSinks := []progress.Sink{
		sinks.NewLogSink(a.logger),
		promSink,
		sinks.NewStoreSink(runs, a.logger),
	}
	pub, err := a.publisher(ctx)
	if err != nil {
		return nil, err
	}
	if pub != nil {
		hubSinks = append(hubSinks, sinks.NewPublisherSink(pub, a.cfg.Notify.Topic, a.logger))
	}
	hub := progress.NewHub(progress.Config{Logger: a.logger}, hubSinks...)
	a.addCloser("progress hub", hub.Close)

	opts := []orchestrator.Option{
		orchestrator.WithEmitter(hub),
		orchestrator.WithClock(a.clock),
		orchestrator.WithIDGenerator(a.ids),
		orchestrator.WithLogger(a.logger),
	}
	blobs, err := a.blobStore(ctx)
	if err != nil {
		return nil, err
	}
	if blobs != nil {
		arc, err := archive.New(blobs, a.cfg.Paths.CleanedDir, a.sources, a.logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, orchestrator.WithArchiver(arc))
	}

	pc := a.cfg.Pipeline
	supervisor := orchestrator.NewSupervisor(
		orchestrator.WithGrace(pc.KillGrace),
		orchestrator.WithTailBytes(pc.TailBytes),
		orchestrator.WithSupervisorLogger(a.logger),
	)
	p, err := orchestrator.New(orchestrator.Config{
		Sources:       a.sources,
		Commands:      commands,
		ScrapeTimeout: pc.ScrapeTimeout,
		CleanTimeout:  pc.CleanTimeout,
		LoadTimeout:   pc.LoadTimeout,
	}, supervisor, opts...)
	if err != nil {
		return nil, err
	}
	a.pipeline = p
	return p, nil
}

// publisher returns nil when notifications are disabled.
func (a *App) publisher(ctx context.Context) (publisher.Publisher, error) {
	switch a.cfg.Notify.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverPubSub:
		p, err := pubsub.Dial(ctx, a.cfg.Notify.ProjectID, map[string]string{"service": "jobportal"})
		if err != nil {
			return nil, err
		}
		a.logger.Info("publishing run summaries", zap.String("topic", a.cfg.Notify.Topic))
		a.addCloser("pubsub", func(context.Context) error { return p.Close() })
		return p, nil
	default:
		return nil, nil
	}
}

// blobStore returns nil when archiving is disabled.
func (a *App) blobStore(ctx context.Context) (storage.BlobStore, error) {
	ac := a.cfg.Archive
	switch ac.Driver {
	case config.DriverLocal:
		return local.New(local.Config{BaseDir: ac.Dir})
	case config.DriverGCS:
		b, err := gcs.Dial(ctx, gcs.Config{Bucket: ac.Bucket, Prefix: ac.Prefix})
		if err != nil {
			return nil, err
		}
		a.addCloser("gcs", func(context.Context) error { return b.Close() })
		return b, nil
	default:
		return nil, nil
	}
}

func (a *App) addCloser(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Close releases every opened service in reverse order of opening. It is
// called by a Cobra hook after the command finishes.
func (a *App) Close(ctx context.Context) {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		if err := c.fn(ctx); err != nil {
			a.logger.Warn("error closing service", zap.String("service", c.name), zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
