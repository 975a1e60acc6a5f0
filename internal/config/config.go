// Package config loads and validates job portal configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/EmnaWalha99/Job-Portal/internal/cleaner"
	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/scrape"
)

// EnvPrefix prefixes every environment override, e.g. JOBPORTAL_STORAGE_DSN.
const EnvPrefix = "JOBPORTAL"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultSQLitePath is used when the sqlite driver has no DSN.
const DefaultSQLitePath = "data/jobportal.db"

// Archive and notify drivers.
const (
	DriverNone   = "none"
	DriverLocal  = "local"
	DriverGCS    = "gcs"
	DriverPubSub = "pubsub"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Mapper   MapperConfig   `mapstructure:"mapper"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Server   ServerConfig   `mapstructure:"server"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Scrape   scrape.Config  `mapstructure:"scrape"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// PathsConfig locates the per-source CSV files.
type PathsConfig struct {
	RawDir     string `mapstructure:"raw_dir"`
	CleanedDir string `mapstructure:"cleaned_dir"`
}

// Cleaner converts the paths for the cleaner and loader.
func (p PathsConfig) Cleaner() cleaner.Paths {
	return cleaner.Paths{RawDir: p.RawDir, CleanedDir: p.CleanedDir}
}

// PipelineConfig bounds the scrape → clean → load run.
type PipelineConfig struct {
	Sources       []string      `mapstructure:"sources"`
	ScrapeTimeout time.Duration `mapstructure:"scrape_timeout"`
	CleanTimeout  time.Duration `mapstructure:"clean_timeout"`
	LoadTimeout   time.Duration `mapstructure:"load_timeout"`
	KillGrace     time.Duration `mapstructure:"kill_grace"`
	TailBytes     int           `mapstructure:"tail_bytes"`
	Executable    string        `mapstructure:"executable"`
	Commands      CommandConfig `mapstructure:"commands"`
}

// CommandConfig overrides the argv of a stage. Arguments may contain the
// {source} placeholder. Empty stages re-execute the running binary.
type CommandConfig struct {
	Scrape []string `mapstructure:"scrape"`
	Clean  []string `mapstructure:"clean"`
	Load   []string `mapstructure:"load"`
}

// ParsedSources validates and converts the configured source tags. An empty
// list means every supported source.
func (p PipelineConfig) ParsedSources() ([]jobs.Source, error) {
	if len(p.Sources) == 0 {
		return jobs.Sources(), nil
	}
	out := make([]jobs.Source, 0, len(p.Sources))
	seen := make(map[jobs.Source]bool, len(p.Sources))
	for _, s := range p.Sources {
		src, err := jobs.ParseSource(s)
		if err != nil {
			return nil, fmt.Errorf("pipeline.sources: %w", err)
		}
		if !seen[src] {
			seen[src] = true
			out = append(out, src)
		}
	}
	return out, nil
}

// MapperConfig tunes field mapping.
type MapperConfig struct {
	Timezone  string   `mapstructure:"timezone"`
	MaxItems  int      `mapstructure:"max_items"`
	Countries []string `mapstructure:"countries"`
}

// StorageConfig selects the job store.
type StorageConfig struct {
	Driver    string `mapstructure:"driver"`
	DSN       string `mapstructure:"dsn"`
	Table     string `mapstructure:"table"`
	RunsTable string `mapstructure:"runs_table"`
	MaxConns  int32  `mapstructure:"max_conns"`
}

// CacheConfig controls the Redis listing cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Prefix  string        `mapstructure:"prefix"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// ArchiveConfig selects where canonical files are copied after a load.
type ArchiveConfig struct {
	Driver string `mapstructure:"driver"`
	Dir    string `mapstructure:"dir"`
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// NotifyConfig selects where run summaries are published.
type NotifyConfig struct {
	Driver    string `mapstructure:"driver"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ServerConfig controls the read API.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// ScheduleConfig controls the in-process cron loop.
type ScheduleConfig struct {
	Spec       string `mapstructure:"spec"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// Load builds a Config from an optional .env file, the environment and an
// optional config file, in increasing order of precedence below explicit
// environment variables.
func Load(path string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Scrape.Sources) == 0 {
		cfg.Scrape.Sources = scrape.DefaultSources()
	}
	if cfg.Storage.DSN == "" {
		switch cfg.Storage.Driver {
		case DriverSQLite:
			cfg.Storage.DSN = DefaultSQLitePath
		case DriverPostgres:
			cfg.Storage.DSN = PostgresDSNFromEnv()
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadDotEnv exports variables from path unless they are already set. A
// missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// PostgresDSNFromEnv assembles a connection URL from DB_USER, DB_PASSWORD,
// DB_HOST, DB_PORT and DB_NAME. It returns "" when DB_HOST or DB_NAME is
// unset.
func PostgresDSNFromEnv() string {
	host, name := os.Getenv("DB_HOST"), os.Getenv("DB_NAME")
	if host == "" || name == "" {
		return ""
	}
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + name,
	}
	if user := os.Getenv("DB_USER"); user != "" {
		u.User = url.UserPassword(user, os.Getenv("DB_PASSWORD"))
	}
	return u.String()
}

func setDefaults(v *viper.Viper) {
	sc := scrape.DefaultConfig()

	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("paths.raw_dir", "data/raw")
	v.SetDefault("paths.cleaned_dir", "data/cleaned")
	v.SetDefault("pipeline.sources", []string{})
	v.SetDefault("pipeline.scrape_timeout", 120*time.Second)
	v.SetDefault("pipeline.clean_timeout", 300*time.Second)
	v.SetDefault("pipeline.load_timeout", 600*time.Second)
	v.SetDefault("pipeline.kill_grace", 3*time.Second)
	v.SetDefault("pipeline.tail_bytes", 8192)
	v.SetDefault("pipeline.executable", "")
	v.SetDefault("mapper.timezone", "Africa/Tunis")
	v.SetDefault("mapper.max_items", 0)
	v.SetDefault("mapper.countries", []string{})
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.table", "jobs")
	v.SetDefault("storage.runs_table", "pipeline_runs")
	v.SetDefault("storage.max_conns", 4)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.url", "redis://localhost:6379/0")
	v.SetDefault("cache.prefix", "jobportal")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("archive.driver", DriverNone)
	v.SetDefault("archive.dir", "data/archive")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "runs")
	v.SetDefault("notify.driver", DriverNone)
	v.SetDefault("notify.project_id", "")
	v.SetDefault("notify.topic", "jobportal-runs")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:4200"})
	v.SetDefault("server.request_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("schedule.spec", "@every 6h")
	v.SetDefault("schedule.run_on_start", false)
	v.SetDefault("scrape.user_agent", sc.UserAgent)
	v.SetDefault("scrape.request_timeout", sc.RequestTimeout)
	v.SetDefault("scrape.requests_per_second", sc.RequestsPerSecond)
	v.SetDefault("scrape.burst", sc.Burst)
	v.SetDefault("scrape.max_attempts", sc.MaxAttempts)
	v.SetDefault("scrape.forbidden_threshold", sc.ForbiddenThreshold)
	v.SetDefault("scrape.respect_robots", sc.RespectRobots)
	v.SetDefault("scrape.render_timeout", sc.RenderTimeout)
	v.SetDefault("scrape.render_tabs", sc.RenderTabs)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Paths.RawDir == "" || c.Paths.CleanedDir == "" {
		return errors.New("paths.raw_dir and paths.cleaned_dir must be set")
	}
	if _, err := c.Pipeline.ParsedSources(); err != nil {
		return err
	}
	if c.Pipeline.ScrapeTimeout <= 0 || c.Pipeline.CleanTimeout <= 0 || c.Pipeline.LoadTimeout <= 0 {
		return errors.New("pipeline stage timeouts must be > 0")
	}
	if c.Pipeline.KillGrace < 0 {
		return errors.New("pipeline.kill_grace must be >= 0")
	}
	if c.Mapper.MaxItems < 0 {
		return errors.New("mapper.max_items must be >= 0")
	}
	if c.Mapper.Timezone != "" {
		if _, err := time.LoadLocation(c.Mapper.Timezone); err != nil {
			return fmt.Errorf("mapper.timezone must be an IANA zone: %w", err)
		}
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn must be set for driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("storage.driver must be one of memory, sqlite, postgres (got %q)", c.Storage.Driver)
	}
	if c.Cache.Enabled {
		if c.Cache.URL == "" {
			return errors.New("cache.url must be set when the cache is enabled")
		}
		if c.Cache.TTL <= 0 {
			return errors.New("cache.ttl must be > 0")
		}
	}
	switch c.Archive.Driver {
	case DriverNone, "":
	case DriverLocal:
		if c.Archive.Dir == "" {
			return errors.New("archive.dir must be set for the local archive")
		}
	case DriverGCS:
		if c.Archive.Bucket == "" {
			return errors.New("archive.bucket must be set for the gcs archive")
		}
	default:
		return fmt.Errorf("archive.driver must be one of none, local, gcs (got %q)", c.Archive.Driver)
	}
	switch c.Notify.Driver {
	case DriverNone, "", DriverMemory:
	case DriverPubSub:
		if c.Notify.ProjectID == "" || c.Notify.Topic == "" {
			return errors.New("notify.project_id and notify.topic must be set for pubsub")
		}
	default:
		return fmt.Errorf("notify.driver must be one of none, memory, pubsub (got %q)", c.Notify.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be in 1..65535")
	}
	if c.Schedule.Spec == "" {
		return errors.New("schedule.spec must not be empty")
	}
	if err := c.Scrape.Validate(); err != nil {
		return err
	}
	return nil
}
