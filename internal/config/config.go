package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/dshills/impactmatch/internal/embedder"
	"github.com/dshills/impactmatch/internal/indexer"
	"github.com/dshills/impactmatch/internal/matcher"
	"github.com/dshills/impactmatch/internal/retrieval"
	"github.com/dshills/impactmatch/internal/storage"
)

const (
	// AppName is the config file base name and CLI name
	AppName = "impactmatch"
	// EnvPrefix prefixes environment overrides, e.g. IMPACTMATCH_STORAGE_PATH
	EnvPrefix = "IMPACTMATCH"

	// DefaultDBPath is the SQLite file used when none is configured
	DefaultDBPath = "impactmatch.db"

	maxCandidateLimit = 1000
)

// Queue backends
const (
	QueueMemory = "memory"
	QueueRedis  = "redis"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete application configuration
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Matching   MatchingConfig   `mapstructure:"matching"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Heuristics HeuristicsConfig `mapstructure:"heuristics"`
	Log        LogConfig        `mapstructure:"log"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

type EmbeddingConfig struct {
	Provider  string        `mapstructure:"provider"`
	Model     string        `mapstructure:"model"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	CacheSize int           `mapstructure:"cache_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type MatchingConfig struct {
	CandidateLimit       int           `mapstructure:"candidate_limit"`
	ResultLimit          int           `mapstructure:"result_limit"`
	CandidateResultLimit int           `mapstructure:"candidate_result_limit"`
	Workers              int           `mapstructure:"workers"`
	PersistMatches       bool          `mapstructure:"persist_matches"`
	VectorCacheTTL       time.Duration `mapstructure:"vector_cache_ttl"`
}

type QueueConfig struct {
	Backend   string `mapstructure:"backend"`
	RedisURL  string `mapstructure:"redis_url"`
	Key       string `mapstructure:"key"`
	Workers   int    `mapstructure:"workers"`
	Buffer    int    `mapstructure:"buffer"`
	BatchSize int    `mapstructure:"batch_size"`
}

type ScheduleConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Spec    string `mapstructure:"spec"`
	RunNow  bool   `mapstructure:"run_now"`
}

// HeuristicsConfig points at a directory that replaces the embedded tables
type HeuristicsConfig struct {
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// NewViper returns a viper instance with defaults and environment binding
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers every key so environment overrides reach Unmarshal
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage.driver", storage.DriverSQLite)
	v.SetDefault("storage.path", DefaultDBPath)
	v.SetDefault("storage.dsn", "")

	v.SetDefault("embedding.provider", embedder.ProviderLocal)
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.cache_size", 1000)
	v.SetDefault("embedding.timeout", 30*time.Second)

	v.SetDefault("matching.candidate_limit", retrieval.DefaultCandidateLimit)
	v.SetDefault("matching.result_limit", matcher.DefaultResultLimit)
	v.SetDefault("matching.candidate_result_limit", matcher.DefaultCandidateResultLimit)
	v.SetDefault("matching.workers", runtime.NumCPU())
	v.SetDefault("matching.persist_matches", true)
	v.SetDefault("matching.vector_cache_ttl", 10*time.Minute)

	v.SetDefault("queue.backend", QueueMemory)
	v.SetDefault("queue.redis_url", "")
	v.SetDefault("queue.key", indexer.DefaultRedisKey)
	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.buffer", 1024)
	v.SetDefault("queue.batch_size", embedder.DefaultBatchSize)

	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.spec", indexer.DefaultSchedule)
	v.SetDefault("schedule.run_now", false)

	v.SetDefault("heuristics.dir", "")

	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
}

// Load reads the config file into v and decodes it. An explicit path must
// exist; without one, impactmatch.yaml in the working directory is optional.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown backends and out-of-range limits
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case storage.DriverSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return invalid("storage.path is required for sqlite")
		}
	case storage.DriverPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return invalid("storage.dsn is required for postgres")
		}
	default:
		return invalid("unknown storage.driver %q", c.Storage.Driver)
	}

	switch strings.ToLower(c.Embedding.Provider) {
	case "", embedder.ProviderLocal, embedder.ProviderOllama, embedder.ProviderGemini,
		embedder.ProviderOpenAI, embedder.ProviderJina:
	default:
		return invalid("unknown embedding.provider %q", c.Embedding.Provider)
	}
	if c.Embedding.CacheSize < 0 {
		return invalid("embedding.cache_size must not be negative")
	}

	m := c.Matching
	if m.CandidateLimit < 1 || m.CandidateLimit > maxCandidateLimit {
		return invalid("matching.candidate_limit must be between 1 and %d", maxCandidateLimit)
	}
	if m.ResultLimit < 1 || m.ResultLimit > matcher.MaxResultLimit {
		return invalid("matching.result_limit must be between 1 and %d", matcher.MaxResultLimit)
	}
	if m.CandidateResultLimit < 1 || m.CandidateResultLimit > matcher.MaxCandidateResultLimit {
		return invalid("matching.candidate_result_limit must be between 1 and %d", matcher.MaxCandidateResultLimit)
	}
	if m.Workers < 1 {
		return invalid("matching.workers must be positive")
	}

	q := c.Queue
	switch q.Backend {
	case QueueMemory:
	case QueueRedis:
		if strings.TrimSpace(q.RedisURL) == "" {
			return invalid("queue.redis_url is required for redis")
		}
	default:
		return invalid("unknown queue.backend %q", q.Backend)
	}
	if q.Workers < 1 {
		return invalid("queue.workers must be positive")
	}
	if q.BatchSize < 1 || q.BatchSize > embedder.MaxBatchSize {
		return invalid("queue.batch_size must be between 1 and %d", embedder.MaxBatchSize)
	}

	if c.Schedule.Enabled {
		if _, err := cron.ParseStandard(c.Schedule.Spec); err != nil {
			return invalid("schedule.spec: %v", err)
		}
	}
	return nil
}

// StorageOptions converts to the store configuration
func (c *Config) StorageOptions() storage.Config {
	return storage.Config{Driver: c.Storage.Driver, Path: c.Storage.Path, DSN: c.Storage.DSN}
}

// EmbedderOptions converts to the embedder configuration
func (c *Config) EmbedderOptions() embedder.Config {
	return embedder.Config{
		Provider:  c.Embedding.Provider,
		Model:     c.Embedding.Model,
		APIKey:    c.Embedding.APIKey,
		BaseURL:   c.Embedding.BaseURL,
		CacheSize: c.Embedding.CacheSize,
		Timeout:   c.Embedding.Timeout,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
