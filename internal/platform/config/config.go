// Package config loads runtime configuration from an optional YAML file, then
// environment overrides, then defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration of the ingestion server.
type Config struct {
	Server    Server    `yaml:"server"`
	Database  Database  `yaml:"database"`
	Redis     Redis     `yaml:"redis"`
	Audit     Audit     `yaml:"audit"`
	Ingest    Ingest    `yaml:"ingest"`
	Retention Retention `yaml:"retention"`
	Log       Log       `yaml:"log"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string        `yaml:"addr"`
	Application    string        `yaml:"application"`
	JWTSigningKey  string        `yaml:"jwt_signing_key"`
	JWTIssuer      string        `yaml:"jwt_issuer"`
	JWTAudience    string        `yaml:"jwt_audience"`
	AdminToken     string        `yaml:"admin_token"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace"`
}

// Database holds both connection strings. Without a staging URL the server runs
// on in-memory stores.
type Database struct {
	StagingURL     string `yaml:"staging_url"`
	TargetURL      string `yaml:"target_url"`
	MaxConns       int    `yaml:"max_conns"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// Redis configures the cancel-signal store. An empty URL keeps signals in memory.
type Redis struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Audit sinks.
const (
	SinkMemory   = "memory"
	SinkPostgres = "postgres"
	SinkKafka    = "kafka"
)

type Audit struct {
	Sink         string   `yaml:"sink"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
	// KafkaGroup names the consumer group that copies kafka audit events into the
	// staging database. Empty disables the consumer.
	KafkaGroup string `yaml:"kafka_group"`
	BufferSize int    `yaml:"buffer_size"`
}

type Ingest struct {
	PageSize      int           `yaml:"page_size"`
	RecordTimeout time.Duration `yaml:"record_timeout"`
	RecordLease   time.Duration `yaml:"record_lease"`
	RunTimeout    time.Duration `yaml:"run_timeout"`
	CancelTTL     time.Duration `yaml:"cancel_ttl"`
	DefaultRegion string        `yaml:"default_region"`
	// RecoveryInterval of zero disables the background recovery loop.
	RecoveryInterval time.Duration `yaml:"recovery_interval"`
}

type Retention struct {
	Days int `yaml:"days"`
	// SweepInterval of zero disables the background sweeper.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: Server{
			Addr:           ":8080",
			Application:    "stagehand",
			JWTIssuer:      "stagehand",
			JWTAudience:    "stagehand-operators",
			RequestTimeout: 30 * time.Second,
			ShutdownGrace:  15 * time.Second,
		},
		Database: Database{MaxConns: 25},
		Redis: Redis{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Audit: Audit{
			Sink:       SinkMemory,
			KafkaTopic: "stagehand.audit",
			KafkaGroup: "stagehand-audit-store",
			BufferSize: 10000,
		},
		Ingest: Ingest{
			PageSize:         500,
			RecordTimeout:    10 * time.Second,
			RecordLease:      15 * time.Minute,
			RunTimeout:       6 * time.Hour,
			CancelTTL:        24 * time.Hour,
			DefaultRegion:    "US",
			RecoveryInterval: 5 * time.Minute,
		},
		Retention: Retention{
			Days:          30,
			SweepInterval: time.Hour,
		},
		Log: Log{Level: "info", Format: "json"},
	}
}

// Load reads path when non-empty, applies environment overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from defaults and environment variables only.
func FromEnv() (Config, error) {
	return Load("")
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("STAGEHAND_ADDR", &cfg.Server.Addr)
	str("STAGEHAND_APPLICATION", &cfg.Server.Application)
	str("JWT_SIGNING_KEY", &cfg.Server.JWTSigningKey)
	str("ADMIN_TOKEN", &cfg.Server.AdminToken)
	dur("REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)

	str("STAGING_DATABASE_URL", &cfg.Database.StagingURL)
	str("TARGET_DATABASE_URL", &cfg.Database.TargetURL)
	if v, ok := lookup("MIGRATE_ON_START"); ok && v != "" {
		cfg.Database.MigrateOnStart = v == "true"
	}

	str("REDIS_URL", &cfg.Redis.URL)

	str("AUDIT_SINK", &cfg.Audit.Sink)
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		cfg.Audit.KafkaBrokers = splitBrokers(v)
	}
	str("KAFKA_AUDIT_TOPIC", &cfg.Audit.KafkaTopic)
	str("KAFKA_AUDIT_GROUP", &cfg.Audit.KafkaGroup)
	num("AUDIT_BUFFER_SIZE", &cfg.Audit.BufferSize)

	num("PAGE_SIZE", &cfg.Ingest.PageSize)
	dur("RECORD_TIMEOUT", &cfg.Ingest.RecordTimeout)
	dur("RECORD_LEASE", &cfg.Ingest.RecordLease)
	dur("RUN_TIMEOUT", &cfg.Ingest.RunTimeout)
	dur("RECOVERY_INTERVAL", &cfg.Ingest.RecoveryInterval)
	str("DEFAULT_REGION", &cfg.Ingest.DefaultRegion)

	num("RETENTION_DAYS", &cfg.Retention.Days)
	dur("SWEEP_INTERVAL", &cfg.Retention.SweepInterval)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(errs...)
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.JWTSigningKey == "" {
		errs = append(errs, errors.New("jwt signing key is required"))
	}
	if c.Retention.Days <= 0 {
		errs = append(errs, errors.New("retention days must be positive"))
	}
	if c.Ingest.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if c.Ingest.RecordTimeout <= 0 {
		errs = append(errs, errors.New("record timeout must be positive"))
	}
	// A lease shorter than a record's load would let recovery reclaim a live record.
	if c.Ingest.RecordLease <= c.Ingest.RecordTimeout {
		errs = append(errs, fmt.Errorf("record lease (%s) must exceed record timeout (%s)",
			c.Ingest.RecordLease, c.Ingest.RecordTimeout))
	}
	if c.Ingest.RunTimeout <= c.Ingest.RecordLease {
		errs = append(errs, fmt.Errorf("run timeout (%s) must exceed record lease (%s)",
			c.Ingest.RunTimeout, c.Ingest.RecordLease))
	}
	switch c.Audit.Sink {
	case SinkMemory:
	case SinkPostgres:
		if c.Database.StagingURL == "" {
			errs = append(errs, errors.New("postgres audit sink requires a staging database url"))
		}
	case SinkKafka:
		if len(c.Audit.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("kafka audit sink requires brokers"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown audit sink %q", c.Audit.Sink))
	}
	if c.Database.TargetURL != "" && c.Database.StagingURL == "" {
		errs = append(errs, errors.New("a target database requires a staging database"))
	}
	return errors.Join(errs...)
}
