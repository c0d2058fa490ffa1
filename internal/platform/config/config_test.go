package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 30, cfg.Retention.Days)
	assert.Equal(t, 500, cfg.Ingest.PageSize)
	assert.Equal(t, 10*time.Second, cfg.Ingest.RecordTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Ingest.RecordLease)
	assert.Equal(t, 6*time.Hour, cfg.Ingest.RunTimeout)
	assert.Equal(t, time.Hour, cfg.Retention.SweepInterval)
	assert.Equal(t, 10000, cfg.Audit.BufferSize)
	assert.Equal(t, "stagehand", cfg.Server.Application)
	assert.Equal(t, "US", cfg.Ingest.DefaultRegion)
	assert.Equal(t, "stagehand-audit-store", cfg.Audit.KafkaGroup)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stagehand.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
  jwt_signing_key: from-file
ingest:
  page_size: 100
  run_timeout: 2h
retention:
  days: 7
`), 0o600))

	t.Setenv("RETENTION_DAYS", "14")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("AUDIT_SINK", "kafka")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "from-file", cfg.Server.JWTSigningKey)
	assert.Equal(t, 100, cfg.Ingest.PageSize)
	assert.Equal(t, 2*time.Hour, cfg.Ingest.RunTimeout)
	assert.Equal(t, 14, cfg.Retention.Days, "env wins over file")
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Audit.KafkaBrokers)
	assert.Equal(t, 15*time.Minute, cfg.Ingest.RecordLease, "unset keys keep defaults")
}

func TestLoad_BadEnvValues(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "k")
	t.Setenv("RETENTION_DAYS", "thirty")
	t.Setenv("RECORD_TIMEOUT", "soon")

	_, err := Load("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "RETENTION_DAYS")
	assert.Contains(t, err.Error(), "RECORD_TIMEOUT")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Server.JWTSigningKey = "k"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults with key", mutate: func(*Config) {}},
		{name: "missing key", mutate: func(c *Config) { c.Server.JWTSigningKey = "" }, wantErr: "jwt signing key"},
		{name: "zero retention", mutate: func(c *Config) { c.Retention.Days = 0 }, wantErr: "retention days"},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Audit.Sink = SinkKafka }, wantErr: "requires brokers"},
		{name: "postgres sink without db", mutate: func(c *Config) { c.Audit.Sink = SinkPostgres }, wantErr: "staging database url"},
		{name: "unknown sink", mutate: func(c *Config) { c.Audit.Sink = "s3" }, wantErr: "unknown audit sink"},
		{name: "zero record timeout", mutate: func(c *Config) { c.Ingest.RecordTimeout = 0 }, wantErr: "record timeout must be positive"},
		{name: "lease equal to record timeout", mutate: func(c *Config) {
			c.Ingest.RecordTimeout = time.Minute
			c.Ingest.RecordLease = time.Minute
		}, wantErr: "record lease (1m0s) must exceed record timeout"},
		{name: "lease below record timeout", mutate: func(c *Config) {
			c.Ingest.RecordLease = time.Second
		}, wantErr: "must exceed record timeout"},
		{name: "run timeout equal to lease", mutate: func(c *Config) {
			c.Ingest.RunTimeout = c.Ingest.RecordLease
		}, wantErr: "run timeout (15m0s) must exceed record lease"},
		{name: "run timeout below lease", mutate: func(c *Config) {
			c.Ingest.RunTimeout = time.Minute
		}, wantErr: "must exceed record lease"},
		{name: "target without staging", mutate: func(c *Config) { c.Database.TargetURL = "postgres://x" }, wantErr: "requires a staging database"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
