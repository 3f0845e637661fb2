package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

const testConfigYAML = `
is_production: true
log_level: "warn"
log_folder: "./logs"
server:
  host: "0.0.0.0"
  port: "8080"
  request_timeout: 10s
  rate_limit_rps: 5
storage:
  driver: "sqlite"
sqlite:
  filepath: "./data/library.db"
mirror:
  enable: false
  queue_prefix: "lapi"
`

func writeTestConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	t.Run("should pass: valid file", func(t *testing.T) {
		config, err := LoadConfigFile(writeTestConfigFile(t, testConfigYAML))
		require.NoError(t, err)
		assert.True(t, config.IsProduction)
		assert.Equal(t, zapcore.WarnLevel, config.LogLevel)
		assert.Equal(t, "8080", config.Server.Port)
		assert.Equal(t, 10*time.Second, config.Server.RequestTimeout)
		assert.Equal(t, 5.0, config.Server.RateLimitRPS)
		assert.Equal(t, SQLiteDriver, config.Storage.Driver)
		assert.Equal(t, "./data/library.db", config.SQLite.FilePath)
		assert.Equal(t, "lapi", config.Mirror.QueuePrefix)
	})

	t.Run("should fail: missing file", func(t *testing.T) {
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("should fail: malformed file", func(t *testing.T) {
		_, err := LoadConfigFile(writeTestConfigFile(t, "server: [port"))
		assert.Error(t, err)
	})
}

func TestLoadConfigEnvs(t *testing.T) {
	config, err := LoadConfigFile(writeTestConfigFile(t, testConfigYAML))
	require.NoError(t, err)

	t.Setenv("LAPI_SERVER_PORT", "9090")
	t.Setenv("LAPI_STORAGE_QUERY_TIMEOUT", "2s")
	t.Setenv("LAPI_MIRROR_ENABLE", "true")
	t.Setenv("LAPI_POSTGRES_MAX_CONNS", "20")

	require.NoError(t, LoadConfigEnvs("LAPI", config))
	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host, "values absent from env are kept")
	assert.Equal(t, 2*time.Second, config.Storage.QueryTimeout)
	assert.True(t, config.Mirror.Enable)
	assert.Equal(t, int32(20), config.Postgres.MaxConns)
}

//nolint:funlen
func TestInitConfig(t *testing.T) {
	validConfig := func() *Config {
		return &Config{
			GitCommit: "file-commit",
			Server:    ServerConfig{Host: "0.0.0.0", Port: "8080"},
			Storage:   StorageConfig{Driver: SQLiteDriver},
			SQLite:    SQLiteConfig{FilePath: "./data/library.db"},
			Redis:     RedisConfig{Host: "localhost", Port: "6379"},
			BoltDB:    BoltDBConfig{FilePath: "./data/mirror.db", BucketName: "books"},
		}
	}

	t.Run("should pass: defaults and build details", func(t *testing.T) {
		config := validConfig()
		require.NoError(t, InitConfig(config, "", "v1.2.0", "2023-07-02"))
		assert.Equal(t, "file-commit", config.GitCommit)
		assert.Equal(t, "v1.2.0", config.GitTag)
		assert.Equal(t, "2023-07-02", config.BuildTime)
		assert.Equal(t, 10, config.LogMaxSize)
		assert.Equal(t, 5*time.Second, config.Storage.QueryTimeout)
	})

	t.Run("should pass: mirror settings checked only when enabled", func(t *testing.T) {
		config := validConfig()
		config.Redis = RedisConfig{}
		assert.NoError(t, InitConfig(config, "", "", ""))
	})

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing server port", func(c *Config) { c.Server.Port = "" }},
		{"missing sqlite path", func(c *Config) { c.SQLite.FilePath = "" }},
		{"default driver needs dsn", func(c *Config) { c.Storage.Driver = "" }},
		{"postgres needs dsn", func(c *Config) { c.Storage.Driver = PostgresDriver }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mysql" }},
		{"mirror needs redis", func(c *Config) {
			c.Mirror.Enable = true
			c.Redis.Port = ""
		}},
		{"mirror needs bolt bucket", func(c *Config) {
			c.Mirror.Enable = true
			c.BoltDB.BucketName = ""
		}},
	}
	for _, tc := range testCases {
		t.Run("should fail: "+tc.name, func(t *testing.T) {
			config := validConfig()
			tc.mutate(config)
			assert.Error(t, InitConfig(config, "", "", ""))
		})
	}

	t.Run("should pass: empty driver defaults to postgres", func(t *testing.T) {
		config := validConfig()
		config.Storage.Driver = ""
		config.Postgres.DSN = "postgres://localhost/library"
		require.NoError(t, InitConfig(config, "", "", ""))
		assert.Equal(t, PostgresDriver, config.Storage.Driver)
	})
}
