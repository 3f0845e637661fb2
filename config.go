package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Supported storage drivers.
const (
	PostgresDriver = "postgres"
	SQLiteDriver   = "sqlite"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit               string         `yaml:"git_commit" envconfig:"LAPI_GIT_COMMIT"`
	GitTag                  string         `yaml:"git_tag" envconfig:"LAPI_GIT_TAG"`
	BuildTime               string         `yaml:"build_time" envconfig:"LAPI_BUILD_TIME"`
	IsProduction            bool           `yaml:"is_production" envconfig:"LAPI_IS_PRODUCTION"`
	LogLevel                zapcore.Level  `yaml:"log_level" envconfig:"LAPI_LOG_LEVEL"`
	LogFolder               string         `yaml:"log_folder" envconfig:"LAPI_LOG_FOLDER"`
	LogMaxSize              int            `yaml:"log_max_size" envconfig:"LAPI_LOG_MAX_SIZE"`
	OpsEndpointsEnable      bool           `yaml:"ops_endpoints_enable" envconfig:"LAPI_OPS_ENDPOINTS_ENABLE"`
	ProfilerEndpointsEnable bool           `yaml:"profiler_endpoints_enable" envconfig:"LAPI_PROFILER_ENDPOINTS_ENABLE"`
	Server                  ServerConfig   `yaml:"server"`
	Storage                 StorageConfig  `yaml:"storage"`
	Postgres                PostgresConfig `yaml:"postgres"`
	SQLite                  SQLiteConfig   `yaml:"sqlite"`
	Redis                   RedisConfig    `yaml:"redis"`
	BoltDB                  BoltDBConfig   `yaml:"boltdb"`
	Mirror                  MirrorConfig   `yaml:"mirror"`
}

type ServerConfig struct {
	Host                    string        `yaml:"host" envconfig:"LAPI_SERVER_HOST"`
	Port                    string        `yaml:"port" envconfig:"LAPI_SERVER_PORT"`
	ReadTimeout             time.Duration `yaml:"read_timeout" envconfig:"LAPI_SERVER_READ_TIMEOUT"`
	WriteTimeout            time.Duration `yaml:"write_timeout" envconfig:"LAPI_SERVER_WRITE_TIMEOUT"`
	RequestTimeout          time.Duration `yaml:"request_timeout" envconfig:"LAPI_SERVER_REQUEST_TIMEOUT"` // Time to wait for a request to finish
	ShutdownTimeout         time.Duration `yaml:"shutdown_timeout" envconfig:"LAPI_SERVER_SHUTDOWN_TIMEOUT"`
	LongRequestWriteTimeout time.Duration `yaml:"long_request_write_timeout" envconfig:"LAPI_SERVER_LONG_REQUEST_WRITE_TIMEOUT"`
	RateLimitRPS            float64       `yaml:"rate_limit_rps" envconfig:"LAPI_SERVER_RATE_LIMIT_RPS"` // zero disables rate limiting
	RateLimitBurst          int           `yaml:"rate_limit_burst" envconfig:"LAPI_SERVER_RATE_LIMIT_BURST"`
}

type StorageConfig struct {
	Driver       string        `yaml:"driver" envconfig:"LAPI_STORAGE_DRIVER"`
	QueryTimeout time.Duration `yaml:"query_timeout" envconfig:"LAPI_STORAGE_QUERY_TIMEOUT"`
}

type PostgresConfig struct {
	DSN            string `yaml:"dsn" json:"-" envconfig:"LAPI_POSTGRES_DSN"`
	MaxConns       int32  `yaml:"max_conns" envconfig:"LAPI_POSTGRES_MAX_CONNS"`
	MigrateOnStart bool   `yaml:"migrate_on_start" envconfig:"LAPI_POSTGRES_MIGRATE_ON_START"`
}

type SQLiteConfig struct {
	FilePath string `yaml:"filepath" envconfig:"LAPI_SQLITE_FILE_PATH"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"LAPI_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"LAPI_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"LAPI_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"LAPI_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"LAPI_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"LAPI_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"LAPI_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"LAPI_REDIS_USERNAME"`
	Password      string        `yaml:"password" json:"-" envconfig:"LAPI_REDIS_PASSWORD"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"LAPI_REDIS_DATABASE_INDEX"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"LAPI_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"LAPI_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" envconfig:"LAPI_BOLTDB_BUCKET_NAME"`
}

// MirrorConfig controls the replication of book changes into boltdb through redis queues.
type MirrorConfig struct {
	Enable      bool   `yaml:"enable" envconfig:"LAPI_MIRROR_ENABLE"`
	QueuePrefix string `yaml:"queue_prefix" envconfig:"LAPI_MIRROR_QUEUE_PREFIX"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and overrides the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 10
	}

	if config.Storage.QueryTimeout <= 0 {
		config.Storage.QueryTimeout = 5 * time.Second
	}

	switch config.Storage.Driver {
	case "":
		config.Storage.Driver = PostgresDriver
		fallthrough
	case PostgresDriver:
		if len(config.Postgres.DSN) == 0 {
			return errors.New("make sure to set a valid postgres dsn in configuration file")
		}
	case SQLiteDriver:
		if len(config.SQLite.FilePath) == 0 {
			return errors.New("make sure to set a valid sqlite file path in configuration file")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}

	if !config.Mirror.Enable {
		return nil
	}

	if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
		return errors.New("make sure to set valid redis address and port in configuration file")
	}

	if len(config.BoltDB.FilePath) == 0 || len(config.BoltDB.BucketName) == 0 {
		return errors.New("make sure to set valid boltdb file path and bucket name in configuration file")
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile("./config.yml")
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration. The file is optional.
	err = godotenv.Load("./config.env")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	// Use environment variables with prefix `LAPI`.
	err = LoadConfigEnvs("LAPI", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
