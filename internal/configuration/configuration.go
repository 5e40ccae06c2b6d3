package configuration

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreTypeMemory   = "memory"
	StoreTypeMongo    = "mongo"
	StoreTypePostgres = "postgres"
	StoreTypeRedis    = "redis"
)

// AppConfig represents the complete application configuration.
type AppConfig struct {
	// Logger — logger component configuration
	Logger LoggerConfig `mapstructure:"logger"`
	// Server — HTTP server configuration
	Server ServerConfig `mapstructure:"server"`
	// Store — persistence backend configuration
	Store StoreConfig `mapstructure:"store"`
	// Engine — scoring engine configuration
	Engine EngineConfig `mapstructure:"engine"`
	// Seed — first-start records configuration
	Seed SeedConfig `mapstructure:"seed"`
}

// LoggerConfig defines logging settings.
type LoggerConfig struct {
	// Level — log level: debug, info, warn, warning, error.
	// Value is case-insensitive but checked in lowercase.
	Level string `mapstructure:"level"`
	// File — optional path of a rotated log file written in addition to stdout.
	File string `mapstructure:"file"`
	// MaxSize — size in megabytes at which the log file is rotated.
	MaxSize int `mapstructure:"max_size"`
	// MaxBackups — number of rotated files to keep.
	MaxBackups int `mapstructure:"max_backups"`
	// MaxAge — days to keep rotated files.
	MaxAge int `mapstructure:"max_age"`
}

// ServerConfig contains HTTP server parameters.
type ServerConfig struct {
	// Address — address and port where the server will listen (e.g., ":8080").
	Address string `mapstructure:"address"`
	// ReadTimeout — maximum duration for reading the entire request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout — maximum duration before timing out writes of the response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// CORSOrigin — value of Access-Control-Allow-Origin.
	CORSOrigin string `mapstructure:"cors_origin"`
}

// StoreConfig selects and configures the rule/shortlist backend.
type StoreConfig struct {
	// Type — backend: memory, mongo, postgres or redis.
	Type string `mapstructure:"type"`
	// Timeout — per-operation timeout applied by the backend client.
	Timeout time.Duration `mapstructure:"timeout"`
	// Mock — use the mock database of the selected backend instead of the real one.
	Mock bool `mapstructure:"mock"`
	// Mongo — MongoDB connection settings
	Mongo MongoConfig `mapstructure:"mongo"`
	// Postgres — PostgreSQL connection settings
	Postgres PostgresConfig `mapstructure:"postgres"`
	// Redis — Redis connection settings
	Redis RedisConfig `mapstructure:"redis"`
}

type MongoConfig struct {
	URI          string `mapstructure:"uri"`
	Database     string `mapstructure:"database"`
	MockDatabase string `mapstructure:"mock_database"`
}

type PostgresConfig struct {
	DSN            string `mapstructure:"dsn"`
	MockDSN        string `mapstructure:"mock_dsn"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type RedisConfig struct {
	Address    string `mapstructure:"address"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	Prefix     string `mapstructure:"prefix"`
	MockPrefix string `mapstructure:"mock_prefix"`
}

// EngineConfig defines scoring engine parameters.
type EngineConfig struct {
	// Concurrency — maximum parallel shortlist lookups per batch request.
	Concurrency int `mapstructure:"concurrency"`
}

// SeedConfig defines where first-start records come from.
type SeedConfig struct {
	// File — optional YAML seed; the built-in seed is used when empty.
	File string `mapstructure:"file"`
}

// Validate checks the correctness of the entire application configuration.
// Calls validation for each nested structure and returns the first detected error.
// Returns nil if the configuration is valid.
func (c *AppConfig) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return err
	}

	if err := c.Server.Validate(); err != nil {
		return err
	}

	if err := c.Store.Validate(); err != nil {
		return err
	}

	if err := c.Engine.Validate(); err != nil {
		return err
	}

	return nil
}

// Validate checks the correctness of the logger configuration.
// Verifies that the log level is set and is one of the supported values.
// Supported values: debug, info, warn, warning, error (case-insensitive).
func (l *LoggerConfig) Validate() error {
	if l.Level == "" {
		return errors.New("logger.level: must be specified")
	}

	valid := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !valid[strings.ToLower(l.Level)] {
		return fmt.Errorf("logger.level: unsupported level '%s'", l.Level)
	}

	if l.File != "" && l.MaxSize <= 0 {
		return errors.New("logger.max_size: must be positive when logger.file is set")
	}

	return nil
}

// Validate checks the correctness of the server configuration.
// Verifies that the server address is set.
func (n *ServerConfig) Validate() error {
	if n.Address == "" {
		return errors.New("server.address: must be specified")
	}

	if n.ReadTimeout < 0 || n.WriteTimeout < 0 {
		return errors.New("server timeouts: must not be negative")
	}

	return nil
}

// Validate checks that the selected backend has its connection settings.
func (s *StoreConfig) Validate() error {
	switch s.Type {
	case StoreTypeMemory:
	case StoreTypeMongo:
		if s.Mongo.URI == "" {
			return errors.New("store.mongo.uri: must be specified")
		}
		if s.Database() == "" {
			return errors.New("store.mongo.database: must be specified")
		}
	case StoreTypePostgres:
		if s.PostgresDSN() == "" {
			return errors.New("store.postgres.dsn: must be specified")
		}
	case StoreTypeRedis:
		if s.Redis.Address == "" {
			return errors.New("store.redis.address: must be specified")
		}
	case "":
		return errors.New("store.type: must be specified")
	default:
		return fmt.Errorf("store.type: unsupported type '%s'", s.Type)
	}

	if s.Timeout <= 0 {
		return errors.New("store.timeout: must be positive")
	}

	return nil
}

// Database returns the Mongo database name, honoring Mock.
func (s *StoreConfig) Database() string {
	if s.Mock {
		return s.Mongo.MockDatabase
	}
	return s.Mongo.Database
}

// PostgresDSN returns the PostgreSQL DSN, honoring Mock.
func (s *StoreConfig) PostgresDSN() string {
	if s.Mock {
		return s.Postgres.MockDSN
	}
	return s.Postgres.DSN
}

// RedisPrefix returns the Redis key prefix, honoring Mock.
func (s *StoreConfig) RedisPrefix() string {
	if s.Mock {
		return s.Redis.MockPrefix
	}
	return s.Redis.Prefix
}

// Validate checks engine parameters.
func (e *EngineConfig) Validate() error {
	if e.Concurrency < 1 {
		return errors.New("engine.concurrency: must be at least 1")
	}
	return nil
}

// setDefaults registers the values used when neither the file nor the
// environment provides a key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 7)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 3*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("store.type", StoreTypeMongo)
	v.SetDefault("store.timeout", 5*time.Second)
	v.SetDefault("store.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo.database", "hotelscore")
	v.SetDefault("store.mongo.mock_database", "hotelscore-mock")
	v.SetDefault("store.postgres.max_connections", 10)
	v.SetDefault("store.redis.prefix", "hotelscore:")
	v.SetDefault("store.redis.mock_prefix", "hotelscore-mock:")
	v.SetDefault("engine.concurrency", 16)
	v.SetDefault("seed.file", "")
	v.SetDefault("logger.file", "")
	v.SetDefault("store.mock", false)
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.postgres.mock_dsn", "")
	v.SetDefault("store.redis.address", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
}

// LoadConfig loads configuration from the specified file using Viper.
// Supports YAML format. Environment variables override file values; nested
// keys map to upper-case names with dots replaced by underscores
// (store.type -> STORE_TYPE).
//
// Parameter configPath — path to the configuration file.
//
// Returns a pointer to AppConfig or an error if:
// - the file is not found or inaccessible
// - the configuration has invalid format
// - one of the sections fails validation
func LoadConfig(configPath string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
