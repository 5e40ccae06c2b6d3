package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "store:\n  type: memory\n")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "info", config.Logger.Level)
	assert.Equal(t, ":8080", config.Server.Address)
	assert.Equal(t, 3*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, "*", config.Server.CORSOrigin)
	assert.Equal(t, StoreTypeMemory, config.Store.Type)
	assert.Equal(t, 5*time.Second, config.Store.Timeout)
	assert.Equal(t, 16, config.Engine.Concurrency)
	assert.Empty(t, config.Seed.File)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
server:
  address: ":9090"
  write_timeout: 30s
store:
  type: postgres
  timeout: 2s
  postgres:
    dsn: postgres://localhost/hotelscore
    mock_dsn: postgres://localhost/hotelscore_mock
engine:
  concurrency: 4
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Logger.Level)
	assert.Equal(t, ":9090", config.Server.Address)
	assert.Equal(t, 30*time.Second, config.Server.WriteTimeout)
	assert.Equal(t, StoreTypePostgres, config.Store.Type)
	assert.Equal(t, 2*time.Second, config.Store.Timeout)
	assert.Equal(t, "postgres://localhost/hotelscore", config.Store.PostgresDSN())
	assert.Equal(t, 4, config.Engine.Concurrency)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "store:\n  type: memory\n")
	t.Setenv("SERVER_ADDRESS", ":7070")
	t.Setenv("STORE_TYPE", "redis")
	t.Setenv("STORE_REDIS_ADDRESS", "redis:6379")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", config.Server.Address)
	assert.Equal(t, StoreTypeRedis, config.Store.Type)
	assert.Equal(t, "redis:6379", config.Store.Redis.Address)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeConfig(t, "store:\n  type: cassandra\n")
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "store.type")
}

func TestStoreConfig_Mock(t *testing.T) {
	s := StoreConfig{
		Type:     StoreTypeMongo,
		Timeout:  time.Second,
		Mongo:    MongoConfig{URI: "mongodb://localhost", Database: "main", MockDatabase: "main-mock"},
		Postgres: PostgresConfig{DSN: "real", MockDSN: "mock"},
		Redis:    RedisConfig{Prefix: "p:", MockPrefix: "m:"},
	}

	assert.Equal(t, "main", s.Database())
	assert.Equal(t, "real", s.PostgresDSN())
	assert.Equal(t, "p:", s.RedisPrefix())

	s.Mock = true
	assert.Equal(t, "main-mock", s.Database())
	assert.Equal(t, "mock", s.PostgresDSN())
	assert.Equal(t, "m:", s.RedisPrefix())
	assert.NoError(t, s.Validate())

	s.Mongo.MockDatabase = ""
	assert.Error(t, s.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *AppConfig)
		errMsg string
	}{
		{"valid", func(*AppConfig) {}, ""},
		{"empty level", func(c *AppConfig) { c.Logger.Level = "" }, "logger.level"},
		{"bad level", func(c *AppConfig) { c.Logger.Level = "trace" }, "logger.level"},
		{"log file without size", func(c *AppConfig) { c.Logger.File = "/tmp/x.log"; c.Logger.MaxSize = 0 }, "logger.max_size"},
		{"empty address", func(c *AppConfig) { c.Server.Address = "" }, "server.address"},
		{"zero store timeout", func(c *AppConfig) { c.Store.Timeout = 0 }, "store.timeout"},
		{"postgres without dsn", func(c *AppConfig) { c.Store.Type = StoreTypePostgres }, "store.postgres.dsn"},
		{"redis without address", func(c *AppConfig) { c.Store.Type = StoreTypeRedis }, "store.redis.address"},
		{"zero concurrency", func(c *AppConfig) { c.Engine.Concurrency = 0 }, "engine.concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := AppConfig{
				Logger: LoggerConfig{Level: "info"},
				Server: ServerConfig{Address: ":8080"},
				Store:  StoreConfig{Type: StoreTypeMemory, Timeout: time.Second},
				Engine: EngineConfig{Concurrency: 1},
			}
			tt.modify(&c)

			err := c.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.errMsg)
			}
		})
	}
}
