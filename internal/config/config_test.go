package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory with no config variables set.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, envs := range envBindings {
		for _, env := range envs {
			t.Setenv(env, "")
		}
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.True(t, cfg.Database.Migrate)
	assert.Equal(t, 60*time.Second, cfg.Worker.Interval)
	assert.Equal(t, 1, cfg.Worker.Concurrency)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Empty(t, cfg.Telegram.Token)
	assert.Equal(t, 25.0, cfg.Telegram.SendRate)
	assert.Equal(t, 20, cfg.Telegram.RequestsPerMinute)
	assert.Equal(t, 5, cfg.Telegram.RequestBurst)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("DATABASE_DRIVER", " SQLite ")
	t.Setenv("DATABASE_URL", "data/reminders.db")
	t.Setenv("WORKER_INTERVAL", "15s")
	t.Setenv("WORKER_CONCURRENCY", "4")
	t.Setenv("TELEGRAM_REQUESTS_PER_MINUTE", "0")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "data/reminders.db", cfg.Database.DSN)
	assert.Equal(t, 15*time.Second, cfg.Worker.Interval)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, 0, cfg.Telegram.RequestsPerMinute)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BOT_TOKEN=from-dotenv\n"), 0o600))
	// godotenv only fills variables that are unset
	require.NoError(t, os.Unsetenv("BOT_TOKEN"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Telegram.Token)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bot.yaml")
	yaml := "database:\n  driver: memory\n  migrate: false\nworker:\n  interval: 2m\nlog:\n  format: json\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("WORKER_INTERVAL", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.False(t, cfg.Database.Migrate)
	assert.Equal(t, 30*time.Second, cfg.Worker.Interval)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadMissingFile(t *testing.T) {
	isolate(t)
	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database: DatabaseConfig{Driver: DriverSQLite, DSN: "reminders.db"},
			Worker:   WorkerConfig{Interval: time.Minute, Concurrency: 1},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mongo" }, `unknown database.driver "mongo"`},
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn is required"},
		{"interval too short", func(c *Config) { c.Worker.Interval = 500 * time.Millisecond }, "worker.interval"},
		{"no concurrency", func(c *Config) { c.Worker.Concurrency = 0 }, "worker.concurrency"},
		{"negative rate", func(c *Config) { c.Telegram.SendRate = -1 }, "telegram rate limits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("memory needs no dsn", func(t *testing.T) {
		cfg := valid()
		cfg.Database = DatabaseConfig{Driver: DriverMemory}
		assert.NoError(t, cfg.Validate())
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	log.Info("hidden")
	log.Warn("shown", "chat_id", 42)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"chat_id":42`)

	buf.Reset()
	LogConfig{Level: "nonsense"}.NewLogger(&buf).Info("text format")
	assert.Contains(t, buf.String(), "msg=\"text format\"")
}
