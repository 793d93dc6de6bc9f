package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TUSHARE_TOKEN", "tok")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Len(t, cfg.Instruments, 5)
	assert.Equal(t, "tushare", cfg.DataSource.Provider)
	assert.Equal(t, "csv", cfg.Storage.Backend)
	assert.Equal(t, 0.03, cfg.Analytics.RiskFreeRate)
	assert.Equal(t, "0 0 18 * * 1-5", cfg.Schedule.DailyCron)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, time.Date(2017, 9, 1, 0, 0, 0, 0, time.UTC), cfg.Epoch())
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
instruments:
  - code: 510300.SH
    name: 300ETF
    inception: "2012-05-28"
tushare:
  token: file-token
storage:
  backend: sqlite
workers: 2
`)
	t.Setenv("TUSHARE_TOKEN", "env-token")
	t.Setenv("WORKERS", "4")
	t.Setenv("SQLITE_PATH", "/tmp/vol.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "env-token", cfg.Tushare.Token)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/vol.db", cfg.Storage.SQLitePath)

	insts := cfg.InstrumentList()
	require.Len(t, insts, 1)
	assert.Equal(t, "300ETF", insts[0].Name)
	assert.Equal(t, time.Date(2012, 5, 28, 0, 0, 0, 0, time.UTC), insts[0].Inception)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "instruments: [\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.Tushare.Token = "tok"
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no token", func(c *Config) { c.Tushare.Token = "" }, "tushare.token"},
		{"yahoo needs no token", func(c *Config) { c.Tushare.Token = ""; c.DataSource.Provider = "yahoo" }, ""},
		{"bad provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }, "Provider"},
		{"bad backend", func(c *Config) { c.Storage.Backend = "parquet" }, "Backend"},
		{"bad cron", func(c *Config) { c.Schedule.DailyCron = "every day" }, "daily_cron"},
		{"too many workers", func(c *Config) { c.Workers = 64 }, "Workers"},
		{"bad inception", func(c *Config) { c.Instruments[0].Inception = "2020/01/01" }, "Inception"},
		{"empty code", func(c *Config) { c.Instruments[0].Code = "" }, "Code"},
		{"duplicate", func(c *Config) { c.Instruments[1].Code = c.Instruments[0].Code }, "duplicate"},
		{"no instruments", func(c *Config) { c.Instruments = nil }, "instrument"},
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "x" }, "telegram"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
