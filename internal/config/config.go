package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"EtfVolatility/internal/model"
	"EtfVolatility/internal/series"
)

// Config holds all application configuration.
type Config struct {
	Instruments []InstrumentConfig `yaml:"instruments" validate:"dive"`
	DataSource  struct {
		Provider string `yaml:"provider" validate:"oneof=tushare yahoo mock"`
	} `yaml:"data_source"`
	Tushare struct {
		Token   string `yaml:"token"`
		BaseURL string `yaml:"base_url" validate:"url"`
	} `yaml:"tushare"`
	Storage struct {
		Backend    string `yaml:"backend" validate:"oneof=csv sqlite"`
		DataDir    string `yaml:"data_dir" validate:"required"`
		SQLitePath string `yaml:"sqlite_path" validate:"required"`
	} `yaml:"storage"`
	Analytics struct {
		RiskFreeRate float64 `yaml:"risk_free_rate" validate:"gte=0,lt=1"`
		DefaultEpoch string  `yaml:"default_epoch" validate:"datetime=2006-01-02"`
	} `yaml:"analytics"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron" validate:"required"`
	} `yaml:"schedule"`
	Workers  int `yaml:"workers" validate:"gte=1,lte=16"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

// InstrumentConfig is one tracked ETF. Inception is optional.
type InstrumentConfig struct {
	Code      string `yaml:"code" validate:"required"`
	Name      string `yaml:"name"`
	Inception string `yaml:"inception" validate:"omitempty,datetime=2006-01-02"`
}

// envOverrides maps environment variables onto Config. Unset variables leave
// the file value untouched.
type envOverrides struct {
	Provider       string `envconfig:"DATA_PROVIDER"`
	TushareToken   string `envconfig:"TUSHARE_TOKEN"`
	Backend        string `envconfig:"STORAGE_BACKEND"`
	DataDir        string `envconfig:"DATA_DIR"`
	SQLitePath     string `envconfig:"SQLITE_PATH"`
	DailyCron      string `envconfig:"CRON_DAILY"`
	Workers        int    `envconfig:"WORKERS"`
	TelegramToken  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID string `envconfig:"TELEGRAM_CHAT_ID"`
	MetricsAddr    string `envconfig:"METRICS_ADDR"`
	Proxy          string `envconfig:"HTTPS_PROXY"`
}

// DefaultInstruments are tracked when the config file lists none.
var DefaultInstruments = []InstrumentConfig{
	{Code: "510050.SH", Name: "50ETF"},
	{Code: "510300.SH", Name: "300ETF_Huatai"},
	{Code: "510500.SH", Name: "500ETF"},
	{Code: "588000.SH", Name: "KC50ETF"},
	{Code: "159915.SZ", Name: "CYBETF"},
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}
	cfg.applyEnv(env)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(env envOverrides) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.DataSource.Provider, env.Provider)
	set(&c.Tushare.Token, env.TushareToken)
	set(&c.Storage.Backend, env.Backend)
	set(&c.Storage.DataDir, env.DataDir)
	set(&c.Storage.SQLitePath, env.SQLitePath)
	set(&c.Schedule.DailyCron, env.DailyCron)
	set(&c.Telegram.BotToken, env.TelegramToken)
	set(&c.Telegram.ChatID, env.TelegramChatID)
	set(&c.Metrics.Addr, env.MetricsAddr)
	set(&c.Proxy, env.Proxy)
	if env.Workers > 0 {
		c.Workers = env.Workers
	}
}

func (c *Config) applyDefaults() {
	if len(c.Instruments) == 0 {
		c.Instruments = append([]InstrumentConfig(nil), DefaultInstruments...)
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "tushare"
	}
	if c.Tushare.BaseURL == "" {
		c.Tushare.BaseURL = "http://api.tushare.pro"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "csv"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/etf_volatility.db"
	}
	if c.Analytics.RiskFreeRate == 0 {
		c.Analytics.RiskFreeRate = 0.03
	}
	if c.Analytics.DefaultEpoch == "" {
		c.Analytics.DefaultEpoch = series.DefaultEpoch.Format(model.DateLayout)
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 0 18 * * 1-5"
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("%s failed %q validation", e.Namespace(), e.Tag())
		}
		return err
	}
	if len(c.Instruments) == 0 {
		return errors.New("at least one instrument is required")
	}
	seen := make(map[string]bool, len(c.Instruments))
	for _, inst := range c.Instruments {
		if seen[inst.Code] {
			return fmt.Errorf("duplicate instrument %s", inst.Code)
		}
		seen[inst.Code] = true
	}
	if c.DataSource.Provider == "tushare" && c.Tushare.Token == "" {
		return errors.New("tushare.token is required for the tushare provider")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(c.Schedule.DailyCron); err != nil {
		return fmt.Errorf("schedule.daily_cron: %w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return errors.New("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// InstrumentList converts the configured instruments to model values.
// Call after Validate.
func (c *Config) InstrumentList() []model.Instrument {
	out := make([]model.Instrument, 0, len(c.Instruments))
	for _, ic := range c.Instruments {
		inst := model.Instrument{Code: ic.Code, Name: ic.Name}
		if ic.Inception != "" {
			if d, err := time.Parse(model.DateLayout, ic.Inception); err == nil {
				inst.Inception = d
			}
		}
		if inst.Name == "" {
			inst.Name = inst.Code
		}
		out = append(out, inst)
	}
	return out
}

// Epoch returns the default fetch start for instruments without history.
func (c *Config) Epoch() time.Time {
	d, err := time.Parse(model.DateLayout, c.Analytics.DefaultEpoch)
	if err != nil {
		return series.DefaultEpoch
	}
	return d
}
