package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"SetupSentinel/internal/model"
)

// HourRange is an inclusive range of hours of the day.
type HourRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// TimeframeConfig selects a bar interval and how many bars to request.
type TimeframeConfig struct {
	Timeframe model.Timeframe `yaml:"timeframe"`
	Lookback  int             `yaml:"lookback"`
}

// StrategyConfig holds the checklist thresholds and indicator periods.
type StrategyConfig struct {
	RSIPeriod           int         `yaml:"rsi_period"`
	FisherPeriod        int         `yaml:"fisher_period"`
	DivergenceThreshold float64     `yaml:"divergence_threshold"`
	Midline             float64     `yaml:"midline"`
	BreachLookback      int         `yaml:"breach_lookback"`
	BreachTolerance     float64     `yaml:"breach_tolerance"`
	EMAPeriod           int         `yaml:"ema_period"`
	SMAShort            int         `yaml:"sma_short"`
	SMALong             int         `yaml:"sma_long"`
	BandWindow          int         `yaml:"band_window"`
	BandDeviation       float64     `yaml:"band_deviation"`
	TouchTolerance      float64     `yaml:"touch_tolerance"`
	HourRanges          []HourRange `yaml:"hour_ranges"`
	Timezone            string      `yaml:"timezone"`
}

// Config holds all application configuration.
type Config struct {
	Symbols    []string `yaml:"symbols"`
	DataSource struct {
		Type       string `yaml:"type"` // yahoo, bridge or sqlite
		BaseURL    string `yaml:"base_url"`
		APIKey     string `yaml:"api_key"`
		SQLitePath string `yaml:"sqlite_path"`
		RecordPath string `yaml:"record_path"` // mirror fetched bars into this SQLite file
	} `yaml:"data_source"`
	Slow                  TimeframeConfig `yaml:"slow"`
	Fast                  TimeframeConfig `yaml:"fast"`
	Strategy              StrategyConfig  `yaml:"strategy"`
	PollIntervalSeconds   int             `yaml:"poll_interval_seconds"`
	NotifyCooldownSeconds int             `yaml:"notify_cooldown_seconds"`
	Telegram              struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Webhook struct {
		URL string `yaml:"url"`
	} `yaml:"webhook"`
	UI struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"ui"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
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

	// Environment variable overrides
	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.Symbols = splitList(v)
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Webhook.URL = v
	}
	if v := os.Getenv("BRIDGE_BASE_URL"); v != "" {
		cfg.DataSource.Type = "bridge"
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("BRIDGE_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.DataSource.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PollIntervalSeconds = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Default returns a configuration with every default applied and no file read.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if len(c.Symbols) == 0 {
		c.Symbols = []string{"EURUSD", "GBPUSD", "USDJPY", "XAUUSD"}
	}
	if c.DataSource.Type == "" {
		c.DataSource.Type = "yahoo"
	}
	if c.DataSource.SQLitePath == "" {
		c.DataSource.SQLitePath = "data/bars.db"
	}
	if c.Slow.Timeframe == "" {
		c.Slow.Timeframe = model.H1
	}
	if c.Slow.Lookback == 0 {
		c.Slow.Lookback = 120
	}
	if c.Fast.Timeframe == "" {
		c.Fast.Timeframe = model.M15
	}
	if c.Fast.Lookback == 0 {
		// SMA(400) needs at least 400 fast bars
		c.Fast.Lookback = 450
	}

	s := &c.Strategy
	if s.RSIPeriod == 0 {
		s.RSIPeriod = 5
	}
	if s.FisherPeriod == 0 {
		s.FisherPeriod = 10
	}
	if s.DivergenceThreshold == 0 {
		s.DivergenceThreshold = 0.6
	}
	if s.Midline == 0 {
		s.Midline = 50
	}
	if s.BreachLookback == 0 {
		s.BreachLookback = 20
	}
	if s.BreachTolerance == 0 {
		s.BreachTolerance = 0.0005
	}
	if s.EMAPeriod == 0 {
		s.EMAPeriod = 50
	}
	if s.SMAShort == 0 {
		s.SMAShort = 200
	}
	if s.SMALong == 0 {
		s.SMALong = 400
	}
	if s.BandWindow == 0 {
		s.BandWindow = 20
	}
	if s.BandDeviation == 0 {
		s.BandDeviation = 2
	}
	if s.TouchTolerance == 0 {
		s.TouchTolerance = 0.0004
	}
	if len(s.HourRanges) == 0 {
		s.HourRanges = []HourRange{{From: 9, To: 10}, {From: 14, To: 17}}
	}
	if s.Timezone == "" {
		s.Timezone = "UTC"
	}

	if c.PollIntervalSeconds == 0 {
		c.PollIntervalSeconds = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = "sentinel.log"
	}
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols must not be empty")
	}
	switch c.DataSource.Type {
	case "yahoo":
	case "sqlite":
		if c.DataSource.RecordPath != "" {
			return fmt.Errorf("data_source.record_path cannot be used with the sqlite source")
		}
	case "bridge":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the bridge source")
		}
	default:
		return fmt.Errorf("data_source.type %q is not one of yahoo, bridge, sqlite", c.DataSource.Type)
	}
	for name, tf := range map[string]TimeframeConfig{"slow": c.Slow, "fast": c.Fast} {
		if !tf.Timeframe.Valid() {
			return fmt.Errorf("%s.timeframe %q is not a known timeframe", name, tf.Timeframe)
		}
		if tf.Lookback <= 0 {
			return fmt.Errorf("%s.lookback must be positive", name)
		}
	}

	s := c.Strategy
	periods := []struct {
		name string
		v    int
	}{
		{"rsi_period", s.RSIPeriod},
		{"fisher_period", s.FisherPeriod},
		{"breach_lookback", s.BreachLookback},
		{"ema_period", s.EMAPeriod},
		{"sma_short", s.SMAShort},
		{"sma_long", s.SMALong},
		{"band_window", s.BandWindow},
	}
	for _, p := range periods {
		if p.v <= 0 {
			return fmt.Errorf("strategy.%s must be positive", p.name)
		}
	}
	if s.DivergenceThreshold < 0 || s.BreachTolerance < 0 || s.TouchTolerance < 0 || s.BandDeviation < 0 {
		return fmt.Errorf("strategy thresholds and tolerances must not be negative")
	}
	for _, r := range s.HourRanges {
		if r.From < 0 || r.To > 23 || r.From > r.To {
			return fmt.Errorf("strategy.hour_ranges: invalid range %d-%d", r.From, r.To)
		}
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("strategy.timezone: %w", err)
	}

	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll_interval_seconds must be positive")
	}
	if c.NotifyCooldownSeconds < 0 {
		return fmt.Errorf("notify_cooldown_seconds must not be negative")
	}
	return nil
}

// PollInterval returns the per-instrument cycle cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// NotifyCooldown returns the window in which repeated notifications are
// suppressed; zero repeats them every cycle.
func (c *Config) NotifyCooldown() time.Duration {
	return time.Duration(c.NotifyCooldownSeconds) * time.Second
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
