package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		BaseURL        string        `yaml:"base_url"`
		DataPath       string        `yaml:"data_path"`
		TrainPath      string        `yaml:"train_path"`
		MiscPath       string        `yaml:"misc_path"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		DataTimeout    time.Duration `yaml:"data_timeout"`
	} `yaml:"backend"`
	Chart struct {
		MaxDataPoints      int           `yaml:"max_data_points"`
		PatternLength      int           `yaml:"pattern_length"`
		SelectDebounce     time.Duration `yaml:"select_debounce"`
		CompleteResetDelay time.Duration `yaml:"complete_reset_delay"`
	} `yaml:"chart"`
	Settings struct {
		Path string `yaml:"path"`
	} `yaml:"settings"`
	Cache struct {
		Type  string        `yaml:"type"` // memory or redis
		TTL   time.Duration `yaml:"ttl"`
		Redis struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("SETTINGS_PATH"); v != "" {
		c.Settings.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Backend.DataPath == "" {
		c.Backend.DataPath = "/socket/data"
	}
	if c.Backend.TrainPath == "" {
		c.Backend.TrainPath = "/socket/train"
	}
	if c.Backend.MiscPath == "" {
		c.Backend.MiscPath = "/socket/misc"
	}
	if c.Backend.ReconnectDelay == 0 {
		c.Backend.ReconnectDelay = time.Second
	}
	if c.Backend.PingInterval == 0 {
		c.Backend.PingInterval = 25 * time.Second
	}
	if c.Backend.DataTimeout == 0 {
		c.Backend.DataTimeout = 5 * time.Second
	}
	if c.Chart.MaxDataPoints == 0 {
		c.Chart.MaxDataPoints = 1000
	}
	if c.Chart.PatternLength == 0 {
		c.Chart.PatternLength = 5
	}
	if c.Chart.SelectDebounce == 0 {
		c.Chart.SelectDebounce = 100 * time.Millisecond
	}
	if c.Chart.CompleteResetDelay == 0 {
		c.Chart.CompleteResetDelay = 500 * time.Millisecond
	}
	if c.Settings.Path == "" {
		c.Settings.Path = "delphi_settings.json"
	}
	if c.Cache.Type == "" {
		c.Cache.Type = "memory"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Cache.Type != "memory" && c.Cache.Type != "redis" {
		return fmt.Errorf("cache.type must be 'memory' or 'redis', got '%s'", c.Cache.Type)
	}
	if c.Chart.PatternLength < 2 {
		return fmt.Errorf("chart.pattern_length must be at least 2")
	}
	return nil
}
