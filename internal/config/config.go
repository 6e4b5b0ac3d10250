package config

import (
	"fmt"
	"os"
	"strconv"

	"DailyBias/internal/model"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		ListenAddr string `yaml:"listen_addr"`
		StaticDir  string `yaml:"static_dir"`
	} `yaml:"server"`
	Quiz struct {
		LookbackDays  int    `yaml:"lookback_days"`
		NumTests      int    `yaml:"num_tests"`
		Seed          int64  `yaml:"seed"` // 0 means randomize per build
		FetchDelaySec int    `yaml:"fetch_delay_seconds"`
		MaxRetries    int    `yaml:"max_retries"`
		RefreshCron   string `yaml:"refresh_cron"`
	} `yaml:"quiz"`
	DataSource struct {
		AlphaVantageKey string `yaml:"alphavantage_key"`
		CacheMaxAgeHrs  int    `yaml:"cache_max_age_hours"`
	} `yaml:"data_source"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Assets []model.Asset `yaml:"assets"`
	Proxy  string        `yaml:"proxy"`
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
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		cfg.Server.StaticDir = v
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.DataSource.AlphaVantageKey = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("NUM_TESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Quiz.NumTests = n
		}
	}
	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Quiz.LookbackDays = n
		}
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Quiz.RefreshCron = v
	}

	// Defaults
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = "static"
	}
	if cfg.Quiz.LookbackDays == 0 {
		cfg.Quiz.LookbackDays = 365
	}
	if cfg.Quiz.NumTests == 0 {
		cfg.Quiz.NumTests = 5
	}
	if cfg.Quiz.FetchDelaySec == 0 {
		cfg.Quiz.FetchDelaySec = 2
	}
	if cfg.Quiz.MaxRetries == 0 {
		cfg.Quiz.MaxRetries = 3
	}
	if cfg.Quiz.RefreshCron == "" {
		cfg.Quiz.RefreshCron = "0 0 6 * * *"
	}
	if cfg.DataSource.CacheMaxAgeHrs == 0 {
		cfg.DataSource.CacheMaxAgeHrs = 24
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/dailybias.db"
	}
	if len(cfg.Assets) == 0 {
		cfg.Assets = []model.Asset{
			{Symbol: "btc", ID: "bitcoin", Type: model.AssetCrypto},
		}
	}

	return cfg, nil
}

// Validate checks that all required fields are consistent.
func (c *Config) Validate() error {
	if c.Quiz.LookbackDays <= 0 {
		return fmt.Errorf("quiz.lookback_days must be positive")
	}
	if c.Quiz.NumTests <= 0 {
		return fmt.Errorf("quiz.num_tests must be positive")
	}
	if c.Quiz.NumTests+1 > c.Quiz.LookbackDays {
		return fmt.Errorf("quiz.num_tests %d needs at least %d lookback days", c.Quiz.NumTests, c.Quiz.NumTests+1)
	}
	seen := map[string]bool{}
	for _, a := range c.Assets {
		if a.Symbol == "" || a.ID == "" {
			return fmt.Errorf("asset symbol and id are required")
		}
		if a.Type != model.AssetCrypto && a.Type != model.AssetStock {
			return fmt.Errorf("asset %s: unknown type %q", a.Symbol, a.Type)
		}
		if seen[a.Symbol] {
			return fmt.Errorf("duplicate asset symbol %q", a.Symbol)
		}
		seen[a.Symbol] = true
	}
	return nil
}
