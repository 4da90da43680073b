package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Data struct {
		Dir        string `yaml:"dir"`
		ExportFile string `yaml:"export_file"`
	} `yaml:"data"`
	Schedule struct {
		ScanCron    string `yaml:"scan_cron"`
		MissedCron  string `yaml:"missed_cron"`
		BalanceCron string `yaml:"balance_cron"`
		DigestCron  string `yaml:"digest_cron"`
	} `yaml:"schedule"`
	Thresholds struct {
		LowBalance         float64 `yaml:"low_balance"`
		OverdraftBuffer    float64 `yaml:"overdraft_buffer"`
		LargeWithdrawal    float64 `yaml:"large_withdrawal"`
		LargeDeposit       float64 `yaml:"large_deposit"`
		PriceChangePercent float64 `yaml:"price_change_percent"`
		MissedGraceDays    int     `yaml:"missed_grace_days"`
	} `yaml:"thresholds"`
	Mandates struct {
		DirectDebitMarkers   []string `yaml:"direct_debit_markers"`
		StandingOrderMarkers []string `yaml:"standing_order_markers"`
	} `yaml:"mandates"`
	Recurring struct {
		SubscriptionServices []string `yaml:"subscription_services"`
	} `yaml:"recurring"`
	Forecast struct {
		ProtectedFloor float64 `yaml:"protected_floor"`
	} `yaml:"forecast"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides, then fills defaults.
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
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("EXPORT_FILE"); v != "" {
		cfg.Data.ExportFile = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("SCAN_CRON"); v != "" {
		cfg.Schedule.ScanCron = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "data"
	}
	if cfg.Data.ExportFile == "" {
		cfg.Data.ExportFile = filepath.Join(cfg.Data.Dir, "export.json")
	}
	if cfg.Schedule.ScanCron == "" {
		cfg.Schedule.ScanCron = "0 30 6 * * *"
	}
	if cfg.Schedule.MissedCron == "" {
		cfg.Schedule.MissedCron = "0 0 9 * * *"
	}
	if cfg.Schedule.BalanceCron == "" {
		cfg.Schedule.BalanceCron = "0 5 * * * *"
	}
	if cfg.Schedule.DigestCron == "" {
		cfg.Schedule.DigestCron = "0 0 9 1 * *"
	}
	if cfg.Thresholds.LowBalance == 0 {
		cfg.Thresholds.LowBalance = 100
	}
	if cfg.Thresholds.OverdraftBuffer == 0 {
		cfg.Thresholds.OverdraftBuffer = 50
	}
	if cfg.Thresholds.LargeWithdrawal == 0 {
		cfg.Thresholds.LargeWithdrawal = 500
	}
	if cfg.Thresholds.LargeDeposit == 0 {
		cfg.Thresholds.LargeDeposit = 1000
	}
	if cfg.Thresholds.PriceChangePercent == 0 {
		cfg.Thresholds.PriceChangePercent = 5
	}
	if cfg.Thresholds.MissedGraceDays == 0 {
		cfg.Thresholds.MissedGraceDays = 3
	}
	if len(cfg.Mandates.DirectDebitMarkers) == 0 {
		cfg.Mandates.DirectDebitMarkers = []string{"direct debit", `\bd/?d\b`}
	}
	if len(cfg.Mandates.StandingOrderMarkers) == 0 {
		cfg.Mandates.StandingOrderMarkers = []string{"standing order", `\bs/?o\b`, `\bsto\b`}
	}
	if cfg.Forecast.ProtectedFloor == 0 {
		cfg.Forecast.ProtectedFloor = 100
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = filepath.Join(cfg.Data.Dir, "ledger_sentinel.db")
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Data.ExportFile == "" {
		return fmt.Errorf("data.export_file is required")
	}
	if c.Thresholds.LowBalance < 0 {
		return fmt.Errorf("thresholds.low_balance must not be negative")
	}
	if c.Thresholds.MissedGraceDays < 0 {
		return fmt.Errorf("thresholds.missed_grace_days must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// StateFile returns the path of a subsystem's JSON document inside the
// data directory.
func (c *Config) StateFile(name string) string {
	return filepath.Join(c.Data.Dir, name+".json")
}
