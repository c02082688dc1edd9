package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/pkg/errors"
)

// Config keeps runtime settings for the organiser.
type Config struct {
	DataFile            string `env:"ORGANISER_DATA_FILE" envDefault:"organiser-data.json"`
	DatabaseURL         string `env:"DATABASE_URL" envDefault:"organiser.db"`
	TelegramToken       string `env:"TELEGRAM_TOKEN"`
	ReportTime          string `env:"REPORT_TIME" envDefault:"08:00"`
	ReportIntervalHours int    `env:"REPORT_INTERVAL_HOURS" envDefault:"0"`

	Log LogConfig `envPrefix:"LOG_"`
}

// LogConfig controls the process logger and its optional rotating file.
type LogConfig struct {
	Level      string `env:"LEVEL" envDefault:"info"`
	File       string `env:"FILE"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"10"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"3"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"28"`
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(err, "parse environment")
	}

	cfg.DataFile = strings.TrimSpace(cfg.DataFile)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.ReportTime = strings.TrimSpace(cfg.ReportTime)

	if cfg.DataFile == "" {
		cfg.DataFile = "organiser-data.json"
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "organiser.db"
	}
	if cfg.ReportTime == "" {
		cfg.ReportTime = "08:00"
	}
	if cfg.ReportIntervalHours < 0 {
		return cfg, errors.Errorf("REPORT_INTERVAL_HOURS must not be negative, got %d", cfg.ReportIntervalHours)
	}
	if !validClock(cfg.ReportTime) {
		return cfg, errors.Errorf("REPORT_TIME must be HH:MM, got %q", cfg.ReportTime)
	}
	return cfg, nil
}

// RequireTelegram checks the settings the bot cannot start without.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}
	return nil
}

// ReportInterval is the optional extra digest period; zero disables it.
func (c Config) ReportInterval() time.Duration {
	return time.Duration(c.ReportIntervalHours) * time.Hour
}

func validClock(raw string) bool {
	hh, mm, ok := strings.Cut(raw, ":")
	if !ok {
		return false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return false
	}
	m, err := strconv.Atoi(mm)
	return err == nil && m >= 0 && m <= 59
}
