package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the planner.
type Config struct {
	// TelegramToken is optional; without it the bot front-end stays off.
	TelegramToken  string
	DatabaseURL    string
	Location       *time.Location
	ReportInterval time.Duration
	LogSQL         bool

	RefreshTime string
	CleanupTime string

	RefreshHorizonDays    int
	InitialHorizonDays    int
	InstanceRetentionDays int
	HistoryRetentionDays  int
}

const (
	defaultDatabaseURL    = "daily_planner.db"
	defaultRefreshTime    = "00:05"
	defaultCleanupTime    = "03:30"
	defaultRefreshHorizon = 7
	defaultInitialHorizon = 30
	defaultRetentionDays  = 90
	defaultReportInterval = 5 * time.Hour
)

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first without overriding
// variables that are already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[warn] load .env: %v", err)
	}

	cfg := Config{
		TelegramToken:         env("TELEGRAM_TOKEN"),
		DatabaseURL:           env("DATABASE_URL"),
		ReportInterval:        parseInterval(env("REPORT_INTERVAL_HOURS")),
		LogSQL:                parseBool(env("LOG_SQL")),
		RefreshTime:           env("REFRESH_TIME"),
		CleanupTime:           env("CLEANUP_TIME"),
		RefreshHorizonDays:    parseDays(env("REFRESH_HORIZON_DAYS"), defaultRefreshHorizon),
		InitialHorizonDays:    parseDays(env("INITIAL_HORIZON_DAYS"), defaultInitialHorizon),
		InstanceRetentionDays: parseDays(env("INSTANCE_RETENTION_DAYS"), defaultRetentionDays),
		HistoryRetentionDays:  parseDays(env("HISTORY_RETENTION_DAYS"), defaultRetentionDays),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = defaultReportInterval
	}
	if cfg.RefreshTime == "" {
		cfg.RefreshTime = defaultRefreshTime
	}
	if cfg.CleanupTime == "" {
		cfg.CleanupTime = defaultCleanupTime
	}

	loc, err := loadLocation(env("TIMEZONE"))
	if err != nil {
		return cfg, err
	}
	cfg.Location = loc

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}

// parseDays accepts a non-negative day count and falls back to def otherwise.
func parseDays(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Printf("[warn] ignoring invalid day count %q, using %d", raw, def)
		return def
	}
	return n
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}
