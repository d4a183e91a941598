package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var keys = []string{
	"TELEGRAM_TOKEN", "DATABASE_URL", "TIMEZONE", "REFRESH_TIME", "CLEANUP_TIME",
	"REFRESH_HORIZON_DAYS", "INITIAL_HORIZON_DAYS", "INSTANCE_RETENTION_DAYS",
	"HISTORY_RETENTION_DAYS", "REPORT_INTERVAL_HOURS", "LOG_SQL",
}

// isolate runs the test from an empty directory with every setting cleared.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TelegramToken != "" {
		t.Fatalf("unexpected token %q", cfg.TelegramToken)
	}
	if cfg.DatabaseURL != "daily_planner.db" {
		t.Fatalf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Location != time.Local {
		t.Fatalf("Location = %v", cfg.Location)
	}
	if cfg.RefreshTime != "00:05" || cfg.CleanupTime != "03:30" {
		t.Fatalf("times = %q %q", cfg.RefreshTime, cfg.CleanupTime)
	}
	if cfg.RefreshHorizonDays != 7 || cfg.InitialHorizonDays != 30 {
		t.Fatalf("horizons = %d %d", cfg.RefreshHorizonDays, cfg.InitialHorizonDays)
	}
	if cfg.InstanceRetentionDays != 90 || cfg.HistoryRetentionDays != 90 {
		t.Fatalf("retention = %d %d", cfg.InstanceRetentionDays, cfg.HistoryRetentionDays)
	}
	if cfg.ReportInterval != 5*time.Hour || cfg.LogSQL {
		t.Fatalf("report=%s logSQL=%v", cfg.ReportInterval, cfg.LogSQL)
	}
}

func TestLoadOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("TELEGRAM_TOKEN", " token ")
	t.Setenv("TIMEZONE", "Europe/Moscow")
	t.Setenv("REFRESH_HORIZON_DAYS", "14")
	t.Setenv("INSTANCE_RETENTION_DAYS", "0")
	t.Setenv("HISTORY_RETENTION_DAYS", "-3")
	t.Setenv("REPORT_INTERVAL_HOURS", "1.5")
	t.Setenv("LOG_SQL", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TelegramToken != "token" {
		t.Fatalf("token = %q", cfg.TelegramToken)
	}
	if cfg.Location.String() != "Europe/Moscow" {
		t.Fatalf("Location = %v", cfg.Location)
	}
	if cfg.RefreshHorizonDays != 14 || cfg.InstanceRetentionDays != 0 {
		t.Fatalf("days = %d %d", cfg.RefreshHorizonDays, cfg.InstanceRetentionDays)
	}
	if cfg.HistoryRetentionDays != 90 {
		t.Fatalf("invalid value should fall back, got %d", cfg.HistoryRetentionDays)
	}
	if cfg.ReportInterval != 90*time.Minute || !cfg.LogSQL {
		t.Fatalf("report=%s logSQL=%v", cfg.ReportInterval, cfg.LogSQL)
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	isolate(t)
	t.Setenv("TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	isolate(t)
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("REFRESH_TIME")
	content := "DATABASE_URL=data/planner.db\nREFRESH_TIME=01:15\n"
	if err := os.WriteFile(filepath.Join(".", ".env"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "data/planner.db" || cfg.RefreshTime != "01:15" {
		t.Fatalf("dotenv not applied: %q %q", cfg.DatabaseURL, cfg.RefreshTime)
	}
}
