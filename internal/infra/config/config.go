package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken string
	DatabaseURL   string
	LogLevel      string
	Environment   string
	// Timezone feeding and vaccination reminders are evaluated in.
	// Empty means the process-local timezone.
	Timezone string
	// GraceWindow is how late a due job may fire before it is flagged as
	// past-due. Late jobs still fire exactly once.
	GraceWindow time.Duration
	// VaccinationNotifyHour is the hour of day anniversary reminders fire at.
	VaccinationNotifyHour int
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.Timezone = os.Getenv("TIMEZONE")

	graceStr := os.Getenv("SCHEDULER_GRACE_WINDOW")
	if graceStr == "" {
		graceStr = "1h" // Default tolerance for past-due jobs
	}
	grace, err := time.ParseDuration(graceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_GRACE_WINDOW: %w", err)
	}
	cfg.GraceWindow = grace

	hourStr := os.Getenv("VACCINATION_NOTIFY_HOUR")
	if hourStr == "" {
		hourStr = "9" // Default: 09:00
	}
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 0 || hour > 23 {
		return nil, fmt.Errorf("invalid VACCINATION_NOTIFY_HOUR: %q", hourStr)
	}
	cfg.VaccinationNotifyHour = hour

	return cfg, nil
}

// Location resolves the configured timezone, falling back to process-local.
func (c *AppConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
