package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/hray3182/tincan/internal/period"
)

type Config struct {
	DatabaseURI    string
	HTTPAddr       string
	StoreTimeout   time.Duration
	ShutdownGrace  time.Duration
	Workers        int
	WeekStart      time.Weekday
	AlertRetention time.Duration
	TelegramToken  string
	AIAPIKey       string
	AIBaseURL      string
	AIModel        string
	JobsFile       string
	LogLevel       string
	LogEncoding    string

	Jobs JobOverrides
}

func Load() (*Config, error) {
	// .env file is optional in production
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURI:   os.Getenv("DATABASE_URI"),
		HTTPAddr:      getEnvOrDefault("HTTP_ADDR", ":8081"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		AIAPIKey:      os.Getenv("AI_API_KEY"),
		AIBaseURL:     getEnvOrDefault("AI_BASE_URL", "https://openrouter.ai/api/v1"),
		AIModel:       getEnvOrDefault("AI_MODEL", "openai/gpt-4o-mini"),
		JobsFile:      os.Getenv("JOBS_FILE"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		LogEncoding:   getEnvOrDefault("LOG_ENCODING", "plain"),
	}

	// "off" disables the status server
	if cfg.HTTPAddr == "off" {
		cfg.HTTPAddr = ""
	}

	var err error
	if cfg.StoreTimeout, err = durationEnv("STORE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownGrace, err = durationEnv("SHUTDOWN_GRACE", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.AlertRetention, err = durationEnv("ALERT_RETENTION", 90*24*time.Hour); err != nil {
		return nil, err
	}

	workers := getEnvOrDefault("WORKERS", "4")
	cfg.Workers, err = strconv.Atoi(workers)
	if err != nil || cfg.Workers < 1 {
		return nil, fmt.Errorf("WORKERS: want a positive integer, got %q", workers)
	}

	weekStart := getEnvOrDefault("WEEK_START", "sunday")
	day, ok := period.ParseWeekday(weekStart)
	if !ok {
		return nil, fmt.Errorf("WEEK_START: unknown weekday %q", weekStart)
	}
	cfg.WeekStart = day

	if cfg.JobsFile != "" {
		jobs, err := LoadJobOverrides(cfg.JobsFile)
		if err != nil {
			return nil, err
		}
		cfg.Jobs = jobs
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %s", key, d)
	}
	return d, nil
}
