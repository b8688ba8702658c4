package config

import (
	"errors"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "tabclean/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Log      LogConfig
	Output   OutputConfig
	Pipeline PipelineConfig
	Database DatabaseConfig
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string // "console" or "json"
}

// OutputConfig holds where cleaned partitions are written
type OutputConfig struct {
	Dir    string
	Format string // "csv" or "xlsx"
}

// PipelineConfig holds run-wide pipeline settings
type PipelineConfig struct {
	// Seed overrides the split seed of every configuration when SeedSet is true
	Seed    int64
	SeedSet bool
	Workers int
	// Timeout bounds a whole run; zero means no limit
	Timeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	RecordRuns   bool
}

// Load reads .env files (missing files are ignored), then configuration from
// environment variables, and validates it. Variables already set win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Wrapf(apperrors.WithCode(apperrors.CodeConfigInvalid, err), "failed to load %s", file)
		}
	}

	pipeline, err := loadPipelineConfig()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load pipeline configuration")
	}
	config := &Config{
		Log:      loadLogConfig(),
		Output:   loadOutputConfig(),
		Pipeline: *pipeline,
		Database: loadDatabaseConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, apperrors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "INFO"),
		Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "console")),
	}
}

func loadOutputConfig() OutputConfig {
	return OutputConfig{
		Dir:    getEnvOrDefault("TABCLEAN_OUT_DIR", "out"),
		Format: strings.ToLower(getEnvOrDefault("TABCLEAN_OUT_FORMAT", "csv")),
	}
}

func loadPipelineConfig() (*PipelineConfig, error) {
	config := &PipelineConfig{
		Workers: getEnvIntOrDefault("TABCLEAN_WORKERS", runtime.NumCPU()),
		Timeout: getEnvDurationOrDefault("TABCLEAN_TIMEOUT", 0),
	}
	if raw := os.Getenv("TABCLEAN_SEED"); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, apperrors.ConfigInvalid("TABCLEAN_SEED must be an integer")
		}
		config.Seed = seed
		config.SeedSet = true
	}
	return config, nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:          os.Getenv("DATABASE_URL"),
		MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 4),
		RecordRuns:   getEnvBoolOrDefault("TABCLEAN_RECORD_RUNS", false),
	}
}

func validateConfig(config *Config) error {
	if config.Log.Format != "console" && config.Log.Format != "json" {
		return apperrors.ConfigInvalid("LOG_FORMAT must be console or json")
	}
	if config.Output.Format != "csv" && config.Output.Format != "xlsx" {
		return apperrors.ConfigInvalid("TABCLEAN_OUT_FORMAT must be csv or xlsx")
	}
	if config.Pipeline.Workers < 1 {
		return apperrors.ConfigInvalid("TABCLEAN_WORKERS must be at least 1")
	}
	if config.Database.RecordRuns && config.Database.URL == "" {
		return apperrors.ConfigInvalid("TABCLEAN_RECORD_RUNS requires DATABASE_URL")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
