// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the results database, log file and exports
	LogLevel string
	LogFile  string // Append-only error/status log (empty disables the file sink)
	Port     int
	DevMode  bool

	// Simulation defaults. Per-request values override these; they exist so
	// the CLI and the HTTP API agree on what an unqualified sweep means.
	ChargeCutoff       int // Charge-basis truncation per mode
	DefaultSweepPoints int
	DefaultLevels      int
	MaxSweepFailures   int // 0 = no threshold, failed points are only recorded

	// Run history retention, enforced by the maintenance scheduler.
	RunRetentionDays int

	Backup *BackupConfig
}

// BackupConfig holds S3-compatible backup storage configuration.
// Backups are disabled unless both credentials and a bucket are set.
type BackupConfig struct {
	Endpoint  string // Custom endpoint for S3-compatible stores (empty = AWS)
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Retention int // Number of backup archives to keep remotely
}

// Enabled reports whether backup uploads are configured.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != "" && b.AccessKey != "" && b.SecretKey != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory: RQLAB_DATA_DIR if set, otherwise ./data,
	// always resolved to an absolute path that is created up front.
	dataDir := getEnv("RQLAB_DATA_DIR", "data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:            absDataDir,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            getEnv("RQLAB_LOG_FILE", filepath.Join(absDataDir, "simulation_errors.log")),
		Port:               getEnvAsInt("RQLAB_PORT", 8080),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		ChargeCutoff:       getEnvAsInt("RQLAB_CHARGE_CUTOFF", 12),
		DefaultSweepPoints: getEnvAsInt("RQLAB_SWEEP_POINTS", 100),
		DefaultLevels:      getEnvAsInt("RQLAB_SWEEP_LEVELS", 5),
		MaxSweepFailures:   getEnvAsInt("RQLAB_MAX_SWEEP_FAILURES", 0),
		RunRetentionDays:   getEnvAsInt("RQLAB_RUN_RETENTION_DAYS", 30),
		Backup: &BackupConfig{
			Endpoint:  getEnv("RQLAB_BACKUP_ENDPOINT", ""),
			Region:    getEnv("RQLAB_BACKUP_REGION", "auto"),
			Bucket:    getEnv("RQLAB_BACKUP_BUCKET", ""),
			AccessKey: getEnv("RQLAB_BACKUP_ACCESS_KEY", ""),
			SecretKey: getEnv("RQLAB_BACKUP_SECRET_KEY", ""),
			Retention: getEnvAsInt("RQLAB_BACKUP_RETENTION", 14),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.ChargeCutoff < 1 {
		return fmt.Errorf("charge cutoff must be at least 1, got %d", c.ChargeCutoff)
	}
	if c.DefaultSweepPoints < 1 {
		return fmt.Errorf("default sweep points must be at least 1, got %d", c.DefaultSweepPoints)
	}
	if c.DefaultLevels < 1 {
		return fmt.Errorf("default level count must be at least 1, got %d", c.DefaultLevels)
	}
	if c.MaxSweepFailures < 0 {
		return fmt.Errorf("max sweep failures cannot be negative, got %d", c.MaxSweepFailures)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
