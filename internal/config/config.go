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
	DataDir  string // Base directory for all databases (always absolute)
	SeedFile string // Optional YAML file seeding pools and vaults
	LogLevel string
	Port     int
	DevMode  bool
	Backup   *BackupConfig
}

// BackupConfig holds cloud backup configuration. Backups are disabled
// unless a bucket is configured.
type BackupConfig struct {
	Enabled         bool
	Bucket          string
	Endpoint        string // S3-compatible endpoint URL (empty for AWS)
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("QUANTARA_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT value: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		SeedFile: getEnv("QUANTARA_SEED_FILE", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     port,
		DevMode:  getEnv("DEV_MODE", "false") == "true",
	}

	// Cloud backup is opt-in: enabled only when a bucket is configured
	bucket := getEnv("BACKUP_BUCKET", "")
	if bucket != "" {
		retention, err := strconv.Atoi(getEnv("BACKUP_RETENTION_DAYS", "14"))
		if err != nil {
			return nil, fmt.Errorf("invalid BACKUP_RETENTION_DAYS value: %w", err)
		}
		cfg.Backup = &BackupConfig{
			Enabled:         true,
			Bucket:          bucket,
			Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:          getEnv("BACKUP_S3_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			RetentionDays:   retention,
		}
	}

	return cfg, nil
}

// DatabasePath returns the absolute path for a named database file.
func (c *Config) DatabasePath(name string) string {
	return filepath.Join(c.DataDir, name+".db")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
