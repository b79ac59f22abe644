package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lherron/pipeboard/internal/domain"
	"github.com/lherron/pipeboard/internal/logging"
)

// Backend names accepted in the backend setting.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config represents the application configuration
type Config struct {
	Backend     string       `yaml:"backend"`
	DBPath      string       `yaml:"db_path"`
	DatabaseURL string       `yaml:"database_url"`
	RedisURL    string       `yaml:"redis_url"`
	RedisPrefix string       `yaml:"redis_prefix"`
	Addr        string       `yaml:"addr"`
	Variant     string       `yaml:"variant"`
	CORSOrigin  string       `yaml:"cors_origin"`
	LogLevel    string       `yaml:"log_level"`
	LogFormat   string       `yaml:"log_format"`
	WebhookURLs []string     `yaml:"webhook_urls"`
	Backup      BackupConfig `yaml:"backup"`
}

// BackupConfig points snapshot backups at an S3-compatible bucket.
type BackupConfig struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
	Prefix    string `yaml:"prefix"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/pipeboard/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		Backend:     BackendSQLite,
		DatabaseURL: "postgres://localhost/pipeboard?sslmode=disable",
		RedisURL:    "redis://localhost:6379/0",
		RedisPrefix: "pipeboard:",
		Addr:        "127.0.0.1:7272",
		Variant:     string(domain.VariantFull),
		CORSOrigin:  "*",
		LogLevel:    "info",
		LogFormat:   "text",
		Backup: BackupConfig{
			Region: "us-east-1",
			Prefix: "snapshots/",
		},
	}

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// YAML config is optional, but a present and malformed file is an error
	if err := loadYAMLConfig(cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(cfg)

	if cfg.DBPath == "" {
		// Check for project-local database first
		if _, err := os.Stat(".pipeboard/pipeboard.db"); err == nil {
			cfg.DBPath = ".pipeboard/pipeboard.db"
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			cfg.DBPath = filepath.Join(homeDir, ".local", "share", "pipeboard", "pipeboard.db")
		}
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, env string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	setString(&cfg.Backend, "PIPEBOARD_BACKEND")
	if v := getEnvOrFile("PIPEBOARD_DB_PATH", "PIPEBOARD_DB_PATH_FILE"); v != "" {
		cfg.DBPath = v
	}
	if v := getEnvOrFile("PIPEBOARD_DATABASE_URL", "PIPEBOARD_DATABASE_URL_FILE"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := getEnvOrFile("PIPEBOARD_REDIS_URL", "PIPEBOARD_REDIS_URL_FILE"); v != "" {
		cfg.RedisURL = v
	}
	setString(&cfg.RedisPrefix, "PIPEBOARD_REDIS_PREFIX")
	setString(&cfg.Addr, "PIPEBOARD_ADDR")
	setString(&cfg.Variant, "PIPEBOARD_VARIANT")
	setString(&cfg.CORSOrigin, "PIPEBOARD_CORS_ORIGIN")
	setString(&cfg.LogLevel, "PIPEBOARD_LOG_LEVEL")
	setString(&cfg.LogFormat, "PIPEBOARD_LOG_FORMAT")

	if v := os.Getenv("PIPEBOARD_WEBHOOK_URLS"); v != "" {
		cfg.WebhookURLs = nil
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.WebhookURLs = append(cfg.WebhookURLs, u)
			}
		}
	}

	setString(&cfg.Backup.Bucket, "PIPEBOARD_BACKUP_S3_BUCKET")
	setString(&cfg.Backup.Region, "PIPEBOARD_BACKUP_S3_REGION")
	setString(&cfg.Backup.Endpoint, "PIPEBOARD_BACKUP_S3_ENDPOINT")
	setString(&cfg.Backup.Prefix, "PIPEBOARD_BACKUP_S3_PREFIX")
	if v := os.Getenv("PIPEBOARD_BACKUP_S3_PATH_STYLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Backup.PathStyle = b
		}
	}
}

// Validate rejects unknown backends, variants and log settings.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendPostgres, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("invalid backend %q: must be one of: sqlite, postgres, redis, memory", c.Backend)
	}
	if _, err := domain.ParseVariant(c.Variant); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.LogFormat)
	}
	return nil
}

// DashboardVariant returns the configured variant, defaulting to full.
func (c *Config) DashboardVariant() domain.Variant {
	v, err := domain.ParseVariant(c.Variant)
	if err != nil {
		return domain.VariantFull
	}
	return v
}

// loadYAMLConfig loads configuration from ~/.config/pipeboard/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "pipeboard", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		if dir == homeDir {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
