// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Database DatabaseConfig
	Blob     BlobConfig
	Upload   UploadConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        // Bind address (default: empty, all interfaces)
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	// CORSOrigins is a comma-separated allowlist. Empty allows any origin,
	// which suits a single-user deployment behind a private network.
	CORSOrigins string
}

// DatabaseConfig holds SQLite configuration.
type DatabaseConfig struct {
	// Path is the SQLite database file (default: {data}/nixground.db).
	Path string
	// DataPath is the base directory for server-managed files.
	DataPath string
}

// BlobConfig holds object storage configuration for image bytes.
type BlobConfig struct {
	// Backend selects the store implementation: "fs" or "s3".
	Backend string
	// PublicBaseURL is the prefix public image URLs are built from.
	PublicBaseURL string

	// FSRoot is the directory for the filesystem backend
	// (default: {data}/blobs).
	FSRoot string

	// S3-compatible backend settings. Endpoint wins over AccountID; when
	// only AccountID is set the Cloudflare R2 endpoint is derived from it.
	S3AccountID       string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
}

// UploadConfig holds upload pipeline configuration.
type UploadConfig struct {
	// MaxSourceBytes caps remote source downloads (default: 50MB).
	MaxSourceBytes int64
	// SourceTimeout is the per-download timeout (default: 30s).
	SourceTimeout time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
//
// Flags are read from args (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	flags, err := parseFlags(args)
	if err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(flags.envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(flags.env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(flags.logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Host:        getConfigValue(flags.host, "SERVER_HOST", ""),
			Port:        getConfigValue(flags.port, "SERVER_PORT", "8080"),
			CORSOrigins: getConfigValue(flags.corsOrigins, "CORS_ORIGINS", ""),
		},
		Database: DatabaseConfig{
			Path:     getConfigValue(flags.dbPath, "DATABASE_PATH", ""),
			DataPath: getConfigValue(flags.dataPath, "DATA_PATH", ""),
		},
		Blob: BlobConfig{
			Backend:           getConfigValue(flags.blobBackend, "BLOB_BACKEND", "fs"),
			PublicBaseURL:     getConfigValue(flags.publicBaseURL, "BLOB_PUBLIC_BASE_URL", ""),
			FSRoot:            getConfigValue(flags.blobFSRoot, "BLOB_FS_ROOT", ""),
			S3AccountID:       getConfigValue("", "S3_ACCOUNT_ID", ""),
			S3Endpoint:        getConfigValue("", "S3_ENDPOINT", ""),
			S3AccessKeyID:     getConfigValue("", "S3_ACCESS_KEY_ID", ""),
			S3SecretAccessKey: getConfigValue("", "S3_SECRET_ACCESS_KEY", ""),
			S3Bucket:          getConfigValue(flags.s3Bucket, "S3_BUCKET", ""),
		},
		Upload: UploadConfig{
			MaxSourceBytes: getInt64ConfigValue(flags.uploadMaxBytes, "UPLOAD_MAX_SOURCE_BYTES", 50*1024*1024),
		},
	}

	// Parse server timeouts.
	cfg.Server.ReadTimeout, err = parseDurationValue(flags.readTimeout, "SERVER_READ_TIMEOUT", "15s", "read timeout")
	if err != nil {
		return nil, err
	}
	cfg.Server.WriteTimeout, err = parseDurationValue(flags.writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", "write timeout")
	if err != nil {
		return nil, err
	}
	cfg.Server.IdleTimeout, err = parseDurationValue(flags.idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", "idle timeout")
	if err != nil {
		return nil, err
	}
	cfg.Upload.SourceTimeout, err = parseDurationValue(flags.uploadTimeout, "UPLOAD_SOURCE_TIMEOUT", "30s", "upload source timeout")
	if err != nil {
		return nil, err
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Database.Path == "" {
		return errors.New("database path cannot be empty after expansion")
	}

	switch c.Blob.Backend {
	case "fs":
		if c.Blob.FSRoot == "" {
			return errors.New("blob fs root cannot be empty after expansion")
		}
	case "s3":
		if c.Blob.S3Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 blob backend")
		}
		if c.Blob.S3Endpoint == "" && c.Blob.S3AccountID == "" {
			return errors.New("S3_ENDPOINT or S3_ACCOUNT_ID is required for the s3 blob backend")
		}
		if c.Blob.S3AccessKeyID == "" || c.Blob.S3SecretAccessKey == "" {
			return errors.New("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required for the s3 blob backend")
		}
		if c.Blob.PublicBaseURL == "" {
			return errors.New("BLOB_PUBLIC_BASE_URL is required for the s3 blob backend")
		}
	default:
		return fmt.Errorf("invalid blob backend: %s (must be fs or s3)", c.Blob.Backend)
	}

	if c.Upload.MaxSourceBytes <= 0 {
		return errors.New("upload max source bytes must be positive")
	}

	return nil
}

// expandPaths fills path defaults and makes every path absolute.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultData := filepath.Join(homeDir, "nixground")

	c.Database.DataPath, err = expandPath(c.Database.DataPath, defaultData)
	if err != nil {
		return fmt.Errorf("invalid data path: %w", err)
	}

	c.Database.Path, err = expandPath(c.Database.Path, filepath.Join(c.Database.DataPath, "nixground.db"))
	if err != nil {
		return fmt.Errorf("invalid database path: %w", err)
	}

	c.Blob.FSRoot, err = expandPath(c.Blob.FSRoot, filepath.Join(c.Database.DataPath, "blobs"))
	if err != nil {
		return fmt.Errorf("invalid blob fs root: %w", err)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func parseDurationValue(flagValue, envKey, defaultValue, what string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", what, raw, err)
	}
	return d, nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getInt64ConfigValue returns an int64 from flag, env var, or default.
func getInt64ConfigValue(flagValue, envKey string, defaultValue int64) int64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int64
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
