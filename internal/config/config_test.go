package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Environment: "development",
		},
		Logger: LoggerConfig{
			Level: "info",
		},
		Database: DatabaseConfig{
			Path:     "/data/nixground.db",
			DataPath: "/data",
		},
		Blob: BlobConfig{
			Backend: "fs",
			FSRoot:  "/data/blobs",
		},
		Upload: UploadConfig{
			MaxSourceBytes: 1024,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	err := validConfig().Validate()
	assert.NoError(t, err)
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},  // case insensitive
		{"INFO", true},   // case insensitive
		{"trace", false}, // not supported
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_EmptyDatabasePath(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Path = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database path cannot be empty")
}

func TestValidate_BlobBackends(t *testing.T) {
	cfg := validConfig()
	cfg.Blob.Backend = "nfs"
	assert.Error(t, cfg.Validate())

	// s3 backend needs bucket, credentials, endpoint, and a public URL.
	cfg = validConfig()
	cfg.Blob.Backend = "s3"
	assert.Error(t, cfg.Validate())

	cfg.Blob.S3Bucket = "images"
	cfg.Blob.S3AccountID = "acct"
	cfg.Blob.S3AccessKeyID = "key"
	cfg.Blob.S3SecretAccessKey = "secret"
	assert.Error(t, cfg.Validate(), "public base URL still missing")

	cfg.Blob.PublicBaseURL = "https://img.example.com"
	assert.NoError(t, cfg.Validate())
}

func TestExpandPaths_Defaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.expandPaths())

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, "nixground"), cfg.Database.DataPath)
	assert.Equal(t, filepath.Join(homeDir, "nixground", "nixground.db"), cfg.Database.Path)
	assert.Equal(t, filepath.Join(homeDir, "nixground", "blobs"), cfg.Blob.FSRoot)
}

func TestExpandPaths_TildeExpansion(t *testing.T) {
	cfg := &Config{}
	cfg.Database.DataPath = "~/gallery-data"
	require.NoError(t, cfg.expandPaths())

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, "gallery-data"), cfg.Database.DataPath)
	assert.Equal(t, filepath.Join(homeDir, "gallery-data", "nixground.db"), cfg.Database.Path)
}

func TestExpandPaths_ExplicitPathsWin(t *testing.T) {
	cfg := &Config{}
	cfg.Database.DataPath = "/srv/nixground"
	cfg.Database.Path = "/var/db/gallery.db"
	cfg.Blob.FSRoot = "relative/blobs"
	require.NoError(t, cfg.expandPaths())

	assert.Equal(t, "/var/db/gallery.db", cfg.Database.Path)
	assert.True(t, filepath.IsAbs(cfg.Blob.FSRoot))
	assert.Contains(t, cfg.Blob.FSRoot, "relative/blobs")
}

func TestGetConfigValue_Precedence(t *testing.T) {
	// Test flag value takes priority.
	result := getConfigValue("flag-value", "ENV_KEY", "default-value")
	assert.Equal(t, "flag-value", result)

	// Test env var when flag is empty.
	os.Setenv("TEST_ENV_KEY", "env-value") //nolint:errcheck // Test setup
	defer os.Unsetenv("TEST_ENV_KEY")      //nolint:errcheck // Test cleanup

	result = getConfigValue("", "TEST_ENV_KEY", "default-value")
	assert.Equal(t, "env-value", result)

	// Test default when both are empty.
	result = getConfigValue("", "NONEXISTENT_KEY", "default-value")
	assert.Equal(t, "default-value", result)
}

func TestGetInt64ConfigValue(t *testing.T) {
	assert.Equal(t, int64(42), getInt64ConfigValue("42", "NONEXISTENT_KEY", 7))
	assert.Equal(t, int64(7), getInt64ConfigValue("", "NONEXISTENT_KEY", 7))
	assert.Equal(t, int64(7), getInt64ConfigValue("not-a-number", "NONEXISTENT_KEY", 7))
}

func TestLoadConfig_FlagsBeatEnv(t *testing.T) {
	os.Setenv("SERVER_PORT", "9999") //nolint:errcheck // Test setup
	defer os.Unsetenv("SERVER_PORT") //nolint:errcheck // Test cleanup

	cfg, err := LoadConfig([]string{
		"-port", "3000",
		"-env-file", filepath.Join(t.TempDir(), "missing.env"),
	})
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "fs", cfg.Blob.Backend)
	assert.Equal(t, int64(50*1024*1024), cfg.Upload.MaxSourceBytes)
}

func TestLoadConfig_BadDuration(t *testing.T) {
	_, err := LoadConfig([]string{
		"-read-timeout", "soon",
		"-env-file", filepath.Join(t.TempDir(), "missing.env"),
	})
	assert.Error(t, err)
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	// Create temp .env file.
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `# Test env file
ENV=staging
LOG_LEVEL=debug
DATABASE_PATH=/test/path.db
# Comment line
QUOTED_VALUE="some value"
SINGLE_QUOTED='another value'
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	// Clear any existing env vars.
	os.Unsetenv("ENV")           //nolint:errcheck // Test cleanup
	os.Unsetenv("LOG_LEVEL")     //nolint:errcheck // Test cleanup
	os.Unsetenv("DATABASE_PATH") //nolint:errcheck // Test cleanup
	os.Unsetenv("QUOTED_VALUE")  //nolint:errcheck // Test cleanup
	os.Unsetenv("SINGLE_QUOTED") //nolint:errcheck // Test cleanup
	defer func() {
		os.Unsetenv("ENV")           //nolint:errcheck // Test cleanup
		os.Unsetenv("LOG_LEVEL")     //nolint:errcheck // Test cleanup
		os.Unsetenv("DATABASE_PATH") //nolint:errcheck // Test cleanup
		os.Unsetenv("QUOTED_VALUE")  //nolint:errcheck // Test cleanup
		os.Unsetenv("SINGLE_QUOTED") //nolint:errcheck // Test cleanup
	}()

	// Load the file.
	err = loadEnvFile(envFile)
	require.NoError(t, err)

	// Verify values were loaded.
	assert.Equal(t, "staging", os.Getenv("ENV"))
	assert.Equal(t, "debug", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, "/test/path.db", os.Getenv("DATABASE_PATH"))
	assert.Equal(t, "some value", os.Getenv("QUOTED_VALUE"))
	assert.Equal(t, "another value", os.Getenv("SINGLE_QUOTED"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	// Create temp .env file with invalid format.
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `VALID_KEY=valid_value
INVALID LINE WITHOUT EQUALS
ANOTHER_VALID=value
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	// Should return error.
	err = loadEnvFile(envFile)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	err := loadEnvFile("/nonexistent/file/.env")
	assert.Error(t, err)
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	// Set env var first.
	os.Setenv("TEST_VAR", "original-value") //nolint:errcheck // Test setup
	defer os.Unsetenv("TEST_VAR")           //nolint:errcheck // Test cleanup

	// Create temp .env file that tries to override it.
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `TEST_VAR=new-value`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	// Load the file.
	err = loadEnvFile(envFile)
	require.NoError(t, err)

	// Original value should be preserved.
	assert.Equal(t, "original-value", os.Getenv("TEST_VAR"))
}

func TestLoadEnvFile_Whitespace(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `  KEY_WITH_SPACES  =  value with spaces  `
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	os.Unsetenv("KEY_WITH_SPACES")       //nolint:errcheck // Test cleanup
	defer os.Unsetenv("KEY_WITH_SPACES") //nolint:errcheck // Test cleanup

	err = loadEnvFile(envFile)
	require.NoError(t, err)

	// Whitespace should be trimmed.
	assert.Equal(t, "value with spaces", os.Getenv("KEY_WITH_SPACES"))
}
