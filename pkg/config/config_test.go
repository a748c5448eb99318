package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Scan.BatchSize != 10 {
		t.Errorf("Expected default batch size to be 10, got %d", config.Scan.BatchSize)
	}

	if config.Scan.FetchAttempts != 5 || config.Scan.FetchDelay != 3*time.Second {
		t.Errorf("Expected 5 fetch attempts with 3s delay, got %d/%v", config.Scan.FetchAttempts, config.Scan.FetchDelay)
	}

	if config.Verify.Attempts != 3 {
		t.Errorf("Expected default verify attempts to be 3, got %d", config.Verify.Attempts)
	}

	if config.Checkpoint.File != "process.txt" {
		t.Errorf("Expected default checkpoint file to be process.txt, got %s", config.Checkpoint.File)
	}

	assert.NoError(t, config.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_USER", "auditor")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "land")
	t.Setenv("TABLENAME", "mutation_images")
	t.Setenv("FILE1", "/tmp/urls.txt")
	t.Setenv("FILE2", "/tmp/ids.txt")
	t.Setenv("IMGAUDIT_WORKERS", "4")
	t.Setenv("IMGAUDIT_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "db.internal", config.Database.Host)
	assert.Equal(t, 3307, config.Database.Port)
	assert.Equal(t, "auditor", config.Database.User)
	assert.Equal(t, "secret", config.Database.Password)
	assert.Equal(t, "land", config.Database.Name)
	assert.Equal(t, "mutation_images", config.Database.Table)
	assert.Equal(t, "/tmp/urls.txt", config.Output.CorruptedURLsFile)
	assert.Equal(t, "/tmp/ids.txt", config.Output.CorruptedIDsFile)
	assert.Equal(t, 4, config.Scan.Workers)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvPrefixedWins(t *testing.T) {
	t.Setenv("TABLENAME", "legacy")
	t.Setenv("IMGAUDIT_TABLE", "preferred")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())
	assert.Equal(t, "preferred", config.Database.Table)
}

func TestLoadFromEnvInvalidPort(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")

	config := DefaultConfig()
	assert.Error(t, config.LoadFromEnv())
}

func TestLoadFromEnvKeyringAndRedis(t *testing.T) {
	t.Setenv("IMGAUDIT_DB_USE_KEYRING", "true")
	t.Setenv("IMGAUDIT_CHECKPOINT_BACKEND", "redis")
	t.Setenv("IMGAUDIT_REDIS_ADDR", "cache:6379")
	t.Setenv("IMGAUDIT_REDIS_PASSWORD", "pw")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())
	assert.True(t, config.Database.UseKeyring)
	assert.Equal(t, "redis", config.Checkpoint.Backend)
	assert.Equal(t, "cache:6379", config.Checkpoint.RedisAddr)
	assert.Equal(t, "pw", config.Checkpoint.RedisPassword)

	t.Setenv("IMGAUDIT_DB_USE_KEYRING", "maybe")
	assert.Error(t, DefaultConfig().LoadFromEnv())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError bool
	}{
		{
			name:      "defaults",
			mutate:    func(c *Config) {},
			wantError: false,
		},
		{
			name:      "unknown driver",
			mutate:    func(c *Config) { c.Database.Driver = "postgres" },
			wantError: true,
		},
		{
			name:      "sqlite without path",
			mutate:    func(c *Config) { c.Database.Driver = "sqlite" },
			wantError: true,
		},
		{
			name: "sqlite with path",
			mutate: func(c *Config) {
				c.Database.Driver = "sqlite"
				c.Database.Name = "images.db"
			},
			wantError: false,
		},
		{
			name:      "zero batch size",
			mutate:    func(c *Config) { c.Scan.BatchSize = 0 },
			wantError: true,
		},
		{
			name:      "too many workers",
			mutate:    func(c *Config) { c.Scan.Workers = 100 },
			wantError: true,
		},
		{
			name:      "redis without address",
			mutate:    func(c *Config) { c.Checkpoint.Backend = "redis" },
			wantError: true,
		},
		{
			name: "redis with address",
			mutate: func(c *Config) {
				c.Checkpoint.Backend = "redis"
				c.Checkpoint.RedisAddr = "localhost:6379"
			},
			wantError: false,
		},
		{
			name:      "missing output file",
			mutate:    func(c *Config) { c.Output.CorruptedIDsFile = "" },
			wantError: true,
		},
		{
			name:      "invalid log level",
			mutate:    func(c *Config) { c.Logging.Level = "verbose" },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "imgaudit.yaml")

	content := `
database:
  driver: sqlite
  name: /var/lib/imgaudit/images.db
  table: scans
scan:
  batch_size: 25
  workers: 3
  fetch_delay: 500ms
verify:
  timeout: 10s
checkpoint:
  file: /var/lib/imgaudit/cursor.txt
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(configPath))

	assert.Equal(t, "sqlite", config.Database.Driver)
	assert.Equal(t, "scans", config.Database.Table)
	assert.Equal(t, 25, config.Scan.BatchSize)
	assert.Equal(t, 3, config.Scan.Workers)
	assert.Equal(t, 500*time.Millisecond, config.Scan.FetchDelay)
	assert.Equal(t, 10*time.Second, config.Verify.Timeout)
	assert.Equal(t, "/var/lib/imgaudit/cursor.txt", config.Checkpoint.File)
	// Untouched values keep their defaults
	assert.Equal(t, 3, config.Verify.Attempts)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "imgaudit.yaml")

	config := DefaultConfig()
	config.Scan.Workers = 6
	require.NoError(t, config.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 6, loaded.Scan.Workers)
	assert.Equal(t, config.Scan.FetchDelay, loaded.Scan.FetchDelay)
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"table":           "other",
		"workers":         8,
		"checkpoint-file": "cursor.txt",
		"log-level":       "warn",
		"metrics-addr":    ":9109",
	})

	assert.Equal(t, "other", config.Database.Table)
	assert.Equal(t, 8, config.Scan.Workers)
	assert.Equal(t, "cursor.txt", config.Checkpoint.File)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.Equal(t, ":9109", config.Metrics.Addr)
}

func TestLoadNormalizesEnumeratedValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "imgaudit.yaml")
	content := "database:\n  driver: SQLite\n  name: images.db\ncheckpoint:\n  backend: \" File \"\nlogging:\n  level: WARN\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	config, err := Load(configPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", config.Database.Driver)
	assert.Equal(t, "file", config.Checkpoint.Backend)
	assert.Equal(t, "warn", config.Logging.Level)
}

func TestValidateRequiresNormalizedDriver(t *testing.T) {
	config := DefaultConfig()
	config.Database.Driver = "MySQL"
	assert.Error(t, config.Validate())

	config.Normalize()
	assert.Equal(t, "mysql", config.Database.Driver)
	assert.NoError(t, config.Validate())
}

func TestLoadPrecedence(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "imgaudit.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("scan:\n  workers: 2\ndatabase:\n  table: from_file\n"), 0644))

	t.Setenv("IMGAUDIT_TABLE", "from_env")

	config, err := Load(configPath, map[string]interface{}{"workers": 5})
	require.NoError(t, err)

	assert.Equal(t, "from_env", config.Database.Table)
	assert.Equal(t, 5, config.Scan.Workers)
}
