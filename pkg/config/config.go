package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for an audit run
type Config struct {
	// Image reference table
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Where image paths are resolved
	Source SourceConfig `yaml:"source" json:"source"`

	// Batch loop settings
	Scan ScanConfig `yaml:"scan" json:"scan"`

	// Per-image verification settings
	Verify VerifyConfig `yaml:"verify" json:"verify"`

	// Result files
	Output OutputConfig `yaml:"output" json:"output"`

	// Resume cursor storage
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`

	// Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// DatabaseConfig holds connection settings for the image reference table
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" json:"driver"`
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	User            string        `yaml:"user" json:"user"`
	Password        string        `yaml:"password" json:"password"`
	Name            string        `yaml:"name" json:"name"`
	Table           string        `yaml:"table" json:"table"`
	DSN             string        `yaml:"dsn" json:"dsn"`
	UseKeyring      bool          `yaml:"use_keyring" json:"use_keyring"`
	ConnectAttempts int           `yaml:"connect_attempts" json:"connect_attempts"`
	ConnectDelay    time.Duration `yaml:"connect_delay" json:"connect_delay"`
}

// SourceConfig holds the host prefix prepended to stored image paths
type SourceConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
}

// ScanConfig holds batch loop configuration
type ScanConfig struct {
	BatchSize     int           `yaml:"batch_size" json:"batch_size"`
	Workers       int           `yaml:"workers" json:"workers"`
	FetchAttempts int           `yaml:"fetch_attempts" json:"fetch_attempts"`
	FetchDelay    time.Duration `yaml:"fetch_delay" json:"fetch_delay"`
}

// VerifyConfig holds image verification configuration
type VerifyConfig struct {
	Attempts          int           `yaml:"attempts" json:"attempts"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
}

// OutputConfig holds result file locations
type OutputConfig struct {
	CorruptedURLsFile string `yaml:"corrupted_urls_file" json:"corrupted_urls_file"`
	CorruptedIDsFile  string `yaml:"corrupted_ids_file" json:"corrupted_ids_file"`
}

// CheckpointConfig selects and configures the cursor store
type CheckpointConfig struct {
	Backend       string `yaml:"backend" json:"backend"`
	File          string `yaml:"file" json:"file"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"redis_password"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
	RedisKey      string `yaml:"redis_key" json:"redis_key"`
}

// MetricsConfig holds the optional metrics listener address
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// DefaultConfig returns a Config instance with the stock scan parameters
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "mysql",
			Host:            "localhost",
			Port:            3306,
			Table:           "images",
			ConnectAttempts: 9,
			ConnectDelay:    3 * time.Second,
		},
		Source: SourceConfig{
			BaseURL: "https://office.land.gov.bd",
		},
		Scan: ScanConfig{
			BatchSize:     10,
			Workers:       1,
			FetchAttempts: 5,
			FetchDelay:    3 * time.Second,
		},
		Verify: VerifyConfig{
			Attempts:          3,
			Timeout:           30 * time.Second,
			RequestsPerMinute: 0, // 0 means unlimited
			MaxBodyBytes:      50 << 20,
			UserAgent:         "imgaudit/1.0",
		},
		Output: OutputConfig{
			CorruptedURLsFile: "corrupted_urls.txt",
			CorruptedIDsFile:  "corrupted_ids.txt",
		},
		Checkpoint: CheckpointConfig{
			Backend:  "file",
			File:     "process.txt",
			RedisKey: "imgaudit:checkpoint",
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   false,
		},
	}
}

// envInt parses a positive integer environment variable
func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || val <= 0 {
		return 0, false
	}
	return val, true
}

// envFirst returns the first non-empty variable among names
func envFirst(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// LoadFromEnv loads configuration from environment variables.
// The unprefixed names are the ones used by existing deployments' .env files.
func (c *Config) LoadFromEnv() error {
	if v := envFirst("IMGAUDIT_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := envFirst("IMGAUDIT_DB_HOST", "DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := envFirst("IMGAUDIT_DB_PORT", "DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT %q: %w", v, err)
		}
		c.Database.Port = port
	}
	if v := envFirst("IMGAUDIT_DB_USER", "DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := envFirst("IMGAUDIT_DB_PASSWORD", "DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := envFirst("IMGAUDIT_DB_NAME", "DB_NAME"); v != "" {
		c.Database.Name = v
	}
	if v := envFirst("IMGAUDIT_TABLE", "TABLENAME"); v != "" {
		c.Database.Table = v
	}
	if v := envFirst("IMGAUDIT_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := envFirst("IMGAUDIT_DB_USE_KEYRING"); v != "" {
		useKeyring, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid IMGAUDIT_DB_USE_KEYRING %q: %w", v, err)
		}
		c.Database.UseKeyring = useKeyring
	}

	if v := envFirst("IMGAUDIT_BASE_URL"); v != "" {
		c.Source.BaseURL = v
	}

	if v := envFirst("IMGAUDIT_CORRUPTED_URLS_FILE", "FILE1"); v != "" {
		c.Output.CorruptedURLsFile = v
	}
	if v := envFirst("IMGAUDIT_CORRUPTED_IDS_FILE", "FILE2"); v != "" {
		c.Output.CorruptedIDsFile = v
	}

	if v := envFirst("IMGAUDIT_CHECKPOINT_BACKEND"); v != "" {
		c.Checkpoint.Backend = v
	}
	if v := envFirst("IMGAUDIT_CHECKPOINT_FILE"); v != "" {
		c.Checkpoint.File = v
	}
	if v := envFirst("IMGAUDIT_REDIS_ADDR"); v != "" {
		c.Checkpoint.RedisAddr = v
	}
	if v := envFirst("IMGAUDIT_REDIS_PASSWORD"); v != "" {
		c.Checkpoint.RedisPassword = v
	}

	if val, ok := envInt("IMGAUDIT_WORKERS"); ok {
		c.Scan.Workers = val
	}
	if val, ok := envInt("IMGAUDIT_REQUESTS_PER_MINUTE"); ok {
		c.Verify.RequestsPerMinute = val
	}

	if v := envFirst("IMGAUDIT_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}

	if logLevel := os.Getenv("IMGAUDIT_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("IMGAUDIT_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		"imgaudit.yaml",
		"imgaudit.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "imgaudit", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "imgaudit", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Normalize canonicalizes the enumerated settings so every consumer can
// compare them exactly.
func (c *Config) Normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Checkpoint.Backend = strings.ToLower(strings.TrimSpace(c.Checkpoint.Backend))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

// Validate checks if the configuration is valid. Call Normalize first;
// enumerated values are matched exactly.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Database.Table == "" {
		errs = append(errs, errors.New("table name is required"))
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" && c.Database.Name == "" {
		errs = append(errs, errors.New("sqlite requires a database name (file path) or dsn"))
	}
	if c.Database.ConnectAttempts <= 0 {
		errs = append(errs, errors.New("connect attempts must be positive"))
	}

	if c.Source.BaseURL == "" {
		errs = append(errs, errors.New("source base URL is required"))
	}

	if c.Scan.BatchSize <= 0 {
		errs = append(errs, errors.New("batch size must be positive"))
	}
	if c.Scan.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}
	if c.Scan.Workers > 64 {
		errs = append(errs, errors.New("workers should not exceed 64"))
	}
	if c.Scan.FetchAttempts <= 0 {
		errs = append(errs, errors.New("fetch attempts must be positive"))
	}
	if c.Scan.FetchDelay < 0 {
		errs = append(errs, errors.New("fetch delay cannot be negative"))
	}

	if c.Verify.Attempts <= 0 {
		errs = append(errs, errors.New("verify attempts must be positive"))
	}
	if c.Verify.Timeout <= 0 {
		errs = append(errs, errors.New("verify timeout must be positive"))
	}
	if c.Verify.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	if c.Output.CorruptedURLsFile == "" || c.Output.CorruptedIDsFile == "" {
		errs = append(errs, errors.New("both output files are required"))
	}

	switch c.Checkpoint.Backend {
	case "file":
		if c.Checkpoint.File == "" {
			errs = append(errs, errors.New("checkpoint file is required"))
		}
	case "redis":
		if c.Checkpoint.RedisAddr == "" {
			errs = append(errs, errors.New("redis address is required for the redis checkpoint backend"))
		}
		if c.Checkpoint.RedisKey == "" {
			errs = append(errs, errors.New("redis key is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported checkpoint backend %q", c.Checkpoint.Backend))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[c.Logging.Level] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if table, ok := flags["table"].(string); ok && table != "" {
		c.Database.Table = table
	}
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.Source.BaseURL = baseURL
	}
	if file, ok := flags["checkpoint-file"].(string); ok && file != "" {
		c.Checkpoint.File = file
	}
	if workers, ok := flags["workers"].(int); ok && workers > 0 {
		c.Scan.Workers = workers
	}
	if batch, ok := flags["batch-size"].(int); ok && batch > 0 {
		c.Scan.BatchSize = batch
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm >= 0 {
		c.Verify.RequestsPerMinute = rpm
	}
	if addr, ok := flags["metrics-addr"].(string); ok && addr != "" {
		c.Metrics.Addr = addr
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".imgaudit.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)
	config.Normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
