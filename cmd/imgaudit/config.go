package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"imgaudit/pkg/config"
	"imgaudit/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage imgaudit configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IMGAUDIT_*, or DB_HOST, TABLENAME, FILE1, ...)
  - Configuration file
  - Default values (lowest priority)`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'imgaudit.yaml'
unless a different path is specified with the --config flag.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging every source.

Passwords are masked.`,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# imgaudit configuration
#
# Environment variables override this file. The unprefixed names
# DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, TABLENAME, FILE1 and
# FILE2 are honoured, as are IMGAUDIT_* equivalents.

database:
  # mysql or sqlite
  driver: mysql
  host: localhost
  port: 3306
  user: ""
  # Leave empty and set use_keyring to read it from the system keychain
  # (see: imgaudit auth set-password)
  password: ""
  name: ""
  table: images
  use_keyring: false
  connect_attempts: 9
  connect_delay: 3s

source:
  # Prepended to every image_path
  base_url: https://office.land.gov.bd

scan:
  batch_size: 10
  # Concurrent verifications inside a batch
  workers: 1
  fetch_attempts: 5
  fetch_delay: 3s

verify:
  attempts: 3
  timeout: 30s
  # 0 means unlimited
  requests_per_minute: 0
  max_body_bytes: 52428800
  user_agent: imgaudit/1.0

output:
  corrupted_urls_file: corrupted_urls.txt
  corrupted_ids_file: corrupted_ids.txt

checkpoint:
  # file or redis
  backend: file
  file: process.txt
  redis_addr: ""
  redis_key: imgaudit:checkpoint

metrics:
  # e.g. ":9108" to serve /metrics during scans
  addr: ""

logging:
  level: info
  file: ""
  max_size: 100
  max_backups: 3
  max_age: 7
  compress: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "imgaudit.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	return nil
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	displayCfg := *cfg
	displayCfg.Database.Password = maskSecret(displayCfg.Database.Password)
	displayCfg.Database.DSN = maskSecret(displayCfg.Database.DSN)
	displayCfg.Checkpoint.RedisPassword = maskSecret(displayCfg.Checkpoint.RedisPassword)

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	ui.Println(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	source := configFile
	if source == "" {
		source = "(defaults, environment and any imgaudit.yaml found)"
	}
	ui.PrintInfo("Validating configuration", source)

	if _, err := config.Load(configFile, nil); err != nil {
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				ui.PrintError("  " + e.Error())
			}
		}
		return err
	}

	ui.PrintSuccess("Configuration is valid")
	return nil
}
