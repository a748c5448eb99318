package main

import (
	"github.com/spf13/cobra"
	"imgaudit/pkg/catalog"
	"imgaudit/pkg/ui"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database utilities",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the images table",
	Long: `Apply the bundled schema migrations, creating an "images" table with
id, ref_id and image_path columns. Useful for fixtures and fresh
environments; existing tables are left untouched.`,
	RunE: runDBMigrate,
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbMigrateCmd)
}

func runDBMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	log, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := catalog.Migrate(a.db, catalog.GooseDialect(cfg.Database.Driver), log); err != nil {
		return err
	}
	ui.PrintSuccess("Schema is up to date")
	return nil
}
