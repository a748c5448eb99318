package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"imgaudit/pkg/ui"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the checkpoint and how much of the table remains",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	log, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	upper, err := a.fetcher.MaxID(ctx)
	if err != nil {
		return err
	}
	cursor := a.store.Read(ctx)

	remaining := upper - cursor
	if remaining < 0 {
		remaining = 0
	}

	ui.PrintInfo("Table", cfg.Database.Table)
	ui.PrintInfo("Checkpoint", describeCheckpoint(cfg.Checkpoint))
	ui.PrintInfo("Cursor", fmt.Sprintf("%d", cursor))
	ui.PrintInfo("Upper bound", fmt.Sprintf("%d", upper))
	ui.PrintInfo("Remaining ids", fmt.Sprintf("%d", remaining))
	ui.Println(ui.CursorProgress(cursor, upper))
	return nil
}
