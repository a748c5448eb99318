package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"imgaudit/pkg/checkpoint"
	"imgaudit/pkg/ui"
)

// checkpointCmd represents the checkpoint command
var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or move the scan cursor",
}

var checkpointShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved cursor",
	RunE:  runCheckpointShow,
}

var checkpointSetCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Overwrite the saved cursor",
	Long: `Overwrite the saved cursor. The next scan starts at rows with id >= <id>.

Use 1 to rescan the whole table.`,
	Example: `  imgaudit checkpoint set 1
  imgaudit checkpoint set 250000`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckpointSet,
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointShowCmd)
	checkpointCmd.AddCommand(checkpointSetCmd)
}

func openCheckpointStore() (checkpoint.Store, string, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return nil, "", err
	}
	log, err := setupLogger(cfg)
	if err != nil {
		return nil, "", err
	}
	store, err := checkpoint.Open(cfg.Checkpoint, log)
	if err != nil {
		return nil, "", err
	}
	return store, describeCheckpoint(cfg.Checkpoint), nil
}

func runCheckpointShow(cmd *cobra.Command, args []string) error {
	store, where, err := openCheckpointStore()
	if err != nil {
		return err
	}
	defer closeStore(store)

	ui.PrintInfo("Checkpoint", where)
	if fs, ok := store.(*checkpoint.FileStore); ok && !fs.Exists() {
		ui.PrintWarning("No checkpoint saved yet, the next scan starts from the beginning")
	}
	ui.PrintInfo("Cursor", fmt.Sprintf("%d", store.Read(cmd.Context())))
	return nil
}

func runCheckpointSet(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id < 1 {
		return fmt.Errorf("invalid cursor %q: must be a positive integer", args[0])
	}

	store, where, err := openCheckpointStore()
	if err != nil {
		return err
	}
	defer closeStore(store)

	if err := store.Write(cmd.Context(), id); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Cursor set to %d (%s)", id, where))
	return nil
}
