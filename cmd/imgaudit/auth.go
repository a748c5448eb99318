package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"imgaudit/pkg/auth"
	"imgaudit/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the database password in the system keychain",
	Long: `Store the database password in the system keychain instead of a file.

Set database.use_keyring: true (or IMGAUDIT_DB_USE_KEYRING=true) so scans
read it from there when no password is configured.`,
}

var setPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Store the database password for the configured user and host",
	RunE:  runSetPassword,
}

var deletePasswordCmd = &cobra.Command{
	Use:   "delete-password",
	Short: "Remove the stored database password",
	RunE:  runDeletePassword,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(setPasswordCmd)
	authCmd.AddCommand(deletePasswordCmd)
}

// readPassword prompts without echo when stdin is a terminal
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(data), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runSetPassword(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	account := auth.AccountFor(cfg.Database)

	password, err := readPassword(fmt.Sprintf("Password for %s: ", account))
	if err != nil {
		return err
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}

	if err := auth.NewKeyringStore().Set(account, password); err != nil {
		return err
	}
	ui.PrintSuccess("Password stored for " + account)
	if !cfg.Database.UseKeyring {
		ui.PrintWarning("database.use_keyring is false; enable it so scans read this password")
	}
	return nil
}

func runDeletePassword(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	account := auth.AccountFor(cfg.Database)

	if err := auth.NewKeyringStore().Delete(account); err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			ui.PrintWarning("No password stored for " + account)
			return nil
		}
		return err
	}
	ui.PrintSuccess("Password removed for " + account)
	return nil
}
