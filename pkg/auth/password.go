package auth

import (
	"errors"
	"fmt"
	"strconv"

	"imgaudit/pkg/config"
)

var (
	// ErrCredentialsNotFound is returned when no password is stored
	ErrCredentialsNotFound = errors.New("credentials not found")
	// ErrInvalidCredentials is returned for an empty account or password
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// PasswordStore keeps database passwords keyed by account
type PasswordStore interface {
	Set(account, password string) error
	Get(account string) (string, error)
	Delete(account string) error
}

// AccountFor returns the keychain account name for a database connection,
// e.g. "auditor@db.internal:3306/land"
func AccountFor(cfg config.DatabaseConfig) string {
	return cfg.User + "@" + cfg.Host + ":" + strconv.Itoa(cfg.Port) + "/" + cfg.Name
}

// ResolvePassword fills cfg.Password from store when the keyring is enabled
// and no password was configured. An explicit password always wins.
func ResolvePassword(cfg *config.DatabaseConfig, store PasswordStore) error {
	if !cfg.UseKeyring || cfg.Password != "" {
		return nil
	}
	password, err := store.Get(AccountFor(*cfg))
	if err != nil {
		return fmt.Errorf("database password for %s: %w", AccountFor(*cfg), err)
	}
	cfg.Password = password
	return nil
}
