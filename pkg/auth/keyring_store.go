package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "imgaudit"

// KeyringStore implements PasswordStore using the system keychain
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a keychain-backed store
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: keyringService}
}

// Set saves the password for account
func (k *KeyringStore) Set(account, password string) error {
	if account == "" || password == "" {
		return ErrInvalidCredentials
	}
	if err := keyring.Set(k.service, account, password); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Get returns the password for account
func (k *KeyringStore) Get(account string) (string, error) {
	if account == "" {
		return "", ErrInvalidCredentials
	}
	password, err := keyring.Get(k.service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrCredentialsNotFound
		}
		return "", fmt.Errorf("failed to retrieve from keyring: %w", err)
	}
	return password, nil
}

// Delete removes the password for account
func (k *KeyringStore) Delete(account string) error {
	if account == "" {
		return ErrInvalidCredentials
	}
	if err := keyring.Delete(k.service, account); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
