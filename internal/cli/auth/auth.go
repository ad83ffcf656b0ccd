package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "orbo-cli"
)

// ErrNotLoggedIn is returned when no token is stored for a server
var ErrNotLoggedIn = errors.New("not authenticated. Please run 'orbo login' first")

// getKeyringKey returns a unique key for storing JWT tokens per server
func getKeyringKey(serverURL string) string {
	return fmt.Sprintf("jwt-%s", serverURL)
}

// SaveToken persists the JWT token securely in the OS keychain/credential manager
func SaveToken(serverURL, token string) error {
	if err := keyring.Set(service, getKeyringKey(serverURL), token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// LoadToken retrieves the JWT token from the OS keychain/credential manager
func LoadToken(serverURL string) (string, error) {
	token, err := keyring.Get(service, getKeyringKey(serverURL))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotLoggedIn
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// DeleteToken removes the JWT token from the OS keychain/credential manager
func DeleteToken(serverURL string) error {
	if err := keyring.Delete(service, getKeyringKey(serverURL)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
