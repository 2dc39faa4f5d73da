package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/daybell/internal/constants"
)

var (
	// ErrNotFound is returned when no secret is stored under the requested user
	ErrNotFound = errors.New("secret not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Users that daybell stores secrets under.
var Users = []string{constants.DefaultKeyringUser, constants.TranscribeKeyUser}

// Get retrieves the secret stored for user.
func Get(user string) (string, error) {
	secret, err := keyring.Get(constants.AppName, user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return secret, nil
}

// Set stores secret for user, replacing any previous value.
func Set(user, secret string) error {
	if secret == "" {
		return errors.New("secret cannot be empty")
	}
	if err := keyring.Set(constants.AppName, user, secret); err != nil {
		return fmt.Errorf("failed to store secret in keyring: %w", err)
	}
	return nil
}

// Delete removes the secret stored for user.
func Delete(user string) error {
	if err := keyring.Delete(constants.AppName, user); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete secret from keyring: %w", err)
	}
	return nil
}

// GetConnectionString retrieves the PostgreSQL connection string.
func GetConnectionString() (string, error) { return Get(constants.DefaultKeyringUser) }

// SetConnectionString stores the PostgreSQL connection string.
func SetConnectionString(connStr string) error { return Set(constants.DefaultKeyringUser, connStr) }

// DeleteConnectionString removes the PostgreSQL connection string.
func DeleteConnectionString() error { return Delete(constants.DefaultKeyringUser) }

// GetTranscriptionKey retrieves the API key for the remote transcription service.
func GetTranscriptionKey() (string, error) { return Get(constants.TranscribeKeyUser) }

func SetTranscriptionKey(key string) error { return Set(constants.TranscribeKeyUser, key) }

func DeleteTranscriptionKey() error { return Delete(constants.TranscribeKeyUser) }

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
