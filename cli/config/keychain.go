// Package config provides keychain integration for registry tokens.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// ServiceName is the keychain service identifier
	ServiceName = "pakto"
)

// ErrKeychainUnavailable is returned when no system keychain is reachable.
var ErrKeychainUnavailable = errors.New("keychain is not available on this system")

// KeychainStore stores registry tokens in the system keychain, one entry per
// registry host.
type KeychainStore struct {
	serviceName string
}

// NewKeychainStore creates a new keychain store
func NewKeychainStore() *KeychainStore {
	return &KeychainStore{
		serviceName: ServiceName,
	}
}

// IsAvailable checks if keychain is available on this system
func (k *KeychainStore) IsAvailable() bool {
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	case "linux", "freebsd":
		// Linux requires a secret service (like gnome-keyring)
		err := keyring.Set(k.serviceName, "__test__", "test")
		if err != nil {
			return false
		}
		_ = keyring.Delete(k.serviceName, "__test__")
		return true
	default:
		return false
	}
}

// Save stores the token for a registry
func (k *KeychainStore) Save(registry, token string) error {
	if token == "" {
		return fmt.Errorf("token is empty")
	}
	if err := keyring.Set(k.serviceName, RegistryKey(registry), token); err != nil {
		return fmt.Errorf("failed to save to keychain: %w", err)
	}
	return nil
}

// Load retrieves the token for a registry. A missing entry is not an error.
func (k *KeychainStore) Load(registry string) (string, error) {
	token, err := keyring.Get(k.serviceName, RegistryKey(registry))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load from keychain: %w", err)
	}
	return token, nil
}

// Delete removes the token for a registry
func (k *KeychainStore) Delete(registry string) error {
	err := keyring.Delete(k.serviceName, RegistryKey(registry))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keychain: %w", err)
	}
	return nil
}

// RegistryKey normalizes a registry URL to the host (and path) tokens are
// stored under, so "https://registry.npmjs.org/" and
// "registry.npmjs.org" share an entry.
func RegistryKey(registry string) string {
	raw := strings.TrimSpace(registry)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(registry, "/")
	}
	return strings.ToLower(u.Host) + strings.TrimSuffix(u.Path, "/")
}
