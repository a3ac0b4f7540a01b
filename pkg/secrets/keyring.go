package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore reads secrets from the OS keychain (macOS Keychain, Windows
// Credential Manager, Secret Service on Linux). Each secret is an entry whose
// user is the secret name.
type KeyringStore struct {
	service string
}

func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = "picosearch"
	}
	return &KeyringStore{service: service}
}

func (s *KeyringStore) Name() string {
	return "keyring"
}

func (s *KeyringStore) Get(_ context.Context, name string) (string, error) {
	value, err := keyring.Get(s.service, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("keyring get %s: %w", name, err)
	}
	return value, nil
}

func (s *KeyringStore) Set(name, value string) error {
	if err := keyring.Set(s.service, name, value); err != nil {
		return fmt.Errorf("keyring set %s: %w", name, err)
	}
	return nil
}

func (s *KeyringStore) Delete(name string) error {
	if err := keyring.Delete(s.service, name); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete %s: %w", name, err)
	}
	return nil
}
