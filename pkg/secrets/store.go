// Package secrets resolves named credentials from a remote store, falling back
// to the process environment.
package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/sipeed/picosearch/pkg/config"
	"github.com/sipeed/picosearch/pkg/logger"
)

// ErrNotFound is returned when neither the remote store nor the environment
// holds a non-empty value for a name.
var ErrNotFound = errors.New("secret not found")

// ErrUnsupportedBackend is returned for a secrets.backend value that names no
// known store.
var ErrUnsupportedBackend = errors.New("unsupported secret backend")

var openKeyVault = func(vaultURL string) (Store, error) {
	return NewKeyVaultStore(vaultURL)
}

// Store is a remote key-value secret backend.
type Store interface {
	Name() string
	Get(ctx context.Context, name string) (string, error)
}

// NewStoreFromConfig builds the remote store selected by secrets.backend. A nil
// Store with a nil error means remote lookups are disabled.
func NewStoreFromConfig(cfg *config.Config) (Store, error) {
	cfg.RLock()
	backend := cfg.Secrets.Backend
	service := cfg.Secrets.KeyringService
	cfg.RUnlock()

	switch backend {
	case config.SecretBackendKeyVault:
		return openKeyVault(cfg.VaultURL())
	case config.SecretBackendKeyring:
		return NewKeyringStore(service), nil
	case config.SecretBackendNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedBackend, backend)
	}
}

// NewProviderFromConfig builds a Provider for the configured backend. A store
// that cannot be constructed is logged and the provider falls back to the
// environment alone; only an unknown backend is an error.
func NewProviderFromConfig(cfg *config.Config, opts ...Option) (*Provider, error) {
	store, err := NewStoreFromConfig(cfg)
	if errors.Is(err, ErrUnsupportedBackend) {
		return nil, err
	}
	if err != nil {
		logger.ErrorCF("secrets", "Secret store unavailable, using environment only",
			map[string]any{"error": err.Error()})
		store = nil
	}
	return NewProvider(store, opts...), nil
}
