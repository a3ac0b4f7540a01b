package secret

import (
	"context"
	"fmt"
	"io"

	"github.com/sipeed/picosearch/cmd/picosearch/internal"
	"github.com/sipeed/picosearch/pkg/config"
	"github.com/sipeed/picosearch/pkg/secrets"
	"github.com/sipeed/picosearch/pkg/utils"
)

type valueGetter interface {
	Get(ctx context.Context, name string) (string, error)
	Source(name string) (secrets.Source, bool)
}

func getCmd(ctx context.Context, w io.Writer, name string, reveal bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	sp, err := internal.NewSecretProvider(cfg)
	if err != nil {
		return err
	}
	return printSecret(ctx, w, sp, name, reveal)
}

func printSecret(ctx context.Context, w io.Writer, sp valueGetter, name string, reveal bool) error {
	value, err := sp.Get(ctx, name)
	if err != nil {
		return err
	}

	shown := utils.MaskSecret(value)
	if reveal {
		shown = value
	}
	src, _ := sp.Source(name)
	fmt.Fprintf(w, "%s = %s (source: %s)\n", name, shown, src)
	return nil
}

type keyringWriter interface {
	Set(name, value string) error
	Delete(name string) error
}

func keyringFromConfig() (*secrets.KeyringStore, error) {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	cfg.RLock()
	service := cfg.Secrets.KeyringService
	backend := cfg.Secrets.Backend
	cfg.RUnlock()

	if backend != config.SecretBackendKeyring {
		fmt.Printf("Note: secrets.backend is %q; set it to %q to read keyring values.\n",
			backend, config.SecretBackendKeyring)
	}
	return secrets.NewKeyringStore(service), nil
}

func setCmd(w io.Writer, name, value string) error {
	store, err := keyringFromConfig()
	if err != nil {
		return err
	}
	return storeSecret(w, store, name, value)
}

func storeSecret(w io.Writer, store keyringWriter, name, value string) error {
	if err := store.Set(name, value); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	fmt.Fprintf(w, "Stored %s in keyring\n", name)
	return nil
}

func deleteCmd(w io.Writer, name string) error {
	store, err := keyringFromConfig()
	if err != nil {
		return err
	}
	if err := store.Delete(name); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	fmt.Fprintf(w, "Deleted %s from keyring\n", name)
	return nil
}
