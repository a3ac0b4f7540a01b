package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// secretClient is the subset of *azsecrets.Client used here.
type secretClient interface {
	GetSecret(ctx context.Context, name, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// KeyVaultStore reads the latest version of secrets from an Azure Key Vault.
type KeyVaultStore struct {
	vaultURL string
	client   secretClient
}

// NewKeyVaultStore authenticates with DefaultAzureCredential (environment,
// workload identity, managed identity, then Azure CLI).
func NewKeyVaultStore(vaultURL string) (*KeyVaultStore, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("creating azure credential: %w", err)
	}
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating key vault client: %w", err)
	}
	return &KeyVaultStore{vaultURL: vaultURL, client: client}, nil
}

func (s *KeyVaultStore) Name() string {
	return "Key Vault"
}

func (s *KeyVaultStore) VaultURL() string {
	return s.vaultURL
}

func (s *KeyVaultStore) Get(ctx context.Context, name string) (string, error) {
	resp, err := s.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("key vault get %s: %w", name, err)
	}
	if resp.Value == nil || *resp.Value == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return *resp.Value, nil
}
