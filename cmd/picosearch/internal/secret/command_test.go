package secret

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/sipeed/picosearch/pkg/secrets"
)

func TestNewSecretCommand(t *testing.T) {
	cmd := NewSecretCommand()

	require.NotNil(t, cmd)
	assert.Equal(t, "secret", cmd.Use)
	assert.True(t, cmd.HasSubCommands())

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.Equal(t, map[string]bool{"get": true, "set": true, "delete": true}, names)

	get, _, err := cmd.Find([]string{"get"})
	require.NoError(t, err)
	assert.NotNil(t, get.Flags().Lookup("reveal"))
	assert.Error(t, get.Args(get, nil))
}

func envOnly(values map[string]string) *secrets.Provider {
	return secrets.NewProvider(nil, secrets.WithLookupEnv(func(k string) (string, bool) {
		v, ok := values[k]
		return v, ok
	}))
}

func TestPrintSecret_MaskedByDefault(t *testing.T) {
	sp := envOnly(map[string]string{"smart-openai-key": "sk-1234567890abcdef"})
	var out bytes.Buffer

	require.NoError(t, printSecret(t.Context(), &out, sp, "smart-openai-key", false))
	assert.Equal(t, "smart-openai-key = sk-1****cdef (source: env)\n", out.String())
}

func TestPrintSecret_Reveal(t *testing.T) {
	sp := envOnly(map[string]string{"smart-openai-api-version": "2024-06-01"})
	var out bytes.Buffer

	require.NoError(t, printSecret(t.Context(), &out, sp, "smart-openai-api-version", true))
	assert.Equal(t, "smart-openai-api-version = 2024-06-01 (source: env)\n", out.String())
}

func TestPrintSecret_NotFound(t *testing.T) {
	var out bytes.Buffer
	err := printSecret(t.Context(), &out, envOnly(nil), "missing", false)

	assert.ErrorIs(t, err, secrets.ErrNotFound)
	assert.Empty(t, out.String())
}

func TestStoreSecret_WritesKeyring(t *testing.T) {
	keyring.MockInit()
	store := secrets.NewKeyringStore("picosearch-test")
	var out bytes.Buffer

	require.NoError(t, storeSecret(&out, store, "smart-openai-key", "sk-test"))
	assert.Equal(t, "Stored smart-openai-key in keyring\n", out.String())

	got, err := store.Get(t.Context(), "smart-openai-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", got)
}
