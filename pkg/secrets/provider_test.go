package secrets

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipeed/picosearch/pkg/logger"
	"github.com/sipeed/picosearch/pkg/redaction"
)

type fakeStore struct {
	values map[string]string
	err    error
	calls  int
	sawCtx context.Context
}

func (f *fakeStore) Name() string { return "fake" }

func (f *fakeStore) Get(ctx context.Context, name string) (string, error) {
	f.calls++
	f.sawCtx = ctx
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.values[name]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })
	return &buf
}

func TestProvider_RemoteHit(t *testing.T) {
	store := &fakeStore{values: map[string]string{"smart-openai-key": "remote-value-1234"}}
	p := NewProvider(store, WithLookupEnv(envFrom(map[string]string{"smart-openai-key": "env-value-5678"})))

	v, err := p.Get(t.Context(), "smart-openai-key")
	require.NoError(t, err)
	assert.Equal(t, "remote-value-1234", v)
	assert.Equal(t, 1, store.calls)

	src, ok := p.Source("smart-openai-key")
	require.True(t, ok)
	assert.Equal(t, SourceRemote, src)
	_, hasDeadline := store.sawCtx.Deadline()
	assert.True(t, hasDeadline)
}

func TestProvider_RemoteFailureFallsBackToEnv(t *testing.T) {
	logs := captureLogs(t)
	store := &fakeStore{err: errors.New("403 forbidden")}
	p := NewProvider(store, WithLookupEnv(envFrom(map[string]string{"smart-openai-endpoint": "https://x.openai.azure.com/"})))

	v, err := p.Get(t.Context(), "smart-openai-endpoint")
	require.NoError(t, err)
	assert.Equal(t, "https://x.openai.azure.com/", v)
	assert.Equal(t, 1, store.calls, "remote store must be tried exactly once")

	src, _ := p.Source("smart-openai-endpoint")
	assert.Equal(t, SourceEnv, src)
	assert.Contains(t, logs.String(), "Failed to fetch smart-openai-endpoint from fake")
}

func TestProvider_EmptyRemoteValueFallsBack(t *testing.T) {
	store := &fakeStore{values: map[string]string{"n": ""}}
	p := NewProvider(store, WithLookupEnv(envFrom(map[string]string{"n": "from-env-value"})))

	v, err := p.Get(t.Context(), "n")
	require.NoError(t, err)
	assert.Equal(t, "from-env-value", v)
}

func TestProvider_NotFoundAnywhere(t *testing.T) {
	logs := captureLogs(t)
	p := NewProvider(&fakeStore{err: errors.New("unreachable")}, WithLookupEnv(envFrom(nil)))

	v, err := p.Get(t.Context(), "TAVILY_API_KEY")
	assert.Empty(t, v)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "TAVILY_API_KEY")
	assert.Contains(t, logs.String(), "Secret TAVILY_API_KEY not found in environment.")

	_, ok := p.Source("TAVILY_API_KEY")
	assert.False(t, ok)
}

func TestProvider_EmptyEnvTreatedAsAbsent(t *testing.T) {
	p := NewProvider(nil, WithLookupEnv(envFrom(map[string]string{"X": ""})))
	_, err := p.Get(t.Context(), "X")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProvider_NilStoreUsesEnvOnly(t *testing.T) {
	p := NewProvider(nil, WithLookupEnv(envFrom(map[string]string{"X": "value-from-env"})))
	assert.Equal(t, "value-from-env", p.Lookup(t.Context(), "X"))
	assert.Empty(t, p.StoreName())
	assert.Empty(t, p.Lookup(t.Context(), "Y"))
}

func TestProvider_RegistersValuesForRedaction(t *testing.T) {
	p := NewProvider(nil, WithLookupEnv(envFrom(map[string]string{"K": "very-secret-value-42"})))
	_, err := p.Get(t.Context(), "K")
	require.NoError(t, err)

	assert.NotContains(t, redaction.Redact("using very-secret-value-42 now"), "very-secret-value-42")
}

func TestProvider_RemoteTimeoutApplied(t *testing.T) {
	store := &fakeStore{values: map[string]string{"a": "value-aaaaaaaa"}}
	p := NewProvider(store, WithRemoteTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := p.Get(t.Context(), "a")
	require.NoError(t, err)
	deadline, ok := store.sawCtx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, start.Add(50*time.Millisecond), deadline, 40*time.Millisecond)
}
