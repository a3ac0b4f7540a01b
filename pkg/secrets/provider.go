package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sipeed/picosearch/pkg/logger"
	"github.com/sipeed/picosearch/pkg/redaction"
)

// Source tells where a resolved secret came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceEnv    Source = "env"
)

const defaultRemoteTimeout = 15 * time.Second

// Provider resolves secrets: one attempt against the remote store (if any),
// then the environment. Remote failures are logged and never returned.
type Provider struct {
	store         Store
	lookupEnv     func(string) (string, bool)
	remoteTimeout time.Duration

	mu      sync.RWMutex
	sources map[string]Source
}

type Option func(*Provider)

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(p *Provider) {
		if fn != nil {
			p.lookupEnv = fn
		}
	}
}

func WithRemoteTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.remoteTimeout = d
		}
	}
}

// NewProvider creates a Provider. store may be nil to use the environment only.
func NewProvider(store Store, opts ...Option) *Provider {
	p := &Provider{
		store:         store,
		lookupEnv:     os.LookupEnv,
		remoteTimeout: defaultRemoteTimeout,
		sources:       make(map[string]Source),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns the value for name or an error wrapping ErrNotFound.
func (p *Provider) Get(ctx context.Context, name string) (string, error) {
	if p.store != nil {
		value, err := p.fetchRemote(ctx, name)
		if err == nil && value != "" {
			p.remember(name, value, SourceRemote)
			return value, nil
		}
		fields := map[string]any{"secret": name, "store": p.store.Name()}
		if err != nil {
			fields["error"] = err.Error()
		}
		logger.ErrorCF("secrets", fmt.Sprintf("Failed to fetch %s from %s", name, p.store.Name()), fields)
	}

	if value, ok := p.lookupEnv(name); ok && value != "" {
		p.remember(name, value, SourceEnv)
		return value, nil
	}

	logger.ErrorCF("secrets", fmt.Sprintf("Secret %s not found in environment.", name),
		map[string]any{"secret": name})
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Lookup is Get with absence reported as "". Only ErrNotFound is expected
// here since remote failures are already demoted.
func (p *Provider) Lookup(ctx context.Context, name string) string {
	value, err := p.Get(ctx, name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		logger.WarnCF("secrets", "Unexpected secret lookup error",
			map[string]any{"secret": name, "error": err.Error()})
	}
	return value
}

// Source reports where name was last resolved from.
func (p *Provider) Source(name string) (Source, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	src, ok := p.sources[name]
	return src, ok
}

// StoreName is the remote store name, or "" when remote lookups are disabled.
func (p *Provider) StoreName() string {
	if p.store == nil {
		return ""
	}
	return p.store.Name()
}

func (p *Provider) fetchRemote(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.remoteTimeout)
	defer cancel()
	return p.store.Get(ctx, name)
}

func (p *Provider) remember(name, value string, src Source) {
	redaction.AddKnownValue(value)

	p.mu.Lock()
	p.sources[name] = src
	p.mu.Unlock()

	logger.DebugCF("secrets", "Secret resolved", map[string]any{"secret": name, "source": string(src)})
}
