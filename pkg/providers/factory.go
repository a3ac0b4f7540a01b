package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sipeed/picosearch/pkg/config"
	"github.com/sipeed/picosearch/pkg/logger"
	anthropicprovider "github.com/sipeed/picosearch/pkg/providers/anthropic"
	"github.com/sipeed/picosearch/pkg/providers/openai_sdk"
)

const (
	defaultOpenAIAPIBase    = "https://api.openai.com/v1"
	defaultAnthropicAPIBase = "https://api.anthropic.com/v1"
)

// SecretSource resolves named secrets. *secrets.Provider satisfies it.
type SecretSource interface {
	Get(ctx context.Context, name string) (string, error)
}

type providerSelection struct {
	kind       string
	apiKey     string
	apiBase    string
	apiVersion string
	proxy      string
	model      string
	timeout    time.Duration
}

// CreateProvider builds the model client selected by llm.provider, resolving
// endpoint, key and api version through secrets. It returns the provider and
// the model (deployment) name to send with each request.
func CreateProvider(ctx context.Context, cfg *config.Config, secrets SecretSource) (LLMProvider, string, error) {
	sel, err := resolveProviderSelection(ctx, cfg, secrets)
	if err != nil {
		return nil, "", err
	}

	logger.InfoCF("providers", "Model client configured", map[string]any{
		"provider": sel.kind,
		"model":    sel.model,
		"api_base": sel.apiBase,
	})

	switch sel.kind {
	case config.ProviderAzure:
		return openai_sdk.NewAzureProvider(sel.apiBase, sel.apiKey, sel.apiVersion, sel.proxy,
			openai_sdk.WithRequestTimeout(sel.timeout)), sel.model, nil
	case config.ProviderOpenAI:
		return openai_sdk.NewProvider(sel.apiKey, sel.apiBase, sel.proxy,
			openai_sdk.WithRequestTimeout(sel.timeout)), sel.model, nil
	case config.ProviderAnthropic:
		return anthropicprovider.NewProviderWithBaseURL(sel.apiKey, sel.apiBase), sel.model, nil
	default:
		return nil, "", fmt.Errorf("unsupported llm provider %q", sel.kind)
	}
}

func resolveProviderSelection(ctx context.Context, cfg *config.Config, secrets SecretSource) (providerSelection, error) {
	cfg.RLock()
	llm := cfg.LLM
	cfg.RUnlock()

	sel := providerSelection{
		kind:    llm.Provider,
		apiBase: strings.TrimSpace(llm.BaseURL),
		proxy:   llm.Proxy,
		model:   strings.TrimSpace(llm.Deployment),
		timeout: time.Duration(llm.RequestTimeout) * time.Second,
	}

	var err error
	switch sel.kind {
	case config.ProviderAzure:
		if sel.apiBase == "" {
			if sel.apiBase, err = secrets.Get(ctx, llm.EndpointSecret); err != nil {
				return sel, fmt.Errorf("azure endpoint: %w", err)
			}
		}
		if sel.apiKey, err = secrets.Get(ctx, llm.KeySecret); err != nil {
			return sel, fmt.Errorf("azure api key: %w", err)
		}
		if sel.apiVersion, err = secrets.Get(ctx, llm.APIVersionSecret); err != nil {
			return sel, fmt.Errorf("azure api version: %w", err)
		}
	case config.ProviderOpenAI:
		if sel.apiBase == "" {
			sel.apiBase = defaultOpenAIAPIBase
		}
		if sel.apiKey, err = secrets.Get(ctx, llm.KeySecret); err != nil {
			return sel, fmt.Errorf("openai api key: %w", err)
		}
	case config.ProviderAnthropic:
		if sel.apiBase == "" {
			sel.apiBase = defaultAnthropicAPIBase
		}
		if sel.apiKey, err = secrets.Get(ctx, llm.KeySecret); err != nil {
			return sel, fmt.Errorf("anthropic api key: %w", err)
		}
	default:
		return sel, fmt.Errorf("unsupported llm provider %q", sel.kind)
	}

	if sel.model == "" {
		return sel, fmt.Errorf("llm.deployment is empty")
	}
	return sel, nil
}
