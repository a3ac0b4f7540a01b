package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sipeed/picosearch/cmd/picosearch/internal"
	"github.com/sipeed/picosearch/pkg/config"
	"github.com/sipeed/picosearch/pkg/logger"
	"github.com/sipeed/picosearch/pkg/secrets"
)

type secretResolver interface {
	Get(ctx context.Context, name string) (string, error)
	Source(name string) (secrets.Source, bool)
	StoreName() string
}

func statusCmd(ctx context.Context, checkSecrets bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return
	}

	var sp secretResolver
	if checkSecrets {
		// Lookup failures are shown in the report, not as log lines.
		logger.SetOutput(io.Discard)
		defer logger.SetOutput(os.Stderr)

		provider, err := internal.NewSecretProvider(cfg)
		if err != nil {
			fmt.Printf("Error creating secret provider: %v\n", err)
			return
		}
		sp = provider
	}

	writeStatus(ctx, os.Stdout, cfg, internal.GetConfigPath(), sp)
}

func writeStatus(ctx context.Context, w io.Writer, cfg *config.Config, configPath string, sp secretResolver) {
	fmt.Fprintf(w, "%s picosearch Status\n", internal.Logo)
	fmt.Fprintf(w, "Version: %s\n", internal.FormatVersion())
	if build, _ := internal.FormatBuildInfo(); build != "" {
		fmt.Fprintf(w, "Build: %s\n", build)
	}
	fmt.Fprintln(w)

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintln(w, "Config:", configPath, "✓")
	} else {
		fmt.Fprintln(w, "Config:", configPath, "✗ (using defaults)")
	}

	cfg.RLock()
	llm := cfg.LLM
	sec := cfg.Secrets
	tavily := cfg.Tools.Tavily
	agentCfg := cfg.Agent
	cfg.RUnlock()

	fmt.Fprintf(w, "Provider: %s\n", llm.Provider)
	fmt.Fprintf(w, "Deployment: %s\n", llm.Deployment)
	fmt.Fprintf(w, "Thread: %s\n", agentCfg.ThreadID)
	fmt.Fprintf(w, "Max model calls per turn: %d\n", agentCfg.MaxToolIterations)
	fmt.Fprintf(w, "Tool failure policy: %s\n", agentCfg.ToolFailurePolicy)

	switch sec.Backend {
	case config.SecretBackendKeyVault:
		fmt.Fprintf(w, "Secrets: Key Vault %s\n", cfg.VaultURL())
	case config.SecretBackendKeyring:
		fmt.Fprintf(w, "Secrets: keyring service %q\n", sec.KeyringService)
	default:
		fmt.Fprintln(w, "Secrets: environment only")
	}

	if tavily.Enabled {
		fmt.Fprintf(w, "Web search: enabled (key from $%s)\n", tavily.APIKeyName)
	} else {
		fmt.Fprintln(w, "Web search: disabled")
	}

	if sp == nil {
		return
	}

	fmt.Fprintln(w)
	names := []string{}
	if llm.Provider == config.ProviderAzure {
		names = append(names, llm.EndpointSecret, llm.APIVersionSecret)
	}
	names = append(names, llm.KeySecret)
	for _, name := range names {
		writeSecretLine(ctx, w, sp, name)
	}

	if tavily.Enabled {
		writeSecretLine(ctx, w, secrets.NewProvider(nil), tavily.APIKeyName)
	}
}

func writeSecretLine(ctx context.Context, w io.Writer, sp secretResolver, name string) {
	if name == "" {
		return
	}
	_, err := sp.Get(ctx, name)
	switch {
	case err == nil:
		src, _ := sp.Source(name)
		fmt.Fprintf(w, "%s: ✓ (%s)\n", name, src)
	case errors.Is(err, secrets.ErrNotFound):
		fmt.Fprintf(w, "%s: not set\n", name)
	default:
		fmt.Fprintf(w, "%s: ✗ %v\n", name, err)
	}
}
