package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/sipeed/picosearch/pkg/agent"
	"github.com/sipeed/picosearch/pkg/config"
	"github.com/sipeed/picosearch/pkg/logger"
	"github.com/sipeed/picosearch/pkg/observability"
	"github.com/sipeed/picosearch/pkg/providers"
	"github.com/sipeed/picosearch/pkg/secrets"
	"github.com/sipeed/picosearch/pkg/session"
	"github.com/sipeed/picosearch/pkg/tools"
	"github.com/sipeed/picosearch/pkg/tools/web_search"
)

const Logo = "🔎"

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

func GetConfigPath() string {
	return config.ResolveRuntimePaths().ConfigPath
}

// LoadConfig reads the config file, then ~/.picosearch/.env and ./.env, then
// PICOSEARCH_* overrides.
func LoadConfig() (*config.Config, error) {
	paths := config.ResolveRuntimePaths()
	return config.LoadConfig(paths.ConfigPath, paths.DotEnvPath, ".env")
}

// SetupLogging applies the logging section of cfg. debug forces the debug
// level regardless of config.
func SetupLogging(cfg *config.Config, debug bool) error {
	cfg.RLock()
	logCfg := cfg.Logging
	cfg.RUnlock()

	level := logger.INFO
	if logCfg.Level != "" {
		parsed, err := logger.ParseLevel(logCfg.Level)
		if err != nil {
			return err
		}
		level = parsed
	}
	if debug {
		level = logger.DEBUG
	}
	logger.SetLevel(level)
	logger.SetOutput(os.Stderr)
	logger.SetRedactionEnabled(logCfg.Redact)

	if logCfg.File != "" {
		if err := logger.EnableFileLogging(logCfg.File); err != nil {
			return err
		}
	}
	return nil
}

// NewSecretProvider builds the secret provider for the configured backend.
func NewSecretProvider(cfg *config.Config) (*secrets.Provider, error) {
	sp, err := secrets.NewProviderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("secret store: %w", err)
	}
	return sp, nil
}

// BuildToolRegistry registers the search tool. A missing search key only
// disables the tool; the agent can still answer from the model alone.
func BuildToolRegistry(ctx context.Context, cfg *config.Config) (*tools.ToolRegistry, error) {
	cfg.RLock()
	tavily := cfg.Tools.Tavily
	cfg.RUnlock()

	registry := tools.NewToolRegistry()
	if !tavily.Enabled {
		return registry, nil
	}

	// The search key comes from the environment only.
	apiKey, err := secrets.NewProvider(nil).Get(ctx, tavily.APIKeyName)
	if err != nil && !errors.Is(err, secrets.ErrNotFound) {
		return nil, err
	}
	if apiKey == "" {
		logger.WarnCF("tools", "Web search disabled: API key not set",
			map[string]any{"env": tavily.APIKeyName})
		return registry, nil
	}

	search, err := web_search.NewWebSearchTool(web_search.WebSearchToolOptions{
		TavilyEnabled:    true,
		TavilyAPIKey:     apiKey,
		TavilyBaseURL:    tavily.BaseURL,
		TavilyMaxResults: tavily.MaxResults,
		SearchDepth:      tavily.SearchDepth,
		Proxy:            tavily.Proxy,
	})
	if err != nil {
		return nil, fmt.Errorf("web search tool: %w", err)
	}
	if search != nil {
		registry.Register(search)
	}
	return registry, nil
}

// Runtime is everything a command needs to run turns against the model.
type Runtime struct {
	Config   *config.Config
	Secrets  *secrets.Provider
	Provider providers.LLMProvider
	Sessions *session.SessionManager
	Loop     *agent.Loop

	shutdown func(context.Context) error
}

// NewRuntime resolves secrets, creates the model client and tools, and wires
// the conversation loop. modelOverride replaces the configured deployment.
func NewRuntime(ctx context.Context, cfg *config.Config, modelOverride string) (*Runtime, error) {
	if modelOverride != "" {
		cfg.LLM.Deployment = modelOverride
	}

	cfg.RLock()
	obsCfg := cfg.Observability
	cfg.RUnlock()
	shutdown, err := observability.Init(ctx, obsCfg)
	if err != nil {
		return nil, err
	}

	sp, err := NewSecretProvider(cfg)
	if err != nil {
		return nil, err
	}

	provider, model, err := providers.CreateProvider(ctx, cfg, sp)
	if err != nil {
		return nil, fmt.Errorf("error creating provider: %w", err)
	}

	registry, err := BuildToolRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessions := session.NewSessionManager()
	loop, err := agent.NewLoopFromConfig(cfg, provider, model, registry, sessions)
	if err != nil {
		return nil, err
	}

	logger.InfoCF("agent", "Agent initialized", map[string]any{
		"model":               loop.Model(),
		"tools_count":         registry.Count(),
		"tools":               registry.List(),
		"tool_failure_policy": loop.ToolFailurePolicy().String(),
	})

	return &Runtime{
		Config:   cfg,
		Secrets:  sp,
		Provider: provider,
		Sessions: sessions,
		Loop:     loop,
		shutdown: shutdown,
	}, nil
}

// Close logs the threads checkpointed this run, flushes tracing and closes
// the log file.
func (r *Runtime) Close(ctx context.Context) {
	if r.Sessions != nil {
		for _, meta := range r.Sessions.List() {
			logger.DebugCF("agent", "Thread checkpoint", map[string]any{
				"thread_id": meta.Key,
				"messages":  meta.MessageCnt,
				"updated":   meta.UpdatedAt.Format(time.RFC3339),
			})
		}
	}
	if r.shutdown != nil {
		if err := r.shutdown(ctx); err != nil {
			logger.WarnCF("otel", "Tracer shutdown failed", map[string]any{"error": err.Error()})
		}
	}
	logger.DisableFileLogging()
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info
func FormatBuildInfo() (string, string) {
	build := buildTime
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return build, goVer
}

func GetVersion() string {
	return version
}
