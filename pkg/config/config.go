package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Provider kinds accepted in llm.provider.
const (
	ProviderAzure     = "azure"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Secret store backends accepted in secrets.backend.
const (
	SecretBackendKeyVault = "keyvault"
	SecretBackendKeyring  = "keyring"
	SecretBackendNone     = "none"
)

// Tool failure policies accepted in agent.tool_failure_policy.
const (
	ToolFailureReport = "report"
	ToolFailureAbort  = "abort"
)

type Config struct {
	LLM           LLMConfig           `json:"llm"`
	Secrets       SecretsConfig       `json:"secrets"`
	Agent         AgentConfig         `json:"agent"`
	Tools         ToolsConfig         `json:"tools"`
	Logging       LoggingConfig       `json:"logging"`
	Observability ObservabilityConfig `json:"observability"`
	mu            sync.RWMutex
}

// LLMConfig describes the chat-completion endpoint. Endpoint, key and api
// version are not stored here: they are secret names resolved at startup.
type LLMConfig struct {
	Provider         string  `json:"provider" env:"PICOSEARCH_LLM_PROVIDER"`
	Deployment       string  `json:"deployment" env:"PICOSEARCH_LLM_DEPLOYMENT"`
	BaseURL          string  `json:"base_url,omitempty" env:"PICOSEARCH_LLM_BASE_URL"`
	Temperature      float64 `json:"temperature" env:"PICOSEARCH_LLM_TEMPERATURE"`
	MaxTokens        int     `json:"max_tokens" env:"PICOSEARCH_LLM_MAX_TOKENS"`
	RequestTimeout   int     `json:"request_timeout" env:"PICOSEARCH_LLM_REQUEST_TIMEOUT"` // seconds
	Proxy            string  `json:"proxy,omitempty" env:"PICOSEARCH_LLM_PROXY"`
	EndpointSecret   string  `json:"endpoint_secret" env:"PICOSEARCH_LLM_ENDPOINT_SECRET"`
	KeySecret        string  `json:"key_secret" env:"PICOSEARCH_LLM_KEY_SECRET"`
	APIVersionSecret string  `json:"api_version_secret" env:"PICOSEARCH_LLM_API_VERSION_SECRET"`
}

type SecretsConfig struct {
	Backend        string `json:"backend" env:"PICOSEARCH_SECRETS_BACKEND"`
	VaultName      string `json:"vault_name" env:"KEY_VAULT_NAME"`
	KeyringService string `json:"keyring_service" env:"PICOSEARCH_SECRETS_KEYRING_SERVICE"`
}

type AgentConfig struct {
	ThreadID          string `json:"thread_id" env:"PICOSEARCH_AGENT_THREAD_ID"`
	SystemPrompt      string `json:"system_prompt,omitempty" env:"PICOSEARCH_AGENT_SYSTEM_PROMPT"`
	MaxToolIterations int    `json:"max_tool_iterations" env:"PICOSEARCH_AGENT_MAX_TOOL_ITERATIONS"`
	ToolFailurePolicy string `json:"tool_failure_policy" env:"PICOSEARCH_AGENT_TOOL_FAILURE_POLICY"`
	DemoQuery         string `json:"demo_query" env:"PICOSEARCH_AGENT_DEMO_QUERY"`
}

type TavilyConfig struct {
	Enabled     bool   `json:"enabled" env:"PICOSEARCH_TOOLS_TAVILY_ENABLED"`
	APIKeyName  string `json:"api_key_name" env:"PICOSEARCH_TOOLS_TAVILY_API_KEY_NAME"`
	BaseURL     string `json:"base_url,omitempty" env:"PICOSEARCH_TOOLS_TAVILY_BASE_URL"`
	MaxResults  int    `json:"max_results" env:"PICOSEARCH_TOOLS_TAVILY_MAX_RESULTS"`
	SearchDepth string `json:"search_depth" env:"PICOSEARCH_TOOLS_TAVILY_SEARCH_DEPTH"`
	Proxy       string `json:"proxy,omitempty" env:"PICOSEARCH_TOOLS_TAVILY_PROXY"`
}

type ToolsConfig struct {
	Tavily TavilyConfig `json:"tavily"`
}

type LoggingConfig struct {
	Level  string `json:"level" env:"PICOSEARCH_LOG_LEVEL"`
	File   string `json:"file,omitempty" env:"PICOSEARCH_LOG_FILE"`
	Redact bool   `json:"redact" env:"PICOSEARCH_LOG_REDACT"`
}

type ObservabilityConfig struct {
	Enabled      bool    `json:"enabled" env:"PICOSEARCH_OTEL_ENABLED"`
	OTLPEndpoint string  `json:"otlp_endpoint" env:"PICOSEARCH_OTEL_ENDPOINT"`
	Insecure     bool    `json:"insecure" env:"PICOSEARCH_OTEL_INSECURE"`
	ServiceName  string  `json:"service_name" env:"PICOSEARCH_OTEL_SERVICE_NAME"`
	SampleRatio  float64 `json:"sample_ratio" env:"PICOSEARCH_OTEL_SAMPLE_RATIO"`
}

// LoadConfig builds the effective configuration: defaults, then the JSON file
// at path (a missing file is not an error), then .env files, then process
// environment overrides.
func LoadConfig(path string, dotEnvFiles ...string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := LoadDotEnv(dotEnvFiles...); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped; with
// no arguments ".env" in the working directory is tried.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.Secrets.Backend = strings.ToLower(strings.TrimSpace(c.Secrets.Backend))
	c.Agent.ToolFailurePolicy = strings.ToLower(strings.TrimSpace(c.Agent.ToolFailurePolicy))
	c.Agent.ThreadID = strings.TrimSpace(c.Agent.ThreadID)
}

func (c *Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case ProviderAzure, ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unsupported value %q", c.LLM.Provider))
	}
	if c.LLM.Deployment == "" {
		errs = append(errs, errors.New("llm.deployment: must not be empty"))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, errors.New("llm.max_tokens: must be positive"))
	}

	switch c.Secrets.Backend {
	case SecretBackendKeyVault:
		if c.Secrets.VaultName == "" {
			errs = append(errs, errors.New("secrets.vault_name: required for keyvault backend"))
		}
	case SecretBackendKeyring, SecretBackendNone:
	default:
		errs = append(errs, fmt.Errorf("secrets.backend: unsupported value %q", c.Secrets.Backend))
	}

	if c.Agent.MaxToolIterations <= 0 {
		errs = append(errs, errors.New("agent.max_tool_iterations: must be positive"))
	}
	if c.Agent.ThreadID == "" {
		errs = append(errs, errors.New("agent.thread_id: must not be empty"))
	}
	switch c.Agent.ToolFailurePolicy {
	case ToolFailureReport, ToolFailureAbort:
	default:
		errs = append(errs, fmt.Errorf("agent.tool_failure_policy: unsupported value %q", c.Agent.ToolFailurePolicy))
	}

	if c.Tools.Tavily.MaxResults < 1 || c.Tools.Tavily.MaxResults > 10 {
		errs = append(errs, errors.New("tools.tavily.max_results: must be between 1 and 10"))
	}

	return errors.Join(errs...)
}

func (c *Config) RLock()   { c.mu.RLock() }
func (c *Config) RUnlock() { c.mu.RUnlock() }

// RemoteSecretsEnabled reports whether secrets are looked up in a remote
// store before the environment.
func (c *Config) RemoteSecretsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Secrets.Backend != SecretBackendNone
}

// VaultURL is the Key Vault endpoint derived from the vault name.
func (c *Config) VaultURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf("https://%s.vault.azure.net", c.Secrets.VaultName)
}

// LLMOptions returns the per-request options passed to the model client.
func (c *Config) LLMOptions() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return map[string]any{
		"temperature": c.LLM.Temperature,
		"max_tokens":  c.LLM.MaxTokens,
	}
}
