package config

const (
	DefaultVaultName  = "asiacopilotosusdllo001"
	DefaultThreadID   = "1"
	DefaultDemoQuery  = "What do you know about LangGraph?"
	DefaultDeployment = "gpt-4o"

	SecretOpenAIEndpoint   = "smart-openai-endpoint"
	SecretOpenAIKey        = "smart-openai-key"
	SecretOpenAIAPIVersion = "smart-openai-api-version"
	EnvTavilyAPIKey        = "TAVILY_API_KEY"
)

// DefaultConfig returns the configuration used when no file or environment
// override is present.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:         ProviderAzure,
			Deployment:       DefaultDeployment,
			Temperature:      0,
			MaxTokens:        1500,
			RequestTimeout:   120,
			EndpointSecret:   SecretOpenAIEndpoint,
			KeySecret:        SecretOpenAIKey,
			APIVersionSecret: SecretOpenAIAPIVersion,
		},
		Secrets: SecretsConfig{
			Backend:        SecretBackendKeyVault,
			VaultName:      DefaultVaultName,
			KeyringService: "picosearch",
		},
		Agent: AgentConfig{
			ThreadID:          DefaultThreadID,
			MaxToolIterations: 10,
			ToolFailurePolicy: ToolFailureReport,
			DemoQuery:         DefaultDemoQuery,
		},
		Tools: ToolsConfig{
			Tavily: TavilyConfig{
				Enabled:     true,
				APIKeyName:  EnvTavilyAPIKey,
				MaxResults:  2,
				SearchDepth: "advanced",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Redact: true,
		},
		Observability: ObservabilityConfig{
			Enabled:     false,
			ServiceName: "picosearch",
			SampleRatio: 1,
		},
	}
}
