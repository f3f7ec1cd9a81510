package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the researcher service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Report    ReportConfig    `mapstructure:"report"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug             bool          `mapstructure:"debug"`
	LogLevel          string        `mapstructure:"log_level"`
	MaxProcessingTime time.Duration `mapstructure:"max_processing_time"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig contains LLM provider configurations
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single LLM provider configuration
type LLMProvider struct {
	Type       string              `mapstructure:"type"` // openai
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Models     map[string]LLMModel `mapstructure:"models"`
	MaxRetries int                 `mapstructure:"max_retries"`
	Timeout    time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name            string   `mapstructure:"name"`
	APIName         string   `mapstructure:"api_name"`
	MaxTokens       int      `mapstructure:"max_tokens"`
	Temperature     float64  `mapstructure:"temperature"`
	CostPer1K       float64  `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64  `mapstructure:"cost_per_1k_output"`
	Capabilities    []string `mapstructure:"capabilities"` // planning, research, synthesis
}

// LLMRoutingConfig defines which model to use for each pipeline stage
type LLMRoutingConfig struct {
	Planning  string `mapstructure:"planning"`  // section outline generation
	Research  string `mapstructure:"research"`  // query generation
	Synthesis string `mapstructure:"synthesis"` // section summaries and final report
	Fallback  string `mapstructure:"fallback"`
}

// SearchConfig contains web search provider settings
type SearchConfig struct {
	Provider     string        `mapstructure:"provider"` // tavily, serper, brave
	TavilyAPIKey string        `mapstructure:"tavily_api_key"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	MaxRetries   int           `mapstructure:"max_retries"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// ReportConfig contains report pipeline settings
type ReportConfig struct {
	QueriesPerSection  int `mapstructure:"queries_per_section"`
	MaxResultsPerQuery int `mapstructure:"max_results_per_query"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	LogFile      string `mapstructure:"log_file"`
	CostTracking bool   `mapstructure:"cost_tracking"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	viper.SetConfigName("researcher_config")
	viper.SetConfigType("json")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	// Set environment variable prefix
	viper.SetEnvPrefix("RESEARCHER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file (optional - will use defaults if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables for sensitive data
	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// General defaults
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.max_processing_time", "10m")
	viper.SetDefault("general.default_timeout", "30s")

	// Server defaults
	viper.SetDefault("server.address", ":8080")

	// LLM defaults (gpt-4o for every stage)
	viper.SetDefault("llm.routing.planning", "gpt-4o")
	viper.SetDefault("llm.routing.research", "gpt-4o")
	viper.SetDefault("llm.routing.synthesis", "gpt-4o")
	viper.SetDefault("llm.routing.fallback", "gpt-4o")
	viper.SetDefault("llm.providers.openai.type", "openai")
	viper.SetDefault("llm.providers.openai.max_retries", 2)
	viper.SetDefault("llm.providers.openai.timeout", "120s")
	viper.SetDefault("llm.providers.openai.models.gpt-4o.name", "gpt-4o")
	viper.SetDefault("llm.providers.openai.models.gpt-4o.api_name", "gpt-4o")
	viper.SetDefault("llm.providers.openai.models.gpt-4o.max_tokens", 4096)
	viper.SetDefault("llm.providers.openai.models.gpt-4o.temperature", 0.2)
	viper.SetDefault("llm.providers.openai.models.gpt-4o.cost_per_1k_input", 0.0025)
	viper.SetDefault("llm.providers.openai.models.gpt-4o.cost_per_1k_output", 0.01)

	// Search defaults
	viper.SetDefault("search.provider", "tavily")
	viper.SetDefault("search.max_retries", 2)
	viper.SetDefault("search.timeout", "30s")

	// Report defaults
	viper.SetDefault("report.queries_per_section", 3)
	viper.SetDefault("report.max_results_per_query", 5)

	// Telemetry defaults
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.cost_tracking", true)
}

// overrideFromEnv overrides configuration with environment variables
func overrideFromEnv() {
	// LLM API keys
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("llm.providers.openai.api_key", apiKey)
	}

	// Search provider API keys
	if apiKey := os.Getenv("TAVILY_API_KEY"); apiKey != "" {
		viper.Set("search.tavily_api_key", apiKey)
	}
	if apiKey := os.Getenv("SERPER_API_KEY"); apiKey != "" {
		viper.Set("search.serper_api_key", apiKey)
	}
	if apiKey := os.Getenv("BRAVE_SEARCH_KEY"); apiKey != "" {
		viper.Set("search.brave_api_key", apiKey)
	}
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	// Validate that at least one LLM provider is configured
	if len(config.LLM.Providers) == 0 {
		return fmt.Errorf("at least one LLM provider must be configured")
	}

	// Validate that routing models exist in providers
	routingModels := []string{
		config.LLM.Routing.Planning,
		config.LLM.Routing.Research,
		config.LLM.Routing.Synthesis,
		config.LLM.Routing.Fallback,
	}

	for _, model := range routingModels {
		if model == "" {
			continue
		}
		found := false
		for _, provider := range config.LLM.Providers {
			for _, providerModel := range provider.Models {
				if providerModel.Name == model {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			return fmt.Errorf("routing model '%s' not found in any provider", model)
		}
	}

	if config.Report.QueriesPerSection <= 0 {
		return fmt.Errorf("report.queries_per_section must be positive")
	}
	if config.Report.MaxResultsPerQuery <= 0 {
		return fmt.Errorf("report.max_results_per_query must be positive")
	}

	return nil
}

// SearchAPIKey returns the API key for the configured search provider.
func (c *Config) SearchAPIKey() string {
	switch c.Search.Provider {
	case "serper":
		return c.Search.SerperAPIKey
	case "brave":
		return c.Search.BraveAPIKey
	default:
		return c.Search.TavilyAPIKey
	}
}
