package llm

import (
	"fmt"
	"os"
	"time"
)

// Config selects and configures the generator provider.
type Config struct {
	// Provider is one of "openai", "openrouter", "anthropic", "gemini", "mock".
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the OpenAI-compatible endpoint (openai, openrouter).
	BaseURL string

	Retry RetryConfig

	// Timeout bounds a single Generate call including retries. Default: 45s.
	Timeout time.Duration
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Provider: "openai",
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 45 * time.Second,
	}
}

// defaultModels is used when Config.Model is empty.
var defaultModels = map[string]string{
	"openai":     "gpt-4o-mini",
	"openrouter": "google/gemini-2.0-flash-exp",
	"anthropic":  "claude-haiku",
	"gemini":     "gemini-flash",
}

// keyEnv is the provider-standard API key variable for each provider.
var keyEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"gemini":     "GEMINI_API_KEY",
}

// ApplyEnv fills unset fields from QUIZ_LLM_* variables and the provider-standard key variable.
func (c *Config) ApplyEnv() {
	if p := os.Getenv("QUIZ_LLM_PROVIDER"); p != "" {
		c.Provider = p
	}
	if m := os.Getenv("QUIZ_LLM_MODEL"); m != "" {
		c.Model = m
	}
	if u := os.Getenv("QUIZ_LLM_BASE_URL"); u != "" {
		c.BaseURL = u
	}
	if k := os.Getenv("QUIZ_LLM_API_KEY"); k != "" {
		c.APIKey = k
	}
	if c.APIKey == "" {
		if name, ok := keyEnv[c.Provider]; ok {
			c.APIKey = os.Getenv(name)
		}
	}
	if c.Model == "" {
		c.Model = defaultModels[c.Provider]
	}
}

// DiscoverProvider probes the provider-standard key variables in order
// (Gemini, OpenAI, Anthropic, OpenRouter) and selects the first one set.
func (c *Config) DiscoverProvider() bool {
	for _, p := range []string{"gemini", "openai", "anthropic", "openrouter"} {
		if k := os.Getenv(keyEnv[p]); k != "" {
			c.Provider = p
			c.APIKey = k
			if c.Model == "" {
				c.Model = defaultModels[p]
			}
			return true
		}
	}
	return false
}

// Validate checks that the selected provider has an API key.
func (c Config) Validate() error {
	switch c.Provider {
	case "openai", "openrouter", "anthropic", "gemini":
		if c.APIKey == "" {
			return fmt.Errorf("an API key is required for the %s provider (set llm.api_key, QUIZ_LLM_API_KEY or %s)", c.Provider, keyEnv[c.Provider])
		}
	case "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
