package llm

import (
	"context"
	"fmt"
)

// NewProvider creates a Provider from configuration, wrapped as
// caller -> timeout -> retry -> audit -> base. sink may be nil.
func NewProvider(ctx context.Context, cfg Config, sink AuditSink) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "openai":
		base, err = NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.APIKey, cfg.Model)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	audited := WithAudit(base, sink)
	retried := WithRetry(audited, cfg.Retry)
	return WithTimeout(retried, cfg.Timeout), nil
}
