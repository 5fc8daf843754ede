// File: internal/llmclient/factory.go
package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sankalpgunturi/stagehand/api/schemas"
	"github.com/sankalpgunturi/stagehand/internal/config"
)

// ProviderGemini is the only provider currently shipped.
const ProviderGemini = "gemini"

// NewClient is a factory function that creates an LLMClient based on the
// configuration.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case ProviderGemini:
		return NewGeminiClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: %q. Supported: [%s]", cfg.Provider, ProviderGemini)
	}
}

// Compile time check that the concrete client satisfies the boundary interface.
var _ schemas.LLMClient = (*GeminiClient)(nil)
