package llm

import (
	"context"
	"fmt"
	"os"
)

// ProviderConfig selects and configures an LLM provider for the advisor.
//
// Provider names mirror the advisor's model switch: "vertex" runs the hosted
// Gemini default, "groq" runs an open model through a LiteLLM proxy, and
// "openai" / "bedrock" select those clouds directly.
type ProviderConfig struct {
	// Provider is one of "vertex", "groq", "openai", "bedrock".
	Provider string

	// ModelName overrides the provider's default model.
	ModelName string

	// APIKey is the provider API key. Falls back to the provider's usual
	// environment variables when empty.
	APIKey string

	// ProxyURL is the LiteLLM proxy base URL ("groq" provider only).
	ProxyURL string

	// Region is the AWS region ("bedrock" provider only).
	Region string
}

// NewLLM constructs the LLM adapter described by cfg.
//
// For the "groq" provider a GROQ_API_KEY is required, matching the proxy's
// own configuration requirements.
func NewLLM(ctx context.Context, cfg ProviderConfig) (LLM, error) {
	switch cfg.Provider {
	case "", "vertex", "gemini":
		return NewGeminiLLM(cfg.APIKey, cfg.ModelName)

	case "groq":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("GROQ_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY is required for groq models")
		}
		model := cfg.ModelName
		if model == "" {
			model = "groq/llama3-8b-8192"
		}
		return NewLiteLLMLLMWithAuth(cfg.ProxyURL, model, apiKey), nil

	case "openai":
		return NewOpenAILLM(cfg.APIKey, cfg.ModelName), nil

	case "bedrock":
		return NewBedrockLLM(ctx, BedrockConfig{
			ModelID: cfg.ModelName,
			Region:  cfg.Region,
		})

	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}
