package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/m4xw311/machat/config"
)

// Environment variables holding per-provider credentials.
const (
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

// Factory lazily constructs a Client for a model identifier. Resolution is a
// pure mapping; any network setup happens when the factory is invoked.
type Factory func(ctx context.Context, model string) (Client, error)

// MissingCredentialError reports that a provider is configured but its
// credential is absent from the process environment.
type MissingCredentialError struct {
	Provider config.Provider
	EnvVar   string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("provider %q requires %s to be set", e.Provider, e.EnvVar)
}

// UnsupportedProviderError reports an identifier outside the closed provider
// set.
type UnsupportedProviderError struct {
	Provider config.Provider
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider: %q", e.Provider)
}

// Resolve maps a provider identifier to a client factory. It fails closed:
// a recognized provider with no credential in the environment yields a
// MissingCredentialError naming the variable. Bedrock is the exception —
// the AWS SDK resolves credentials through its own chain (env, profile,
// instance role), so the check is deferred to client construction.
func Resolve(p config.Provider) (Factory, error) {
	switch p {
	case config.ProviderGemini:
		if os.Getenv(EnvGeminiAPIKey) == "" {
			return nil, &MissingCredentialError{Provider: p, EnvVar: EnvGeminiAPIKey}
		}
		return func(ctx context.Context, model string) (Client, error) {
			return NewGeminiClient(ctx, model)
		}, nil
	case config.ProviderOpenAI:
		if os.Getenv(EnvOpenAIAPIKey) == "" {
			return nil, &MissingCredentialError{Provider: p, EnvVar: EnvOpenAIAPIKey}
		}
		return func(ctx context.Context, model string) (Client, error) {
			return NewOpenAIClient(ctx, model)
		}, nil
	case config.ProviderAnthropic:
		if os.Getenv(EnvAnthropicAPIKey) == "" {
			return nil, &MissingCredentialError{Provider: p, EnvVar: EnvAnthropicAPIKey}
		}
		return func(ctx context.Context, model string) (Client, error) {
			return NewAnthropicClient(ctx, model)
		}, nil
	case config.ProviderBedrock:
		return func(ctx context.Context, model string) (Client, error) {
			return NewBedrockClient(ctx, model)
		}, nil
	default:
		return nil, &UnsupportedProviderError{Provider: p}
	}
}
