package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/Marcelixoo/b-ro-buddy/internal/config"
	"github.com/Marcelixoo/b-ro-buddy/internal/utils"
)

// Message roles on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Request is the provider-agnostic completion request. Each provider
// owns the translation into its native shape.
type Request struct {
	System      string
	Messages    []Message
	Temperature float32
	MaxTokens   int32
}

// Provider issues a single-turn completion and normalizes the response
// to plain text.
type Provider interface {
	// Complete returns the model's text reply. Errors are either
	// ErrNoCredentials or a *ProviderError; callers decide how to degrade.
	Complete(ctx context.Context, req Request) (string, error)

	// Configured reports whether credentials are present. When false,
	// Complete returns ErrNoCredentials without a remote call.
	Configured() bool
}

// ErrNoCredentials means the active provider has no usable credentials;
// callers fall back to their degraded path.
var ErrNoCredentials = errors.New("no LLM credentials configured")

// ProviderError classifies transport, auth and malformed-response
// failures from a provider call.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is a degraded-mode condition
// (missing credentials or any provider failure) rather than a caller bug.
func IsUnavailable(err error) bool {
	var pe *ProviderError
	return errors.Is(err, ErrNoCredentials) || errors.As(err, &pe)
}

// NewGateway selects the provider from configuration. Selection happens
// once at construction; nothing below this reads the environment.
func NewGateway(cfg *config.Config, logger *utils.Logger) Provider {
	if cfg.LLMProvider == config.ProviderBedrock {
		return NewBedrockProvider(cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretKey, cfg.BedrockModelID, logger)
	}
	return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
}
