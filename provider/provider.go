package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/cliofer/docchat/config"
	local_provider "github.com/cliofer/docchat/provider/local"
	openai_provider "github.com/cliofer/docchat/provider/openai"
)

// Provider is the capability interface every LLM backend must satisfy.
// Embed returns one vector per input text, in input order, all with the same
// dimensionality for a fixed model configuration.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Complete(ctx context.Context, prompt string) (string, error)
}

// New creates an LLM provider from configuration. Backends are selected at
// construction time and injected into the pipelines, never reached for globally.
func New(cfg config.LLMConfig, dimensions int) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, errors.New("llm.api_key required for openai provider")
		}
		return openai_provider.NewClient(cfg), nil
	case "local":
		return local_provider.NewEmbedder(dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}
