package embed

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// ProviderType selects which Embedder implementation NewEmbedder builds.
type ProviderType string

const (
	// ProviderOllama uses Ollama's HTTP API for embeddings (the default).
	ProviderOllama ProviderType = "ollama"

	// ProviderStatic uses hash-based embeddings; no network dependency.
	ProviderStatic ProviderType = "static"
)

// NewEmbedder builds an embedder for provider, applying VEYRA_EMBEDDER and
// VEYRA_OLLAMA_* environment overrides, then wraps it in a query cache
// unless VEYRA_EMBED_CACHE disables it.
func NewEmbedder(ctx context.Context, provider ProviderType, model string) (Embedder, error) {
	if envProvider := os.Getenv("VEYRA_EMBEDDER"); envProvider != "" {
		provider = ProviderType(strings.ToLower(envProvider))
	}

	var embedder Embedder
	var err error
	switch provider {
	case ProviderStatic:
		embedder = NewStaticEmbedder()
	default:
		embedder, err = newOllama(ctx, model)
	}
	if err != nil {
		return nil, err
	}

	if !isCacheDisabled() {
		embedder = NewCachedEmbedderWithDefaults(embedder)
	}
	return embedder, nil
}

func isCacheDisabled() bool {
	v := strings.ToLower(os.Getenv("VEYRA_EMBED_CACHE"))
	return v == "false" || v == "0" || v == "off" || v == "disabled"
}

func newOllama(ctx context.Context, model string) (Embedder, error) {
	cfg := DefaultOllamaConfig()
	if model != "" {
		cfg.Model = model
	}
	if host := os.Getenv("VEYRA_OLLAMA_HOST"); host != "" {
		cfg.Host = host
	}
	if modelOverride := os.Getenv("VEYRA_OLLAMA_MODEL"); modelOverride != "" {
		cfg.Model = modelOverride
	}
	if timeoutStr := os.Getenv("VEYRA_OLLAMA_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			cfg.Timeout = timeout
		}
	}

	embedder, err := NewOllamaEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ollama unavailable: %w\n\nstart Ollama (ollama serve) or set VEYRA_EMBEDDER=static for an offline index", err)
	}
	return embedder, nil
}

// ParseProvider converts a string to ProviderType, defaulting to Ollama.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(s) {
	case "static":
		return ProviderStatic
	default:
		return ProviderOllama
	}
}

func (p ProviderType) String() string { return string(p) }

// ValidProviders lists the accepted provider names.
func ValidProviders() []string {
	return []string{string(ProviderOllama), string(ProviderStatic)}
}

// IsValidProvider reports whether s names a known provider.
func IsValidProvider(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range ValidProviders() {
		if lower == p {
			return true
		}
	}
	return false
}

// Info describes a resolved embedder, for CLI status output.
type Info struct {
	Provider   ProviderType
	Model      string
	Dimensions int
	Available  bool
}

// GetInfo inspects embedder (unwrapping CachedEmbedder) to describe it.
func GetInfo(ctx context.Context, embedder Embedder) Info {
	info := Info{
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(ctx),
	}

	inner := embedder
	if cached, ok := embedder.(*CachedEmbedder); ok {
		inner = cached.inner
	}

	switch inner.(type) {
	case *OllamaEmbedder:
		info.Provider = ProviderOllama
	default:
		info.Provider = ProviderStatic
	}
	return info
}
