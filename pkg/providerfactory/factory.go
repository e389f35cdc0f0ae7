// Package providerfactory constructs provider adapters from configuration.
package providerfactory

import (
	"fmt"
	"strings"

	"sentinel-hq/sentinel/pkg/config"
	"sentinel-hq/sentinel/pkg/providers"
	"sentinel-hq/sentinel/pkg/providers/anthropic"
	"sentinel-hq/sentinel/pkg/providers/openai"
)

// NewProvider creates a provider adapter for the given configuration.
// When Type is empty it is inferred from the provider name.
func NewProvider(cfg providers.Config) (providers.Provider, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %q: api key is required", cfg.Name)
	}

	providerType := cfg.Type
	if providerType == "" {
		providerType = inferProviderType(cfg.Name)
	}
	cfg.Type = providerType

	switch providerType {
	case providers.TypeOpenAI:
		return openai.New(cfg), nil
	case providers.TypeAnthropic:
		return anthropic.New(cfg), nil
	default:
		return nil, fmt.Errorf("provider %q: unsupported type %q", cfg.Name, providerType)
	}
}

// Build constructs all providers named in the configuration. On any failure
// the providers already built are closed before the error is returned.
func Build(cfgs map[string]config.ProviderConfig) (map[string]providers.Provider, error) {
	out := make(map[string]providers.Provider, len(cfgs))

	for name, pc := range cfgs {
		p, err := NewProvider(providers.Config{
			Name:                name,
			Type:                pc.Type,
			BaseURL:             pc.BaseURL,
			APIKey:              pc.APIKey,
			Timeout:             pc.Timeout,
			MaxIdleConns:        pc.MaxIdleConns,
			MaxIdleConnsPerHost: pc.MaxIdleConnsPerHost,
			IdleConnTimeout:     pc.IdleConnTimeout,
		})
		if err != nil {
			CloseAll(out)
			return nil, err
		}
		out[name] = p
	}

	return out, nil
}

// CloseAll closes every provider in the set, ignoring close errors.
func CloseAll(provs map[string]providers.Provider) {
	for _, p := range provs {
		_ = p.Close()
	}
}

// inferProviderType guesses the adapter type from the provider name.
// Names containing "anthropic" or "claude" map to the Anthropic adapter;
// everything else defaults to the OpenAI wire format, which most
// compatible gateways speak.
func inferProviderType(name string) string {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "anthropic") || strings.Contains(lower, "claude") {
		return providers.TypeAnthropic
	}
	return providers.TypeOpenAI
}
