package synth

import (
	"fmt"

	"github.com/venturelab/compass/internal/errors"
)

// NewProvider constructs a provider from a single config entry
func NewProvider(config *ProviderConfig) (Provider, error) {
	switch config.Type {
	case "anthropic":
		return NewAnthropicProvider(config)
	case "openai":
		return NewOpenAIProvider(config)
	case "static":
		fallback, _ := config.Config["fallback"].(string)
		return NewStaticProvider(config.Name, fallback), nil
	default:
		return nil, errors.New(errors.ErrCodeSynthProviderNotFound,
			fmt.Sprintf("unknown provider type %q", config.Type))
	}
}

// Select picks the provider to use for synthesis: the first enabled
// entry in preference order, falling back to config file order when no
// preference is set or none of the preferred names is enabled.
func Select(config *Config) (Provider, error) {
	byName := make(map[string]*ProviderConfig, len(config.Providers))
	for i := range config.Providers {
		byName[config.Providers[i].Name] = &config.Providers[i]
	}

	for _, name := range config.Preference {
		if pc, ok := byName[name]; ok && pc.Enabled {
			return NewProvider(pc)
		}
	}

	for i := range config.Providers {
		if config.Providers[i].Enabled {
			return NewProvider(&config.Providers[i])
		}
	}

	return nil, errors.New(errors.ErrCodeSynthProviderNotFound, "no enabled provider").
		WithSuggestion("Enable a provider in providers.yaml")
}
