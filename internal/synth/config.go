package synth

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/venturelab/compass/internal/errors"
)

// ProviderConfig is one entry of providers.yaml
type ProviderConfig struct {
	Name    string                 `yaml:"name"`
	Type    string                 `yaml:"type"`
	Enabled bool                   `yaml:"enabled"`
	Config  map[string]interface{} `yaml:"config,omitempty"`
}

// Config is the complete providers.yaml configuration. Preference lists
// provider names in selection order; the first enabled match wins.
type Config struct {
	Providers  []ProviderConfig `yaml:"providers"`
	Preference []string         `yaml:"preference,omitempty"`
}

// DefaultConfig returns an offline configuration backed by the static
// provider, so a fresh workspace works without any API key.
func DefaultConfig() *Config {
	return &Config{
		Providers: []ProviderConfig{
			{
				Name: "offline", Type: "static", Enabled: true,
				Config: map[string]interface{}{
					"fallback": "Offline placeholder. Add an API key to providers.yaml for real synthesis.",
				},
			},
		},
	}
}

// LoadConfig reads providers.yaml from path. Environment variables in
// the file (${ANTHROPIC_API_KEY} and the like) are expanded before
// parsing so keys never need to live on disk.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read provider config: %w", err)
	}

	configStr := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(configStr), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSynthConfig, "parse provider config", err).
			WithSuggestion("Check providers.yaml for YAML syntax errors")
	}

	if err := ValidateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadConfigOrDefault loads providers.yaml when present and falls back
// to the offline default when it is missing.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// ValidateConfig checks a provider configuration for usability
func ValidateConfig(config *Config) error {
	if len(config.Providers) == 0 {
		return errors.New(errors.ErrCodeSynthConfig, "no providers configured")
	}

	hasEnabled := false
	seen := make(map[string]bool)
	for i, p := range config.Providers {
		if p.Name == "" {
			return errors.New(errors.ErrCodeSynthConfig,
				fmt.Sprintf("provider %d: name is required", i))
		}
		if seen[p.Name] {
			return errors.New(errors.ErrCodeSynthConfig,
				fmt.Sprintf("duplicate provider name %q", p.Name))
		}
		seen[p.Name] = true

		switch p.Type {
		case "anthropic", "openai", "static":
		default:
			return errors.New(errors.ErrCodeSynthConfig,
				fmt.Sprintf("provider %q: unknown type %q", p.Name, p.Type)).
				WithSuggestion("Supported types: anthropic, openai, static")
		}

		if p.Enabled {
			hasEnabled = true
		}
	}

	if !hasEnabled {
		return errors.New(errors.ErrCodeSynthConfig, "at least one provider must be enabled")
	}
	return nil
}
