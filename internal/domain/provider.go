package domain

import (
	"fmt"
	"strings"
)

// Provider identifies a backend implementation. The set is closed: values are only
// produced by ParseProvider.
type Provider int

const (
	// ProviderOllama is a local Ollama server.
	ProviderOllama Provider = iota + 1
	// ProviderOpenAI is any OpenAI-compatible API.
	ProviderOpenAI
)

// ParseProvider resolves a configuration name to a Provider.
func ParseProvider(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ollama", "local":
		return ProviderOllama, nil
	case "openai":
		return ProviderOpenAI, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
}

func (p Provider) String() string {
	switch p {
	case ProviderOllama:
		return "ollama"
	case ProviderOpenAI:
		return "openai"
	default:
		return "unknown"
	}
}

// UnmarshalText lets YAML decoding validate provider names at load time.
func (p *Provider) UnmarshalText(b []byte) error {
	v, err := ParseProvider(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalText renders the provider name.
func (p Provider) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
