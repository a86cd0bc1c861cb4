package synth

import (
	"context"
	"strings"
	"sync"
)

// StaticProvider is a scripted provider for tests and offline demos. It
// matches the prompt against registered substrings and returns the
// corresponding canned response.
type StaticProvider struct {
	name string

	mu        sync.Mutex
	responses map[string]string
	fallback  string
	err       error
	calls     int
}

// NewStaticProvider creates an offline provider with an optional default
// response used when no scripted entry matches.
func NewStaticProvider(name, fallback string) *StaticProvider {
	if name == "" {
		name = "static"
	}
	return &StaticProvider{
		name:      name,
		responses: make(map[string]string),
		fallback:  fallback,
	}
}

// Respond scripts a response for prompts containing the given substring
func (p *StaticProvider) Respond(promptSubstring, response string) *StaticProvider {
	p.mu.Lock()
	p.responses[promptSubstring] = response
	p.mu.Unlock()
	return p
}

// Fail makes every subsequent Generate call return err. Pass nil to
// clear the fault.
func (p *StaticProvider) Fail(err error) *StaticProvider {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	return p
}

// Calls reports how many times Generate has been invoked
func (p *StaticProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Generate implements Provider.Generate
func (p *StaticProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	if p.err != nil {
		return nil, p.err
	}

	content := p.fallback
	for substr, response := range p.responses {
		if strings.Contains(req.Prompt, substr) {
			content = response
			break
		}
	}

	return &GenerateResponse{
		Content:  content,
		Model:    "static",
		Provider: p.name,
	}, nil
}

// Info implements Provider.Info
func (p *StaticProvider) Info() ProviderInfo {
	return ProviderInfo{Name: p.name, Type: "static", Model: "static"}
}

// Health implements Provider.Health
func (p *StaticProvider) Health(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Close implements Provider.Close
func (p *StaticProvider) Close() error { return nil }
