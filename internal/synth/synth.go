// Package synth generates task content from upstream stage data through
// pluggable AI providers. The reconciler is its only caller inside the
// core; everything here is side-effect free with respect to pipeline
// state.
package synth

import (
	"context"
	"time"
)

// GenerateRequest is a provider-neutral completion request
type GenerateRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// GenerateResponse is a provider-neutral completion response
type GenerateResponse struct {
	Content      string
	Model        string
	Provider     string
	InputTokens  int
	OutputTokens int
	TokensUsed   int
	Latency      time.Duration
	FinishReason string
}

// ProviderInfo identifies a configured provider
type ProviderInfo struct {
	Name  string
	Type  string
	Model string
}

// Provider is a synthesis backend. Implementations must be safe for
// concurrent use; the reconciler may have several tasks in flight.
type Provider interface {
	// Generate produces a single completion. Failures carry coded
	// errors so callers can distinguish auth problems from rate limits
	// and transient API faults.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Info returns the provider's identity for logging and status output.
	Info() ProviderInfo

	// Health verifies the provider is reachable with its credentials.
	Health(ctx context.Context) error

	// Close releases any held resources.
	Close() error
}
