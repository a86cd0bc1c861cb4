package synth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturelab/compass/internal/errors"
)

func anthropicConfig(baseURL string) *ProviderConfig {
	return &ProviderConfig{
		Name: "claude", Type: "anthropic", Enabled: true,
		Config: map[string]interface{}{
			"api_key":  "sk-ant-test",
			"base_url": baseURL,
		},
	}
}

func openaiConfig(baseURL string) *ProviderConfig {
	return &ProviderConfig{
		Name: "gpt", Type: "openai", Enabled: true,
		Config: map[string]interface{}{
			"api_key":  "sk-test",
			"base_url": baseURL,
		},
	}
}

func TestAnthropicGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "synthesized answer"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 42, "output_tokens": 7}
		}`))
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider(anthropicConfig(srv.URL))
	require.NoError(t, err)
	defer p.Close()

	resp, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "synthesized answer", resp.Content)
	assert.Equal(t, "claude", resp.Provider)
	assert.Equal(t, 49, resp.TokensUsed)
	assert.Equal(t, "end_turn", resp.FinishReason)
}

func TestAnthropicAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider(anthropicConfig(srv.URL))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), &GenerateRequest{Prompt: "hello"})
	var ce *errors.CompassError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errors.ErrCodeSynthAuth, ce.Code)
}

func TestAnthropicRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider(anthropicConfig(srv.URL))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), &GenerateRequest{Prompt: "hello"})
	var ce *errors.CompassError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errors.ErrCodeSynthRateLimit, ce.Code)
}

func TestAnthropicMissingKey(t *testing.T) {
	_, err := NewAnthropicProvider(&ProviderConfig{
		Name: "claude", Type: "anthropic",
		Config: map[string]interface{}{},
	})
	var ce *errors.CompassError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errors.ErrCodeSynthConfig, ce.Code)
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12}
		}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(openaiConfig(srv.URL))
	require.NoError(t, err)
	defer p.Close()

	resp, err := p.Generate(context.Background(), &GenerateRequest{
		System: "be terse", Prompt: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, "gpt", resp.Provider)
	assert.Equal(t, 12, resp.TokensUsed)
}

func TestOpenAIAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"message": "server melted", "type": "server_error"}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(openaiConfig(srv.URL))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), &GenerateRequest{Prompt: "hello"})
	var ce *errors.CompassError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errors.ErrCodeSynthAPI, ce.Code)
	assert.Contains(t, ce.Message, "server melted")
}

func TestOpenAIHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(openaiConfig(srv.URL))
	require.NoError(t, err)
	assert.NoError(t, p.Health(context.Background()))
}

func TestStaticProviderScripting(t *testing.T) {
	p := NewStaticProvider("offline", "default answer").
		Respond("pricing", `["Freemium", "Pro at $29/mo"]`)

	resp, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "Propose a pricing model"})
	require.NoError(t, err)
	assert.Equal(t, `["Freemium", "Pro at $29/mo"]`, resp.Content)

	resp, err = p.Generate(context.Background(), &GenerateRequest{Prompt: "anything else"})
	require.NoError(t, err)
	assert.Equal(t, "default answer", resp.Content)
	assert.Equal(t, 2, p.Calls())
}

func TestStaticProviderFailure(t *testing.T) {
	p := NewStaticProvider("offline", "").Fail(errors.NewSynthAuthError("offline"))
	_, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "x"})
	require.Error(t, err)

	p.Fail(nil)
	_, err = p.Generate(context.Background(), &GenerateRequest{Prompt: "x"})
	require.NoError(t, err)
}
