package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/venturelab/compass/internal/errors"
)

// AnthropicProvider implements Provider against the Anthropic Messages API
type AnthropicProvider struct {
	name      string
	apiKey    string
	baseURL   string
	client    *http.Client
	model     string
	maxTokens int
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Content    []anthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason,omitempty"`
	Usage      anthropicUsage     `json:"usage"`
	Error      *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewAnthropicProvider creates an Anthropic provider from its config entry
func NewAnthropicProvider(config *ProviderConfig) (*AnthropicProvider, error) {
	apiKey, ok := config.Config["api_key"].(string)
	if !ok || apiKey == "" {
		return nil, errors.New(errors.ErrCodeSynthConfig,
			fmt.Sprintf("provider %q: api_key not found in config", config.Name)).
			WithSuggestion("Set ANTHROPIC_API_KEY or add api_key to providers.yaml")
	}

	baseURL, ok := config.Config["base_url"].(string)
	if !ok || baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}

	model := "claude-sonnet-4-20250514"
	if modelVal, ok := config.Config["model"].(string); ok && modelVal != "" {
		model = modelVal
	}

	// Anthropic requires max_tokens on every request.
	maxTokens := 2048
	if maxVal, ok := config.Config["max_tokens"].(int); ok && maxVal > 0 {
		maxTokens = maxVal
	}

	return &AnthropicProvider{
		name:      config.Name,
		apiKey:    apiKey,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 120 * time.Second},
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Generate implements Provider.Generate
func (p *AnthropicProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	startTime := time.Now()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}

	anthReq := anthropicRequest{
		Model:       p.model,
		System:      req.System,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.Prompt},
		},
	}

	reqBody, err := json.Marshal(anthReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/messages", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, p.apiError(httpResp, respBody)
	}

	var anthResp anthropicResponse
	if err := json.Unmarshal(respBody, &anthResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	content := ""
	if len(anthResp.Content) > 0 {
		content = anthResp.Content[0].Text
	}

	return &GenerateResponse{
		Content:      content,
		Model:        anthResp.Model,
		Provider:     p.name,
		InputTokens:  anthResp.Usage.InputTokens,
		OutputTokens: anthResp.Usage.OutputTokens,
		TokensUsed:   anthResp.Usage.InputTokens + anthResp.Usage.OutputTokens,
		Latency:      time.Since(startTime),
		FinishReason: anthResp.StopReason,
	}, nil
}

func (p *AnthropicProvider) apiError(resp *http.Response, body []byte) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewSynthAuthError(p.name)
	case http.StatusTooManyRequests:
		return errors.NewSynthRateLimitError(p.name, resp.Header.Get("Retry-After"))
	}

	var errResp anthropicResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
		return errors.New(errors.ErrCodeSynthAPI,
			fmt.Sprintf("anthropic error: %s", errResp.Error.Message))
	}
	return errors.New(errors.ErrCodeSynthAPI,
		fmt.Sprintf("anthropic http %d: %s", resp.StatusCode, string(body)))
}

// Info implements Provider.Info
func (p *AnthropicProvider) Info() ProviderInfo {
	return ProviderInfo{Name: p.name, Type: "anthropic", Model: p.model}
}

// Health implements Provider.Health with a minimal one-token request
func (p *AnthropicProvider) Health(ctx context.Context) error {
	_, err := p.Generate(ctx, &GenerateRequest{Prompt: "ping", MaxTokens: 1})
	return err
}

// Close implements Provider.Close
func (p *AnthropicProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
