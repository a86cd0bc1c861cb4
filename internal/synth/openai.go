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

// OpenAIProvider implements Provider against the OpenAI chat completions API
type OpenAIProvider struct {
	name      string
	apiKey    string
	baseURL   string
	client    *http.Client
	model     string
	maxTokens int
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
	Error   *openAIError   `json:"error,omitempty"`
}

type openAIChoice struct {
	Index        int           `json:"index"`
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// NewOpenAIProvider creates an OpenAI provider from its config entry
func NewOpenAIProvider(config *ProviderConfig) (*OpenAIProvider, error) {
	apiKey, ok := config.Config["api_key"].(string)
	if !ok || apiKey == "" {
		return nil, errors.New(errors.ErrCodeSynthConfig,
			fmt.Sprintf("provider %q: api_key not found in config", config.Name)).
			WithSuggestion("Set OPENAI_API_KEY or add api_key to providers.yaml")
	}

	baseURL, ok := config.Config["base_url"].(string)
	if !ok || baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	model := "gpt-4o-mini"
	if modelVal, ok := config.Config["model"].(string); ok && modelVal != "" {
		model = modelVal
	}

	maxTokens := 0
	if maxVal, ok := config.Config["max_tokens"].(int); ok {
		maxTokens = maxVal
	}

	return &OpenAIProvider{
		name:      config.Name,
		apiKey:    apiKey,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 120 * time.Second},
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Generate implements Provider.Generate
func (p *OpenAIProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	startTime := time.Now()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}

	messages := []openAIMessage{}
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.Prompt})

	oaiReq := openAIRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	}

	reqBody, err := json.Marshal(oaiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

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

	var oaiResp openAIResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(oaiResp.Choices) == 0 {
		return nil, errors.New(errors.ErrCodeSynthAPI, "openai response contained no choices")
	}
	choice := oaiResp.Choices[0]

	return &GenerateResponse{
		Content:      choice.Message.Content,
		Model:        oaiResp.Model,
		Provider:     p.name,
		InputTokens:  oaiResp.Usage.PromptTokens,
		OutputTokens: oaiResp.Usage.CompletionTokens,
		TokensUsed:   oaiResp.Usage.TotalTokens,
		Latency:      time.Since(startTime),
		FinishReason: choice.FinishReason,
	}, nil
}

func (p *OpenAIProvider) apiError(resp *http.Response, body []byte) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewSynthAuthError(p.name)
	case http.StatusTooManyRequests:
		return errors.NewSynthRateLimitError(p.name, resp.Header.Get("Retry-After"))
	}

	var errResp openAIResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
		return errors.New(errors.ErrCodeSynthAPI,
			fmt.Sprintf("openai error: %s", errResp.Error.Message))
	}
	return errors.New(errors.ErrCodeSynthAPI,
		fmt.Sprintf("openai http %d: %s", resp.StatusCode, string(body)))
}

// Info implements Provider.Info
func (p *OpenAIProvider) Info() ProviderInfo {
	return ProviderInfo{Name: p.name, Type: "openai", Model: p.model}
}

// Health implements Provider.Health by listing models
func (p *OpenAIProvider) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()
	io.Copy(io.Discard, httpResp.Body)

	if httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden {
		return errors.NewSynthAuthError(p.name)
	}
	if httpResp.StatusCode != http.StatusOK {
		return errors.New(errors.ErrCodeSynthAPI,
			fmt.Sprintf("openai health check: http %d", httpResp.StatusCode))
	}
	return nil
}

// Close implements Provider.Close
func (p *OpenAIProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
