package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/dvloznov/lifeos/internal/metrics"
	"github.com/dvloznov/lifeos/internal/pipeline"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-3.5-turbo"

	// defaultMaxResponseBytes bounds a completion response body.
	defaultMaxResponseBytes = 4 << 20
)

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxBytes    int64
}

var _ Client = (*OpenAI)(nil)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model          string            `json:"model"`
	Messages       []openAIMessage   `json:"messages"`
	Temperature    float64           `json:"temperature,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAI creates an OpenAI client. The API key is required.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("NewOpenAI: API key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAI{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.Temperature,
		maxBytes:    defaultMaxResponseBytes,
	}, nil
}

func (c *OpenAI) Provider() string { return ProviderOpenAI }

func (c *OpenAI) Model() string { return c.model }

func (c *OpenAI) Generate(ctx context.Context, prompt pipeline.Prompt) (string, error) {
	req := openAIRequest{
		Model:       c.model,
		Temperature: c.temperature,
	}
	if prompt.System != "" {
		req.Messages = append(req.Messages, openAIMessage{Role: domain.RoleSystem, Content: prompt.System})
	}
	req.Messages = append(req.Messages, openAIMessage{Role: domain.RoleUser, Content: prompt.User})
	if prompt.JSON {
		req.ResponseFormat = map[string]string{"type": "json_object"}
	}

	text, err := c.complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI.Generate: %w", err)
	}
	return text, nil
}

func (c *OpenAI) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	req := openAIRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    make([]openAIMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openAIMessage{Role: m.Role, Content: m.Content})
	}

	text, err := c.complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI.Chat: %w", err)
	}
	return text, nil
}

func (c *OpenAI) complete(ctx context.Context, body openAIRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.OracleRequestDuration.WithLabelValues(ProviderOpenAI).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if int64(len(raw)) > c.maxBytes {
		return "", fmt.Errorf("response exceeds %d bytes", c.maxBytes)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(raw)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, msg)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return parsed.Choices[0].Message.Content, nil
}
