package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/dvloznov/lifeos/internal/metrics"
	"github.com/dvloznov/lifeos/internal/pipeline"
	"google.golang.org/genai"
)

// Gemini content roles.
const (
	roleUser  = "user"
	roleModel = "model"
)

// Gemini talks to the Gemini API through the genai SDK.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float64
	timeout     time.Duration
}

var _ Client = (*Gemini)(nil)

// NewGemini creates a Gemini client. An empty API key lets the SDK fall back
// to GEMINI_API_KEY / GOOGLE_API_KEY from the environment.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = pipeline.DefaultModelName
	}
	return &Gemini{client: client, model: model, temperature: cfg.Temperature, timeout: cfg.Timeout}, nil
}

func (g *Gemini) Provider() string { return ProviderGemini }

func (g *Gemini) Model() string { return g.model }

// Generate sends the instructions as the system instruction and the owner's
// text as the single user turn.
func (g *Gemini) Generate(ctx context.Context, prompt pipeline.Prompt) (string, error) {
	config := g.baseConfig()
	if prompt.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: prompt.System}}}
	}
	if prompt.JSON {
		config.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{
		{Role: roleUser, Parts: []*genai.Part{{Text: prompt.User}}},
	}

	text, err := g.generate(ctx, contents, config)
	if err != nil {
		return "", fmt.Errorf("Gemini.Generate: %w", err)
	}
	return text, nil
}

// Chat replays the conversation. System messages become the system
// instruction; assistant turns map to the model role.
func (g *Gemini) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	system, contents := toGeminiContents(messages)

	config := g.baseConfig()
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	text, err := g.generate(ctx, contents, config)
	if err != nil {
		return "", fmt.Errorf("Gemini.Chat: %w", err)
	}
	return text, nil
}

func (g *Gemini) baseConfig() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if g.temperature > 0 {
		config.Temperature = genai.Ptr(float32(g.temperature))
	}
	return config
}

func (g *Gemini) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	metrics.OracleRequestDuration.WithLabelValues(ProviderGemini).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in model response")
	}
	return resp.Text(), nil
}

func toGeminiContents(messages []domain.ChatMessage) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, m.Content)
		case domain.RoleAssistant:
			contents = append(contents, &genai.Content{Role: roleModel, Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: roleUser, Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	return strings.Join(system, "\n\n"), contents
}
