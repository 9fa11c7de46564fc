// Package oracle adapts external language-generation services to the
// pipeline's Generator and Conversation capabilities.
package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/lifeos/internal/pipeline"
)

// Supported providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config selects and configures a provider.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
}

// Client is a generation service usable by both the plan pipeline and chat.
type Client interface {
	pipeline.Generator
	pipeline.Conversation
	Provider() string
	Model() string
}

// New creates the client for cfg.Provider.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini, "":
		return NewGemini(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("oracle.New: unsupported provider %q", cfg.Provider)
	}
}

// withTimeout bounds a single call when a timeout is configured.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
