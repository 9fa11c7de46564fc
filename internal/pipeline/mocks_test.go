package pipeline_test

import (
	"context"
	"sync"

	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/dvloznov/lifeos/internal/pipeline"
)

// MockGenerator is a mock implementation of Generator for testing.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, prompt pipeline.Prompt) (string, error)

	mu      sync.Mutex
	prompts []pipeline.Prompt
}

func (m *MockGenerator) Generate(ctx context.Context, prompt pipeline.Prompt) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return `[{"time":"Morning","description":"Default","category":"Personal","priority":"Low"}]`, nil
}

func (m *MockGenerator) Prompts() []pipeline.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pipeline.Prompt(nil), m.prompts...)
}

// MockConversation is a mock implementation of Conversation for testing.
type MockConversation struct {
	ChatFunc func(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

func (m *MockConversation) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages)
	}
	return "ok", nil
}

// MockArchive is a mock implementation of OutputArchive for testing.
type MockArchive struct {
	ArchiveModelOutputFunc func(ctx context.Context, out pipeline.ModelOutput) error
}

func (m *MockArchive) ArchiveModelOutput(ctx context.Context, out pipeline.ModelOutput) error {
	if m.ArchiveModelOutputFunc != nil {
		return m.ArchiveModelOutputFunc(ctx, out)
	}
	return nil
}

// MockLedger is a mock implementation of the appender interfaces for testing.
type MockLedger struct {
	AppendTransactionFunc func(ctx context.Context, rec *domain.TransactionRecord) error
	AppendPlanFunc        func(ctx context.Context, rec *domain.PlanRecord) error
}

func (m *MockLedger) AppendTransaction(ctx context.Context, rec *domain.TransactionRecord) error {
	if m.AppendTransactionFunc != nil {
		return m.AppendTransactionFunc(ctx, rec)
	}
	return nil
}

func (m *MockLedger) AppendPlan(ctx context.Context, rec *domain.PlanRecord) error {
	if m.AppendPlanFunc != nil {
		return m.AppendPlanFunc(ctx, rec)
	}
	return nil
}

var (
	_ pipeline.Generator           = (*MockGenerator)(nil)
	_ pipeline.Conversation        = (*MockConversation)(nil)
	_ pipeline.OutputArchive       = (*MockArchive)(nil)
	_ pipeline.TransactionAppender = (*MockLedger)(nil)
	_ pipeline.PlanAppender        = (*MockLedger)(nil)
)
