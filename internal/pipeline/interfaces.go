package pipeline

import (
	"context"
	"time"

	"github.com/dvloznov/lifeos/internal/domain"
)

// Prompt is a single request to the generation service.
type Prompt struct {
	// System carries the instructions built by PromptPolicy.
	System string
	// User is the text the owner submitted.
	User string
	// JSON asks the service for a structured-output response.
	JSON bool
}

// Generator is the language-generation service. Its output is untrusted text.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Conversation continues a chat given the full message history.
type Conversation interface {
	Chat(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// TransactionAppender persists transaction records. Implementations assign
// the record ID and the server timestamp.
type TransactionAppender interface {
	AppendTransaction(ctx context.Context, rec *domain.TransactionRecord) error
}

// PlanAppender persists plan records. Implementations assign the record ID
// and the server timestamp.
type PlanAppender interface {
	AppendPlan(ctx context.Context, rec *domain.PlanRecord) error
}

// ModelOutput is the raw generator response kept for audit.
type ModelOutput struct {
	RecordID  string
	OwnerID   string
	Model     string
	Raw       string
	Outcome   Outcome
	CreatedAt time.Time
}

// OutputArchive stores raw model outputs next to the ledger.
type OutputArchive interface {
	ArchiveModelOutput(ctx context.Context, out ModelOutput) error
}
