package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/lifeos/internal/classify"
	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/dvloznov/lifeos/internal/extract"
	"github.com/dvloznov/lifeos/internal/logger"
	"github.com/dvloznov/lifeos/internal/metrics"
)

// ExpensePipeline turns bank notifications into transaction records.
type ExpensePipeline struct {
	extractor  *extract.Extractor
	classifier *classify.Classifier
	ledger     TransactionAppender
}

// NewExpensePipeline wires the extractor, classifier and ledger together.
func NewExpensePipeline(ex *extract.Extractor, cl *classify.Classifier, ledger TransactionAppender) *ExpensePipeline {
	return &ExpensePipeline{extractor: ex, classifier: cl, ledger: ledger}
}

// Submit extracts, classifies and appends one notification. Unrecognised
// content is stored with default fields; only blank input, a missing owner
// or a ledger failure return an error.
func (p *ExpensePipeline) Submit(ctx context.Context, ownerID, text string) (*domain.TransactionRecord, error) {
	ctx = context.WithoutCancel(ctx)
	log := logger.FromContext(ctx).With().Str("pipeline", pipelineExpense).Str("owner_id", ownerID).Logger()

	if err := validateSubmission(ownerID, text, "text"); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(pipelineExpense, metrics.ResultInvalidInput).Inc()
		return nil, err
	}

	fields := p.extractor.Extract(text)
	rec := &domain.TransactionRecord{
		OwnerID:     ownerID,
		RawText:     text,
		Amount:      fields.Amount,
		Direction:   fields.Direction,
		Counterpart: fields.Counterpart,
		Category:    p.classifier.Classify(fields.Counterpart, text),
	}

	if err := p.ledger.AppendTransaction(ctx, rec); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(pipelineExpense, metrics.ResultServiceError).Inc()
		log.Error().Err(err).Msg("appending transaction failed")
		return nil, fmt.Errorf("ExpensePipeline.Submit: %w",
			&ServiceError{Collaborator: CollaboratorLedger, Op: "append transaction", Err: err})
	}

	metrics.SubmissionsTotal.WithLabelValues(pipelineExpense, metrics.ResultStored).Inc()
	log.Info().
		Str("record_id", rec.ID).
		Str("amount", rec.Amount.String()).
		Str("direction", string(rec.Direction)).
		Str("counterpart", rec.Counterpart).
		Str("category", rec.Category).
		Msg("transaction recorded")
	return rec, nil
}

// PlanOptions configures a PlanPipeline. Zero values select defaults.
type PlanOptions struct {
	Policy  *PromptPolicy
	Locale  string
	Zone    *time.Location
	Model   string
	Archive OutputArchive
	Now     func() time.Time
}

// PlanPipeline turns free-form plans into plan records via the generator.
type PlanPipeline struct {
	pipeline *Pipeline
}

// NewPlanPipeline builds the five-step plan pipeline.
func NewPlanPipeline(gen Generator, ledger PlanAppender, opts PlanOptions) *PlanPipeline {
	policy := DefaultPromptPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	if opts.Locale == "" {
		opts.Locale = DefaultLocale
	}
	if opts.Model == "" {
		opts.Model = DefaultModelName
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &PlanPipeline{
		pipeline: NewPipeline(
			&BuildPromptStep{Policy: policy, Locale: opts.Locale, Zone: opts.Zone, Now: opts.Now},
			&GenerateStep{Generator: gen},
			&NormalizeStep{Categories: newLabelSet(policy.Categories), Priorities: newLabelSet(policy.Priorities)},
			&AppendStep{Ledger: ledger},
			&ArchiveStep{Archive: opts.Archive, Model: opts.Model, Now: opts.Now},
		),
	}
}

// Submit runs one plan through the generator and appends the result. An
// unusable model response is still stored, as a tagged error schedule.
func (p *PlanPipeline) Submit(ctx context.Context, ownerID, rawInput string) (*domain.PlanRecord, error) {
	ctx = context.WithoutCancel(ctx)
	log := logger.FromContext(ctx).With().Str("pipeline", pipelinePlan).Str("owner_id", ownerID).Logger()

	if err := validateSubmission(ownerID, rawInput, "plan_input"); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(pipelinePlan, metrics.ResultInvalidInput).Inc()
		return nil, err
	}

	state := &PlanState{OwnerID: ownerID, RawInput: rawInput}
	if err := p.pipeline.Execute(logger.WithContext(ctx, log), state); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(pipelinePlan, metrics.ResultServiceError).Inc()
		log.Error().Err(err).Msg("plan submission failed")
		return nil, fmt.Errorf("PlanPipeline.Submit: %w", err)
	}

	result := metrics.ResultStored
	if state.Record.Schedule.Failed() {
		result = metrics.ResultTaggedError
	}
	metrics.SubmissionsTotal.WithLabelValues(pipelinePlan, result).Inc()
	log.Info().
		Str("record_id", state.Record.ID).
		Str("outcome", string(state.Normalized.Outcome)).
		Int("entries", len(state.Record.Schedule.Entries)).
		Msg("plan recorded")
	return state.Record, nil
}

// ChatService relays a conversation to the generation service.
type ChatService struct {
	conv Conversation
}

// NewChatService creates a ChatService.
func NewChatService(conv Conversation) *ChatService {
	return &ChatService{conv: conv}
}

var validRoles = map[string]bool{
	domain.RoleUser:      true,
	domain.RoleAssistant: true,
	domain.RoleSystem:    true,
}

// Reply returns the model's answer to the last message. Nothing is stored.
func (s *ChatService) Reply(ctx context.Context, ownerID string, messages []domain.ChatMessage) (string, error) {
	log := logger.FromContext(ctx).With().Str("pipeline", pipelineChat).Str("owner_id", ownerID).Logger()

	if err := validateMessages(ownerID, messages); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(pipelineChat, metrics.ResultInvalidInput).Inc()
		return "", err
	}

	reply, err := s.conv.Chat(ctx, messages)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(pipelineChat, metrics.ResultServiceError).Inc()
		log.Error().Err(err).Int("messages", len(messages)).Msg("chat failed")
		return "", fmt.Errorf("ChatService.Reply: %w",
			&ServiceError{Collaborator: CollaboratorGenerator, Op: "chat", Err: err})
	}

	metrics.SubmissionsTotal.WithLabelValues(pipelineChat, metrics.ResultStored).Inc()
	return reply, nil
}

func validateMessages(ownerID string, messages []domain.ChatMessage) error {
	if ownerID == "" {
		return &InputError{Field: "owner_id", Reason: "missing"}
	}
	if len(messages) == 0 {
		return &InputError{Field: "messages", Reason: "must not be empty"}
	}
	var errs []error
	for i, m := range messages {
		if !validRoles[m.Role] {
			errs = append(errs, fmt.Errorf("message %d: unknown role %q", i, m.Role))
		}
	}
	if len(errs) > 0 {
		return &InputError{Field: "messages", Reason: errors.Join(errs...).Error()}
	}
	return nil
}
