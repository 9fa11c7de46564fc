package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/dvloznov/lifeos/internal/logger"
	"github.com/dvloznov/lifeos/internal/metrics"
)

// PipelineStep represents a single step of the plan pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PlanState) error
}

// PlanState holds the shared state across all plan pipeline steps.
type PlanState struct {
	OwnerID    string
	RawInput   string
	Prompt     Prompt
	RawOutput  string
	Normalized Normalized
	Record     *domain.PlanRecord
}

// Step 1: BuildPromptStep prepares the generator request.
type BuildPromptStep struct {
	Policy PromptPolicy
	Locale string
	Zone   *time.Location
	Now    func() time.Time
}

func (s *BuildPromptStep) Execute(ctx context.Context, state *PlanState) error {
	now := s.Now()
	if s.Zone != nil {
		now = now.In(s.Zone)
	}
	state.Prompt = Prompt{
		System: s.Policy.Build(now, s.Locale),
		User:   state.RawInput,
		JSON:   true,
	}
	return nil
}

// Step 2: GenerateStep calls the generation service once. A failure here ends
// the run without a ledger write.
type GenerateStep struct {
	Generator Generator
}

func (s *GenerateStep) Execute(ctx context.Context, state *PlanState) error {
	out, err := s.Generator.Generate(ctx, state.Prompt)
	if err != nil {
		return &ServiceError{Collaborator: CollaboratorGenerator, Op: "generate", Err: err}
	}
	state.RawOutput = out
	return nil
}

// Step 3: NormalizeStep interprets the raw output and aligns label spelling
// with the vocabulary.
type NormalizeStep struct {
	Categories labelSet
	Priorities labelSet
}

func (s *NormalizeStep) Execute(ctx context.Context, state *PlanState) error {
	state.Normalized = Normalize(state.RawOutput)
	if !state.Normalized.Schedule.Failed() {
		canonicalizeEntries(state.Normalized.Schedule.Entries, s.Categories, s.Priorities)
	}
	metrics.NormalizerOutcomes.WithLabelValues(string(state.Normalized.Outcome)).Inc()

	log := logger.FromContext(ctx)
	if state.Normalized.Schedule.Failed() {
		log.Warn().
			Str("outcome", string(state.Normalized.Outcome)).
			Str("reason", state.Normalized.Schedule.Error.Reason).
			Msg("model output stored as tagged error")
	} else {
		log.Debug().
			Str("outcome", string(state.Normalized.Outcome)).
			Int("entries", len(state.Normalized.Schedule.Entries)).
			Msg("model output normalized")
	}
	return nil
}

// Step 4: AppendStep writes the plan record.
type AppendStep struct {
	Ledger PlanAppender
}

func (s *AppendStep) Execute(ctx context.Context, state *PlanState) error {
	rec := &domain.PlanRecord{
		OwnerID:  state.OwnerID,
		RawInput: state.RawInput,
		Schedule: state.Normalized.Schedule,
	}
	if err := s.Ledger.AppendPlan(ctx, rec); err != nil {
		return &ServiceError{Collaborator: CollaboratorLedger, Op: "append plan", Err: err}
	}
	state.Record = rec
	return nil
}

// Step 5: ArchiveStep keeps a copy of the raw model output. Failures are
// logged and do not fail the submission; the ledger record is already written.
type ArchiveStep struct {
	Archive OutputArchive
	Model   string
	Now     func() time.Time
}

func (s *ArchiveStep) Execute(ctx context.Context, state *PlanState) error {
	if s.Archive == nil || state.Record == nil {
		return nil
	}
	err := s.Archive.ArchiveModelOutput(ctx, ModelOutput{
		RecordID:  state.Record.ID,
		OwnerID:   state.OwnerID,
		Model:     s.Model,
		Raw:       state.RawOutput,
		Outcome:   state.Normalized.Outcome,
		CreatedAt: s.Now().UTC(),
	})
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("record_id", state.Record.ID).Msg("archiving model output failed")
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PlanState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
