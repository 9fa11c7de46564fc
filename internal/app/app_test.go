package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/lifeos/internal/config"
	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/dvloznov/lifeos/internal/jobs"
	"github.com/dvloznov/lifeos/internal/ledger"
	"github.com/dvloznov/lifeos/internal/oracle"
	"github.com/dvloznov/lifeos/internal/pipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Ledger.Backend = config.LedgerMemory
	cfg.Archive.Backend = config.ArchiveNone
	cfg.Oracle.Provider = oracle.ProviderOpenAI
	cfg.Oracle.OpenAIAPIKey = "sk-test"
	cfg.Prompt.Timezone = "Asia/Kolkata"
	cfg.Prompt.Locale = "en-IN"
	return cfg
}

func TestNew_MemoryLedger(t *testing.T) {
	c, err := New(context.Background(), testConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Ledger().(*ledger.Memory)
	assert.True(t, ok)

	rec, err := c.ExpensePipeline().Submit(context.Background(), "user-1", "Rs. 99 debited for Zomato")
	require.NoError(t, err)
	assert.Equal(t, "Food & Dining", rec.Category)
}

func TestNew_SQLiteLedgerWithVocabulary(t *testing.T) {
	dir := t.TempDir()
	vocab := filepath.Join(dir, "vocabulary.yaml")
	require.NoError(t, os.WriteFile(vocab, []byte(`
vendors: [ChaiPoint]
rules:
  - label: Tea
    counterpart: [ChaiPoint]
`), 0o644))

	cfg := testConfig()
	cfg.Ledger.Backend = config.LedgerSQLite
	cfg.Ledger.SQLitePath = filepath.Join(dir, "lifeos.db")
	cfg.Vocabulary.File = vocab

	c, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	rec, err := c.ExpensePipeline().Submit(context.Background(), "user-1", "Rs. 40 debited at ChaiPoint")
	require.NoError(t, err)
	assert.Equal(t, "ChaiPoint", rec.Counterpart)
	assert.Equal(t, "Tea", rec.Category)

	recs, err := c.Ledger().ListTransactions(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	require.NoError(t, c.Close())
	assert.FileExists(t, cfg.Ledger.SQLitePath)
}

func TestNew_BadVocabulary(t *testing.T) {
	cfg := testConfig()
	cfg.Vocabulary.File = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(context.Background(), nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestContainer_OracleIsCreatedOnce(t *testing.T) {
	c, err := New(context.Background(), testConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	first, err := c.Oracle(context.Background())
	require.NoError(t, err)
	second, err := c.Oracle(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, oracle.ProviderOpenAI, first.Provider())

	_, err = c.PlanPipeline(context.Background())
	assert.NoError(t, err)
	_, err = c.ChatService(context.Background())
	assert.NoError(t, err)
}

func TestContainer_OracleError(t *testing.T) {
	cfg := testConfig()
	cfg.Oracle.OpenAIAPIKey = ""

	c, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.PlanPipeline(context.Background())
	assert.Error(t, err)
}

func TestContainer_PlanOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Prompt.Categories = []string{"Work", "Family"}
	cfg.Prompt.Location = "Pune, India"
	cfg.Prompt.IncludeExample = false

	c, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	opts := c.PlanOptions("gpt-test")
	require.NotNil(t, opts.Policy)
	assert.Equal(t, []string{"Work", "Family"}, opts.Policy.Categories)
	assert.Equal(t, pipeline.DefaultPlanPriorities, opts.Policy.Priorities)
	assert.Equal(t, "Pune, India", opts.Policy.Location)
	assert.False(t, opts.Policy.IncludeExample)
	assert.Equal(t, "gpt-test", opts.Model)
	assert.Equal(t, "Asia/Kolkata", opts.Zone.String())
}

func TestContainer_Notion(t *testing.T) {
	cfg := testConfig()
	c, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Notion()
	assert.Error(t, err)

	cfg.Notion.Token = "secret"
	_, err = c.Notion()
	assert.Error(t, err)

	cfg.Notion.DatabaseID = "db"
	n, err := c.Notion()
	require.NoError(t, err)
	assert.NotNil(t, n)
}

type stubPlanSubmitter struct {
	SubmitFunc func(ctx context.Context, ownerID, rawInput string) (*domain.PlanRecord, error)
}

func (s *stubPlanSubmitter) Submit(ctx context.Context, ownerID, rawInput string) (*domain.PlanRecord, error) {
	return s.SubmitFunc(ctx, ownerID, rawInput)
}

func TestPlanJobHandler(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantErr   bool
		noRetry   bool
		wantRecID string
	}{
		{name: "success sets record id", wantRecID: "rec-1"},
		{name: "input error is permanent", err: &pipeline.InputError{Field: "plan_input", Reason: "must not be empty"}, wantErr: true, noRetry: true},
		{name: "service error is retryable", err: &pipeline.ServiceError{Collaborator: pipeline.CollaboratorGenerator, Op: "generate", Err: errors.New("timeout")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &stubPlanSubmitter{
				SubmitFunc: func(ctx context.Context, ownerID, rawInput string) (*domain.PlanRecord, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &domain.PlanRecord{ID: "rec-1", OwnerID: ownerID, RecordedAt: time.Now()}, nil
				},
			}
			job := &jobs.PlanJob{JobID: "job-1", OwnerID: "user-1", RawInput: "gym"}

			err := PlanJobHandler(sub)(context.Background(), job)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.wantRecID, job.RecordID)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.noRetry, errors.Is(err, jobs.ErrNoRetry))
			assert.Empty(t, job.RecordID)
		})
	}
}
