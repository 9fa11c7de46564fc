// Package app wires the lifeos components from a Config. Both binaries build
// their dependencies through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dvloznov/lifeos/internal/classify"
	"github.com/dvloznov/lifeos/internal/config"
	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/dvloznov/lifeos/internal/extract"
	"github.com/dvloznov/lifeos/internal/gcs"
	infraBQ "github.com/dvloznov/lifeos/internal/infra/bigquery"
	"github.com/dvloznov/lifeos/internal/jobs"
	"github.com/dvloznov/lifeos/internal/ledger"
	"github.com/dvloznov/lifeos/internal/logger"
	"github.com/dvloznov/lifeos/internal/notionsync"
	"github.com/dvloznov/lifeos/internal/oracle"
	"github.com/dvloznov/lifeos/internal/pipeline"
	"github.com/rs/zerolog"
)

// Container holds the wired components. The generation client is created on
// first use, so commands that never call it need no API key.
type Container struct {
	cfg     *config.Config
	log     zerolog.Logger
	ledger  ledger.Ledger
	archive pipeline.OutputArchive
	storage *gcs.Client
	expense *pipeline.ExpensePipeline

	// closers run in reverse order on Close.
	closers []func() error

	oracleOnce sync.Once
	oracle     oracle.Client
	oracleErr  error
}

// New builds the ledger, the expense pipeline and the output archive.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app.New: configuration cannot be nil")
	}
	c := &Container{cfg: cfg, log: log}

	if err := c.openLedger(ctx); err != nil {
		c.Close()
		return nil, err
	}

	rules, vendors, err := loadVocabulary(cfg.Vocabulary.File)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("app.New: %w", err)
	}
	c.expense = pipeline.NewExpensePipeline(extract.NewExtractor(vendors...), classify.NewClassifier(rules), c.ledger)

	if err := c.openArchive(ctx); err != nil {
		c.Close()
		return nil, err
	}

	log.Debug().
		Str("ledger", cfg.Ledger.Backend).
		Str("archive", cfg.Archive.Backend).
		Str("oracle", cfg.Oracle.Provider).
		Msg("Container initialized")
	return c, nil
}

func (c *Container) openLedger(ctx context.Context) error {
	switch c.cfg.Ledger.Backend {
	case config.LedgerSQLite:
		l, err := ledger.NewSQLite(c.cfg.Ledger.SQLitePath)
		if err != nil {
			return fmt.Errorf("app.New: %w", err)
		}
		c.ledger = l
	case config.LedgerBigQuery:
		s, err := infraBQ.NewStore(ctx, c.cfg.Ledger.ProjectID, c.cfg.Ledger.DatasetID)
		if err != nil {
			return fmt.Errorf("app.New: %w", err)
		}
		c.ledger = s
	default:
		c.ledger = ledger.NewMemory(nil)
	}
	c.closers = append(c.closers, c.ledger.Close)
	return nil
}

func (c *Container) openArchive(ctx context.Context) error {
	switch c.cfg.Archive.Backend {
	case config.ArchiveGCS:
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("app.New: %w", err)
		}
		c.storage = client
		c.closers = append(c.closers, client.Close)
		c.archive = gcs.NewArchive(client, c.cfg.Archive.Bucket, c.cfg.Archive.Prefix)
	case config.ArchiveBigQuery:
		if s, ok := c.ledger.(*infraBQ.Store); ok {
			c.archive = s
			return nil
		}
		s, err := infraBQ.NewStore(ctx, c.cfg.Ledger.ProjectID, c.cfg.Ledger.DatasetID)
		if err != nil {
			return fmt.Errorf("app.New: %w", err)
		}
		c.closers = append(c.closers, s.Close)
		c.archive = s
	}
	return nil
}

func loadVocabulary(path string) ([]classify.Rule, []string, error) {
	if path == "" {
		return nil, nil, nil
	}
	v, err := classify.LoadVocabulary(path)
	if err != nil {
		return nil, nil, err
	}
	return v.BuildRules(), v.Vendors, nil
}

// Config returns the configuration the container was built from.
func (c *Container) Config() *config.Config { return c.cfg }

// Logger returns the application logger.
func (c *Container) Logger() zerolog.Logger { return c.log }

// Ledger returns the configured ledger backend.
func (c *Container) Ledger() ledger.Ledger { return c.ledger }

// ExpensePipeline returns the expense pipeline.
func (c *Container) ExpensePipeline() *pipeline.ExpensePipeline { return c.expense }

// Storage returns a GCS client, creating one if the archive did not.
func (c *Container) Storage(ctx context.Context) (*gcs.Client, error) {
	if c.storage != nil {
		return c.storage, nil
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("Container.Storage: %w", err)
	}
	c.storage = client
	c.closers = append(c.closers, client.Close)
	return client, nil
}

// Oracle returns the generation client, creating it on first call.
func (c *Container) Oracle(ctx context.Context) (oracle.Client, error) {
	c.oracleOnce.Do(func() {
		c.oracle, c.oracleErr = oracle.New(ctx, oracle.Config{
			Provider:    c.cfg.Oracle.Provider,
			Model:       c.cfg.Oracle.Model,
			APIKey:      c.cfg.OracleAPIKey(),
			BaseURL:     c.cfg.Oracle.BaseURL,
			Temperature: c.cfg.Oracle.Temperature,
			Timeout:     c.cfg.Oracle.Timeout,
		})
	})
	return c.oracle, c.oracleErr
}

// PlanPipeline builds the plan pipeline around the generation client.
func (c *Container) PlanPipeline(ctx context.Context) (*pipeline.PlanPipeline, error) {
	client, err := c.Oracle(ctx)
	if err != nil {
		return nil, fmt.Errorf("Container.PlanPipeline: %w", err)
	}
	return pipeline.NewPlanPipeline(client, c.ledger, c.PlanOptions(client.Model())), nil
}

// PlanOptions translates the prompt settings into pipeline options.
func (c *Container) PlanOptions(model string) pipeline.PlanOptions {
	policy := pipeline.DefaultPromptPolicy()
	if len(c.cfg.Prompt.Categories) > 0 {
		policy.Categories = c.cfg.Prompt.Categories
	}
	if len(c.cfg.Prompt.Priorities) > 0 {
		policy.Priorities = c.cfg.Prompt.Priorities
	}
	if c.cfg.Prompt.Location != "" {
		policy.Location = c.cfg.Prompt.Location
	}
	policy.IncludeExample = c.cfg.Prompt.IncludeExample

	return pipeline.PlanOptions{
		Policy:  &policy,
		Locale:  c.cfg.Prompt.Locale,
		Zone:    c.cfg.PromptLocation(),
		Model:   model,
		Archive: c.archive,
	}
}

// ChatService builds the chat relay around the generation client.
func (c *Container) ChatService(ctx context.Context) (*pipeline.ChatService, error) {
	client, err := c.Oracle(ctx)
	if err != nil {
		return nil, fmt.Errorf("Container.ChatService: %w", err)
	}
	return pipeline.NewChatService(client), nil
}

// Notion returns a Notion client, or an error when no token is configured.
func (c *Container) Notion() (notionsync.NotionService, error) {
	if c.cfg.Notion.Token == "" {
		return nil, fmt.Errorf("Container.Notion: NOTION_TOKEN or notion.token is required")
	}
	if c.cfg.Notion.DatabaseID == "" {
		return nil, fmt.Errorf("Container.Notion: notion.database_id is required")
	}
	return notionsync.NewNotionClient(c.cfg.Notion.Token), nil
}

// Close releases every resource the container opened.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// PlanSubmitter is satisfied by *pipeline.PlanPipeline.
type PlanSubmitter interface {
	Submit(ctx context.Context, ownerID, rawInput string) (*domain.PlanRecord, error)
}

// PlanJobHandler runs queued plan jobs through p. Rejected input is marked
// permanent so the queue does not retry it.
func PlanJobHandler(p PlanSubmitter) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		planJob, ok := job.(*jobs.PlanJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T: %w", job, jobs.ErrNoRetry)
		}

		log := logger.FromContext(ctx).With().Str("job_id", planJob.JobID).Logger()
		log.Info().Str("owner_id", planJob.OwnerID).Msg("Processing plan job")

		rec, err := p.Submit(ctx, planJob.OwnerID, planJob.RawInput)
		if err != nil {
			var inputErr *pipeline.InputError
			if errors.As(err, &inputErr) {
				return fmt.Errorf("%w: %w", jobs.ErrNoRetry, err)
			}
			return err
		}

		planJob.RecordID = rec.ID
		return nil
	}
}
