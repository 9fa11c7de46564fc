package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/lifeos/internal/ledger"
	"github.com/dvloznov/lifeos/internal/logger"
	"github.com/jomei/notionapi"
)

// Result counts what a sync did.
type Result struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// SyncPlans exports the entries of ownerID's plan records to a Notion
// database. Entries already present, matched by Entry Key, are skipped, so
// repeated runs only add what is new. Records whose schedule is an error
// payload have no entries and are ignored. Individual page failures are
// logged and counted; only listing failures abort the sync.
func SyncPlans(ctx context.Context, reader ledger.Reader, notionClient NotionService, notionDBID, ownerID string, dryRun bool) (Result, error) {
	log := logger.FromContext(ctx).With().Str("owner_id", ownerID).Logger()
	var res Result

	log.Info().Bool("dry_run", dryRun).Msg("Starting plan sync to Notion")

	plans, err := reader.ListPlans(ctx, ownerID)
	if err != nil {
		return res, fmt.Errorf("SyncPlans: list plans: %w", err)
	}

	log.Info().Int("plan_count", len(plans)).Msg("Retrieved plans from ledger")

	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return res, fmt.Errorf("SyncPlans: %w", err)
	}

	existing := make(map[string]bool, len(notionPages))
	for _, page := range notionPages {
		if key := extractEntryKey(page); key != "" {
			existing[key] = true
		}
	}

	log.Info().Int("notion_page_count", len(notionPages)).Msg("Retrieved existing Notion pages")

	for _, rec := range plans {
		if rec.Schedule.Failed() {
			continue
		}
		for i := range rec.Schedule.Entries {
			key := EntryKey(rec.ID, i)
			if existing[key] {
				res.Skipped++
				continue
			}

			if dryRun {
				log.Info().Str("entry_key", key).Msg("[DRY RUN] Would create Notion page")
				res.Created++
				continue
			}

			page, err := notionClient.CreatePage(ctx, notionDBID, PlanEntryToNotionProperties(rec, i))
			if err != nil {
				log.Warn().Err(err).Str("entry_key", key).Msg("Failed to create Notion page")
				res.Failed++
				continue
			}
			log.Debug().Str("entry_key", key).Str("page_id", string(page.ID)).Msg("Created Notion page")
			existing[key] = true
			res.Created++
		}
	}

	log.Info().
		Int("created", res.Created).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("Plan sync completed")

	return res, nil
}

// queryAllNotionPages queries all pages from a Notion database and returns them.
// Handles pagination automatically.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
