package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/lifeos/internal/pipeline"
)

// ArchiveModelOutput stores the raw generator response next to the plan
// record it produced.
func (s *Store) ArchiveModelOutput(ctx context.Context, out pipeline.ModelOutput) error {
	if err := InsertModelOutputWithClient(ctx, s.client, s.projectID, s.datasetID, newModelOutputRow(out)); err != nil {
		return fmt.Errorf("Store.ArchiveModelOutput: %w", err)
	}
	return nil
}

// InsertModelOutputWithClient inserts a single ModelOutputRow into
// model_outputs using the provided BigQuery client. Uses DML INSERT to avoid
// streaming buffer issues.
func InsertModelOutputWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID string, row *ModelOutputRow) error {
	q := client.Query(`
		INSERT INTO ` + qualifiedTable(projectID, datasetID, modelOutputsTable) + ` (
			output_id, record_id, owner_id,
			model_name, outcome, raw_text,
			notes, created_ts
		)
		VALUES (
			@output_id, @record_id, @owner_id,
			@model_name, @outcome, @raw_text,
			@notes, @created_ts
		)
	`)

	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "record_id", Value: row.RecordID},
		{Name: "owner_id", Value: row.OwnerID},
		{Name: "model_name", Value: row.ModelName},
		{Name: "outcome", Value: row.Outcome},
		{Name: "raw_text", Value: row.RawText},
		{Name: "notes", Value: row.Notes},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertModelOutput: %w", err)
	}
	return nil
}
