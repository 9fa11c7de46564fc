package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/lifeos/internal/pipeline"
	"github.com/google/uuid"
)

type ModelOutputRow struct {
	OutputID string `bigquery:"output_id"` // REQUIRED
	RecordID string `bigquery:"record_id"` // REQUIRED
	OwnerID  string `bigquery:"owner_id"`  // REQUIRED

	ModelName string `bigquery:"model_name"` // REQUIRED
	Outcome   string `bigquery:"outcome"`    // REQUIRED

	RawText string              `bigquery:"raw_text"` // REQUIRED
	Notes   bigquery.NullString `bigquery:"notes"`    // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// newModelOutputRow converts an archived generator response into a row.
// A zero CreatedAt is replaced with the current time.
func newModelOutputRow(out pipeline.ModelOutput) *ModelOutputRow {
	created := out.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	row := &ModelOutputRow{
		OutputID:  uuid.NewString(),
		RecordID:  out.RecordID,
		OwnerID:   out.OwnerID,
		ModelName: out.Model,
		Outcome:   string(out.Outcome),
		RawText:   out.Raw,
		CreatedTS: created.UTC(),
	}
	if out.Outcome != pipeline.OutcomeSequence && out.Outcome != pipeline.OutcomeSingleObject {
		row.Notes = bigquery.NullString{StringVal: "model output could not be used as a schedule", Valid: true}
	}
	return row
}
