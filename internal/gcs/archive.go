package gcs

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/dvloznov/lifeos/internal/pipeline"
)

// Archive stores each raw model output as a JSON object under
// <prefix>/<owner>/<record id>.json.
type Archive struct {
	storage StorageService
	bucket  string
	prefix  string
	now     func() time.Time
}

var _ pipeline.OutputArchive = (*Archive)(nil)

type archivedOutput struct {
	RecordID  string    `json:"record_id"`
	OwnerID   string    `json:"owner_id"`
	Model     string    `json:"model"`
	Outcome   string    `json:"outcome"`
	Raw       string    `json:"raw"`
	CreatedAt time.Time `json:"created_at"`
}

// NewArchive creates an Archive writing into bucket.
func NewArchive(storage StorageService, bucket, prefix string) *Archive {
	if prefix == "" {
		prefix = "model-outputs"
	}
	return &Archive{storage: storage, bucket: bucket, prefix: prefix, now: time.Now}
}

func (a *Archive) ArchiveModelOutput(ctx context.Context, out pipeline.ModelOutput) error {
	if out.RecordID == "" {
		return fmt.Errorf("Archive.ArchiveModelOutput: record id is required")
	}

	created := out.CreatedAt
	if created.IsZero() {
		created = a.now()
	}
	data, err := json.Marshal(archivedOutput{
		RecordID:  out.RecordID,
		OwnerID:   out.OwnerID,
		Model:     out.Model,
		Outcome:   string(out.Outcome),
		Raw:       out.Raw,
		CreatedAt: created.UTC(),
	})
	if err != nil {
		return fmt.Errorf("Archive.ArchiveModelOutput: encoding: %w", err)
	}

	if err := a.storage.Put(ctx, a.bucket, a.objectName(out), data, "application/json"); err != nil {
		return fmt.Errorf("Archive.ArchiveModelOutput: %w", err)
	}
	return nil
}

func (a *Archive) objectName(out pipeline.ModelOutput) string {
	owner := out.OwnerID
	if owner == "" {
		owner = "_"
	}
	return path.Join(a.prefix, owner, out.RecordID+".json")
}
