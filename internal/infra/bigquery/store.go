// Package bigquery implements the ledger and the model-output archive on
// top of BigQuery tables.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/lifeos/internal/ledger"
	"github.com/dvloznov/lifeos/internal/pipeline"
)

// DefaultDatasetID is used when no dataset is configured.
const DefaultDatasetID = "lifeos"

const (
	expenseRecordsTable = "expense_records"
	planRecordsTable    = "plan_records"
	modelOutputsTable   = "model_outputs"
)

// Store holds a shared BigQuery client to avoid creating a new connection
// for each operation.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	ownClient bool
}

var (
	_ ledger.Ledger          = (*Store)(nil)
	_ pipeline.OutputArchive = (*Store)(nil)
)

// NewStore creates a Store with its own BigQuery client.
func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("NewStore: project id is required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating client: %w", err)
	}
	s := NewStoreWithClient(client, projectID, datasetID)
	s.ownClient = true
	return s, nil
}

// NewStoreWithClient wraps an existing client. Close leaves the client open.
func NewStoreWithClient(client *bigquery.Client, projectID, datasetID string) *Store {
	if datasetID == "" {
		datasetID = DefaultDatasetID
	}
	return &Store{client: client, projectID: projectID, datasetID: datasetID}
}

// Close closes the BigQuery client connection if the Store created it.
func (s *Store) Close() error {
	if s.ownClient && s.client != nil {
		return s.client.Close()
	}
	return nil
}

// table returns the fully qualified, backtick-quoted table name.
func (s *Store) table(name string) string {
	return qualifiedTable(s.projectID, s.datasetID, name)
}

func qualifiedTable(projectID, datasetID, name string) string {
	return "`" + projectID + "." + datasetID + "." + name + "`"
}

// runDML runs a DML statement to completion and reports how many rows it
// touched.
func runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}
