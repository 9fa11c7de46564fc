package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/dvloznov/lifeos/internal/ledger"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// AppendTransaction inserts rec into expense_records using DML INSERT (not
// the streaming API) so the row is immediately visible to reads. The insert
// is guarded by NOT EXISTS, so a taken record_id affects zero rows.
func (s *Store) AppendTransaction(ctx context.Context, rec *domain.TransactionRecord) error {
	if rec.OwnerID == "" {
		return fmt.Errorf("Store.AppendTransaction: %w", ledger.ErrMissingOwner)
	}
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}

	table := s.table(expenseRecordsTable)
	q := s.client.Query(`
		INSERT INTO ` + table + ` (
			record_id, owner_id, raw_text, amount,
			direction, counterpart, category, recorded_ts
		)
		SELECT
			@record_id, @owner_id, @raw_text, @amount,
			@direction, @counterpart, @category, CURRENT_TIMESTAMP()
		FROM (SELECT 1)
		WHERE NOT EXISTS (SELECT 1 FROM ` + table + ` WHERE record_id = @record_id)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "record_id", Value: id},
		{Name: "owner_id", Value: rec.OwnerID},
		{Name: "raw_text", Value: rec.RawText},
		{Name: "amount", Value: rec.Amount.Rat()},
		{Name: "direction", Value: string(rec.Direction)},
		{Name: "counterpart", Value: rec.Counterpart},
		{Name: "category", Value: rec.Category},
	}

	affected, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("Store.AppendTransaction: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("Store.AppendTransaction: %w: %s", ledger.ErrDuplicateRecord, id)
	}

	ts, err := s.recordedAt(ctx, expenseRecordsTable, id)
	if err != nil {
		return fmt.Errorf("Store.AppendTransaction: %w", err)
	}
	rec.ID = id
	rec.RecordedAt = ts
	return nil
}

// AppendPlan inserts rec into plan_records. The schedule is stored as a JSON
// column holding either the entry array or the error payload.
func (s *Store) AppendPlan(ctx context.Context, rec *domain.PlanRecord) error {
	if rec.OwnerID == "" {
		return fmt.Errorf("Store.AppendPlan: %w", ledger.ErrMissingOwner)
	}
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}

	schedule, err := json.Marshal(rec.Schedule)
	if err != nil {
		return fmt.Errorf("Store.AppendPlan: encoding schedule: %w", err)
	}

	table := s.table(planRecordsTable)
	q := s.client.Query(`
		INSERT INTO ` + table + ` (record_id, owner_id, raw_input, schedule, recorded_ts)
		SELECT @record_id, @owner_id, @raw_input, PARSE_JSON(@schedule), CURRENT_TIMESTAMP()
		FROM (SELECT 1)
		WHERE NOT EXISTS (SELECT 1 FROM ` + table + ` WHERE record_id = @record_id)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "record_id", Value: id},
		{Name: "owner_id", Value: rec.OwnerID},
		{Name: "raw_input", Value: rec.RawInput},
		{Name: "schedule", Value: string(schedule)},
	}

	affected, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("Store.AppendPlan: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("Store.AppendPlan: %w: %s", ledger.ErrDuplicateRecord, id)
	}

	ts, err := s.recordedAt(ctx, planRecordsTable, id)
	if err != nil {
		return fmt.Errorf("Store.AppendPlan: %w", err)
	}
	rec.ID = id
	rec.RecordedAt = ts
	return nil
}

// ListTransactions returns the owner's expense records, newest first.
// BigQuery keeps no insertion sequence, so equal timestamps fall back to
// record_id order.
func (s *Store) ListTransactions(ctx context.Context, ownerID string) ([]*domain.TransactionRecord, error) {
	q := s.client.Query(`
		SELECT
			record_id,
			owner_id,
			raw_text,
			CAST(amount AS STRING) AS amount,
			direction,
			counterpart,
			category,
			recorded_ts
		FROM ` + s.table(expenseRecordsTable) + `
		WHERE owner_id = @owner_id
		ORDER BY recorded_ts DESC, record_id DESC
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "owner_id", Value: ownerID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("Store.ListTransactions: query read: %w", err)
	}

	var out []*domain.TransactionRecord
	for {
		var row ExpenseRecordRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Store.ListTransactions: iter next: %w", err)
		}
		rec, err := row.toRecord()
		if err != nil {
			return nil, fmt.Errorf("Store.ListTransactions: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListPlans returns the owner's plan records, newest first.
func (s *Store) ListPlans(ctx context.Context, ownerID string) ([]*domain.PlanRecord, error) {
	q := s.client.Query(`
		SELECT
			record_id,
			owner_id,
			raw_input,
			TO_JSON_STRING(schedule) AS schedule,
			recorded_ts
		FROM ` + s.table(planRecordsTable) + `
		WHERE owner_id = @owner_id
		ORDER BY recorded_ts DESC, record_id DESC
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "owner_id", Value: ownerID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("Store.ListPlans: query read: %w", err)
	}

	var out []*domain.PlanRecord
	for {
		var row PlanRecordRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Store.ListPlans: iter next: %w", err)
		}
		rec, err := row.toRecord()
		if err != nil {
			return nil, fmt.Errorf("Store.ListPlans: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// recordedAt reads back the server-assigned timestamp of a freshly
// inserted row.
func (s *Store) recordedAt(ctx context.Context, table, recordID string) (time.Time, error) {
	q := s.client.Query(`
		SELECT recorded_ts
		FROM ` + s.table(table) + `
		WHERE record_id = @record_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "record_id", Value: recordID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("reading recorded_ts: %w", err)
	}

	var row struct {
		RecordedTS time.Time `bigquery:"recorded_ts"`
	}
	if err := it.Next(&row); err != nil {
		if err == iterator.Done {
			return time.Time{}, fmt.Errorf("record %s not found after insert", recordID)
		}
		return time.Time{}, fmt.Errorf("reading recorded_ts: %w", err)
	}
	return row.RecordedTS.UTC(), nil
}
