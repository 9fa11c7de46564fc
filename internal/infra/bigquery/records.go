package bigquery

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/shopspring/decimal"
)

// ExpenseRecordRow mirrors lifeos.expense_records. The amount column is
// NUMERIC; it is read back through CAST(... AS STRING) to keep full precision.
type ExpenseRecordRow struct {
	RecordID    string    `bigquery:"record_id"`   // REQUIRED
	OwnerID     string    `bigquery:"owner_id"`    // REQUIRED
	RawText     string    `bigquery:"raw_text"`    // REQUIRED
	Amount      string    `bigquery:"amount"`      // REQUIRED NUMERIC
	Direction   string    `bigquery:"direction"`   // REQUIRED
	Counterpart string    `bigquery:"counterpart"` // REQUIRED
	Category    string    `bigquery:"category"`    // REQUIRED
	RecordedTS  time.Time `bigquery:"recorded_ts"` // REQUIRED (default CURRENT_TIMESTAMP)
}

// PlanRecordRow mirrors lifeos.plan_records. The schedule column is JSON,
// read back with TO_JSON_STRING.
type PlanRecordRow struct {
	RecordID   string    `bigquery:"record_id"`   // REQUIRED
	OwnerID    string    `bigquery:"owner_id"`    // REQUIRED
	RawInput   string    `bigquery:"raw_input"`   // REQUIRED
	Schedule   string    `bigquery:"schedule"`    // REQUIRED JSON
	RecordedTS time.Time `bigquery:"recorded_ts"` // REQUIRED (default CURRENT_TIMESTAMP)
}

func (r *ExpenseRecordRow) toRecord() (*domain.TransactionRecord, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount %q of %s: %w", r.Amount, r.RecordID, err)
	}
	return &domain.TransactionRecord{
		ID:          r.RecordID,
		OwnerID:     r.OwnerID,
		RawText:     r.RawText,
		Amount:      amount,
		Direction:   domain.Direction(r.Direction),
		Counterpart: r.Counterpart,
		Category:    r.Category,
		RecordedAt:  r.RecordedTS.UTC(),
	}, nil
}

func (r *PlanRecordRow) toRecord() (*domain.PlanRecord, error) {
	rec := &domain.PlanRecord{
		ID:         r.RecordID,
		OwnerID:    r.OwnerID,
		RawInput:   r.RawInput,
		RecordedAt: r.RecordedTS.UTC(),
	}
	if err := json.Unmarshal([]byte(r.Schedule), &rec.Schedule); err != nil {
		return nil, fmt.Errorf("schedule of %s: %w", r.RecordID, err)
	}
	return rec, nil
}
