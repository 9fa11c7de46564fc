// Package ledger stores transaction and plan records as append-only,
// per-owner timelines read back newest first.
package ledger

import (
	"context"
	"errors"
	"slices"
	"sort"
	"time"

	"github.com/dvloznov/lifeos/internal/domain"
)

var (
	// ErrDuplicateRecord is returned when a record ID is already taken.
	ErrDuplicateRecord = errors.New("ledger: record already exists")

	// ErrMissingOwner is returned when a record has no owner.
	ErrMissingOwner = errors.New("ledger: owner id is required")
)

// Reader lists an owner's records, newest first. Every call returns a fresh
// snapshot.
type Reader interface {
	ListTransactions(ctx context.Context, ownerID string) ([]*domain.TransactionRecord, error)
	ListPlans(ctx context.Context, ownerID string) ([]*domain.PlanRecord, error)
}

// Ledger is the persistence contract shared by all backends. Appends assign
// the record ID (when empty) and RecordedAt from the backend's own clock.
type Ledger interface {
	Reader
	AppendTransaction(ctx context.Context, rec *domain.TransactionRecord) error
	AppendPlan(ctx context.Context, rec *domain.PlanRecord) error
	Close() error
}

// sequenced pairs a stored value with its append position, which breaks
// ties between equal timestamps.
type sequenced[T any] struct {
	seq uint64
	at  time.Time
	rec T
}

// newestFirst orders by timestamp, then by append position, both descending.
func newestFirst[T any](items []sequenced[T]) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].at.Equal(items[j].at) {
			return items[i].at.After(items[j].at)
		}
		return items[i].seq > items[j].seq
	})
}

func clonePlan(rec domain.PlanRecord) *domain.PlanRecord {
	rec.Schedule.Entries = slices.Clone(rec.Schedule.Entries)
	if rec.Schedule.Error != nil {
		payload := *rec.Schedule.Error
		rec.Schedule.Error = &payload
	}
	return &rec
}
