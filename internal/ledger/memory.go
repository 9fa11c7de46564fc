package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/google/uuid"
)

// Memory is an in-process ledger. It stores copies, so callers cannot mutate
// recorded entries.
type Memory struct {
	mu    sync.RWMutex
	now   func() time.Time
	seq   uint64
	ids   map[string]bool
	txs   map[string][]sequenced[domain.TransactionRecord]
	plans map[string][]sequenced[domain.PlanRecord]
}

var _ Ledger = (*Memory)(nil)

// NewMemory creates an empty ledger. now is the ledger's clock; nil means
// time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		now:   now,
		ids:   make(map[string]bool),
		txs:   make(map[string][]sequenced[domain.TransactionRecord]),
		plans: make(map[string][]sequenced[domain.PlanRecord]),
	}
}

func (m *Memory) AppendTransaction(ctx context.Context, rec *domain.TransactionRecord) error {
	if rec.OwnerID == "" {
		return fmt.Errorf("Memory.AppendTransaction: %w", ErrMissingOwner)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.claimID(rec.ID)
	if err != nil {
		return fmt.Errorf("Memory.AppendTransaction: %w", err)
	}
	rec.ID = id
	rec.RecordedAt = m.now().UTC()

	m.seq++
	m.txs[rec.OwnerID] = append(m.txs[rec.OwnerID], sequenced[domain.TransactionRecord]{
		seq: m.seq, at: rec.RecordedAt, rec: *rec,
	})
	return nil
}

func (m *Memory) AppendPlan(ctx context.Context, rec *domain.PlanRecord) error {
	if rec.OwnerID == "" {
		return fmt.Errorf("Memory.AppendPlan: %w", ErrMissingOwner)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.claimID(rec.ID)
	if err != nil {
		return fmt.Errorf("Memory.AppendPlan: %w", err)
	}
	rec.ID = id
	rec.RecordedAt = m.now().UTC()

	m.seq++
	m.plans[rec.OwnerID] = append(m.plans[rec.OwnerID], sequenced[domain.PlanRecord]{
		seq: m.seq, at: rec.RecordedAt, rec: *clonePlan(*rec),
	})
	return nil
}

func (m *Memory) ListTransactions(ctx context.Context, ownerID string) ([]*domain.TransactionRecord, error) {
	m.mu.RLock()
	items := append([]sequenced[domain.TransactionRecord](nil), m.txs[ownerID]...)
	m.mu.RUnlock()

	newestFirst(items)
	out := make([]*domain.TransactionRecord, len(items))
	for i := range items {
		rec := items[i].rec
		out[i] = &rec
	}
	return out, nil
}

func (m *Memory) ListPlans(ctx context.Context, ownerID string) ([]*domain.PlanRecord, error) {
	m.mu.RLock()
	items := append([]sequenced[domain.PlanRecord](nil), m.plans[ownerID]...)
	m.mu.RUnlock()

	newestFirst(items)
	out := make([]*domain.PlanRecord, len(items))
	for i := range items {
		out[i] = clonePlan(items[i].rec)
	}
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}

// claimID reserves id, generating one when empty. Callers hold m.mu.
func (m *Memory) claimID(id string) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}
	if m.ids[id] {
		return "", fmt.Errorf("%w: %s", ErrDuplicateRecord, id)
	}
	m.ids[id] = true
	return id, nil
}
