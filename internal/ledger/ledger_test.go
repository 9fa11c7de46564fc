package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock returns t0, t0+1s, t0+2s, ... on successive calls.
func stepClock(t0 time.Time) func() time.Time {
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return t0.Add(time.Duration(n-1) * time.Second)
	}
}

func backends(t *testing.T) map[string]Ledger {
	t.Helper()

	sq, err := NewSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	return map[string]Ledger{
		"memory": NewMemory(stepClock(time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))),
		"sqlite": sq,
	}
}

func txn(owner, text string) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		OwnerID:     owner,
		RawText:     text,
		Amount:      decimal.RequireFromString("150.00"),
		Direction:   domain.DirectionDebit,
		Counterpart: "Swiggy",
		Category:    "Food & Dining",
	}
}

func TestLedger_TransactionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first := txn("alice", "first")
			second := txn("alice", "second")
			require.NoError(t, l.AppendTransaction(ctx, first))
			require.NoError(t, l.AppendTransaction(ctx, second))

			assert.NotEmpty(t, first.ID)
			assert.NotEqual(t, first.ID, second.ID)
			assert.False(t, first.RecordedAt.IsZero())
			assert.False(t, second.RecordedAt.Before(first.RecordedAt))

			got, err := l.ListTransactions(ctx, "alice")
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, second.ID, got[0].ID)
			assert.Equal(t, first.ID, got[1].ID)

			assert.Equal(t, "first", got[1].RawText)
			assert.True(t, decimal.RequireFromString("150").Equal(got[1].Amount))
			assert.Equal(t, domain.DirectionDebit, got[1].Direction)
			assert.Equal(t, "Food & Dining", got[1].Category)
		})
	}
}

func TestLedger_PlansRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ok := &domain.PlanRecord{
				OwnerID:  "bob",
				RawInput: "gym in the morning",
				Schedule: domain.ScheduleOf([]domain.PlanEntry{
					{Time: "Morning", Description: "Gym", Category: "Health", Priority: "Medium"},
				}),
			}
			failed := &domain.PlanRecord{
				OwnerID:  "bob",
				RawInput: "???",
				Schedule: domain.FailedSchedule("not json", "unparsable response"),
			}
			require.NoError(t, l.AppendPlan(ctx, ok))
			require.NoError(t, l.AppendPlan(ctx, failed))

			got, err := l.ListPlans(ctx, "bob")
			require.NoError(t, err)
			require.Len(t, got, 2)

			assert.Equal(t, failed.ID, got[0].ID)
			require.True(t, got[0].Schedule.Failed())
			assert.Equal(t, "not json", got[0].Schedule.Error.Raw)

			assert.Equal(t, ok.ID, got[1].ID)
			assert.False(t, got[1].Schedule.Failed())
			assert.Equal(t, ok.Schedule.Entries, got[1].Schedule.Entries)
		})
	}
}

func TestLedger_OwnersArePartitioned(t *testing.T) {
	ctx := context.Background()
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, l.AppendTransaction(ctx, txn("alice", "a")))
			require.NoError(t, l.AppendTransaction(ctx, txn("carol", "c")))

			got, err := l.ListTransactions(ctx, "carol")
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "c", got[0].RawText)

			none, err := l.ListPlans(ctx, "nobody")
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestLedger_NeverOverwrites(t *testing.T) {
	ctx := context.Background()
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rec := txn("alice", "original")
			require.NoError(t, l.AppendTransaction(ctx, rec))

			dup := txn("alice", "replacement")
			dup.ID = rec.ID
			err := l.AppendTransaction(ctx, dup)
			assert.True(t, errors.Is(err, ErrDuplicateRecord), "got %v", err)

			got, err := l.ListTransactions(ctx, "alice")
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "original", got[0].RawText)
		})
	}
}

func TestLedger_RequiresOwner(t *testing.T) {
	ctx := context.Background()
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := l.AppendTransaction(ctx, txn("", "x"))
			assert.ErrorIs(t, err, ErrMissingOwner)
			err = l.AppendPlan(ctx, &domain.PlanRecord{RawInput: "x"})
			assert.ErrorIs(t, err, ErrMissingOwner)
		})
	}
}

func TestLedger_ResubmissionIsNotDeduplicated(t *testing.T) {
	ctx := context.Background()
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, l.AppendTransaction(ctx, txn("alice", "same text")))
			require.NoError(t, l.AppendTransaction(ctx, txn("alice", "same text")))

			got, err := l.ListTransactions(ctx, "alice")
			require.NoError(t, err)
			assert.Len(t, got, 2)
		})
	}
}

func TestMemory_OrdersByTimestampNotSubmission(t *testing.T) {
	ctx := context.Background()
	times := []time.Time{
		time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 16, 11, 0, 0, 0, time.UTC), // clock stepped back
		time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC), // tie with the first
	}
	i := 0
	l := NewMemory(func() time.Time { ts := times[i]; i++; return ts })

	a, b, c := txn("o", "a"), txn("o", "b"), txn("o", "c")
	for _, r := range []*domain.TransactionRecord{a, b, c} {
		require.NoError(t, l.AppendTransaction(ctx, r))
	}

	got, err := l.ListTransactions(ctx, "o")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	l := NewMemory(nil)

	rec := &domain.PlanRecord{
		OwnerID:  "o",
		Schedule: domain.ScheduleOf([]domain.PlanEntry{{Description: "original"}}),
	}
	require.NoError(t, l.AppendPlan(ctx, rec))
	rec.Schedule.Entries[0].Description = "mutated by caller"

	got, err := l.ListPlans(ctx, "o")
	require.NoError(t, err)
	got[0].Schedule.Entries[0].Description = "mutated by reader"

	again, err := l.ListPlans(ctx, "o")
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Schedule.Entries[0].Description)
}

func TestMemory_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	l := NewMemory(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.AppendTransaction(ctx, txn("alice", "concurrent")))
		}()
	}
	wg.Wait()

	got, err := l.ListTransactions(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, got, 50)
}
