package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "watch channel closed early")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch update")
	}
	var zero T
	return zero
}

func TestWatchTransactions_EmitsOnAppend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewMemory(nil)
	require.NoError(t, l.AppendTransaction(ctx, txn("alice", "one")))

	updates := WatchTransactions(ctx, l, "alice", 10*time.Millisecond)

	initial := receive(t, updates)
	require.Len(t, initial, 1)

	require.NoError(t, l.AppendTransaction(ctx, txn("alice", "two")))
	next := receive(t, updates)
	require.Len(t, next, 2)
	assert.Equal(t, "two", next[0].RawText)

	cancel()
	for range updates {
		// drain until closed
	}
}

func TestWatchPlans_IgnoresOtherOwners(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewMemory(nil)
	updates := WatchPlans(ctx, l, "alice", 10*time.Millisecond)
	assert.Empty(t, receive(t, updates))

	require.NoError(t, l.AppendPlan(ctx, &domain.PlanRecord{OwnerID: "bob", RawInput: "x"}))
	select {
	case got := <-updates:
		t.Fatalf("unexpected update for alice: %v", got)
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, l.AppendPlan(ctx, &domain.PlanRecord{OwnerID: "alice", RawInput: "y"}))
	got := receive(t, updates)
	require.Len(t, got, 1)
	assert.Equal(t, "y", got[0].RawInput)
}

func TestFingerprint(t *testing.T) {
	id := func(s string) string { return s }
	assert.Equal(t, "0", fingerprint([]string{}, id))
	assert.Equal(t, "2:b", fingerprint([]string{"b", "a"}, id))
}
