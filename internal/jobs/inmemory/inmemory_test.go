package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/lifeos/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.PlanJob {
	t.Helper()
	var got *jobs.PlanJob
	require.Eventually(t, func() bool {
		job, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		got = job
		return job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestQueue_ProcessesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 2, store)
	defer q.Close()

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		pj := job.(*jobs.PlanJob)
		pj.RecordID = "rec-" + pj.OwnerID
		return nil
	}))

	job := &jobs.PlanJob{OwnerID: "u1", RawInput: "gym at 9"}
	require.NoError(t, q.PublishPlan(ctx, job))
	require.NotEmpty(t, job.JobID)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, "rec-u1", done.RecordID)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.Error)
}

func TestQueue_WorkersDoNotShareCallerJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 1, store)
	defer q.Close()

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		job.(*jobs.PlanJob).RecordID = "rec-1"
		return nil
	}))

	job := &jobs.PlanJob{OwnerID: "u1", RawInput: "gym"}
	require.NoError(t, q.PublishPlan(ctx, job))

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, "rec-1", done.RecordID)

	assert.Equal(t, jobs.JobStatusPending, job.Status)
	assert.Empty(t, job.RecordID)
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.CompletedAt)
}

func TestQueue_NoRetryByDefault(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 1, store)
	defer q.Close()

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		calls.Add(1)
		return errors.New("generator down")
	}))

	job := &jobs.PlanJob{OwnerID: "u1"}
	require.NoError(t, q.PublishPlan(ctx, job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, "generator down", failed.Error)
	assert.Equal(t, 0, failed.RetryCount)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQueue_RetriesUntilSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 1, store)
	q.backoff = func(int) time.Duration { return time.Millisecond }
	defer q.Close()

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		if calls.Add(1) < 3 {
			return errors.New("flaky")
		}
		return nil
	}))

	job := &jobs.PlanJob{OwnerID: "u1", MaxRetries: 3}
	require.NoError(t, q.PublishPlan(ctx, job))

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 2, done.RetryCount)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueue_ErrNoRetryIsPermanent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 1, store)
	q.backoff = func(int) time.Duration { return time.Millisecond }
	defer q.Close()

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		return fmt.Errorf("empty input: %w", jobs.ErrNoRetry)
	}))

	job := &jobs.PlanJob{OwnerID: "u1", MaxRetries: 5}
	require.NoError(t, q.PublishPlan(ctx, job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 0, failed.RetryCount)
}

func TestQueue_ClosedRejectsPublish(t *testing.T) {
	q := NewQueue(1, 1, nil)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	assert.Error(t, q.PublishPlan(context.Background(), &jobs.PlanJob{}))
	assert.Error(t, q.Start(context.Background(), func(context.Context, jobs.Job) error { return nil }))
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	started := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	job := &jobs.PlanJob{JobID: "j1", OwnerID: "u1", Status: jobs.JobStatusRunning, StartedAt: &started}
	require.NoError(t, s.SaveJob(ctx, job))

	job.Status = jobs.JobStatusFailed
	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusRunning, got.Status)

	*got.StartedAt = time.Time{}
	again, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, started, *again.StartedAt)
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	assert.Error(t, s.SaveJob(ctx, &jobs.PlanJob{}))

	_, err := s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)

	err = s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, "x")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	for i, owner := range []string{"u1", "u2", "u1", "u1"} {
		require.NoError(t, s.SaveJob(ctx, &jobs.PlanJob{
			JobID:     fmt.Sprintf("j%d", i),
			OwnerID:   owner,
			Status:    jobs.JobStatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.UpdateJobStatus(ctx, "j3", jobs.JobStatusFailed, "boom"))

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all", jobs.JobFilter{}, []string{"j0", "j1", "j2", "j3"}},
		{"by owner", jobs.JobFilter{OwnerID: "u1"}, []string{"j0", "j2", "j3"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusFailed}, []string{"j3"}},
		{"limit", jobs.JobFilter{OwnerID: "u1", Limit: 2}, []string{"j0", "j2"}},
		{"offset", jobs.JobFilter{OwnerID: "u1", Offset: 1}, []string{"j2", "j3"}},
		{"offset past end", jobs.JobFilter{Offset: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, j := range got {
				ids = append(ids, j.JobID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
