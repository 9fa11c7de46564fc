package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/dvloznov/lifeos/internal/logger"
)

// DefaultPollInterval is used when a watch is started with a non-positive
// interval.
const DefaultPollInterval = 2 * time.Second

// WatchTransactions emits the owner's transactions, newest first, once at
// start and again whenever a new record appears. The channel is closed when
// ctx is done.
func WatchTransactions(ctx context.Context, l Reader, ownerID string, interval time.Duration) <-chan []*domain.TransactionRecord {
	return watch(ctx, interval,
		func(ctx context.Context) ([]*domain.TransactionRecord, error) {
			return l.ListTransactions(ctx, ownerID)
		},
		func(r *domain.TransactionRecord) string { return r.ID },
	)
}

// WatchPlans is WatchTransactions for plan records.
func WatchPlans(ctx context.Context, l Reader, ownerID string, interval time.Duration) <-chan []*domain.PlanRecord {
	return watch(ctx, interval,
		func(ctx context.Context) ([]*domain.PlanRecord, error) {
			return l.ListPlans(ctx, ownerID)
		},
		func(r *domain.PlanRecord) string { return r.ID },
	)
}

func watch[T any](ctx context.Context, interval time.Duration, list func(context.Context) ([]T, error), id func(T) string) <-chan []T {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	out := make(chan []T, 1)

	go func() {
		defer close(out)
		log := logger.FromContext(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		sent := false
		var last string
		for {
			recs, err := list(ctx)
			switch {
			case err != nil:
				if ctx.Err() != nil {
					return
				}
				log.Warn().Err(err).Msg("ledger watch: listing failed")
			case !sent || fingerprint(recs, id) != last:
				last = fingerprint(recs, id)
				sent = true
				select {
				case out <- recs:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}

// fingerprint identifies an append-only partition by size and newest ID.
func fingerprint[T any](recs []T, id func(T) string) string {
	if len(recs) == 0 {
		return "0"
	}
	return fmt.Sprintf("%d:%s", len(recs), id(recs[0]))
}
