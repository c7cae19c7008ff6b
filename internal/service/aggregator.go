package service

import (
	"alcyxob/gym-sync/internal/domain"
	"alcyxob/gym-sync/internal/repository"
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// watchRetryInterval is how long the aggregator waits before re-opening a
// dropped change subscription.
const watchRetryInterval = 5 * time.Second

// Aggregator maintains the live occupancy summary. It subscribes to check-in
// changes and, on every notification, recomputes the aggregate from scratch
// by listing the full check-in set. Gym occupancy is small, so O(n)
// recomputation beats maintaining incremental deltas.
type Aggregator struct {
	statusRepo    repository.StatusRepository
	retryInterval time.Duration

	mu      sync.RWMutex
	current domain.OccupancyAggregate
	subs    map[string]chan domain.OccupancyAggregate
}

// NewAggregator creates an aggregator with an empty snapshot. Call Run to
// start following the store.
func NewAggregator(statusRepo repository.StatusRepository) *Aggregator {
	return &Aggregator{
		statusRepo:    statusRepo,
		retryInterval: watchRetryInterval,
		current:       domain.AggregateCheckIns(nil),
		subs:          make(map[string]chan domain.OccupancyAggregate),
	}
}

// Run blocks, following the check-in collection until ctx is cancelled. A
// dropped change stream is re-opened after a short pause so a transient store
// hiccup does not permanently freeze the dashboard.
func (a *Aggregator) Run(ctx context.Context) {
	if err := a.Refresh(ctx); err != nil {
		log.Printf("ERROR: initial aggregate computation failed: %v", err)
	}

	for ctx.Err() == nil {
		changes, err := a.statusRepo.Watch(ctx)
		if err != nil {
			log.Printf("ERROR: could not subscribe to check-in changes: %v", err)
			select {
			case <-time.After(a.retryInterval):
			case <-ctx.Done():
				return
			}
			continue
		}

		// Catch up on anything that changed while we were not subscribed.
		if err := a.Refresh(ctx); err != nil {
			log.Printf("ERROR: aggregate recomputation failed: %v", err)
		}

		for range changes {
			if err := a.Refresh(ctx); err != nil {
				log.Printf("ERROR: aggregate recomputation failed: %v", err)
			}
		}
		// Channel closed: stream ended or ctx cancelled; loop decides which.
	}
}

// Refresh recomputes the aggregate from the full check-in set and publishes
// the new snapshot to all subscribers.
func (a *Aggregator) Refresh(ctx context.Context) error {
	checkIns, err := a.statusRepo.List(ctx)
	if err != nil {
		return err
	}
	a.publish(domain.AggregateCheckIns(checkIns))
	return nil
}

// Current returns the latest snapshot.
func (a *Aggregator) Current() domain.OccupancyAggregate {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Subscribe registers a live consumer of aggregate snapshots. The channel is
// primed with the current snapshot. Delivery is latest-wins: a slow consumer
// only ever misses intermediate snapshots, and never blocks the aggregator.
// The returned cancel function releases the registration and closes the
// channel; it is safe to call more than once.
func (a *Aggregator) Subscribe() (<-chan domain.OccupancyAggregate, func()) {
	id := uuid.NewString()
	ch := make(chan domain.OccupancyAggregate, 1)

	a.mu.Lock()
	ch <- a.current
	a.subs[id] = ch
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if sub, ok := a.subs[id]; ok {
			delete(a.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (a *Aggregator) publish(agg domain.OccupancyAggregate) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = agg
	for _, ch := range a.subs {
		select {
		case ch <- agg:
		default:
			// Evict the stale snapshot the consumer never read, then retry.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- agg:
			default:
			}
		}
	}
}
