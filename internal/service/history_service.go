package service

import (
	"alcyxob/gym-sync/internal/domain"
	"alcyxob/gym-sync/internal/repository"
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"
)

// --- Service Interface ---

// HistoryService exposes the rolling check-in history feed and evicts entries
// that have aged past a retention window. Two independent window policies run
// over the same log (a short "recent activity" view and a long weekly view),
// so the window is a parameter of every call rather than a field.
type HistoryService interface {
	// RecentHistory sweeps the log and returns the subject's surviving
	// entries, most recent first.
	RecentHistory(ctx context.Context, subjectID string, window time.Duration) ([]domain.HistoryEntry, error)
	// Sweep deletes every entry older than the window and reports how many
	// were removed. Individual delete failures are logged and skipped.
	Sweep(ctx context.Context, window time.Duration) (int, error)
	// Run sweeps on a fixed interval until ctx is cancelled. The interval
	// must not exceed the smallest window in use, or entries can outlive
	// their window by more than one tick.
	Run(ctx context.Context, interval, window time.Duration)
}

// --- Service Implementation ---

type historyService struct {
	historyRepo repository.HistoryRepository
	now         func() time.Time
}

// NewHistoryService creates a new instance of historyService.
func NewHistoryService(historyRepo repository.HistoryRepository) HistoryService {
	return &historyService{
		historyRepo: historyRepo,
		now:         time.Now,
	}
}

// expired reports whether an entry has aged out of the window. Entries with
// missing (zero) or future-skewed negative ages are treated as immediately
// expired: a timestamp we cannot trust cannot be retained correctly.
func expired(entry domain.HistoryEntry, now time.Time, window time.Duration) bool {
	if entry.ObservedAt.IsZero() {
		return true
	}
	age := now.Sub(entry.ObservedAt)
	if age < 0 {
		return true
	}
	return age >= window
}

func (s *historyService) Sweep(ctx context.Context, window time.Duration) (int, error) {
	_, removed, err := s.sweep(ctx, window)
	return removed, err
}

// sweep reads the log once, deletes expired entries best-effort, and returns
// the retained set. The eviction check happens only here, at sweep time, so
// an entry can live up to one tick past its nominal expiry.
func (s *historyService) sweep(ctx context.Context, window time.Duration) ([]domain.HistoryEntry, int, error) {
	entries, err := s.historyRepo.List(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read history log: %w", err)
	}

	now := s.now().UTC()
	retained := make([]domain.HistoryEntry, 0, len(entries))
	removed := 0
	for _, entry := range entries {
		if !expired(entry, now, window) {
			retained = append(retained, entry)
			continue
		}
		// Deletions are independent; a concurrent sweeper may have beaten us
		// to this entry, which counts as success.
		if err := s.historyRepo.Delete(ctx, entry.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				removed++
				continue
			}
			log.Printf("WARN: failed to evict history entry %s: %v", entry.ID.Hex(), err)
			continue
		}
		removed++
	}
	return retained, removed, nil
}

func (s *historyService) RecentHistory(ctx context.Context, subjectID string, window time.Duration) ([]domain.HistoryEntry, error) {
	retained, _, err := s.sweep(ctx, window)
	if err != nil {
		return nil, err
	}

	own := make([]domain.HistoryEntry, 0, len(retained))
	for _, entry := range retained {
		if entry.SubjectID == subjectID {
			own = append(own, entry)
		}
	}

	// Most recent first; ties broken by id ascending for determinism.
	sort.Slice(own, func(i, j int) bool {
		if !own[i].ObservedAt.Equal(own[j].ObservedAt) {
			return own[i].ObservedAt.After(own[j].ObservedAt)
		}
		return own[i].ID.Hex() < own[j].ID.Hex()
	})
	return own, nil
}

func (s *historyService) Run(ctx context.Context, interval, window time.Duration) {
	// Sweep once up front so a freshly started process does not wait a full
	// tick before pruning.
	if removed, err := s.Sweep(ctx, window); err != nil {
		log.Printf("ERROR: history sweep failed: %v", err)
	} else if removed > 0 {
		log.Printf("History sweep evicted %d expired entries", removed)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if removed, err := s.Sweep(ctx, window); err != nil {
				log.Printf("ERROR: history sweep failed: %v", err)
			} else if removed > 0 {
				log.Printf("History sweep evicted %d expired entries", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}
