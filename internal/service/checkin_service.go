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

// --- Error Definitions ---
var (
	ErrMuscleGroupRequired = errors.New("a muscle group must be selected before checking in")
	ErrUnknownMuscleGroup  = errors.New("unknown muscle group")
)

// --- Service Interface ---

// CheckInService keeps the single live check-in record per subject consistent
// with the append-only history log. Every operation targets only the calling
// subject's own key, so cross-subject write conflicts cannot occur.
type CheckInService interface {
	// Enter marks the subject present, training the given muscle group, and
	// mirrors the event into the history log.
	Enter(ctx context.Context, subjectID string, group domain.MuscleGroup) (*domain.CheckIn, error)
	// Leave marks the subject absent. Leaving while absent is a no-op.
	Leave(ctx context.Context, subjectID string) error
	// ChangeMuscleGroup retags an in-progress session. A no-op when the
	// subject is not checked in: pre-entry selection is client-local state.
	ChangeMuscleGroup(ctx context.Context, subjectID string, group domain.MuscleGroup) (*domain.CheckIn, error)
	// GetStatus returns the subject's live check-in, or nil when absent.
	GetStatus(ctx context.Context, subjectID string) (*domain.CheckIn, error)
	// ObserveStatus streams the subject's own live check-in: the current
	// value first, then a new value on every change (nil means absent).
	// Cancelling ctx releases the subscription and closes the channel.
	ObserveStatus(ctx context.Context, subjectID string) (<-chan *domain.CheckIn, error)
	// ListCurrent returns every live check-in, newest first.
	ListCurrent(ctx context.Context) ([]domain.CheckIn, error)
}

// --- Service Implementation ---

type checkInService struct {
	statusRepo  repository.StatusRepository
	historyRepo repository.HistoryRepository
	now         func() time.Time
}

// NewCheckInService creates a new instance of checkInService.
func NewCheckInService(statusRepo repository.StatusRepository, historyRepo repository.HistoryRepository) CheckInService {
	return &checkInService{
		statusRepo:  statusRepo,
		historyRepo: historyRepo,
		now:         time.Now,
	}
}

func validateMuscleGroup(group domain.MuscleGroup) error {
	if group == "" {
		return ErrMuscleGroupRequired
	}
	if !group.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownMuscleGroup, group)
	}
	return nil
}

// Enter writes the subject's live check-in (overwriting any prior one) and
// appends a matching history entry. The two writes are separate operations
// with no rollback: if the append fails the check-in stands and the error is
// reported to the caller. Consumers never assume a 1:1 status/history match.
func (s *checkInService) Enter(ctx context.Context, subjectID string, group domain.MuscleGroup) (*domain.CheckIn, error) {
	if err := validateMuscleGroup(group); err != nil {
		return nil, err
	}
	if subjectID == "" {
		return nil, errors.New("subject ID is required to check in")
	}

	checkIn := &domain.CheckIn{
		SubjectID:   subjectID,
		MuscleGroup: group,
		ObservedAt:  s.now().UTC(),
	}
	if err := s.statusRepo.Put(ctx, checkIn); err != nil {
		return nil, fmt.Errorf("failed to write check-in: %w", err)
	}

	entry := &domain.HistoryEntry{
		SubjectID:   checkIn.SubjectID,
		MuscleGroup: checkIn.MuscleGroup,
		ObservedAt:  checkIn.ObservedAt,
	}
	if _, err := s.historyRepo.Append(ctx, entry); err != nil {
		// Check-in already landed; report the partial failure rather than
		// attempting a rollback.
		return checkIn, fmt.Errorf("check-in recorded but history append failed: %w", err)
	}

	return checkIn, nil
}

// Leave deletes the subject's live check-in. History is append-only: leaving
// produces no history entry.
func (s *checkInService) Leave(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return errors.New("subject ID is required to check out")
	}
	if err := s.statusRepo.Delete(ctx, subjectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to remove check-in: %w", err)
	}
	return nil
}

// ChangeMuscleGroup overwrites the group (and timestamp) of an in-progress
// session in place. No history entry is appended; only the initial entry
// event is mirrored into the log.
func (s *checkInService) ChangeMuscleGroup(ctx context.Context, subjectID string, group domain.MuscleGroup) (*domain.CheckIn, error) {
	if err := validateMuscleGroup(group); err != nil {
		return nil, err
	}

	current, err := s.statusRepo.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read check-in: %w", err)
	}

	current.MuscleGroup = group
	current.ObservedAt = s.now().UTC()
	if err := s.statusRepo.Put(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to update check-in: %w", err)
	}
	return current, nil
}

// GetStatus is a point-in-time read, used once at session start to restore
// client state after a reconnect.
func (s *checkInService) GetStatus(ctx context.Context, subjectID string) (*domain.CheckIn, error) {
	checkIn, err := s.statusRepo.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return checkIn, nil
}

// ObserveStatus follows the subject's own record through the store's change
// feed. Delivery is latest-wins, like the aggregate stream: a slow consumer
// sees the newest state, not every intermediate one.
func (s *checkInService) ObserveStatus(ctx context.Context, subjectID string) (<-chan *domain.CheckIn, error) {
	changes, err := s.statusRepo.Watch(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.GetStatus(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	out := make(chan *domain.CheckIn, 1)
	out <- current
	go func() {
		defer close(out)
		for change := range changes {
			if change.SubjectID != subjectID {
				continue
			}
			status, err := s.GetStatus(ctx, subjectID)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("WARN: status re-read for %s failed: %v", subjectID, err)
				}
				continue
			}
			select {
			case out <- status:
			default:
				select {
				case <-out:
				default:
				}
				select {
				case out <- status:
				default:
				}
			}
		}
	}()
	return out, nil
}

// ListCurrent returns every live check-in sorted most recent first, ties
// broken by subject id for a stable order.
func (s *checkInService) ListCurrent(ctx context.Context) ([]domain.CheckIn, error) {
	checkIns, err := s.statusRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(checkIns, func(i, j int) bool {
		if !checkIns[i].ObservedAt.Equal(checkIns[j].ObservedAt) {
			return checkIns[i].ObservedAt.After(checkIns[j].ObservedAt)
		}
		return checkIns[i].SubjectID < checkIns[j].SubjectID
	})
	return checkIns, nil
}
