package repository

import (
	"alcyxob/gym-sync/internal/domain"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// StatusChangeOp identifies what happened to a check-in record.
type StatusChangeOp string

const (
	StatusSet     StatusChangeOp = "set"     // record created or overwritten
	StatusRemoved StatusChangeOp = "removed" // record deleted
)

// StatusChange is one notification from a live check-in subscription.
// Consumers recompute derived views from scratch on every change, so the
// event carries only enough to log and to know something moved.
type StatusChange struct {
	Op        StatusChangeOp
	SubjectID string
}

// StatusRepository owns the single live check-in record per subject.
// Only the owning subject writes its own key; readers (aggregator, views)
// never mutate.
type StatusRepository interface {
	// Get returns the subject's current check-in, or ErrNotFound.
	Get(ctx context.Context, subjectID string) (*domain.CheckIn, error)
	// Put creates or overwrites the subject's check-in (last write wins).
	Put(ctx context.Context, checkIn *domain.CheckIn) error
	// Delete removes the subject's check-in. Deleting an absent record is
	// success, not an error.
	Delete(ctx context.Context, subjectID string) error
	// List returns every live check-in. Malformed stored records are logged
	// and skipped rather than failing the whole read.
	List(ctx context.Context) ([]domain.CheckIn, error)
	// Watch subscribes to live changes of the check-in set. The returned
	// channel is closed when ctx is cancelled or the underlying stream ends;
	// cancelling ctx releases the store-side registration.
	Watch(ctx context.Context) (<-chan StatusChange, error)
}

// HistoryRepository is the append-only check-in history log.
type HistoryRepository interface {
	// Append stores a new entry and returns its store-assigned id.
	Append(ctx context.Context, entry *domain.HistoryEntry) (primitive.ObjectID, error)
	// List returns every entry currently in the log, malformed ones skipped.
	List(ctx context.Context) ([]domain.HistoryEntry, error)
	// Delete removes one entry. Deleting an already-deleted entry is success,
	// so concurrent sweepers race benignly.
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}
