package service

import (
	"alcyxob/gym-sync/internal/domain"
	"alcyxob/gym-sync/internal/repository"
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeStatusRepo is an in-memory StatusRepository for service tests.
type fakeStatusRepo struct {
	mu      sync.Mutex
	records map[string]domain.CheckIn
	changes chan repository.StatusChange

	putErr   error
	getErr   error
	listErr  error
	watchErr error
}

func newFakeStatusRepo() *fakeStatusRepo {
	return &fakeStatusRepo{
		records: make(map[string]domain.CheckIn),
		changes: make(chan repository.StatusChange, 16),
	}
}

func (f *fakeStatusRepo) Get(_ context.Context, subjectID string) (*domain.CheckIn, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[subjectID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &record, nil
}

func (f *fakeStatusRepo) Put(_ context.Context, checkIn *domain.CheckIn) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[checkIn.SubjectID] = *checkIn
	return nil
}

func (f *fakeStatusRepo) Delete(_ context.Context, subjectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[subjectID]; !ok {
		return repository.ErrNotFound
	}
	delete(f.records, subjectID)
	return nil
}

func (f *fakeStatusRepo) List(_ context.Context) ([]domain.CheckIn, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	checkIns := make([]domain.CheckIn, 0, len(f.records))
	for _, record := range f.records {
		checkIns = append(checkIns, record)
	}
	return checkIns, nil
}

func (f *fakeStatusRepo) Watch(ctx context.Context) (<-chan repository.StatusChange, error) {
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	// Mirror the real contract: the returned channel closes on cancellation.
	out := make(chan repository.StatusChange)
	go func() {
		defer close(out)
		for {
			select {
			case change := <-f.changes:
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// notify simulates a store-side change notification.
func (f *fakeStatusRepo) notify(op repository.StatusChangeOp, subjectID string) {
	f.changes <- repository.StatusChange{Op: op, SubjectID: subjectID}
}

// fakeHistoryRepo is an in-memory HistoryRepository for service tests.
type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries map[primitive.ObjectID]domain.HistoryEntry
	deleted []primitive.ObjectID

	appendErr  error
	listErr    error
	deleteErrs map[primitive.ObjectID]error
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{
		entries:    make(map[primitive.ObjectID]domain.HistoryEntry),
		deleteErrs: make(map[primitive.ObjectID]error),
	}
}

func (f *fakeHistoryRepo) Append(_ context.Context, entry *domain.HistoryEntry) (primitive.ObjectID, error) {
	if f.appendErr != nil {
		return primitive.NilObjectID, f.appendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = primitive.NewObjectID()
	f.entries[entry.ID] = *entry
	return entry.ID, nil
}

func (f *fakeHistoryRepo) List(_ context.Context) ([]domain.HistoryEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := make([]domain.HistoryEntry, 0, len(f.entries))
	for _, entry := range f.entries {
		entries = append(entries, entry)
	}
	return entries, nil
}

func (f *fakeHistoryRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.deleteErrs[id]; ok {
		return err
	}
	delete(f.entries, id)
	f.deleted = append(f.deleted, id)
	return nil
}

// add seeds an entry directly, bypassing Append's id assignment.
func (f *fakeHistoryRepo) add(entry domain.HistoryEntry) domain.HistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	f.entries[entry.ID] = entry
	return entry
}

func (f *fakeHistoryRepo) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// fakeUserRepo is an in-memory UserRepository for auth and directory tests.
type fakeUserRepo struct {
	mu      sync.Mutex
	byID    map[primitive.ObjectID]domain.User
	byEmail map[string]primitive.ObjectID

	getErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[primitive.ObjectID]domain.User),
		byEmail: make(map[string]primitive.ObjectID),
	}
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byEmail[user.Email]; exists {
		return primitive.NilObjectID, repository.RepositoryError("duplicate email")
	}
	user.ID = primitive.NewObjectID()
	f.byID[user.ID] = *user
	f.byEmail[user.Email] = user.ID
	return user.ID, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := f.byID[id]
	return &user, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}
