package service

import (
	"alcyxob/gym-sync/internal/domain"
	"alcyxob/gym-sync/internal/repository"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCheckInService(statusRepo *fakeStatusRepo, historyRepo *fakeHistoryRepo, now time.Time) CheckInService {
	svc := NewCheckInService(statusRepo, historyRepo).(*checkInService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestEnterRequiresMuscleGroup(t *testing.T) {
	statusRepo := newFakeStatusRepo()
	historyRepo := newFakeHistoryRepo()
	svc := NewCheckInService(statusRepo, historyRepo)

	_, err := svc.Enter(context.Background(), "alice", "")
	require.ErrorIs(t, err, ErrMuscleGroupRequired)

	assert.Empty(t, statusRepo.records, "validation failure must not mutate state")
	assert.Zero(t, historyRepo.len())
}

func TestEnterRejectsUnknownMuscleGroup(t *testing.T) {
	statusRepo := newFakeStatusRepo()
	historyRepo := newFakeHistoryRepo()
	svc := NewCheckInService(statusRepo, historyRepo)

	_, err := svc.Enter(context.Background(), "alice", "Cardio")
	require.ErrorIs(t, err, ErrUnknownMuscleGroup)
	assert.Empty(t, statusRepo.records)
}

func TestEnterWritesStatusAndHistory(t *testing.T) {
	now := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	statusRepo := newFakeStatusRepo()
	historyRepo := newFakeHistoryRepo()
	svc := newTestCheckInService(statusRepo, historyRepo, now)

	checkIn, err := svc.Enter(context.Background(), "alice", domain.MuscleGroupChest)
	require.NoError(t, err)
	require.NotNil(t, checkIn)

	// Round-trip: reading back must yield field-for-field equality.
	got, err := svc.GetStatus(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.SubjectID)
	assert.Equal(t, domain.MuscleGroupChest, got.MuscleGroup)
	assert.True(t, got.ObservedAt.Equal(now))

	// Exactly one history entry mirroring the check-in.
	entries, err := historyRepo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].SubjectID)
	assert.Equal(t, domain.MuscleGroupChest, entries[0].MuscleGroup)
	assert.True(t, entries[0].ObservedAt.Equal(now))
	assert.False(t, entries[0].ID.IsZero(), "history entries carry a store-assigned id")
}

func TestEnterOverwritesPriorCheckIn(t *testing.T) {
	statusRepo := newFakeStatusRepo()
	historyRepo := newFakeHistoryRepo()
	svc := NewCheckInService(statusRepo, historyRepo)

	_, err := svc.Enter(context.Background(), "alice", domain.MuscleGroupChest)
	require.NoError(t, err)
	_, err = svc.Enter(context.Background(), "alice", domain.MuscleGroupBack)
	require.NoError(t, err)

	got, err := svc.GetStatus(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.MuscleGroupBack, got.MuscleGroup)

	// One live record, two history events.
	assert.Len(t, statusRepo.records, 1)
	assert.Equal(t, 2, historyRepo.len())
}

func TestEnterHistoryAppendFailureKeepsStatus(t *testing.T) {
	statusRepo := newFakeStatusRepo()
	historyRepo := newFakeHistoryRepo()
	historyRepo.appendErr = repository.RepositoryError("store unavailable")
	svc := NewCheckInService(statusRepo, historyRepo)

	checkIn, err := svc.Enter(context.Background(), "alice", domain.MuscleGroupLegs)
	require.Error(t, err, "partial failure is reported to the caller")
	require.NotNil(t, checkIn, "the check-in that landed is still returned")

	// No rollback: the live record stands without a matching history entry.
	got, getErr := svc.GetStatus(context.Background(), "alice")
	require.NoError(t, getErr)
	require.NotNil(t, got)
	assert.Zero(t, historyRepo.len())
}

func TestLeaveIsIdempotent(t *testing.T) {
	statusRepo := newFakeStatusRepo()
	historyRepo := newFakeHistoryRepo()
	svc := NewCheckInService(statusRepo, historyRepo)

	_, err := svc.Enter(context.Background(), "alice", domain.MuscleGroupCore)
	require.NoError(t, err)

	require.NoError(t, svc.Leave(context.Background(), "alice"))
	require.NoError(t, svc.Leave(context.Background(), "alice"), "second leave is a no-op, not an error")

	got, err := svc.GetStatus(context.Background(), "alice")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLeaveDoesNotTouchHistory(t *testing.T) {
	statusRepo := newFakeStatusRepo()
	historyRepo := newFakeHistoryRepo()
	svc := NewCheckInService(statusRepo, historyRepo)

	_, err := svc.Enter(context.Background(), "alice", domain.MuscleGroupArms)
	require.NoError(t, err)
	require.NoError(t, svc.Leave(context.Background(), "alice"))

	assert.Equal(t, 1, historyRepo.len(), "leaving appends nothing and deletes nothing")
}

func TestChangeMuscleGroupValidation(t *testing.T) {
	now := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	statusRepo := newFakeStatusRepo()
	historyRepo := newFakeHistoryRepo()
	svc := newTestCheckInService(statusRepo, historyRepo, now)

	_, err := svc.Enter(context.Background(), "alice", domain.MuscleGroupChest)
	require.NoError(t, err)

	_, err = svc.ChangeMuscleGroup(context.Background(), "alice", "")
	require.ErrorIs(t, err, ErrMuscleGroupRequired)

	// The existing check-in is untouched.
	got, getErr := svc.GetStatus(context.Background(), "alice")
	require.NoError(t, getErr)
	assert.Equal(t, domain.MuscleGroupChest, got.MuscleGroup)
}

func TestChangeMuscleGroupWhileAbsentIsNoOp(t *testing.T) {
	statusRepo := newFakeStatusRepo()
	historyRepo := newFakeHistoryRepo()
	svc := NewCheckInService(statusRepo, historyRepo)

	checkIn, err := svc.ChangeMuscleGroup(context.Background(), "alice", domain.MuscleGroupBack)
	require.NoError(t, err)
	assert.Nil(t, checkIn, "selection before entering is not persisted")
	assert.Empty(t, statusRepo.records)
	assert.Zero(t, historyRepo.len())
}

func TestChangeMuscleGroupOverwritesInPlace(t *testing.T) {
	enterTime := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	statusRepo := newFakeStatusRepo()
	historyRepo := newFakeHistoryRepo()

	svc := NewCheckInService(statusRepo, historyRepo).(*checkInService)
	svc.now = func() time.Time { return enterTime }
	_, err := svc.Enter(context.Background(), "alice", domain.MuscleGroupChest)
	require.NoError(t, err)

	changeTime := enterTime.Add(10 * time.Minute)
	svc.now = func() time.Time { return changeTime }
	updated, err := svc.ChangeMuscleGroup(context.Background(), "alice", domain.MuscleGroupShoulders)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, domain.MuscleGroupShoulders, updated.MuscleGroup)
	assert.True(t, updated.ObservedAt.Equal(changeTime))

	// Only the initial entry event reaches the history log.
	assert.Equal(t, 1, historyRepo.len())
}

func TestGetStatusAbsentReturnsNil(t *testing.T) {
	svc := NewCheckInService(newFakeStatusRepo(), newFakeHistoryRepo())

	got, err := svc.GetStatus(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestObserveStatusStreamsOwnChanges(t *testing.T) {
	statusRepo := newFakeStatusRepo()
	historyRepo := newFakeHistoryRepo()
	svc := NewCheckInService(statusRepo, historyRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	statuses, err := svc.ObserveStatus(ctx, "alice")
	require.NoError(t, err)

	// Primed with the current value; alice is not checked in yet.
	assert.Nil(t, <-statuses)

	_, err = svc.Enter(ctx, "alice", domain.MuscleGroupChest)
	require.NoError(t, err)
	statusRepo.notify(repository.StatusSet, "alice")
	// Another subject's change must not surface on alice's stream.
	statusRepo.notify(repository.StatusSet, "bob")

	select {
	case status := <-statuses:
		require.NotNil(t, status)
		assert.Equal(t, domain.MuscleGroupChest, status.MuscleGroup)
	case <-time.After(time.Second):
		t.Fatal("expected a status update")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-statuses
		return !open
	}, time.Second, 5*time.Millisecond)
}

func TestListCurrentSortsNewestFirst(t *testing.T) {
	statusRepo := newFakeStatusRepo()
	historyRepo := newFakeHistoryRepo()
	base := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	svc := NewCheckInService(statusRepo, historyRepo).(*checkInService)
	for i, subject := range []string{"alice", "bob", "carol"} {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		_, err := svc.Enter(context.Background(), subject, domain.MuscleGroupLegs)
		require.NoError(t, err)
	}

	checkIns, err := svc.ListCurrent(context.Background())
	require.NoError(t, err)
	require.Len(t, checkIns, 3)
	assert.Equal(t, "carol", checkIns[0].SubjectID)
	assert.Equal(t, "bob", checkIns[1].SubjectID)
	assert.Equal(t, "alice", checkIns[2].SubjectID)
}
