package service

import (
	"alcyxob/gym-sync/internal/domain"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewAuthService(userRepo, "test-secret", time.Hour)

	user, err := svc.Register(context.Background(), "Alice", "alice@example.com", "password123", 29, domain.RoleMember)
	require.NoError(t, err)
	assert.Empty(t, user.PasswordHash, "hash never leaves the service")
	assert.False(t, user.ID.IsZero())

	token, loggedIn, err := svc.Login(context.Background(), "alice@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.SubjectID(), loggedIn.SubjectID())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewAuthService(userRepo, "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "password123", 29, domain.RoleMember)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "Other Alice", "alice@example.com", "password456", 31, domain.RoleMember)
	require.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLoginWrongPassword(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewAuthService(userRepo, "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "password123", 29, domain.RoleMember)
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "alice@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), "test-secret", time.Hour)

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "password123")
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestDirectoryDisplayName(t *testing.T) {
	userRepo := newFakeUserRepo()
	user := &domain.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "x", Role: domain.RoleMember}
	_, err := userRepo.Create(context.Background(), user)
	require.NoError(t, err)

	directory := NewDirectoryService(userRepo)
	assert.Equal(t, "Alice", directory.DisplayName(context.Background(), user.SubjectID()))

	// Cached: a later repo failure does not lose the name.
	userRepo.getErr = assert.AnError
	assert.Equal(t, "Alice", directory.DisplayName(context.Background(), user.SubjectID()))
}

func TestDirectoryDisplayNameFallsBackToUnknown(t *testing.T) {
	directory := NewDirectoryService(newFakeUserRepo())

	assert.Equal(t, "Unknown", directory.DisplayName(context.Background(), "not-a-hex-id"))
	assert.Equal(t, "Unknown", directory.DisplayName(context.Background(), "64b0c2f1a2b3c4d5e6f70812"))
}
