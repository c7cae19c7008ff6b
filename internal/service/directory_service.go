package service

import (
	"alcyxob/gym-sync/internal/repository"
	"context"
	"errors"
	"log"
	"time"

	"github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const unknownDisplayName = "Unknown"

// DirectoryService resolves subject ids to member display names for the
// admin dashboard. Lookups are read-only and cached: names change rarely and
// the dashboard re-renders on every occupancy change.
type DirectoryService interface {
	DisplayName(ctx context.Context, subjectID string) string
}

type directoryService struct {
	userRepo repository.UserRepository
	names    *cache.Cache
}

// NewDirectoryService creates a directory with a short-lived name cache.
func NewDirectoryService(userRepo repository.UserRepository) DirectoryService {
	return &directoryService{
		userRepo: userRepo,
		names:    cache.New(5*time.Minute, 10*time.Minute),
	}
}

// DisplayName returns the member's name, or "Unknown" when the subject id is
// malformed, the user no longer exists, or the directory is unreachable. The
// dashboard prefers a placeholder over failing the whole listing.
func (s *directoryService) DisplayName(ctx context.Context, subjectID string) string {
	if name, found := s.names.Get(subjectID); found {
		return name.(string)
	}

	id, err := primitive.ObjectIDFromHex(subjectID)
	if err != nil {
		return unknownDisplayName
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("WARN: directory lookup for %s failed: %v", subjectID, err)
		}
		return unknownDisplayName
	}

	s.names.Set(subjectID, user.Name, cache.DefaultExpiration)
	return user.Name
}
