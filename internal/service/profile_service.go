package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/campusconnect/campus/internal/audit"
	"github.com/campusconnect/campus/internal/cache"
	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/internal/ids"
	"github.com/campusconnect/campus/internal/repository"
	"github.com/campusconnect/campus/pkg/log"
)

// AvatarProcessor stores an uploaded image and returns its URL, and removes
// avatars that have been replaced.
type AvatarProcessor interface {
	Process(ctx context.Context, userID, uploadID string, r io.Reader) (string, error)
	Discard(ctx context.Context, userID, url string) error
}

type profileServiceImpl struct {
	repo     repository.ProfileRepository
	cache    cache.ProfileCache
	cacheTTL time.Duration
	avatars  AvatarProcessor
	ids      ids.Generator
	sf       singleflight.Group
}

// NewProfileService creates a new profile service.
func NewProfileService(
	repo repository.ProfileRepository,
	profileCache cache.ProfileCache,
	cacheTTL time.Duration,
	avatars AvatarProcessor,
	gen ids.Generator,
) ProfileService {
	if profileCache == nil {
		profileCache = cache.NoopProfileCache{}
	}
	return &profileServiceImpl{
		repo:     repo,
		cache:    profileCache,
		cacheTTL: cacheTTL,
		avatars:  avatars,
		ids:      gen,
	}
}

func (s *profileServiceImpl) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	result, err, _ := s.sf.Do(userID, func() (interface{}, error) {
		return s.fetchWithCache(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	profile, ok := result.(*domain.Profile)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	copied := *profile
	return &copied, nil
}

func (s *profileServiceImpl) fetchWithCache(ctx context.Context, userID string) (*domain.Profile, error) {
	l := log.Ctx(ctx)

	cached, err := s.cache.Get(ctx, userID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("profile cache read failed")
	}

	profile, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, profile, s.cacheTTL); err != nil {
		l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("profile cache write failed")
	}
	return profile, nil
}

func (s *profileServiceImpl) UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.Profile, error) {
	l := log.Ctx(ctx)

	profile, err := s.repo.Update(ctx, userID, req.Username, req.College)
	if err != nil {
		if !errors.Is(err, repository.ErrProfileNotFound) {
			l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to update profile")
		}
		return nil, err
	}
	s.invalidate(ctx, userID)

	audit.Log(ctx, audit.ActionUpdateProfile, userID, "profile updated")
	return profile, nil
}

func (s *profileServiceImpl) UploadAvatar(ctx context.Context, userID string, image io.Reader) (*domain.Profile, error) {
	l := log.Ctx(ctx)

	current, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	uploadID := s.ids.NewID()
	url, err := s.avatars.Process(ctx, userID, uploadID, image)
	if err != nil {
		return nil, err
	}

	profile, err := s.repo.UpdateAvatar(ctx, userID, url)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to store avatar url")
		return nil, err
	}
	s.invalidate(ctx, userID)

	if current.AvatarURL != "" && current.AvatarURL != url {
		if err := s.avatars.Discard(ctx, userID, current.AvatarURL); err != nil {
			l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("failed to remove previous avatar")
		}
	}

	audit.LogTarget(ctx, audit.ActionUploadAvatar, userID, uploadID, "avatar uploaded")
	return profile, nil
}

func (s *profileServiceImpl) invalidate(ctx context.Context, userID string) {
	s.sf.Forget(userID)
	if err := s.cache.Delete(ctx, userID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("profile cache invalidation failed")
	}
}
