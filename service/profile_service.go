package service

import (
	"context"
	"fmt"
	"time"

	"bety/config"
	"bety/database"
	"bety/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var avatarExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// ProfileService defines the interface for profile management
type ProfileService interface {
	// GetProfile returns a profile by id
	GetProfile(ctx context.Context, profileID uuid.UUID) (*models.Profile, error)

	// UpdateProfile applies the non-nil fields of the patch
	UpdateProfile(ctx context.Context, profileID uuid.UUID, patch models.ProfilePatch) (*models.Profile, error)

	// ListOthers returns every profile except the given one, for the user
	// directory
	ListOthers(ctx context.Context, profileID uuid.UUID) ([]*models.Profile, error)

	// UploadAvatar stores the image and points the profile at it
	UploadAvatar(ctx context.Context, profileID uuid.UUID, contentType string, data []byte) (*models.Profile, error)
}

type profileService struct {
	uowFactory UnitOfWorkFactory
	blobs      BlobStore
	config     *config.Config
}

// NewProfileService creates a new profile service
func NewProfileService(uowFactory UnitOfWorkFactory, blobs BlobStore, cfg *config.Config) ProfileService {
	return &profileService{
		uowFactory: uowFactory,
		blobs:      blobs,
		config:     cfg,
	}
}

// GetProfile returns a profile by id
func (s *profileService) GetProfile(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	var profile *models.Profile

	err := database.WithReadRetry(ctx, func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		profile, err = uow.ProfileRepository().GetByID(ctx, profileID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, notFoundf("profile %s not found", profileID)
	}

	return profile, nil
}

// UpdateProfile applies the non-nil fields of the patch
func (s *profileService) UpdateProfile(ctx context.Context, profileID uuid.UUID, patch models.ProfilePatch) (*models.Profile, error) {
	if patch.Name != nil && *patch.Name == "" {
		return nil, validationf("name cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	profile, err := uow.ProfileRepository().GetByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return nil, notFoundf("profile %s not found", profileID)
	}

	if patch.Name != nil {
		profile.Name = *patch.Name
	}
	if patch.Bio != nil {
		profile.Bio = *patch.Bio
	}
	if patch.Phone != nil {
		profile.Phone = *patch.Phone
	}
	if patch.Gender != nil {
		profile.Gender = *patch.Gender
	}
	if patch.AvatarURL != nil {
		profile.AvatarURL = patch.AvatarURL
	}

	if err := uow.ProfileRepository().Update(ctx, profile); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return profile, nil
}

// ListOthers returns every profile except the given one
func (s *profileService) ListOthers(ctx context.Context, profileID uuid.UUID) ([]*models.Profile, error) {
	var profiles []*models.Profile

	err := database.WithReadRetry(ctx, func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		profiles, err = uow.ProfileRepository().List(ctx, profileID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return profiles, nil
}

// UploadAvatar stores the image and points the profile at it
func (s *profileService) UploadAvatar(ctx context.Context, profileID uuid.UUID, contentType string, data []byte) (*models.Profile, error) {
	if len(data) == 0 {
		return nil, validationf("avatar image is empty")
	}
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return nil, validationf("unsupported avatar content type %q", contentType)
	}

	// Timestamped path so a re-upload never overwrites the previous file
	// while clients may still be caching its URL
	path := fmt.Sprintf("%s/%d.%s", profileID, time.Now().UnixNano(), ext)
	url, err := s.blobs.Upload(ctx, path, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store avatar: %w", err)
	}

	profile, err := s.UpdateProfile(ctx, profileID, models.ProfilePatch{AvatarURL: &url})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"profileId": profileID,
		"path":      path,
		"bytes":     len(data),
	}).Info("Avatar uploaded")

	return profile, nil
}
