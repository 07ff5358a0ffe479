package service

import (
	"context"
	"strings"
	"testing"

	"bety/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBlobStore is a mock implementation of BlobStore
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, path, contentType, data)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) PublicURL(path string) string {
	args := m.Called(path)
	return args.String(0)
}

func createTestProfileService() (ProfileService, *MockUnitOfWork, *MockProfileRepository, *MockBlobStore) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockProfileRepo := new(MockProfileRepository)
	mockBlobs := new(MockBlobStore)

	mockUoW.SetRepositories(mockProfileRepo, nil, nil, nil, nil)
	mockFactory.On("Create").Return(mockUoW)

	service := NewProfileService(mockFactory, mockBlobs, testConfig())
	return service, mockUoW, mockProfileRepo, mockBlobs
}

func TestUpdateProfile_AppliesOnlyPatchedFields(t *testing.T) {
	ctx := context.Background()
	service, mockUoW, mockProfileRepo, _ := createTestProfileService()
	setupTransactionMocks(mockUoW)

	profile := clientProfile()
	profile.Bio = "old bio"
	profile.Phone = "123"

	mockProfileRepo.On("GetByID", mock.Anything, profile.ID).Return(profile, nil)
	mockProfileRepo.On("Update", mock.Anything, profile).Return(nil)

	bio := "new bio"
	updated, err := service.UpdateProfile(ctx, profile.ID, models.ProfilePatch{Bio: &bio})

	require.NoError(t, err)
	assert.Equal(t, "new bio", updated.Bio)
	// Untouched fields survive the patch
	assert.Equal(t, "123", updated.Phone)
	assert.Equal(t, "Alex", updated.Name)
}

func TestUpdateProfile_RejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	service, _, mockProfileRepo, _ := createTestProfileService()

	empty := ""
	updated, err := service.UpdateProfile(ctx, uuid.New(), models.ProfilePatch{Name: &empty})

	assert.Error(t, err)
	assert.Nil(t, updated)
	assert.Equal(t, KindValidation, KindOf(err))
	mockProfileRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUploadAvatar_StoresBlobAndPointsProfileAtIt(t *testing.T) {
	ctx := context.Background()
	service, mockUoW, mockProfileRepo, mockBlobs := createTestProfileService()
	setupTransactionMocks(mockUoW)

	profile := clientProfile()
	data := []byte{0x89, 0x50, 0x4e, 0x47}

	mockBlobs.On("Upload", mock.Anything, mock.MatchedBy(func(path string) bool {
		return strings.HasPrefix(path, profile.ID.String()+"/") && strings.HasSuffix(path, ".png")
	}), "image/png", data).Return("/avatars/"+profile.ID.String()+"/1.png", nil)
	mockProfileRepo.On("GetByID", mock.Anything, profile.ID).Return(profile, nil)
	mockProfileRepo.On("Update", mock.Anything, profile).Return(nil)

	updated, err := service.UploadAvatar(ctx, profile.ID, "image/png", data)

	require.NoError(t, err)
	require.NotNil(t, updated.AvatarURL)
	assert.Contains(t, *updated.AvatarURL, "/avatars/")
	mockBlobs.AssertExpectations(t)
}

func TestUploadAvatar_RejectsUnsupportedContentType(t *testing.T) {
	ctx := context.Background()
	service, _, _, mockBlobs := createTestProfileService()

	updated, err := service.UploadAvatar(ctx, uuid.New(), "application/pdf", []byte("data"))

	assert.Error(t, err)
	assert.Nil(t, updated)
	assert.Equal(t, KindValidation, KindOf(err))
	mockBlobs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetProfile_NotFound(t *testing.T) {
	ctx := context.Background()
	service, mockUoW, mockProfileRepo, _ := createTestProfileService()
	setupTransactionMocks(mockUoW)

	profileID := uuid.New()
	mockProfileRepo.On("GetByID", mock.Anything, profileID).Return(nil, nil)

	profile, err := service.GetProfile(ctx, profileID)

	assert.Error(t, err)
	assert.Nil(t, profile)
	assert.Equal(t, KindNotFound, KindOf(err))
}
