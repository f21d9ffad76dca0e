// internal/services/picture_service_test.go
package services

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/marketloop/marketloop-backend/internal/apperrors"
	"github.com/marketloop/marketloop-backend/internal/models"
)

func uploadUserPNG(t *testing.T, db *gorm.DB, svc *PictureService, userID uint) *models.Picture {
	t.Helper()
	data := encodePNG(t)
	pic, err := svc.SaveUserPicture(db, userID, bytes.NewReader(data), int64(len(data)), "avatar.png")
	require.NoError(t, err)
	return pic
}

func formatFiles(t *testing.T, db *gorm.DB, svc *PictureService, pictureID uint, category string) []string {
	t.Helper()
	var formats []models.PictureFormat
	require.NoError(t, db.Where("picture_id = ?", pictureID).Find(&formats).Error)

	var paths []string
	for _, f := range formats {
		paths = append(paths, filepath.Join(svc.root, category+"_pics", f.Filename))
	}
	return paths
}

func TestSaveUserPictureWritesAllVariants(t *testing.T) {
	db := newTestDB(t)
	svc := newTestPictureService(t)
	users := NewUserService(svc)
	user := makeTestUser(t, db, users, "alice")

	pic := uploadUserPNG(t, db, svc, user.ID)

	paths := formatFiles(t, db, svc, pic.ID, CategoryProfile)
	require.Len(t, paths, len(profileSizes))
	for _, path := range paths {
		_, err := os.Stat(path)
		assert.NoError(t, err, "variant file %s must exist", path)
	}
}

func TestSaveUserPictureReplacesPrevious(t *testing.T) {
	db := newTestDB(t)
	svc := newTestPictureService(t)
	users := NewUserService(svc)
	user := makeTestUser(t, db, users, "alice")

	first := uploadUserPNG(t, db, svc, user.ID)
	oldPaths := formatFiles(t, db, svc, first.ID, CategoryProfile)

	second := uploadUserPNG(t, db, svc, user.ID)
	assert.Greater(t, second.ID, first.ID)

	var pictureCount, formatCount int64
	require.NoError(t, db.Model(&models.Picture{}).Where("user_id = ?", user.ID).Count(&pictureCount).Error)
	assert.Equal(t, int64(1), pictureCount, "a user holds at most one picture")

	require.NoError(t, db.Model(&models.PictureFormat{}).Count(&formatCount).Error)
	assert.Equal(t, int64(len(profileSizes)), formatCount)

	for _, path := range oldPaths {
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err), "old variant %s must be removed", path)
	}
}

func TestSaveUserPictureMissingOldFileTolerated(t *testing.T) {
	db := newTestDB(t)
	svc := newTestPictureService(t)
	users := NewUserService(svc)
	user := makeTestUser(t, db, users, "alice")

	first := uploadUserPNG(t, db, svc, user.ID)
	for _, path := range formatFiles(t, db, svc, first.ID, CategoryProfile) {
		require.NoError(t, os.Remove(path))
	}

	// Replacing must not fail just because the old files are already gone.
	uploadUserPNG(t, db, svc, user.ID)
}

func TestOversizedUploadRejectedBeforeAnyWrite(t *testing.T) {
	db := newTestDB(t)
	svc := newTestPictureService(t)
	users := NewUserService(svc)
	user := makeTestUser(t, db, users, "alice")

	existing := uploadUserPNG(t, db, svc, user.ID)
	existingPaths := formatFiles(t, db, svc, existing.ID, CategoryProfile)

	data := encodePNG(t)
	_, err := svc.SaveUserPicture(db, user.ID, bytes.NewReader(data), 2<<20, "huge.png")
	assert.ErrorIs(t, err, apperrors.ErrPayloadTooLarge)

	// The current picture survives the rejected upload untouched.
	for _, path := range existingPaths {
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr)
	}
}

func TestUnknownExtensionRejected(t *testing.T) {
	db := newTestDB(t)
	svc := newTestPictureService(t)
	users := NewUserService(svc)
	user := makeTestUser(t, db, users, "alice")

	data := encodePNG(t)
	_, err := svc.SaveUserPicture(db, user.ID, bytes.NewReader(data), int64(len(data)), "notes.txt")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUndecodableImageRejected(t *testing.T) {
	db := newTestDB(t)
	svc := newTestPictureService(t)
	users := NewUserService(svc)
	user := makeTestUser(t, db, users, "alice")

	garbage := []byte("this is not an image")
	_, err := svc.SaveUserPicture(db, user.ID, bytes.NewReader(garbage), int64(len(garbage)), "fake.png")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSaveProductPictureUsesProductSizes(t *testing.T) {
	db, users, products := newTestServices(t)
	svc := products.pictures
	owner := makeTestUser(t, db, users, "alice")
	product := makeTestProduct(t, db, products, owner.ID, "lamp")

	data := encodePNG(t)
	pic, err := svc.SaveProductPicture(db, product.ID, bytes.NewReader(data), int64(len(data)), "lamp.png")
	require.NoError(t, err)

	paths := formatFiles(t, db, svc, pic.ID, CategoryProduct)
	require.Len(t, paths, len(productSizes))
	for _, path := range paths {
		_, err := os.Stat(path)
		assert.NoError(t, err)
	}
}

func TestAvatarURLsFallBackToDefaults(t *testing.T) {
	db := newTestDB(t)
	svc := newTestPictureService(t)
	users := NewUserService(svc)
	user := makeTestUser(t, db, users, "alice")

	small, large := svc.UserAvatarURLs(db, user.ID)
	assert.Equal(t, "/static/profile_pics/default_pic_user_50x50.png", small)
	assert.Equal(t, "/static/profile_pics/default_pic_user_450x450.png", large)

	uploadUserPNG(t, db, svc, user.ID)

	small, large = svc.UserAvatarURLs(db, user.ID)
	assert.Contains(t, small, "_50x50.png")
	assert.Contains(t, large, "_450x450.png")
	assert.NotContains(t, small, "default_pic_user")
}
