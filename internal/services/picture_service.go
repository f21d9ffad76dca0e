// internal/services/picture_service.go
package services

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/marketloop/marketloop-backend/internal/apperrors"
	"github.com/marketloop/marketloop-backend/internal/config"
	"github.com/marketloop/marketloop-backend/internal/models"
)

const (
	CategoryProfile = "profile"
	CategoryProduct = "product"
)

var (
	profileSizes = [][2]int{{50, 50}, {450, 450}}
	productSizes = [][2]int{{300, 300}, {500, 500}}

	allowedExtensions = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
	}
)

// PictureService owns the picture lifecycle: uploads replace the owner's
// current picture, and every picture carries one resized variant per
// configured size under the category's static directory.
type PictureService struct {
	root    string
	maxSize int64
	log     *logrus.Logger
}

func NewPictureService(cfg config.UploadConfig, log *logrus.Logger) (*PictureService, error) {
	for _, category := range []string{CategoryProfile, CategoryProduct} {
		if err := os.MkdirAll(filepath.Join(cfg.StaticRoot, category+"_pics"), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
	}
	return &PictureService{
		root:    cfg.StaticRoot,
		maxSize: cfg.MaxSizeMB * 1024 * 1024,
		log:     log,
	}, nil
}

// SaveUserPicture replaces the user's current profile picture with the
// uploaded file. Runs entirely on the caller's transaction: on any failure
// already-written files are removed and the caller must roll back.
func (s *PictureService) SaveUserPicture(tx *gorm.DB, userID uint, file io.Reader, size int64, originalName string) (*models.Picture, error) {
	if err := s.checkUpload(size, originalName); err != nil {
		return nil, err
	}
	if err := s.removeCurrent(tx, CategoryProfile, "user_id", userID); err != nil {
		return nil, err
	}
	return s.save(tx, &userID, nil, CategoryProfile, profileSizes, file, originalName)
}

// SaveProductPicture replaces the product's current picture.
func (s *PictureService) SaveProductPicture(tx *gorm.DB, productID uint, file io.Reader, size int64, originalName string) (*models.Picture, error) {
	if err := s.checkUpload(size, originalName); err != nil {
		return nil, err
	}
	if err := s.removeCurrent(tx, CategoryProduct, "product_id", productID); err != nil {
		return nil, err
	}
	return s.save(tx, nil, &productID, CategoryProduct, productSizes, file, originalName)
}

// DeleteUserPicture removes the user's current picture, its format rows and
// its files.
func (s *PictureService) DeleteUserPicture(tx *gorm.DB, userID uint) error {
	return s.removeCurrent(tx, CategoryProfile, "user_id", userID)
}

// DeleteProductPicture removes the product's current picture.
func (s *PictureService) DeleteProductPicture(tx *gorm.DB, productID uint) error {
	return s.removeCurrent(tx, CategoryProduct, "product_id", productID)
}

// checkUpload rejects oversized or non-image uploads before anything is
// deleted or written.
func (s *PictureService) checkUpload(size int64, originalName string) error {
	if size > s.maxSize {
		return fmt.Errorf("%w: file exceeds %d bytes", apperrors.ErrPayloadTooLarge, s.maxSize)
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return apperrors.Validation("file type %q is not allowed", ext)
	}
	return nil
}

func (s *PictureService) save(tx *gorm.DB, userID, productID *uint, category string, sizes [][2]int, file io.Reader, originalName string) (*models.Picture, error) {
	img, err := imaging.Decode(file)
	if err != nil {
		return nil, apperrors.Validation("cannot decode image: %v", err)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	base := randomBaseName()

	picture := &models.Picture{UserID: userID, ProductID: productID}
	if err := tx.Create(picture).Error; err != nil {
		return nil, &apperrors.PersistenceError{Op: "create picture", Err: err}
	}

	var written []string
	for _, size := range sizes {
		variant := imaging.Fit(img, size[0], size[1], imaging.Lanczos)
		filename := fmt.Sprintf("%s_%dx%d%s", base, size[0], size[1], ext)
		path := filepath.Join(s.root, category+"_pics", filename)

		if err := imaging.Save(variant, path); err != nil {
			s.removeFiles(written)
			return nil, &apperrors.StorageError{Op: "write " + filename, Err: err}
		}
		written = append(written, path)

		format := &models.PictureFormat{
			Filename:  filename,
			Format:    fmt.Sprintf("%dx%d", size[0], size[1]),
			PictureID: picture.ID,
		}
		if err := tx.Create(format).Error; err != nil {
			s.removeFiles(written)
			return nil, &apperrors.PersistenceError{Op: "create picture format", Err: err}
		}
	}

	return picture, nil
}

// removeCurrent deletes the owner's most recent picture: variant files
// first, then format rows, then the picture row. Ids are monotonic, so
// descending id resolves the current picture.
func (s *PictureService) removeCurrent(tx *gorm.DB, category, ownerCol string, ownerID uint) error {
	var last models.Picture
	err := tx.Where(ownerCol+" = ?", ownerID).Order("id DESC").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return &apperrors.PersistenceError{Op: "load current picture", Err: err}
	}

	var formats []models.PictureFormat
	if err := tx.Where("picture_id = ?", last.ID).Find(&formats).Error; err != nil {
		return &apperrors.PersistenceError{Op: "load picture formats", Err: err}
	}

	for _, format := range formats {
		path := filepath.Join(s.root, category+"_pics", format.Filename)
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				s.log.WithField("path", path).Warn("Picture file already absent during removal")
				continue
			}
			return &apperrors.StorageError{Op: "remove " + format.Filename, Err: err}
		}
	}

	// Format rows always go before their parent picture.
	if err := tx.Where("picture_id = ?", last.ID).Delete(&models.PictureFormat{}).Error; err != nil {
		return &apperrors.PersistenceError{Op: "delete picture formats", Err: err}
	}
	if err := tx.Delete(&last).Error; err != nil {
		return &apperrors.PersistenceError{Op: "delete picture", Err: err}
	}
	return nil
}

func (s *PictureService) removeFiles(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.WithError(err).WithField("path", path).Error("Failed to clean up picture file")
		}
	}
}

// UserAvatarURLs returns the public URLs of the user's avatar variants,
// falling back to the category defaults.
func (s *PictureService) UserAvatarURLs(db *gorm.DB, userID uint) (small, large string) {
	small = s.variantURL(db, CategoryProfile, "user_id", userID, "50x50", "default_pic_user_50x50.png")
	large = s.variantURL(db, CategoryProfile, "user_id", userID, "450x450", "default_pic_user_450x450.png")
	return small, large
}

// ProductImageURLs returns the public URLs of the product's image variants.
func (s *PictureService) ProductImageURLs(db *gorm.DB, productID uint) (small, large string) {
	small = s.variantURL(db, CategoryProduct, "product_id", productID, "300x300", "default_pic_product_300x300.png")
	large = s.variantURL(db, CategoryProduct, "product_id", productID, "500x500", "default_pic_product_500x500.png")
	return small, large
}

func (s *PictureService) variantURL(db *gorm.DB, category, ownerCol string, ownerID uint, format, defaultName string) string {
	var f models.PictureFormat
	err := db.Model(&models.PictureFormat{}).
		Select("picture_formats.*").
		Joins("JOIN pictures ON pictures.id = picture_formats.picture_id").
		Where("pictures."+ownerCol+" = ? AND picture_formats.format = ?", ownerID, format).
		Order("pictures.id DESC").
		First(&f).Error
	if err != nil {
		return "/static/" + category + "_pics/" + defaultName
	}
	return "/static/" + category + "_pics/" + f.Filename
}

func randomBaseName() string {
	id := uuid.New()
	return hex.EncodeToString(id[:8])
}
