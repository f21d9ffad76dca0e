// internal/services/helpers_test.go
package services

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/marketloop/marketloop-backend/internal/config"
	"github.com/marketloop/marketloop-backend/internal/database"
	"github.com/marketloop/marketloop-backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.RunMigrations(db))
	return db
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestPictureService(t *testing.T) *PictureService {
	t.Helper()
	svc, err := NewPictureService(config.UploadConfig{
		MaxSizeMB:  1,
		StaticRoot: t.TempDir(),
	}, quietLogger())
	require.NoError(t, err)
	return svc
}

func newTestServices(t *testing.T) (*gorm.DB, *UserService, *ProductService) {
	t.Helper()
	db := newTestDB(t)
	pictures := newTestPictureService(t)
	return db, NewUserService(pictures), NewProductService(pictures)
}

func makeTestUser(t *testing.T, db *gorm.DB, users *UserService, username string) *models.User {
	t.Helper()
	user, err := users.Register(db, &RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	return user
}

func makeTestProduct(t *testing.T, db *gorm.DB, products *ProductService, ownerID uint, name string) *models.Product {
	t.Helper()
	product, err := products.Create(db, ownerID, &CreateProductRequest{
		Name:  name,
		Price: 9.99,
	})
	require.NoError(t, err)
	return product
}

// encodePNG renders a small solid image for upload tests.
func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for x := 0; x < 40; x++ {
		for y := 0; y < 40; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
