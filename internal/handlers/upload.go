// internal/handlers/upload.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/marketloop/marketloop-backend/internal/apperrors"
	"github.com/marketloop/marketloop-backend/internal/search"
	"github.com/marketloop/marketloop-backend/internal/services"
	"github.com/marketloop/marketloop-backend/internal/utils"
)

type UploadHandler struct {
	db       *gorm.DB
	syncer   *search.Syncer
	pictures *services.PictureService
	products *services.ProductService
	users    *services.UserService
	log      *logrus.Logger
}

func NewUploadHandler(db *gorm.DB, syncer *search.Syncer, pictures *services.PictureService, products *services.ProductService, users *services.UserService, log *logrus.Logger) *UploadHandler {
	return &UploadHandler{db: db, syncer: syncer, pictures: pictures, products: products, users: users, log: log}
}

// UploadUserPicture replaces the authenticated user's profile picture.
func (h *UploadHandler) UploadUserPicture(c *gin.Context) {
	userID, ok := utils.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	header, err := c.FormFile("picture")
	if err != nil {
		utils.BadRequestResponse(c, "A picture file is required", err.Error())
		return
	}
	file, err := header.Open()
	if err != nil {
		utils.RenderError(c, &apperrors.StorageError{Op: "open upload", Err: err})
		return
	}
	defer file.Close()

	tx, err := h.syncer.Begin(c.Request.Context(), h.db)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to start transaction")
		return
	}
	defer tx.Rollback()

	if _, err := h.pictures.SaveUserPicture(tx.DB, userID, file, header.Size, header.Filename); err != nil {
		utils.RenderError(c, err)
		return
	}
	if err := tx.Commit(); err != nil {
		utils.InternalErrorResponse(c, "Failed to save picture")
		return
	}

	small, large := h.pictures.UserAvatarURLs(h.db, userID)
	utils.CreatedResponse(c, gin.H{
		"avatar_50x50":   small,
		"avatar_450x450": large,
	})
}

// UploadProductPicture replaces the picture of product :id. Only the
// product's owner may do this.
func (h *UploadHandler) UploadProductPicture(c *gin.Context) {
	userID, ok := utils.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := h.products.Get(h.db, productID)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	if product.UserID != userID {
		utils.ForbiddenResponse(c, "You can only upload pictures for your own products")
		return
	}

	header, err := c.FormFile("picture")
	if err != nil {
		utils.BadRequestResponse(c, "A picture file is required", err.Error())
		return
	}
	file, err := header.Open()
	if err != nil {
		utils.RenderError(c, &apperrors.StorageError{Op: "open upload", Err: err})
		return
	}
	defer file.Close()

	tx, err := h.syncer.Begin(c.Request.Context(), h.db)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to start transaction")
		return
	}
	defer tx.Rollback()

	if _, err := h.pictures.SaveProductPicture(tx.DB, productID, file, header.Size, header.Filename); err != nil {
		utils.RenderError(c, err)
		return
	}
	if err := tx.Commit(); err != nil {
		utils.InternalErrorResponse(c, "Failed to save picture")
		return
	}

	small, large := h.pictures.ProductImageURLs(h.db, productID)
	utils.CreatedResponse(c, gin.H{
		"image_300x300": small,
		"image_500x500": large,
	})
}
