// internal/handlers/product.go
package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/marketloop/marketloop-backend/internal/apperrors"
	"github.com/marketloop/marketloop-backend/internal/models"
	"github.com/marketloop/marketloop-backend/internal/search"
	"github.com/marketloop/marketloop-backend/internal/services"
	"github.com/marketloop/marketloop-backend/internal/utils"
)

type ProductHandler struct {
	db       *gorm.DB
	syncer   *search.Syncer
	products *services.ProductService
	users    *services.UserService
	log      *logrus.Logger
}

func NewProductHandler(db *gorm.DB, syncer *search.Syncer, products *services.ProductService, users *services.UserService, log *logrus.Logger) *ProductHandler {
	return &ProductHandler{db: db, syncer: syncer, products: products, users: users, log: log}
}

// GetProduct returns one product.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	product, err := h.products.Get(h.db, id)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	detail, err := h.products.Detail(h.db, product)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	utils.SuccessResponse(c, detail)
}

// ListProducts returns one page of all products.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	page, perPage := utils.GetPageParams(c)
	h.renderProductPage(c, h.products.ProductsQuery(h.db), page, perPage, "/v1/products")
}

// UserProducts returns one page of the products created by user :id.
func (h *ProductHandler) UserProducts(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.users.GetUser(h.db, userID); err != nil {
		utils.RenderError(c, err)
		return
	}
	page, perPage := utils.GetPageParams(c)
	path := fmt.Sprintf("/v1/products/user/%d", userID)
	h.renderProductPage(c, h.products.UserProductsQuery(h.db, userID), page, perPage, path)
}

// Cart returns one page of the authenticated user's cart.
func (h *ProductHandler) Cart(c *gin.Context) {
	userID, ok := utils.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}
	page, perPage := utils.GetPageParams(c)
	h.renderProductPage(c, h.products.CartQuery(h.db, userID), page, perPage, "/v1/cart")
}

// LikedUsers returns one page of the users who carted product :id.
func (h *ProductHandler) LikedUsers(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.products.Get(h.db, productID); err != nil {
		utils.RenderError(c, err)
		return
	}
	page, perPage := utils.GetPageParams(c)
	path := fmt.Sprintf("/v1/products/%d/liked-users", productID)
	collection, err := utils.Paginate(h.products.LikedUsersQuery(h.db, productID), page, perPage,
		func(u *models.User) (interface{}, error) {
			return h.users.Profile(h.db, u)
		}, utils.CollectionLink(path, perPage, nil))
	if err != nil {
		utils.RenderError(c, &apperrors.PersistenceError{Op: "paginate liked users", Err: err})
		return
	}
	utils.SuccessResponse(c, collection)
}

// CreateProduct adds a product owned by the authenticated user.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	userID, ok := utils.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}
	var req services.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	tx, err := h.syncer.Begin(c.Request.Context(), h.db)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to start transaction")
		return
	}
	defer tx.Rollback()

	product, err := h.products.Create(tx.DB, userID, &req)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	if err := tx.Commit(); err != nil {
		utils.InternalErrorResponse(c, "Failed to save product")
		return
	}

	detail, err := h.products.Detail(h.db, product)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	utils.CreatedResponse(c, detail)
}

// UpdateProduct updates one of the authenticated user's products.
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	userID, ok := utils.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	tx, err := h.syncer.Begin(c.Request.Context(), h.db)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to start transaction")
		return
	}
	defer tx.Rollback()

	product, err := h.products.Update(tx.DB, id, userID, &req)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	if err := tx.Commit(); err != nil {
		utils.InternalErrorResponse(c, "Failed to update product")
		return
	}

	detail, err := h.products.Detail(h.db, product)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	utils.SuccessResponse(c, detail)
}

// DeleteProduct removes one of the authenticated user's products.
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	userID, ok := utils.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tx, err := h.syncer.Begin(c.Request.Context(), h.db)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to start transaction")
		return
	}
	defer tx.Rollback()

	if err := h.products.Delete(tx.DB, id, userID); err != nil {
		utils.RenderError(c, err)
		return
	}
	if err := tx.Commit(); err != nil {
		utils.InternalErrorResponse(c, "Failed to delete product")
		return
	}
	utils.SuccessResponse(c, gin.H{"message": "Product deleted"})
}

// AddToCart puts product :id into the authenticated user's cart.
func (h *ProductHandler) AddToCart(c *gin.Context) {
	h.changeCart(c, h.products.AddToCart, "Product added to cart")
}

// RemoveFromCart takes product :id out of the authenticated user's cart.
func (h *ProductHandler) RemoveFromCart(c *gin.Context) {
	h.changeCart(c, h.products.RemoveFromCart, "Product removed from cart")
}

func (h *ProductHandler) changeCart(c *gin.Context, op func(*gorm.DB, uint, *models.Product) error, message string) {
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
	if err := op(h.db, userID, product); err != nil {
		utils.RenderError(c, err)
		return
	}
	detail, err := h.products.Detail(h.db, product)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"message": message, "product": detail})
}

// Purchase buys product :id for the authenticated user.
func (h *ProductHandler) Purchase(c *gin.Context) {
	userID, ok := utils.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tx, err := h.syncer.Begin(c.Request.Context(), h.db)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to start transaction")
		return
	}
	defer tx.Rollback()

	product, err := h.products.Get(tx.DB, productID)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	if err := h.products.Purchase(tx.DB, userID, product); err != nil {
		utils.RenderError(c, err)
		return
	}
	if err := tx.Commit(); err != nil {
		utils.InternalErrorResponse(c, "Failed to complete purchase")
		return
	}

	detail, err := h.products.Detail(h.db, product)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"message": "Purchase complete", "product": detail})
}

func (h *ProductHandler) renderProductPage(c *gin.Context, query *gorm.DB, page, perPage int, path string) {
	collection, err := utils.Paginate(query, page, perPage, func(p *models.Product) (interface{}, error) {
		return h.products.Detail(h.db, p)
	}, utils.CollectionLink(path, perPage, nil))
	if err != nil {
		utils.RenderError(c, &apperrors.PersistenceError{Op: "paginate products", Err: err})
		return
	}
	utils.SuccessResponse(c, collection)
}
