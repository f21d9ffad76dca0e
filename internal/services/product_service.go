// internal/services/product_service.go
package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/marketloop/marketloop-backend/internal/apperrors"
	"github.com/marketloop/marketloop-backend/internal/models"
	"github.com/marketloop/marketloop-backend/internal/utils"
)

type ProductService struct {
	pictures *PictureService
}

func NewProductService(pictures *PictureService) *ProductService {
	return &ProductService{pictures: pictures}
}

type CreateProductRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description string  `json:"description" validate:"omitempty,max=140"`
	Price       float64 `json:"price" validate:"required,gt=0"`
}

type UpdateProductRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=255"`
	Description *string  `json:"description" validate:"omitempty,max=140"`
	Price       *float64 `json:"price" validate:"omitempty,gt=0"`
}

// Create adds a product owned by authorID. Name uniqueness is checked at
// write time only.
func (s *ProductService) Create(tx *gorm.DB, authorID uint, req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation("%v", err)
	}
	if taken, err := s.nameTaken(tx, req.Name, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, apperrors.Validation("please use a different product name")
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		UserID:      authorID,
	}
	if err := tx.Create(product).Error; err != nil {
		return nil, &apperrors.PersistenceError{Op: "create product", Err: err}
	}
	return product, nil
}

func (s *ProductService) Get(db *gorm.DB, id uint) (*models.Product, error) {
	var product models.Product
	if err := db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product")
		}
		return nil, &apperrors.PersistenceError{Op: "load product", Err: err}
	}
	return &product, nil
}

// Update applies the provided fields. Only the owner may update a product.
func (s *ProductService) Update(tx *gorm.DB, id, actorID uint, req *UpdateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation("%v", err)
	}
	product, err := s.Get(tx, id)
	if err != nil {
		return nil, err
	}
	if product.UserID != actorID {
		return nil, apperrors.Forbidden("you can only update your own products")
	}

	if req.Name != nil && *req.Name != product.Name {
		if taken, err := s.nameTaken(tx, *req.Name, id); err != nil {
			return nil, err
		} else if taken {
			return nil, apperrors.Validation("please use a different product name")
		}
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}

	if err := tx.Save(product).Error; err != nil {
		return nil, &apperrors.PersistenceError{Op: "update product", Err: err}
	}
	return product, nil
}

// Delete removes the product, its picture and any cart entries pointing at
// it. Only the owner may delete a product.
func (s *ProductService) Delete(tx *gorm.DB, id, actorID uint) error {
	product, err := s.Get(tx, id)
	if err != nil {
		return err
	}
	if product.UserID != actorID {
		return apperrors.Forbidden("you can only delete your own products")
	}
	if err := s.pictures.DeleteProductPicture(tx, id); err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM cart_items WHERE product_id = ?", id).Error; err != nil {
		return &apperrors.PersistenceError{Op: "clear product cart entries", Err: err}
	}
	if err := tx.Delete(product).Error; err != nil {
		return &apperrors.PersistenceError{Op: "delete product", Err: err}
	}
	return nil
}

// AddToCart links userID to the product. Adding an already-present product
// is a no-op; adding your own product is forbidden.
func (s *ProductService) AddToCart(db *gorm.DB, userID uint, product *models.Product) error {
	if product.UserID == userID {
		return apperrors.Forbidden("you cannot add your own product to the cart")
	}
	return cartItems.Add(db, userID, product.ID)
}

func (s *ProductService) RemoveFromCart(db *gorm.DB, userID uint, product *models.Product) error {
	if product.UserID == userID {
		return apperrors.Forbidden("you cannot remove your own product from the cart")
	}
	return cartItems.Remove(db, userID, product.ID)
}

func (s *ProductService) InCart(db *gorm.DB, userID, productID uint) (bool, error) {
	return cartItems.Has(db, userID, productID)
}

// Purchase flips the purchased flag. A product can be bought once and never
// by its owner.
func (s *ProductService) Purchase(tx *gorm.DB, buyerID uint, product *models.Product) error {
	if product.UserID == buyerID {
		return apperrors.Forbidden("you cannot buy your own product")
	}
	if product.IsPurchased {
		return apperrors.Validation("product already purchased")
	}
	product.IsPurchased = true
	if err := tx.Save(product).Error; err != nil {
		return &apperrors.PersistenceError{Op: "purchase product", Err: err}
	}
	return nil
}

// ProductsQuery lists all products in id order, for pagination.
func (s *ProductService) ProductsQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Product{}).Order("products.id")
}

// UserProductsQuery lists a user's products, newest first.
func (s *ProductService) UserProductsQuery(db *gorm.DB, userID uint) *gorm.DB {
	return db.Model(&models.Product{}).
		Where("user_id = ?", userID).
		Order("products.created_at DESC")
}

// CartQuery lists the products in a user's cart, newest first.
func (s *ProductService) CartQuery(db *gorm.DB, userID uint) *gorm.DB {
	return db.Model(&models.Product{}).
		Joins("JOIN cart_items ON cart_items.product_id = products.id").
		Where("cart_items.user_id = ?", userID).
		Order("products.created_at DESC")
}

// LikedUsersQuery lists the users who put the product in their cart.
func (s *ProductService) LikedUsersQuery(db *gorm.DB, productID uint) *gorm.DB {
	return db.Model(&models.User{}).
		Joins("JOIN cart_items ON cart_items.user_id = users.id").
		Where("cart_items.product_id = ?", productID).
		Order("users.id")
}

// Detail assembles the public representation of a product.
func (s *ProductService) Detail(db *gorm.DB, product *models.Product) (*models.ProductDetail, error) {
	likedCount, err := cartItems.CountTo(db, product.ID)
	if err != nil {
		return nil, err
	}
	imageSmall, imageLarge := s.pictures.ProductImageURLs(db, product.ID)

	return &models.ProductDetail{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		IsPurchased: product.IsPurchased,
		UserID:      product.UserID,
		Timestamp:   product.CreatedAt,
		LikedCount:  likedCount,
		Links: models.ProductDetailLinks{
			Self:       fmt.Sprintf("/v1/products/%d", product.ID),
			Author:     fmt.Sprintf("/v1/users/%d", product.UserID),
			LikedUsers: fmt.Sprintf("/v1/products/%d/liked-users", product.ID),
			ImageSmall: imageSmall,
			ImageLarge: imageLarge,
		},
	}, nil
}

func (s *ProductService) nameTaken(db *gorm.DB, name string, excludeID uint) (bool, error) {
	var count int64
	query := db.Model(&models.Product{}).Where("name = ?", name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, &apperrors.PersistenceError{Op: "check product name", Err: err}
	}
	return count > 0, nil
}
