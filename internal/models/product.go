// internal/models/product.go
package models

import (
	"time"
)

type Product struct {
	BaseModel
	// Name uniqueness is enforced at write time by the product service, not
	// by a database constraint.
	Name        string  `json:"name" gorm:"size:255;not null;index"`
	Description string  `json:"description" gorm:"size:140"`
	Price       float64 `json:"price" gorm:"type:decimal(10,2);not null;index"`
	IsPurchased bool    `json:"is_purchased" gorm:"default:false"`
	UserID      uint    `json:"user_id" gorm:"not null;index"`

	// Relationships
	Author   User      `json:"-" gorm:"foreignKey:UserID"`
	Pictures []Picture `json:"-" gorm:"foreignKey:ProductID"`
}

func (Product) SearchIndex() string { return "products" }

func (p *Product) SearchID() uint { return p.ID }

func (p *Product) SearchFields() map[string]interface{} {
	return map[string]interface{}{"name": p.Name}
}

// ProductDetail is the serialized form of a product.
type ProductDetail struct {
	ID          uint               `json:"id"`
	Name        string             `json:"name"`
	Price       float64            `json:"price"`
	Description string             `json:"description"`
	IsPurchased bool               `json:"is_purchased"`
	UserID      uint               `json:"user_id"`
	Timestamp   time.Time          `json:"timestamp"`
	LikedCount  int64              `json:"liked_count"`
	Links       ProductDetailLinks `json:"_links"`
}

type ProductDetailLinks struct {
	Self       string `json:"self"`
	Author     string `json:"author"`
	LikedUsers string `json:"liked_users"`
	ImageSmall string `json:"image_300x300"`
	ImageLarge string `json:"image_500x500"`
}
