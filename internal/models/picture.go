// internal/models/picture.go
package models

// Picture belongs to exactly one of user or product; the check constraint
// keeps the two owner slots exclusive-or. The most recent picture for an
// owner is the active one.
type Picture struct {
	BaseModel
	UserID    *uint `json:"user_id" gorm:"index;check:chk_picture_owner,(user_id IS NULL) <> (product_id IS NULL)"`
	ProductID *uint `json:"product_id" gorm:"index"`

	Formats []PictureFormat `json:"formats" gorm:"foreignKey:PictureID"`
}

// PictureFormat is one resized rendition of an uploaded picture at a fixed
// target size, e.g. "300x300".
type PictureFormat struct {
	BaseModel
	Filename  string `json:"filename" gorm:"size:120;not null"`
	Format    string `json:"format" gorm:"size:20;not null"`
	PictureID uint   `json:"picture_id" gorm:"not null;index"`
}
