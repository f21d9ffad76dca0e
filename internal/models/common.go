// internal/models/common.go
package models

import (
	"time"
)

// Base model with common fields. IDs are monotonically increasing integers;
// picture replacement relies on that when it resolves the current picture.
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Searchable is implemented by entities mirrored into the external text
// index. SearchFields returns only the fields declared searchable for the
// type, keyed by field name.
type Searchable interface {
	SearchIndex() string
	SearchID() uint
	SearchFields() map[string]interface{}
}

// SearchIndexes lists every index the free-text query path fans out to.
func SearchIndexes() []string {
	return []string{User{}.SearchIndex(), Product{}.SearchIndex()}
}
