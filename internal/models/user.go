// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username     string    `json:"username" gorm:"uniqueIndex;size:64;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:120;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	AboutMe      string    `json:"about_me" gorm:"size:140"`
	LastSeen     time.Time `json:"last_seen"`

	// Relationships
	Pictures []Picture `json:"-" gorm:"foreignKey:UserID"`
	Products []Product `json:"-" gorm:"foreignKey:UserID"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

func (User) SearchIndex() string { return "users" }

func (u *User) SearchID() uint { return u.ID }

func (u *User) SearchFields() map[string]interface{} {
	return map[string]interface{}{"username": u.Username}
}

// UserProfile is the serialized form of a user, including relation counts
// and navigation links.
type UserProfile struct {
	ID             uint             `json:"id"`
	Username       string           `json:"username"`
	Email          string           `json:"email"`
	AboutMe        string           `json:"about_me"`
	LastSeen       time.Time        `json:"last_seen"`
	ProductCount   int64            `json:"product_count"`
	FollowersCount int64            `json:"followers_count"`
	FollowedCount  int64            `json:"followed_count"`
	CartCount      int64            `json:"product_liked_count"`
	Links          UserProfileLinks `json:"_links"`
}

type UserProfileLinks struct {
	Self        string `json:"self"`
	Followers   string `json:"followers"`
	Followed    string `json:"followed"`
	Products    string `json:"products"`
	AvatarSmall string `json:"avatar_50x50"`
	AvatarLarge string `json:"avatar_450x450"`
}
