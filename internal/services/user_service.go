// internal/services/user_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marketloop/marketloop-backend/internal/apperrors"
	"github.com/marketloop/marketloop-backend/internal/database"
	"github.com/marketloop/marketloop-backend/internal/models"
	"github.com/marketloop/marketloop-backend/internal/utils"
)

// Bare join tables managed outside the gorm model graph.
var (
	follows   = database.NewEdgeSet[uint, uint]("follows", "follower_id", "followed_id")
	cartItems = database.NewEdgeSet[uint, uint]("cart_items", "user_id", "product_id")
)

// ErrInvalidCredentials is returned by Authenticate for both unknown emails
// and wrong passwords, so callers cannot tell the two apart.
var ErrInvalidCredentials = errors.New("invalid email or password")

type UserService struct {
	pictures *PictureService
}

func NewUserService(pictures *PictureService) *UserService {
	return &UserService{pictures: pictures}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	AboutMe  string `json:"about_me" validate:"omitempty,max=140"`
}

type UpdateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,username"`
	Email    *string `json:"email" validate:"omitempty,email"`
	AboutMe  *string `json:"about_me" validate:"omitempty,max=140"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
}

// Register creates a new user after checking username and email uniqueness.
func (s *UserService) Register(tx *gorm.DB, req *RegisterRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation("%v", err)
	}
	if taken, err := s.usernameTaken(tx, req.Username, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, apperrors.Validation("please use a different username")
	}
	if taken, err := s.emailTaken(tx, req.Email, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, apperrors.Validation("please use a different email address")
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		AboutMe:  req.AboutMe,
		LastSeen: time.Now().UTC(),
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := tx.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Validation("please use a different username or email address")
		}
		return nil, &apperrors.PersistenceError{Op: "create user", Err: err}
	}
	return user, nil
}

// Authenticate looks the user up by email and verifies the password.
func (s *UserService) Authenticate(db *gorm.DB, email, password string) (*models.User, error) {
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, &apperrors.PersistenceError{Op: "load user", Err: err}
	}
	if err := user.CheckPassword(password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// TouchLastSeen records a successful login.
func (s *UserService) TouchLastSeen(db *gorm.DB, userID uint) error {
	err := db.Model(&models.User{}).Where("id = ?", userID).
		Update("last_seen", time.Now().UTC()).Error
	if err != nil {
		return &apperrors.PersistenceError{Op: "update last seen", Err: err}
	}
	return nil
}

func (s *UserService) GetUser(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user")
		}
		return nil, &apperrors.PersistenceError{Op: "load user", Err: err}
	}
	return &user, nil
}

func (s *UserService) GetByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user")
		}
		return nil, &apperrors.PersistenceError{Op: "load user", Err: err}
	}
	return &user, nil
}

// UpdateProfile applies the provided fields, re-checking uniqueness for
// username and email changes.
func (s *UserService) UpdateProfile(tx *gorm.DB, userID uint, req *UpdateUserRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation("%v", err)
	}
	user, err := s.GetUser(tx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		if taken, err := s.usernameTaken(tx, *req.Username, userID); err != nil {
			return nil, err
		} else if taken {
			return nil, apperrors.Validation("please use a different username")
		}
		user.Username = *req.Username
	}
	if req.Email != nil && *req.Email != user.Email {
		if taken, err := s.emailTaken(tx, *req.Email, userID); err != nil {
			return nil, err
		} else if taken {
			return nil, apperrors.Validation("please use a different email address")
		}
		user.Email = *req.Email
	}
	if req.AboutMe != nil {
		user.AboutMe = *req.AboutMe
	}

	if err := tx.Save(user).Error; err != nil {
		return nil, &apperrors.PersistenceError{Op: "update user", Err: err}
	}
	return user, nil
}

// ChangePassword verifies the current password before setting the new one.
func (s *UserService) ChangePassword(tx *gorm.DB, userID uint, req *ChangePasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return apperrors.Validation("%v", err)
	}
	user, err := s.GetUser(tx, userID)
	if err != nil {
		return err
	}
	if err := user.CheckPassword(req.CurrentPassword); err != nil {
		return apperrors.Validation("current password is incorrect")
	}
	if err := user.SetPassword(req.Password); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := tx.Save(user).Error; err != nil {
		return &apperrors.PersistenceError{Op: "update password", Err: err}
	}
	return nil
}

// ResetPassword sets a new password without checking the old one. Callers
// must have verified a reset token first.
func (s *UserService) ResetPassword(tx *gorm.DB, userID uint, password string) error {
	if len(password) < 6 {
		return apperrors.Validation("password must be at least 6 characters")
	}
	user, err := s.GetUser(tx, userID)
	if err != nil {
		return err
	}
	if err := user.SetPassword(password); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := tx.Save(user).Error; err != nil {
		return &apperrors.PersistenceError{Op: "reset password", Err: err}
	}
	return nil
}

func (s *UserService) Follow(db *gorm.DB, followerID, followedID uint) error {
	if followerID == followedID {
		return apperrors.Validation("you cannot follow yourself")
	}
	return follows.Add(db, followerID, followedID)
}

func (s *UserService) Unfollow(db *gorm.DB, followerID, followedID uint) error {
	if followerID == followedID {
		return apperrors.Validation("you cannot unfollow yourself")
	}
	return follows.Remove(db, followerID, followedID)
}

func (s *UserService) IsFollowing(db *gorm.DB, followerID, followedID uint) (bool, error) {
	return follows.Has(db, followerID, followedID)
}

// UsersQuery lists all users in id order, for pagination.
func (s *UserService) UsersQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&models.User{}).Order("users.id")
}

// FollowersQuery lists the users following the given user.
func (s *UserService) FollowersQuery(db *gorm.DB, userID uint) *gorm.DB {
	return db.Model(&models.User{}).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followed_id = ?", userID).
		Order("users.id")
}

// FollowedQuery lists the users the given user follows.
func (s *UserService) FollowedQuery(db *gorm.DB, userID uint) *gorm.DB {
	return db.Model(&models.User{}).
		Joins("JOIN follows ON follows.followed_id = users.id").
		Where("follows.follower_id = ?", userID).
		Order("users.id")
}

// Profile assembles the public representation of a user, with relationship
// counts and avatar links.
func (s *UserService) Profile(db *gorm.DB, user *models.User) (*models.UserProfile, error) {
	var productCount int64
	if err := db.Model(&models.Product{}).Where("user_id = ?", user.ID).Count(&productCount).Error; err != nil {
		return nil, &apperrors.PersistenceError{Op: "count products", Err: err}
	}
	followersCount, err := follows.CountTo(db, user.ID)
	if err != nil {
		return nil, err
	}
	followedCount, err := follows.CountFrom(db, user.ID)
	if err != nil {
		return nil, err
	}
	cartCount, err := cartItems.CountFrom(db, user.ID)
	if err != nil {
		return nil, err
	}

	avatarSmall, avatarLarge := s.pictures.UserAvatarURLs(db, user.ID)

	return &models.UserProfile{
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.Email,
		AboutMe:        user.AboutMe,
		LastSeen:       user.LastSeen,
		ProductCount:   productCount,
		FollowersCount: followersCount,
		FollowedCount:  followedCount,
		CartCount:      cartCount,
		Links: models.UserProfileLinks{
			Self:        fmt.Sprintf("/v1/users/%d", user.ID),
			Followers:   fmt.Sprintf("/v1/users/%d/followers", user.ID),
			Followed:    fmt.Sprintf("/v1/users/%d/followed", user.ID),
			Products:    fmt.Sprintf("/v1/products/user/%d", user.ID),
			AvatarSmall: avatarSmall,
			AvatarLarge: avatarLarge,
		},
	}, nil
}

// DeleteAccount removes the user together with their products, pictures,
// cart entries and follow edges.
func (s *UserService) DeleteAccount(tx *gorm.DB, userID uint) error {
	user, err := s.GetUser(tx, userID)
	if err != nil {
		return err
	}

	var products []models.Product
	if err := tx.Where("user_id = ?", userID).Find(&products).Error; err != nil {
		return &apperrors.PersistenceError{Op: "load user products", Err: err}
	}
	for i := range products {
		if err := s.pictures.DeleteProductPicture(tx, products[i].ID); err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM cart_items WHERE product_id = ?", products[i].ID).Error; err != nil {
			return &apperrors.PersistenceError{Op: "clear product cart entries", Err: err}
		}
		if err := tx.Delete(&products[i]).Error; err != nil {
			return &apperrors.PersistenceError{Op: "delete product", Err: err}
		}
	}

	if err := s.pictures.DeleteUserPicture(tx, userID); err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM cart_items WHERE user_id = ?", userID).Error; err != nil {
		return &apperrors.PersistenceError{Op: "clear cart", Err: err}
	}
	if err := tx.Exec("DELETE FROM follows WHERE follower_id = ? OR followed_id = ?", userID, userID).Error; err != nil {
		return &apperrors.PersistenceError{Op: "clear follow edges", Err: err}
	}
	if err := tx.Delete(user).Error; err != nil {
		return &apperrors.PersistenceError{Op: "delete user", Err: err}
	}
	return nil
}

func (s *UserService) usernameTaken(db *gorm.DB, username string, excludeID uint) (bool, error) {
	var count int64
	query := db.Model(&models.User{}).Where("username = ?", username)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, &apperrors.PersistenceError{Op: "check username", Err: err}
	}
	return count > 0, nil
}

func (s *UserService) emailTaken(db *gorm.DB, email string, excludeID uint) (bool, error) {
	var count int64
	query := db.Model(&models.User{}).Where("email = ?", email)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, &apperrors.PersistenceError{Op: "check email", Err: err}
	}
	return count > 0, nil
}
