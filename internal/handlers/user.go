// internal/handlers/user.go
package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/marketloop/marketloop-backend/internal/apperrors"
	"github.com/marketloop/marketloop-backend/internal/models"
	"github.com/marketloop/marketloop-backend/internal/search"
	"github.com/marketloop/marketloop-backend/internal/services"
	"github.com/marketloop/marketloop-backend/internal/utils"
)

type UserHandler struct {
	db     *gorm.DB
	syncer *search.Syncer
	users  *services.UserService
	log    *logrus.Logger
}

func NewUserHandler(db *gorm.DB, syncer *search.Syncer, users *services.UserService, log *logrus.Logger) *UserHandler {
	return &UserHandler{db: db, syncer: syncer, users: users, log: log}
}

// parseIDParam reads a positive integer path parameter.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		utils.BadRequestResponse(c, "Invalid "+name+" parameter", nil)
		return 0, false
	}
	return uint(id), true
}

// GetUser returns one user's profile.
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := h.users.GetUser(h.db, id)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	profile, err := h.users.Profile(h.db, user)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	utils.SuccessResponse(c, profile)
}

// ListUsers returns one page of all users.
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, perPage := utils.GetPageParams(c)
	h.renderUserPage(c, h.users.UsersQuery(h.db), page, perPage, "/v1/users")
}

// Followers returns one page of the users following :id.
func (h *UserHandler) Followers(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.users.GetUser(h.db, id); err != nil {
		utils.RenderError(c, err)
		return
	}
	page, perPage := utils.GetPageParams(c)
	path := fmt.Sprintf("/v1/users/%d/followers", id)
	h.renderUserPage(c, h.users.FollowersQuery(h.db, id), page, perPage, path)
}

// Followed returns one page of the users :id follows.
func (h *UserHandler) Followed(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.users.GetUser(h.db, id); err != nil {
		utils.RenderError(c, err)
		return
	}
	page, perPage := utils.GetPageParams(c)
	path := fmt.Sprintf("/v1/users/%d/followed", id)
	h.renderUserPage(c, h.users.FollowedQuery(h.db, id), page, perPage, path)
}

// Follow makes the authenticated user follow :id.
func (h *UserHandler) Follow(c *gin.Context) {
	h.changeFollow(c, h.users.Follow, "You are now following %s")
}

// Unfollow makes the authenticated user stop following :id.
func (h *UserHandler) Unfollow(c *gin.Context) {
	h.changeFollow(c, h.users.Unfollow, "You are no longer following %s")
}

func (h *UserHandler) changeFollow(c *gin.Context, op func(*gorm.DB, uint, uint) error, messageFormat string) {
	actorID, ok := utils.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}
	targetID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	target, err := h.users.GetUser(h.db, targetID)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	if err := op(h.db, actorID, targetID); err != nil {
		utils.RenderError(c, err)
		return
	}
	profile, err := h.users.Profile(h.db, target)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": fmt.Sprintf(messageFormat, target.Username),
		"user":    profile,
	})
}

// UpdateProfile updates the authenticated user's own profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := utils.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}
	var req services.UpdateUserRequest
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

	user, err := h.users.UpdateProfile(tx.DB, userID, &req)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	if err := tx.Commit(); err != nil {
		utils.InternalErrorResponse(c, "Failed to update profile")
		return
	}

	profile, err := h.users.Profile(h.db, user)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	utils.SuccessResponse(c, profile)
}

// ChangePassword updates the authenticated user's password.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := utils.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}
	var req services.ChangePasswordRequest
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

	if err := h.users.ChangePassword(tx.DB, userID, &req); err != nil {
		utils.RenderError(c, err)
		return
	}
	if err := tx.Commit(); err != nil {
		utils.InternalErrorResponse(c, "Failed to change password")
		return
	}
	utils.SuccessResponse(c, gin.H{"message": "Password updated"})
}

// DeleteAccount removes the authenticated user and everything they own.
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	userID, ok := utils.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	tx, err := h.syncer.Begin(c.Request.Context(), h.db)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to start transaction")
		return
	}
	defer tx.Rollback()

	if err := h.users.DeleteAccount(tx.DB, userID); err != nil {
		utils.RenderError(c, err)
		return
	}
	if err := tx.Commit(); err != nil {
		utils.InternalErrorResponse(c, "Failed to delete account")
		return
	}
	utils.SuccessResponse(c, gin.H{"message": "Account deleted"})
}

func (h *UserHandler) renderUserPage(c *gin.Context, query *gorm.DB, page, perPage int, path string) {
	collection, err := utils.Paginate(query, page, perPage, func(u *models.User) (interface{}, error) {
		return h.users.Profile(h.db, u)
	}, utils.CollectionLink(path, perPage, nil))
	if err != nil {
		utils.RenderError(c, &apperrors.PersistenceError{Op: "paginate users", Err: err})
		return
	}
	utils.SuccessResponse(c, collection)
}
