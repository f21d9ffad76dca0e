// internal/handlers/auth.go
package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/marketloop/marketloop-backend/internal/config"
	"github.com/marketloop/marketloop-backend/internal/search"
	"github.com/marketloop/marketloop-backend/internal/services"
	"github.com/marketloop/marketloop-backend/internal/utils"
)

type AuthHandler struct {
	db     *gorm.DB
	syncer *search.Syncer
	users  *services.UserService
	cfg    *config.Config
	log    *logrus.Logger
}

func NewAuthHandler(db *gorm.DB, syncer *search.Syncer, users *services.UserService, cfg *config.Config, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{db: db, syncer: syncer, users: users, cfg: cfg, log: log}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type resetRequestBody struct {
	Email string `json:"email" binding:"required"`
}

type resetPasswordBody struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a new account and returns it together with an access
// token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
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

	user, err := h.users.Register(tx.DB, &req)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	if err := tx.Commit(); err != nil {
		utils.InternalErrorResponse(c, "Failed to save user")
		return
	}

	token, err := utils.GenerateJWT(user.ID, user.Username, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		h.log.WithError(err).Error("Failed to generate token")
		utils.InternalErrorResponse(c, "Failed to generate token")
		return
	}

	profile, err := h.users.Profile(h.db, user)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	utils.CreatedResponse(c, gin.H{"token": token, "user": profile})
}

// Login verifies credentials, updates last_seen and returns an access
// token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	user, err := h.users.Authenticate(h.db, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.UnauthorizedResponse(c, "Invalid email or password")
			return
		}
		utils.RenderError(c, err)
		return
	}

	if err := h.users.TouchLastSeen(h.db, user.ID); err != nil {
		h.log.WithError(err).WithField("user_id", user.ID).Warn("Failed to update last seen")
	}

	token, err := utils.GenerateJWT(user.ID, user.Username, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		h.log.WithError(err).Error("Failed to generate token")
		utils.InternalErrorResponse(c, "Failed to generate token")
		return
	}

	profile, err := h.users.Profile(h.db, user)
	if err != nil {
		utils.RenderError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"token": token, "user": profile})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := utils.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}
	user, err := h.users.GetUser(h.db, userID)
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

// RequestPasswordReset issues a short-lived reset token for the account.
// The response is the same whether or not the email exists, so the endpoint
// cannot be used to probe for accounts.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req resetRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	response := gin.H{"message": "If the account exists, a reset token has been issued"}

	user, err := h.users.GetByEmail(h.db, req.Email)
	if err != nil {
		utils.SuccessResponse(c, response)
		return
	}

	ttl := time.Duration(h.cfg.JWT.ResetTokenTTL) * time.Minute
	token, err := utils.GenerateResetToken(user.ID, ttl)
	if err != nil {
		h.log.WithError(err).Error("Failed to generate reset token")
		utils.InternalErrorResponse(c, "Failed to generate reset token")
		return
	}

	// No mail transport is wired up, so the token is returned directly.
	response["reset_token"] = token
	utils.SuccessResponse(c, response)
}

// ResetPassword sets a new password given a valid reset token.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordBody
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	userID, err := utils.ValidateResetToken(req.Token)
	if err != nil {
		utils.UnauthorizedResponse(c, "Invalid or expired reset token")
		return
	}

	tx, err := h.syncer.Begin(c.Request.Context(), h.db)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to start transaction")
		return
	}
	defer tx.Rollback()

	if err := h.users.ResetPassword(tx.DB, userID, req.Password); err != nil {
		utils.RenderError(c, err)
		return
	}
	if err := tx.Commit(); err != nil {
		utils.InternalErrorResponse(c, "Failed to reset password")
		return
	}
	utils.SuccessResponse(c, gin.H{"message": "Password has been reset"})
}
