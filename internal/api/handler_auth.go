package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"watermate-backend/internal/auth"
	"watermate-backend/internal/model"
	"watermate-backend/internal/schedule"
)

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=8"`
}

// Signup handles the POST /api/auth/signup request.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	user := model.User{
		PublicID:     auth.NewPublicID(),
		Name:         req.Name,
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
	}

	if err := h.store.DB().WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if errors.Is(schedule.MapDBError(err), schedule.ErrConstraintViolation) {
			c.JSON(http.StatusConflict, gin.H{"error": "username is already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"public_id": user.PublicID})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles the POST /api/auth/login request and issues a token pair.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user model.User
	err := h.store.DB().WithContext(c.Request.Context()).
		Where("username = ?", req.Username).First(&user).Error
	if err == gorm.ErrRecordNotFound || (err == nil && !auth.CheckPassword(user.PasswordHash, req.Password)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		return
	}

	h.issueTokenPair(c, user.PublicID)
}

// Refresh handles the POST /api/auth/refresh request. It exchanges a valid
// refresh token, presented in the x-refresh-token header, for a new pair.
func (h *Handler) Refresh(c *gin.Context) {
	tokenString := c.GetHeader("x-refresh-token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token is missing"})
		return
	}

	claims, err := h.tokens.Validate(tokenString, auth.TokenKindRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token is invalid or expired"})
		return
	}

	// The user may have been deleted since the token was issued.
	var user model.User
	if err := h.store.DB().WithContext(c.Request.Context()).
		Where("public_id = ?", claims.UserPublicID).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user no longer exists"})
		return
	}

	h.issueTokenPair(c, user.PublicID)
}

func (h *Handler) issueTokenPair(c *gin.Context, publicID string) {
	now := time.Now().UTC()
	access, err := h.tokens.IssueAccessToken(publicID, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue tokens"})
		return
	}
	refresh, err := h.tokens.IssueRefreshToken(publicID, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
	})
}
