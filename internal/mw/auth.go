package mw

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"watermate-backend/internal/auth"
	"watermate-backend/internal/model"
)

// Context keys set by RequireAuth for downstream handlers.
const (
	CtxUserID       = "userID"
	CtxUserPublicID = "userPublicID"
)

// RequireAuth validates the x-access-token header and loads the
// authenticated user. Requests without a valid access token are rejected.
func RequireAuth(db *gorm.DB, tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("x-access-token")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "access token is missing"})
			return
		}

		claims, err := tokens.Validate(tokenString, auth.TokenKindAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "access token is invalid or expired"})
			return
		}

		var user model.User
		if err := db.Where("public_id = ?", claims.UserPublicID).First(&user).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user no longer exists"})
			} else {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
			}
			return
		}

		c.Set(CtxUserID, user.ID)
		c.Set(CtxUserPublicID, user.PublicID)
		c.Next()
	}
}

// UserID returns the authenticated user's database ID from the context.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(CtxUserID)
}
