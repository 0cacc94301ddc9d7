package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"watermate-backend/internal/auth"
	"watermate-backend/internal/geo"
	"watermate-backend/internal/model"
	"watermate-backend/internal/mw"
)

// userResponse is the public view of an account.
type userResponse struct {
	PublicID  string   `json:"public_id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Username  string   `json:"username"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		PublicID:  u.PublicID,
		Name:      u.Name,
		Email:     u.Email,
		Username:  u.Username,
		Latitude:  u.Latitude,
		Longitude: u.Longitude,
	}
}

// GetMe handles the GET /api/users/me request.
func (h *Handler) GetMe(c *gin.Context) {
	var user model.User
	if err := h.store.DB().WithContext(c.Request.Context()).First(&user, mw.UserID(c)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(&user))
}

type updateMeRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// UpdateMe handles the PATCH /api/users/me request.
func (h *Handler) UpdateMe(c *gin.Context) {
	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	if req.Name != nil && *req.Name != "" {
		updates["name"] = *req.Name
	}
	if req.Email != nil && *req.Email != "" {
		updates["email"] = *req.Email
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	var user model.User
	db := h.store.DB().WithContext(c.Request.Context())
	if err := db.First(&user, mw.UserID(c)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(&user))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword handles the PATCH /api/users/me/password request.
func (h *Handler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := h.store.DB().WithContext(c.Request.Context())
	var user model.User
	if err := db.First(&user, mw.UserID(c)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		c.JSON(http.StatusForbidden, gin.H{"error": "current password is incorrect"})
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update password"})
		return
	}
	if err := db.Model(&user).Update("password_hash", hash).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update password"})
		return
	}
	c.Status(http.StatusNoContent)
}

type setLocationRequest struct {
	City    string `json:"city" binding:"required"`
	State   string `json:"state"`
	Country string `json:"country" binding:"required"`
}

// SetLocation handles the PUT /api/users/me/location request. The free-form
// place is resolved to coordinates through the geocoder; the solar interval
// policy needs them for plants under natural light.
func (h *Handler) SetLocation(c *gin.Context) {
	var req setLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parts := []string{req.City}
	if req.State != "" {
		parts = append(parts, req.State)
	}
	parts = append(parts, req.Country)
	query := strings.Join(parts, ", ")

	coords, err := h.geocoder.Forward(c.Request.Context(), query)
	if err != nil {
		if errors.Is(err, geo.ErrNoResults) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "location could not be resolved"})
			return
		}
		log.Printf("Geocoding %q failed: %v", query, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "geocoding service unavailable"})
		return
	}

	err = h.store.DB().WithContext(c.Request.Context()).
		Model(&model.User{ID: mw.UserID(c)}).
		Updates(map[string]any{"latitude": coords.Latitude, "longitude": coords.Longitude}).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save location"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"latitude": coords.Latitude, "longitude": coords.Longitude})
}

// DeleteMe handles the DELETE /api/users/me request. Everything the user
// owns is removed in one transaction, bottom-up so no foreign key is ever
// left dangling; uploaded images are cleaned out of storage afterwards.
func (h *Handler) DeleteMe(c *gin.Context) {
	userID := mw.UserID(c)

	err := h.store.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var plantIDs []int64
		if err := tx.Model(&model.Plant{}).Where("user_id = ?", userID).Pluck("id", &plantIDs).Error; err != nil {
			return err
		}
		if len(plantIDs) > 0 {
			if err := tx.Where("plant_id IN ?", plantIDs).Delete(&model.WaterHistoryEntry{}).Error; err != nil {
				return err
			}
			if err := tx.Where("plant_id IN ?", plantIDs).Delete(&model.WaterSchedule{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", userID).Delete(&model.Plant{}).Error; err != nil {
				return err
			}
		}

		var roomIDs []int64
		if err := tx.Model(&model.Room{}).Where("user_id = ?", userID).Pluck("id", &roomIDs).Error; err != nil {
			return err
		}
		if len(roomIDs) > 0 {
			if err := tx.Where("room_id IN ?", roomIDs).Delete(&model.LightSource{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", userID).Delete(&model.Room{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("user_id = ?", userID).Delete(&model.Collection{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.PushSubscription{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, userID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete account"})
		return
	}

	if err := h.uploads.DeleteAllForUser(c.Request.Context(), userID); err != nil {
		// The account is already gone; orphaned images are only logged.
		log.Printf("Failed to delete images for user %d: %v", userID, err)
	}

	c.Status(http.StatusNoContent)
}
