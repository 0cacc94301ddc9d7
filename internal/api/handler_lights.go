package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"watermate-backend/internal/model"
	"watermate-backend/internal/mw"
	"watermate-backend/internal/schedule"
)

type lightResponse struct {
	ID              int64               `json:"id"`
	Exposure        model.LightExposure `json:"exposure"`
	DailyTotalHours int                 `json:"daily_total_hours"`
	RoomID          int64               `json:"room_id"`
}

func toLightResponse(ls *model.LightSource) lightResponse {
	return lightResponse{
		ID:              ls.ID,
		Exposure:        ls.Exposure,
		DailyTotalHours: ls.DailyTotalHours,
		RoomID:          ls.RoomID,
	}
}

// ListExposures handles the GET /api/light-exposures request. The set is
// fixed, so the response is safe to cache aggressively.
func ListExposures(c *gin.Context) {
	c.JSON(http.StatusOK, model.AllExposures)
}

type createLightRequest struct {
	Exposure        model.LightExposure `json:"exposure" binding:"required"`
	DailyTotalHours int                 `json:"daily_total_hours"`
}

// CreateLight handles the POST /api/rooms/:room_id/lights request.
func (h *Handler) CreateLight(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room ID"})
		return
	}

	var req createLightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Exposure.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown light exposure"})
		return
	}

	db := h.store.DB().WithContext(c.Request.Context())
	if _, ok := h.ownedRoom(c, db, roomID); !ok {
		return
	}

	hours := req.DailyTotalHours
	if hours <= 0 {
		hours = model.DefaultDailyLightHours
	}

	light := model.LightSource{Exposure: req.Exposure, DailyTotalHours: hours, RoomID: roomID}
	if err := db.Create(&light).Error; err != nil {
		if errors.Is(schedule.MapDBError(err), schedule.ErrConstraintViolation) {
			c.JSON(http.StatusConflict, gin.H{"error": "this room already has a light source with this exposure"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create light source"})
		return
	}
	c.JSON(http.StatusCreated, toLightResponse(&light))
}

// DeleteLight handles the DELETE /api/lights/:light_id request. A light
// source that still illuminates plants cannot be removed.
func (h *Handler) DeleteLight(c *gin.Context) {
	lightID, err := strconv.ParseInt(c.Param("light_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid light source ID"})
		return
	}

	db := h.store.DB().WithContext(c.Request.Context())
	light, ok := h.ownedLight(c, db, lightID)
	if !ok {
		return
	}

	var plantCount int64
	if err := db.Model(&model.Plant{}).Where("light_id = ?", lightID).Count(&plantCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete light source"})
		return
	}
	if plantCount > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "light source is still used by plants"})
		return
	}

	if err := db.Delete(light).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete light source"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ownedLight loads a light source and verifies the caller owns its room.
func (h *Handler) ownedLight(c *gin.Context, db *gorm.DB, lightID int64) (*model.LightSource, bool) {
	var light model.LightSource
	err := db.First(&light, lightID).Error
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "light source not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load light source"})
		return nil, false
	}

	var room model.Room
	if err := db.First(&room, light.RoomID).Error; err != nil || room.UserID != mw.UserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "light source not found"})
		return nil, false
	}
	return &light, true
}
