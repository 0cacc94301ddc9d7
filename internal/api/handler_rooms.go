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

type roomResponse struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	CollectionID int64           `json:"collection_id"`
	LightSources []lightResponse `json:"light_sources,omitempty"`
}

func toRoomResponse(r *model.Room) roomResponse {
	resp := roomResponse{ID: r.ID, Name: r.Name, CollectionID: r.CollectionID}
	for _, ls := range r.LightSources {
		resp.LightSources = append(resp.LightSources, toLightResponse(&ls))
	}
	return resp
}

// ListRooms handles the GET /api/collections/:collection_id/rooms request.
func (h *Handler) ListRooms(c *gin.Context) {
	collectionID, err := strconv.ParseInt(c.Param("collection_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid collection ID"})
		return
	}

	db := h.store.DB().WithContext(c.Request.Context())
	if _, ok := h.ownedCollection(c, db, collectionID); !ok {
		return
	}

	var rooms []model.Room
	if err := db.Preload("LightSources").
		Where("collection_id = ?", collectionID).
		Order("name").Find(&rooms).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve rooms"})
		return
	}

	responses := make([]roomResponse, 0, len(rooms))
	for i := range rooms {
		responses = append(responses, toRoomResponse(&rooms[i]))
	}
	c.JSON(http.StatusOK, responses)
}

type roomRequest struct {
	Name string `json:"name" binding:"required,max=128"`
}

// CreateRoom handles the POST /api/collections/:collection_id/rooms request.
func (h *Handler) CreateRoom(c *gin.Context) {
	collectionID, err := strconv.ParseInt(c.Param("collection_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid collection ID"})
		return
	}

	var req roomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := h.store.DB().WithContext(c.Request.Context())
	if _, ok := h.ownedCollection(c, db, collectionID); !ok {
		return
	}

	room := model.Room{Name: req.Name, CollectionID: collectionID, UserID: mw.UserID(c)}
	if err := db.Create(&room).Error; err != nil {
		if errors.Is(schedule.MapDBError(err), schedule.ErrConstraintViolation) {
			c.JSON(http.StatusConflict, gin.H{"error": "a room with this name already exists in this collection"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}
	c.JSON(http.StatusCreated, toRoomResponse(&room))
}

// RenameRoom handles the PATCH /api/rooms/:room_id request.
func (h *Handler) RenameRoom(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room ID"})
		return
	}

	var req roomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := h.store.DB().WithContext(c.Request.Context())
	room, ok := h.ownedRoom(c, db, roomID)
	if !ok {
		return
	}

	if err := db.Model(room).Update("name", req.Name).Error; err != nil {
		if errors.Is(schedule.MapDBError(err), schedule.ErrConstraintViolation) {
			c.JSON(http.StatusConflict, gin.H{"error": "a room with this name already exists in this collection"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rename room"})
		return
	}
	c.JSON(http.StatusOK, roomResponse{ID: room.ID, Name: req.Name, CollectionID: room.CollectionID})
}

// DeleteRoom handles the DELETE /api/rooms/:room_id request. A room that
// still hosts plants cannot be deleted.
func (h *Handler) DeleteRoom(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room ID"})
		return
	}

	db := h.store.DB().WithContext(c.Request.Context())
	room, ok := h.ownedRoom(c, db, roomID)
	if !ok {
		return
	}

	var plantCount int64
	if err := db.Model(&model.Plant{}).Where("room_id = ?", roomID).Count(&plantCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete room"})
		return
	}
	if plantCount > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "room still contains plants"})
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&model.LightSource{}).Error; err != nil {
			return err
		}
		return tx.Delete(room).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete room"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ownedRoom loads a room and verifies the caller owns it.
func (h *Handler) ownedRoom(c *gin.Context, db *gorm.DB, roomID int64) (*model.Room, bool) {
	var room model.Room
	err := db.First(&room, roomID).Error
	if err == gorm.ErrRecordNotFound || (err == nil && room.UserID != mw.UserID(c)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return nil, false
	}
	return &room, true
}
