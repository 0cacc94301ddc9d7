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

type collectionResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Rooms int64  `json:"rooms"`
}

// ListCollections handles the GET /api/collections request.
func (h *Handler) ListCollections(c *gin.Context) {
	db := h.store.DB().WithContext(c.Request.Context())

	var collections []model.Collection
	if err := db.Where("user_id = ?", mw.UserID(c)).Order("name").Find(&collections).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve collections"})
		return
	}

	// One aggregate query for the room counts instead of one per collection.
	type aggRow struct {
		CollectionID int64
		Rooms        int64
	}
	var aggs []aggRow
	if err := db.Model(&model.Room{}).
		Select("collection_id as collection_id, COUNT(*) as rooms").
		Where("user_id = ?", mw.UserID(c)).
		Group("collection_id").
		Scan(&aggs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate rooms"})
		return
	}
	aggMap := make(map[int64]int64, len(aggs))
	for _, a := range aggs {
		aggMap[a.CollectionID] = a.Rooms
	}

	responses := make([]collectionResponse, 0, len(collections))
	for _, col := range collections {
		responses = append(responses, collectionResponse{ID: col.ID, Name: col.Name, Rooms: aggMap[col.ID]})
	}
	c.JSON(http.StatusOK, responses)
}

type collectionRequest struct {
	Name string `json:"name" binding:"required,max=128"`
}

// CreateCollection handles the POST /api/collections request.
func (h *Handler) CreateCollection(c *gin.Context) {
	var req collectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	collection := model.Collection{Name: req.Name, UserID: mw.UserID(c)}
	if err := h.store.DB().WithContext(c.Request.Context()).Create(&collection).Error; err != nil {
		if errors.Is(schedule.MapDBError(err), schedule.ErrConstraintViolation) {
			c.JSON(http.StatusConflict, gin.H{"error": "a collection with this name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create collection"})
		return
	}
	c.JSON(http.StatusCreated, collectionResponse{ID: collection.ID, Name: collection.Name})
}

// RenameCollection handles the PATCH /api/collections/:collection_id request.
func (h *Handler) RenameCollection(c *gin.Context) {
	collectionID, err := strconv.ParseInt(c.Param("collection_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid collection ID"})
		return
	}

	var req collectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := h.store.DB().WithContext(c.Request.Context())
	collection, ok := h.ownedCollection(c, db, collectionID)
	if !ok {
		return
	}

	if err := db.Model(collection).Update("name", req.Name).Error; err != nil {
		if errors.Is(schedule.MapDBError(err), schedule.ErrConstraintViolation) {
			c.JSON(http.StatusConflict, gin.H{"error": "a collection with this name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rename collection"})
		return
	}
	c.JSON(http.StatusOK, collectionResponse{ID: collection.ID, Name: req.Name})
}

// DeleteCollection handles the DELETE /api/collections/:collection_id
// request. Deleting a collection is refused while it still has rooms; the
// contents must be removed or moved first.
func (h *Handler) DeleteCollection(c *gin.Context) {
	collectionID, err := strconv.ParseInt(c.Param("collection_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid collection ID"})
		return
	}

	db := h.store.DB().WithContext(c.Request.Context())
	collection, ok := h.ownedCollection(c, db, collectionID)
	if !ok {
		return
	}

	var roomCount int64
	if err := db.Model(&model.Room{}).Where("collection_id = ?", collectionID).Count(&roomCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete collection"})
		return
	}
	if roomCount > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "collection still contains rooms"})
		return
	}

	if err := db.Delete(collection).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete collection"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ownedCollection loads a collection and verifies the caller owns it.
// Missing and foreign collections are both reported as 404.
func (h *Handler) ownedCollection(c *gin.Context, db *gorm.DB, collectionID int64) (*model.Collection, bool) {
	var collection model.Collection
	err := db.First(&collection, collectionID).Error
	if err == gorm.ErrRecordNotFound || (err == nil && collection.UserID != mw.UserID(c)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load collection"})
		return nil, false
	}
	return &collection, true
}
