package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"watermate-backend/internal/model"
	"watermate-backend/internal/mw"
	"watermate-backend/internal/schedule"
)

// maxImageBytes caps uploaded plant photos at 5 MiB.
const maxImageBytes = 5 << 20

type scheduleResponse struct {
	ID                 int64     `json:"id"`
	LastWateredAt      time.Time `json:"last_watered_at"`
	NextDueAt          time.Time `json:"next_due_at"`
	IntervalDays       int       `json:"interval_days"`
	ManualMode         bool      `json:"manual_mode"`
	ManualIntervalDays int       `json:"manual_interval_days"`
	IsDue              bool      `json:"is_due"`
}

type plantResponse struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	ImageURL string            `json:"image_url"`
	TypeID   int64             `json:"type_id"`
	TypeName string            `json:"type_name,omitempty"`
	RoomID   int64             `json:"room_id"`
	LightID  int64             `json:"light_id"`
	Schedule *scheduleResponse `json:"schedule,omitempty"`
}

func toPlantResponse(p *model.Plant, now time.Time) plantResponse {
	resp := plantResponse{
		ID:       p.ID,
		Name:     p.Name,
		ImageURL: p.ImageURL,
		TypeID:   p.TypeID,
		TypeName: p.Type.Name,
		RoomID:   p.RoomID,
		LightID:  p.LightID,
	}
	if p.Schedule != nil {
		resp.Schedule = &scheduleResponse{
			ID:                 p.Schedule.ID,
			LastWateredAt:      p.Schedule.LastWateredAt,
			NextDueAt:          p.Schedule.NextDueAt,
			IntervalDays:       p.Schedule.IntervalDays,
			ManualMode:         p.Schedule.ManualMode,
			ManualIntervalDays: p.Schedule.ManualIntervalDays,
			IsDue:              p.Schedule.IsDue(now),
		}
	}
	return resp
}

// ListPlantTypes handles the GET /api/plant-types request. The catalog is
// seeded reference data, so this sits behind the response cache.
func (h *Handler) ListPlantTypes(c *gin.Context) {
	var types []model.PlantType
	if err := h.store.DB().WithContext(c.Request.Context()).Order("name").Find(&types).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve plant types"})
		return
	}
	c.JSON(http.StatusOK, types)
}

// ListPlants handles the GET /api/plants request with optional room_id
// filtering and page/per_page pagination.
func (h *Handler) ListPlants(c *gin.Context) {
	page, perPage := pagination(c)
	db := h.store.DB().WithContext(c.Request.Context())

	var roomID *int64
	if roomParam := c.Query("room_id"); roomParam != "" {
		id, err := strconv.ParseInt(roomParam, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room ID"})
			return
		}
		roomID = &id
	}

	// Fresh query per finisher; gorm chains are not reusable across Count
	// and Find.
	query := func() *gorm.DB {
		q := db.Model(&model.Plant{}).Where("plants.user_id = ?", mw.UserID(c))
		if roomID != nil {
			q = q.Where("plants.room_id = ?", *roomID)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count plants"})
		return
	}

	var plants []model.Plant
	if err := query().Preload("Type").Preload("Schedule").
		Order("plants.name").
		Limit(perPage).Offset((page - 1) * perPage).
		Find(&plants).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve plants"})
		return
	}

	now := time.Now().UTC()
	responses := make([]plantResponse, 0, len(plants))
	for i := range plants {
		responses = append(responses, toPlantResponse(&plants[i], now))
	}
	c.JSON(http.StatusOK, gin.H{"plants": responses, "total": total, "page": page, "per_page": perPage})
}

type createPlantRequest struct {
	Name      string `json:"name" binding:"required,max=128"`
	TypeID    int64  `json:"type_id" binding:"required"`
	RoomID    int64  `json:"room_id" binding:"required"`
	LightID   int64  `json:"light_id" binding:"required"`
	WateredOn string `json:"watered_on"`
}

// CreatePlant handles the POST /api/plants request. The plant and its
// schedule are created in one transaction; watered_on optionally backdates
// the first watering.
func (h *Handler) CreatePlant(c *gin.Context) {
	var req createPlantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	db := h.store.DB().WithContext(ctx)
	userID := mw.UserID(c)

	var plantType model.PlantType
	if err := db.First(&plantType, req.TypeID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plant type"})
		return
	}

	if _, ok := h.ownedRoom(c, db, req.RoomID); !ok {
		return
	}
	var light model.LightSource
	if err := db.First(&light, req.LightID).Error; err != nil || light.RoomID != req.RoomID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "light source does not belong to this room"})
		return
	}

	plant := model.Plant{
		Name:     req.Name,
		ImageURL: model.DefaultPlantImage,
		UserID:   userID,
		TypeID:   req.TypeID,
		RoomID:   req.RoomID,
		LightID:  req.LightID,
	}

	now := time.Now().UTC()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&plant).Error; err != nil {
			return schedule.MapDBError(err)
		}
		sched, err := h.engine.Create(ctx, tx, &plant, plantType, req.WateredOn, now)
		if err != nil {
			return err
		}
		plant.Schedule = sched
		return nil
	})
	if err != nil {
		abortWithScheduleError(c, err)
		return
	}

	plant.Type = plantType
	c.JSON(http.StatusCreated, toPlantResponse(&plant, now))
}

// GetPlant handles the GET /api/plants/:plant_id request.
func (h *Handler) GetPlant(c *gin.Context) {
	plant, ok := h.ownedPlant(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toPlantResponse(plant, time.Now().UTC()))
}

type updatePlantRequest struct {
	Name    *string `json:"name"`
	TypeID  *int64  `json:"type_id"`
	RoomID  *int64  `json:"room_id"`
	LightID *int64  `json:"light_id"`
}

// UpdatePlant handles the PATCH /api/plants/:plant_id request. Changing the
// species re-derives the watering interval through the engine; moving rooms
// requires a light source in the destination room.
func (h *Handler) UpdatePlant(c *gin.Context) {
	var req updatePlantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plant, ok := h.ownedPlant(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	db := h.store.DB().WithContext(ctx)

	if req.Name != nil && *req.Name != "" {
		plant.Name = *req.Name
	}
	if req.RoomID != nil {
		if _, ok := h.ownedRoom(c, db, *req.RoomID); !ok {
			return
		}
		plant.RoomID = *req.RoomID
	}
	lightChanged := false
	if req.LightID != nil {
		var light model.LightSource
		if err := db.First(&light, *req.LightID).Error; err != nil || light.RoomID != plant.RoomID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "light source does not belong to the plant's room"})
			return
		}
		lightChanged = plant.LightID != *req.LightID
		plant.LightID = *req.LightID
		plant.Light = light
	} else if req.RoomID != nil {
		var light model.LightSource
		if err := db.First(&light, plant.LightID).Error; err != nil || light.RoomID != plant.RoomID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "choose a light source in the new room"})
			return
		}
	}

	// A species or light change invalidates the stored interval; the
	// engine re-derives it from the (possibly new) species baseline.
	retype := lightChanged
	newType := plant.Type
	if req.TypeID != nil && *req.TypeID != plant.TypeID {
		if err := db.First(&newType, *req.TypeID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plant type"})
			return
		}
		plant.TypeID = *req.TypeID
		retype = true
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(plant).Error; err != nil {
			return schedule.MapDBError(err)
		}
		if retype {
			return h.engine.Retype(ctx, tx, plant.ID, newType)
		}
		return nil
	})
	if err != nil {
		abortWithScheduleError(c, err)
		return
	}

	// Reload so the response reflects any schedule changes.
	var updated model.Plant
	if err := db.Preload("Type").Preload("Schedule").First(&updated, plant.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reload plant"})
		return
	}
	c.JSON(http.StatusOK, toPlantResponse(&updated, time.Now().UTC()))
}

// UploadPlantImage handles the POST /api/plants/:plant_id/image request.
// The previous custom image is removed from storage after the new one is in
// place.
func (h *Handler) UploadPlantImage(c *gin.Context) {
	plant, ok := h.ownedPlant(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	if fileHeader.Size > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds the 5 MiB limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded image"})
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	imageURL, err := h.uploads.Upload(ctx, mw.UserID(c), file, fileHeader.Filename)
	if err != nil {
		log.Printf("Image upload for plant %d failed: %v", plant.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "image storage unavailable"})
		return
	}
	if imageURL == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image uploads are disabled"})
		return
	}

	previous := plant.ImageURL
	if err := h.store.DB().WithContext(ctx).Model(plant).Update("image_url", imageURL).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save image"})
		return
	}

	if previous != model.DefaultPlantImage {
		if err := h.uploads.Delete(ctx, previous); err != nil {
			log.Printf("Failed to delete replaced image %q: %v", previous, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"image_url": imageURL})
}

// DeletePlant handles the DELETE /api/plants/:plant_id request. The
// schedule and its whole history go with the plant in one transaction.
func (h *Handler) DeletePlant(c *gin.Context) {
	plant, ok := h.ownedPlant(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	err := h.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := h.engine.Destroy(ctx, tx, plant.ID); err != nil {
			return err
		}
		return tx.Delete(&model.Plant{}, plant.ID).Error
	})
	if err != nil {
		abortWithScheduleError(c, err)
		return
	}

	if plant.ImageURL != model.DefaultPlantImage {
		if err := h.uploads.Delete(ctx, plant.ImageURL); err != nil {
			log.Printf("Failed to delete image for plant %d: %v", plant.ID, err)
		}
	}

	c.Status(http.StatusNoContent)
}

// GetPlantHistory handles the GET /api/plants/:plant_id/history request.
// Entries come back in insertion order.
func (h *Handler) GetPlantHistory(c *gin.Context) {
	plantID, err := strconv.ParseInt(c.Param("plant_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plant ID"})
		return
	}

	page, perPage := pagination(c)
	entries, total, err := h.engine.History(c.Request.Context(), mw.UserID(c), plantID, page, perPage)
	if err != nil {
		abortWithScheduleError(c, err)
		return
	}

	type entryResponse struct {
		ID         int64     `json:"id"`
		EventAt    time.Time `json:"event_at"`
		SnoozeDays int       `json:"snooze_days"`
		Notes      string    `json:"notes"`
	}
	responses := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, entryResponse{
			ID:         e.ID,
			EventAt:    e.EventAt,
			SnoozeDays: e.SnoozeDays,
			Notes:      e.Notes,
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": responses, "total": total, "page": page, "per_page": perPage})
}

// ListDuePlants handles the GET /api/plants/due request, optionally
// narrowed to a single room with room_id.
func (h *Handler) ListDuePlants(c *gin.Context) {
	page, perPage := pagination(c)

	var roomID *int64
	if roomParam := c.Query("room_id"); roomParam != "" {
		id, err := strconv.ParseInt(roomParam, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room ID"})
			return
		}
		roomID = &id
	}

	now := time.Now().UTC()
	plants, total, err := h.engine.DuePlants(c.Request.Context(), mw.UserID(c), roomID, now, page, perPage)
	if err != nil {
		abortWithScheduleError(c, err)
		return
	}

	responses := make([]plantResponse, 0, len(plants))
	for i := range plants {
		responses = append(responses, toPlantResponse(&plants[i], now))
	}
	c.JSON(http.StatusOK, gin.H{"plants": responses, "total": total, "page": page, "per_page": perPage})
}

// ownedPlant loads the :plant_id plant with its associations and verifies
// ownership. Missing and foreign plants are both 404.
func (h *Handler) ownedPlant(c *gin.Context) (*model.Plant, bool) {
	plantID, err := strconv.ParseInt(c.Param("plant_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plant ID"})
		return nil, false
	}

	var plant model.Plant
	err = h.store.DB().WithContext(c.Request.Context()).
		Preload("Type").Preload("Schedule").
		First(&plant, plantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && plant.UserID != mw.UserID(c)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "plant not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load plant"})
		return nil, false
	}
	return &plant, true
}
