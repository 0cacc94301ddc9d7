package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"watermate-backend/internal/model"
	"watermate-backend/internal/mw"
)

func scheduleIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("schedule_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule ID"})
		return 0, false
	}
	return id, true
}

func toScheduleResponse(s *model.WaterSchedule, now time.Time) scheduleResponse {
	return scheduleResponse{
		ID:                 s.ID,
		LastWateredAt:      s.LastWateredAt,
		NextDueAt:          s.NextDueAt,
		IntervalDays:       s.IntervalDays,
		ManualMode:         s.ManualMode,
		ManualIntervalDays: s.ManualIntervalDays,
		IsDue:              s.IsDue(now),
	}
}

type waterRequest struct {
	Notes string `json:"notes" binding:"max=200"`
}

// WaterPlant handles the POST /api/schedules/:schedule_id/water request.
func (h *Handler) WaterPlant(c *gin.Context) {
	scheduleID, ok := scheduleIDParam(c)
	if !ok {
		return
	}

	var req waterRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	sched, err := h.engine.Water(c.Request.Context(), mw.UserID(c), scheduleID, req.Notes, now)
	if err != nil {
		abortWithScheduleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toScheduleResponse(sched, now))
}

type snoozeRequest struct {
	Days  int    `json:"days" binding:"min=0,max=365"`
	Notes string `json:"notes" binding:"max=200"`
}

// SnoozePlant handles the POST /api/schedules/:schedule_id/snooze request.
// A zero or missing day count falls back to the configured default.
func (h *Handler) SnoozePlant(c *gin.Context) {
	scheduleID, ok := scheduleIDParam(c)
	if !ok {
		return
	}

	var req snoozeRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	sched, err := h.engine.Snooze(c.Request.Context(), mw.UserID(c), scheduleID, req.Days, req.Notes, now)
	if err != nil {
		abortWithScheduleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toScheduleResponse(sched, now))
}

type setModeRequest struct {
	ManualMode         *bool `json:"manual_mode" binding:"required"`
	ManualIntervalDays int   `json:"manual_interval_days"`
}

// SetScheduleMode handles the PATCH /api/schedules/:schedule_id/mode
// request, toggling between automatic and manual watering cadence.
func (h *Handler) SetScheduleMode(c *gin.Context) {
	scheduleID, ok := scheduleIDParam(c)
	if !ok {
		return
	}

	var req setModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	sched, err := h.engine.SetMode(c.Request.Context(), mw.UserID(c), scheduleID, *req.ManualMode, req.ManualIntervalDays, now)
	if err != nil {
		abortWithScheduleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toScheduleResponse(sched, now))
}
