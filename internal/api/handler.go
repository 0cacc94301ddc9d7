package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"watermate-backend/internal/auth"
	"watermate-backend/internal/geo"
	"watermate-backend/internal/schedule"
	"watermate-backend/internal/store"
	"watermate-backend/internal/upload"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	engine   schedule.Engine
	tokens   *auth.TokenManager
	geocoder geo.Geocoder
	uploads  upload.Store
	webpush  *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, engine schedule.Engine, tokens *auth.TokenManager, geocoder geo.Geocoder, uploads upload.Store, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:    s,
		engine:   engine,
		tokens:   tokens,
		geocoder: geocoder,
		uploads:  uploads,
		webpush:  webpushOptions,
	}
}

// abortWithScheduleError maps engine errors onto HTTP responses. Ownership
// failures are reported as 404 so the API does not confirm that another
// user's resource exists.
func abortWithScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, schedule.ErrNotFound), errors.Is(err, schedule.ErrUnauthorized):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, schedule.ErrInvalidDate), errors.Is(err, schedule.ErrInvalidInterval):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, schedule.ErrSchedulingBlocked):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "set your location before watering plants in natural light"})
	case errors.Is(err, schedule.ErrConstraintViolation):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "conflicts with an existing record"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// pagination reads page/per_page query parameters with sane bounds.
func pagination(c *gin.Context) (page, perPage int) {
	page = intQuery(c, "page", 1)
	perPage = intQuery(c, "per_page", 20)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
