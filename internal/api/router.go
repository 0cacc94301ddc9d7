package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"watermate-backend/config"
	"watermate-backend/internal/auth"
	"watermate-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.ServerConfig, handler *Handler, tokens *auth.TokenManager) *gin.Engine {
	r := gin.Default()

	db := handler.store.DB()

	// Initialize middleware
	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	requireAuth := mw.RequireAuth(db, tokens)

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/auth/signup", handler.Signup)
		api.POST("/auth/login", handler.Login)
		api.POST("/auth/refresh", handler.Refresh)

		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
		api.GET("/light-exposures", caching, ListExposures)

		authed := api.Group("")
		authed.Use(requireAuth)
		{
			authed.GET("/users/me", handler.GetMe)
			authed.PATCH("/users/me", handler.UpdateMe)
			authed.PATCH("/users/me/password", handler.ChangePassword)
			authed.PUT("/users/me/location", handler.SetLocation)
			authed.DELETE("/users/me", handler.DeleteMe)

			authed.GET("/collections", handler.ListCollections)
			authed.POST("/collections", handler.CreateCollection)
			authed.PATCH("/collections/:collection_id", handler.RenameCollection)
			authed.DELETE("/collections/:collection_id", handler.DeleteCollection)

			authed.GET("/collections/:collection_id/rooms", handler.ListRooms)
			authed.POST("/collections/:collection_id/rooms", handler.CreateRoom)
			authed.PATCH("/rooms/:room_id", handler.RenameRoom)
			authed.DELETE("/rooms/:room_id", handler.DeleteRoom)

			authed.POST("/rooms/:room_id/lights", handler.CreateLight)
			authed.DELETE("/lights/:light_id", handler.DeleteLight)

			// The species catalog is seeded reference data; cache it.
			authed.GET("/plant-types", caching, handler.ListPlantTypes)

			authed.GET("/plants", handler.ListPlants)
			authed.POST("/plants", handler.CreatePlant)
			authed.GET("/plants/due", handler.ListDuePlants)
			authed.GET("/plants/:plant_id", handler.GetPlant)
			authed.PATCH("/plants/:plant_id", handler.UpdatePlant)
			authed.DELETE("/plants/:plant_id", handler.DeletePlant)
			authed.POST("/plants/:plant_id/image", handler.UploadPlantImage)
			authed.GET("/plants/:plant_id/history", handler.GetPlantHistory)

			authed.POST("/schedules/:schedule_id/water", handler.WaterPlant)
			authed.POST("/schedules/:schedule_id/snooze", handler.SnoozePlant)
			authed.PATCH("/schedules/:schedule_id/mode", handler.SetScheduleMode)

			authed.GET("/subscriptions", handler.ListSubscriptions)
			authed.PUT("/subscriptions", handler.PutSubscription)
			authed.DELETE("/subscriptions", handler.DeleteSubscription)
		}
	}

	return r
}
