package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-admin-api/internal/middleware"
)

// Router groups the handlers and guards mounted under the API prefix.
type Router struct {
	Records  *RecordHandler
	Bulk     *BulkHandler
	Entities *EntityHandler
	Metrics  *MetricsHandler
	Auth     middleware.TokenValidator
	Limiter  middleware.RateLimiter
}

// Register mounts probes at the root and the data API under prefix.
func (r Router) Register(engine *gin.Engine, prefix string) {
	engine.GET("/health", r.Metrics.Health)
	engine.GET("/ready", r.Metrics.Ready)
	engine.GET("/metrics", r.Metrics.Prometheus)

	api := engine.Group(prefix)
	api.Use(middleware.JWT(r.Auth))
	if r.Limiter != nil {
		api.Use(middleware.RateLimit(r.Limiter))
	}

	read := middleware.RequireRoles(middleware.ReadRoles...)
	write := middleware.RequireRoles(middleware.WriteRoles...)

	api.GET("/entities", read, r.Entities.List)
	api.POST("/bulk-update", write, r.Bulk.Update)
	api.GET("/:entity", read, r.Records.List)
	api.GET("/:entity/:id", read, r.Records.Get)
	api.PUT("/:entity/:id", write, r.Records.Update)
	api.DELETE("/:entity/:id", write, r.Records.Delete)
}
