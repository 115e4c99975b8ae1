package router

import (
	"github.com/gin-gonic/gin"

	"github.com/coopvalles/asamblea-api/internal/handler"
	"github.com/coopvalles/asamblea-api/internal/middleware"
	"github.com/coopvalles/asamblea-api/internal/models"
	"github.com/coopvalles/asamblea-api/internal/service"
)

// Deps bundles everything route registration needs.
type Deps struct {
	Verifier  middleware.TokenValidator
	Metrics   *service.MetricsService
	Avisos    *handler.AvisoHandler
	Feed      *handler.FeedHandler
	Delivery  *handler.DeliveryHandler
	APIPrefix string
	// MediaDir, when set, is served under /media for the local storage backend.
	MediaDir string
}

// Register wires the announcement engine's routes onto the engine.
func Register(r *gin.Engine, deps Deps) {
	if deps.MediaDir != "" {
		r.Static("/media", deps.MediaDir)
	}
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	prefix := deps.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}

	avisos := r.Group(prefix + "/avisos")
	avisos.Use(middleware.JWT(deps.Verifier))
	{
		// Sender side: restricted to console administrators.
		admin := avisos.Group("")
		admin.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleSupervisor))
		{
			admin.POST("", deps.Avisos.Create)
			admin.POST("/upload-imagen", deps.Avisos.UploadImage)
			admin.GET("", deps.Avisos.ListSent)
			admin.GET("/:id/entregas", deps.Avisos.DeliveryRoll)
		}

		// Recipient side: any authenticated staff member, always scoped to
		// their own delivery rows.
		avisos.GET("/mis-avisos", deps.Feed.MisAvisos)
		avisos.GET("/unread-count", deps.Feed.UnreadCount)
		avisos.PUT("/:id/leido", deps.Delivery.Leido)
		avisos.PUT("/:id/confirmar", deps.Delivery.Confirmar)
		avisos.PUT("/:id/responder", deps.Delivery.Responder)
	}
}
