package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authflow/internal/handlers"
	"github.com/charlesng35/authflow/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, manager *monitoring.HealthManager) {
	registerHealthEndpoints(r, manager)
	registerHealthEndpoints(r.Group("/api"), manager)
}

func registerHealthEndpoints(router gin.IRouter, manager *monitoring.HealthManager) {
	ready := handlers.Health(manager)
	router.GET("/health", ready)
	router.GET("/health/ready", ready)
	router.GET("/health/live", handlers.Live)
}
