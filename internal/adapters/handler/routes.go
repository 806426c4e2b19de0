package handler

import (
	"time"

	"github.com/gin-gonic/gin"
)

func InitRoutes(h *Image, timeout time.Duration) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestIDs(), Logger(), Timeout(timeout))

	router.GET("/health", h.Health)

	router.GET("/ogio/:id", h.Render)
	router.GET("/", h.Render)
	router.GET("/generate-og-image.php", h.Render)

	api := router.Group("/api")
	{
		api.GET("/og-image-url/:id", h.ImageURL)
		api.GET("/errors", h.RequireToken(), h.Errors)
	}

	return router
}
