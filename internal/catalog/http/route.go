package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers catalog routes. The read surface is public; only
// the provider image upload requires authentication.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	g.GET("/categories", h.ListCategories)

	services := g.Group("/services")
	{
		services.GET("", h.ListServices)
		services.GET("/:id", h.GetService)
	}

	providers := g.Group("/providers")
	{
		providers.GET("/:id", h.GetProvider)
		providers.PUT("/:id/image", authMiddleware, h.UpdateProviderImage)
	}
}
