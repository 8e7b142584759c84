package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the booking endpoints. Slot availability is
// public so the booking page can render before sign-in; everything that
// touches a concrete booking requires authentication.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	services := g.Group("/services")
	{
		services.GET("/:id/booked-slots", h.BookedSlots)
		services.GET("/:id/availability/stream", h.StreamAvailability)
	}

	bookings := g.Group("/bookings", authMiddleware)
	{
		bookings.POST("", h.Create)
		bookings.GET("", h.List)
		bookings.GET("/:id", h.Get)
		bookings.PATCH("/:id", h.UpdateStatus)
	}
}
