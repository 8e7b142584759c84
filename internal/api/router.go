package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/localserve/marketplace-backend/internal/auth"
	"github.com/localserve/marketplace-backend/internal/booking"
	bookingHttp "github.com/localserve/marketplace-backend/internal/booking/http"
	"github.com/localserve/marketplace-backend/internal/catalog"
	catalogHttp "github.com/localserve/marketplace-backend/internal/catalog/http"
	"github.com/localserve/marketplace-backend/internal/events"
	"github.com/localserve/marketplace-backend/internal/user"
	userHttp "github.com/localserve/marketplace-backend/internal/user/http"
)

// Config holds everything the router needs to assemble the HTTP surface.
type Config struct {
	IsProduction bool
	ProdOrigins  string

	UserService    user.Service
	CatalogService catalog.Catalog
	BookingService booking.Service
	Broker         *events.Broker
	JWTManager     *auth.JWTManager
	Logger         zerolog.Logger
}

// NewRouter initializes the HTTP router engine.
// It assembles global middleware (CORS, logging, recovery) and registers the
// routes of every module under /v1.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction {
		corsConfig.AllowOrigins = splitOrigins(cfg.ProdOrigins)
	} else {
		corsConfig.AllowOrigins = []string{
			"http://localhost:5173", // Vite dev server
			"http://localhost:8081",
		}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	userHandler := userHttp.NewUserHandler(cfg.UserService, cfg.JWTManager)
	catalogHandler := catalogHttp.NewHandler(cfg.CatalogService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService, cfg.Broker, cfg.Logger)

	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware)
		catalogHttp.RegisterRoutes(v1, catalogHandler, authMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware)
	}

	return r
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
