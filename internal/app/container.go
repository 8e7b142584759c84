package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/localserve/marketplace-backend/internal/api"
	"github.com/localserve/marketplace-backend/internal/auth"
	"github.com/localserve/marketplace-backend/internal/booking"
	"github.com/localserve/marketplace-backend/internal/catalog"
	"github.com/localserve/marketplace-backend/internal/events"
	"github.com/localserve/marketplace-backend/internal/pkg/storage"
	"github.com/localserve/marketplace-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration
	BcryptCost   int
	Storage      storage.Storage
	Logger       zerolog.Logger
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	Broker     *events.Broker
	JWTManager *auth.JWTManager
}

// NewContainer initializes all modules and returns the container.
// The caller is responsible for running Container.Broker before serving.
func NewContainer(cfg Config) *Container {
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	brokerLogger := cfg.Logger.With().Str("component", "events").Logger()
	broker := events.NewBroker(&brokerLogger)

	// User module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo, passwordHasher)

	// Catalog module
	catalogRepo := catalog.NewPgxRepository(cfg.DBPool)
	catalogService := catalog.NewService(catalogRepo, cfg.Storage)

	// Booking module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	bookingService := booking.NewService(
		bookingRepo,
		catalogService,
		broker,
		cfg.Logger.With().Str("component", "booking").Logger(),
	)

	router := api.NewRouter(api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		UserService:    userService,
		CatalogService: catalogService,
		BookingService: bookingService,
		Broker:         broker,
		JWTManager:     jwtManager,
		Logger:         cfg.Logger.With().Str("component", "api").Logger(),
	})

	return &Container{
		Router:     router,
		Broker:     broker,
		JWTManager: jwtManager,
	}
}
