package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"storerate/internal/config"
	"storerate/internal/database"
	"storerate/internal/handlers"
	"storerate/internal/middleware"
	"storerate/internal/repositories"
	"storerate/internal/services"
	"storerate/internal/storage"
)

// Options holds the dependencies of the HTTP app. Events, Cache and Images
// are optional.
type Options struct {
	Config *config.Config
	DB     *gorm.DB
	Log    logrus.FieldLogger
	Events services.EventPublisher
	Cache  services.StoreCache
	Images *storage.ImageStore

	// Now is the clock used for token timestamps. Defaults to time.Now.
	Now func() time.Time
	// AccessLog enables fiber's request logger.
	AccessLog bool
}

// New builds the fiber app with every route registered.
func New(opts Options) *fiber.App {
	cfg := opts.Config
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	app := fiber.New(fiber.Config{
		AppName:               "storerate",
		ErrorHandler:          handlers.ErrorHandler(log),
		BodyLimit:             int(cfg.MaxUploadBytes) + 1<<20,
		DisableStartupMessage: true,
	})

	metrics := middleware.NewMetrics()
	app.Use(recover.New())
	if opts.AccessLog {
		app.Use(fiberlogger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(metrics.Instrument())

	userRepo := repositories.NewGORMUserRepository(opts.DB)
	storeRepo := repositories.NewGORMStoreRepository(opts.DB)
	reviewRepo := repositories.NewGORMReviewRepository(opts.DB)

	deps := services.Deps{Events: opts.Events, Cache: opts.Cache, Log: log}
	if opts.Images != nil {
		deps.Images = opts.Images
	}
	tokens := services.NewTokenService(cfg.JWTSecret, opts.Now)
	authService := services.NewAuthService(userRepo, reviewRepo, tokens, cfg.BcryptCost, deps)
	storeService := services.NewStoreService(storeRepo, reviewRepo, deps)
	reviewService := services.NewReviewService(reviewRepo, storeRepo, deps)

	var images handlers.ImageSaver
	if opts.Images != nil {
		images = opts.Images
		app.Static(strings.TrimSuffix(storage.URLPrefix, "/"), opts.Images.Dir())
	}

	authRequired := middleware.AuthRequired(authService)
	api := app.Group("/api")
	handlers.NewAuthHandler(authService, log).RegisterRoutes(api, authRequired)
	handlers.NewStoreHandler(storeService, images, log).RegisterRoutes(api, authRequired)
	handlers.NewReviewHandler(reviewService, log).RegisterRoutes(api, authRequired)

	app.Get("/health", func(c *fiber.Ctx) error {
		status, code := "healthy", fiber.StatusOK
		dbStatus := "up"
		if err := database.Ping(c.UserContext(), opts.DB); err != nil {
			log.WithError(err).Warn("health check: database unreachable")
			status, code, dbStatus = "unhealthy", fiber.StatusServiceUnavailable, "down"
		}
		return c.Status(code).JSON(fiber.Map{
			"status":   status,
			"database": dbStatus,
			"time":     time.Now().UTC().Format(time.RFC3339),
		})
	})
	app.Get("/metrics", metrics.Handler())

	return app
}
