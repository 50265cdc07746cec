package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/example/fleetledger/internal/alerts"
	"github.com/example/fleetledger/internal/config"
	"github.com/example/fleetledger/internal/handlers"
	"github.com/example/fleetledger/internal/ledger"
	"github.com/example/fleetledger/internal/metrics"
	"github.com/example/fleetledger/internal/middleware"
	"github.com/example/fleetledger/internal/services"
	"github.com/example/fleetledger/internal/signup"
	"github.com/example/fleetledger/internal/stats"
)

// Deps are the domain services the HTTP layer calls into.
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Issuer   *signup.Issuer
	Ledger   *ledger.Service
	Stats    *stats.Engine
	Alerts   *alerts.Scanner
	Notifier services.Notifier
	Blobs    services.BlobStore
}

// NewApp builds the Fiber application with middleware and routes.
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Fleet Ledger",
		ErrorHandler: handlers.ErrorHandler(deps.Logger),
		BodyLimit:    int(deps.Config.UploadMaxBytes)*services.MaxDocuments + 1<<20,
	})

	app.Use(recover.New())
	if !deps.Config.IsTest() {
		app.Use(logger.New())
	}
	app.Use(metrics.Middleware())

	Register(app, deps)
	return app
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Deps) {
	cfg := deps.Config
	uploader := handlers.NewUploader(deps.Blobs, cfg.UploadMaxBytes, deps.Logger)

	authHandler := handlers.NewAuthHandler(deps.Issuer)
	profileHandler := handlers.NewProfileHandler(deps.Issuer)
	vehicleHandler := handlers.NewVehicleHandler(deps.Ledger, uploader)
	recordHandler := handlers.NewRecordHandler(deps.Ledger, uploader, cfg.Location())
	dashboardHandler := handlers.NewDashboardHandler(deps.Stats, deps.Alerts)
	notifyHandler := handlers.NewNotifyHandler(deps.Notifier)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Get("/health", handlers.Health)

	// Auth routes
	auth := api.Group("/auth")
	if cfg.AuthRateLimit > 0 {
		auth.Use(limiter.New(limiter.Config{
			Max:        cfg.AuthRateLimit,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, try again later")
			},
		}))
	}
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/resend-otp", authHandler.ResendOTP)
	auth.Post("/verify-otp", authHandler.VerifyOTP)
	auth.Post("/login", authHandler.Login)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(deps.Issuer))

	protected.Get("/profile", profileHandler.GetProfile)

	protected.Get("/vehicles", vehicleHandler.ListVehicles)
	protected.Post("/vehicles", vehicleHandler.CreateVehicle)
	protected.Put("/vehicles/:id", vehicleHandler.UpdateVehicle)
	protected.Delete("/vehicles/:id", vehicleHandler.DeleteVehicle)

	protected.Get("/incomes", recordHandler.ListIncomes)
	protected.Post("/incomes", recordHandler.CreateIncome)
	protected.Get("/expenses", recordHandler.ListExpenses)
	protected.Post("/expenses", recordHandler.CreateExpense)

	protected.Get("/dashboard", dashboardHandler.Overview)
	protected.Get("/dashboard/stats", dashboardHandler.Stats)
	protected.Get("/dashboard/series", dashboardHandler.Series)
	protected.Get("/alerts", dashboardHandler.Alerts)

	protected.Post("/notify", notifyHandler.Send)
}
