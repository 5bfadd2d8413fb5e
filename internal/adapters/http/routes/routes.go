package routes

import (
	"clinicpay/internal/adapters/http/handlers"
	"clinicpay/internal/adapters/http/middleware"
	"clinicpay/internal/adapters/lender"
	"clinicpay/internal/adapters/persistence/repositories"
	"clinicpay/internal/config"
	"clinicpay/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application. It returns the
// financing service so the caller can hand it to the background sweep.
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config, cache repositories.CacheRepository) (*services.FinancingService, repositories.FinancingRepository) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	clinicRepo := repositories.NewClinicRepository(db)
	tierRepo := repositories.NewPlanTierRepository(db)
	appointmentRepo := repositories.NewAppointmentRepository(db)
	financingRepo := repositories.NewFinancingRepository(db)
	eventRepo := repositories.NewFinancingEventRepository(db)

	// External credit provider client
	lenderClient := lender.NewClient(cfg.Lender.BaseURL, cfg.Lender.APIKey, cfg.Lender.Timeout)

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg)
	notifyService := services.NewNotificationService()
	pricingService := services.NewPricingService(tierRepo, cache)
	appointmentService := services.NewAppointmentService(appointmentRepo, clinicRepo)

	policy := services.DefaultFinancingPolicy()
	policy.MaxAmountFactor = cfg.Financing.MaxAmountFactor
	policy.MaxAttempts = cfg.Lender.MaxAttempts
	policy.RetryBackoff = cfg.Lender.RetryBackoff

	financingService := services.NewFinancingService(
		financingRepo,
		eventRepo,
		appointmentRepo,
		tierRepo,
		lenderClient,
		notifyService,
		policy,
	)

	patientGateway := services.NewPatientGateway(financingService)
	clinicGateway := services.NewClinicGateway(financingService)
	adminGateway := services.NewAdminGateway(financingService)

	dashboardService := services.NewDashboardService(db)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	pricingHandler := handlers.NewPricingHandler(pricingService)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService)
	financingHandler := handlers.NewFinancingHandler(patientGateway, clinicGateway, adminGateway, financingService, cfg)
	masterHandler := handlers.NewMasterHandler(clinicRepo, tierRepo)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	setupAPIV1Routes(apiV1, healthHandler, authHandler, pricingHandler,
		appointmentHandler, financingHandler, masterHandler, dashboardHandler, cfg)

	return financingService, financingRepo
}

// setupAPIV1Routes configures API v1 routes
func setupAPIV1Routes(
	router fiber.Router,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	pricingHandler *handlers.PricingHandler,
	appointmentHandler *handlers.AppointmentHandler,
	financingHandler *handlers.FinancingHandler,
	masterHandler *handlers.MasterHandler,
	dashboardHandler *handlers.DashboardHandler,
	cfg *config.Config,
) {
	// API Info
	router.Get("/", healthHandler.APIInfo)

	// Auth routes (public, rate limited)
	authRoutes := router.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// Pricing routes (public - patients browse plans before logging in)
	router.Get("/pricing/plans", pricingHandler.Quote)
	router.Get("/pricing/tiers", masterHandler.ListTiers)
	router.Get("/clinics", masterHandler.ListClinics)

	// Appointment routes (authenticated)
	apptRoutes := router.Group("/appointments")
	apptRoutes.Use(middleware.AuthMiddleware(cfg))
	setupAppointmentRoutes(apptRoutes, appointmentHandler)

	// Financing routes
	financingRoutes := router.Group("/financing")
	setupFinancingRoutes(financingRoutes, financingHandler, cfg)

	// Admin routes (Admin only)
	adminRoutes := router.Group("/admin")
	adminRoutes.Use(middleware.AuthMiddleware(cfg))
	adminRoutes.Use(middleware.AdminOnly())
	adminRoutes.Get("/dashboard", dashboardHandler.GetStats)
	adminRoutes.Post("/clinics", masterHandler.CreateClinic)
	adminRoutes.Post("/tiers", masterHandler.UpsertTier)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes (stricter rate limit against credential stuffing)
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
}

// setupAppointmentRoutes configures appointment routes
func setupAppointmentRoutes(router fiber.Router, handler *handlers.AppointmentHandler) {
	router.Post("/", middleware.PatientOnly(), handler.Book)
	router.Get("/my", middleware.PatientOnly(), handler.ListMine)
	router.Get("/clinic", middleware.ClinicOnly(), handler.ClinicList)
	router.Get("/:id", handler.GetByID)
	router.Post("/:id/confirm", middleware.ClinicOnly(), handler.Confirm)
	router.Post("/:id/cancel", handler.Cancel)
}

// setupFinancingRoutes configures financing endpoints per role
func setupFinancingRoutes(router fiber.Router, handler *handlers.FinancingHandler, cfg *config.Config) {
	// Lender webhook - authenticated by shared token, not a user session
	router.Post("/lender/callback", handler.LenderCallback)

	// Everything else needs a session
	router.Use(middleware.AuthMiddleware(cfg))

	// Patient
	router.Post("/requests", middleware.PatientOnly(), handler.Submit)
	router.Get("/requests/my", middleware.PatientOnly(), handler.ListMine)
	router.Get("/requests/:id", handler.GetByID)
	router.Get("/requests/:id/history", handler.History)

	// Clinic
	router.Get("/clinic/requests", middleware.ClinicOnly(), handler.ClinicList)
	router.Post("/clinic/requests/:id/approve", middleware.ClinicOnly(), handler.Approve)
	router.Post("/clinic/requests/:id/reject", middleware.ClinicOnly(), handler.Reject)

	// Admin
	router.Get("/admin/requests", middleware.AdminOnly(), handler.AdminList)
	router.Post("/admin/requests/:id/forward", middleware.AdminOnly(), handler.Forward)
	router.Post("/admin/requests/:id/retry", middleware.AdminOnly(), handler.Retry)
}
