package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"clinicpay/internal/adapters/http/middleware"
	"clinicpay/internal/adapters/http/routes"
	"clinicpay/internal/adapters/persistence/models"
	"clinicpay/internal/adapters/persistence/repositories"
	"clinicpay/internal/config"
	"clinicpay/internal/core/services"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

// @title ClinicPay API
// @version 1.0
// @description Clinic booking and consumer financing API
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@clinicpay.io

// @host api.clinicpay.io
// @BasePath /api/v1
// @schemes https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Seed master data (plan tiers, clinics, admin account)
	if err := config.SeedMasterData(db); err != nil {
		log.Printf("⚠️ Warning: Failed to seed master data: %v", err)
	}

	// Quote cache (optional - quotes fall back to computing on every call)
	var cache repositories.CacheRepository
	if cfg.Redis.Enabled {
		redisCache := repositories.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password)
		if err := redisCache.Ping(context.Background()); err != nil {
			log.Printf("⚠️ Warning: Redis unreachable, quote cache disabled: %v", err)
		} else {
			cache = redisCache
			log.Println("✅ Quote cache connected")
		}
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "ClinicPay API v1.0",
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db and cfg for dependency injection)
	financingService, financingRepo := routes.Setup(app, db, cfg, cache)

	// Background sweep resubmits stale LENDER_PENDING requests
	sweepService := services.NewSweepService(financingRepo, financingService, cfg.Lender.StaleAfter, cfg.Lender.MaxAttempts)
	if err := sweepService.Start(cfg.Lender.SweepSpec); err != nil {
		log.Fatalf("❌ Failed to start lender sweep: %v", err)
	}
	defer sweepService.Stop()

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
