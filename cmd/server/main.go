package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/voltride/ev-rental-backend/internal/config"
	"github.com/voltride/ev-rental-backend/internal/database"
	"github.com/voltride/ev-rental-backend/internal/handlers"
	"github.com/voltride/ev-rental-backend/internal/middleware"
	"github.com/voltride/ev-rental-backend/internal/services"
	"github.com/voltride/ev-rental-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting VoltRide EV Rental Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	bookingRepo := database.NewBookingRepository(db)
	vehicleRepo := database.NewVehicleRepository(db)
	stationRepo := database.NewStationRepository(db)
	renterRepo := database.NewRenterRepository(db)
	txnRepo := database.NewTransactionRepository(db)
	auditRepo := database.NewPaymentAuditRepository(db, logger)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.TokenExpiry)
	payosService := services.NewPayOSService(&cfg.Payment, logger)
	if !payosService.IsConfigured() {
		logger.Warn("PayOS credentials missing - payment links will fail until configured")
	}

	bookingService := services.NewBookingService(
		bookingRepo, vehicleRepo, stationRepo, renterRepo,
		payosService, auditRepo, cfg.Booking, logger,
	)
	depositService := services.NewDepositService(
		bookingRepo, auditRepo, payosService, cfg.Booking, logger,
	)
	reclaimService := services.NewReclaimService(bookingRepo, cfg.Booking, logger)

	// Start the background sweeps
	cronService := services.NewCronService(reclaimService, cfg.Sweeper, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(bookingService, txnRepo, logger)
	staffHandler := handlers.NewStaffHandler(depositService, auditRepo, logger)
	webhookHandler := handlers.NewWebhookHandler(depositService, logger)
	catalogHandler := handlers.NewCatalogHandler(stationRepo, vehicleRepo, cfg.Booking, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public catalog
		v1.GET("/stations", catalogHandler.ListStations)
		v1.GET("/stations/:id/vehicles", catalogHandler.ListStationVehicles)

		// Gateway callbacks (signature-verified, no JWT)
		v1.POST("/webhooks/payos", webhookHandler.PaymentWebhook)

		// Renter endpoints
		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware(jwtService))
		{
			authed.POST("/bookings", bookingHandler.CreateBooking)
			authed.GET("/bookings", bookingHandler.ListMyBookings)
			authed.GET("/bookings/:id", bookingHandler.GetBooking)
			authed.POST("/bookings/:id/cancel", bookingHandler.CancelBooking)
			authed.POST("/bookings/:id/payment-link", bookingHandler.RetryPaymentLink)
			authed.POST("/bookings/:id/rental-deposit-link", bookingHandler.RequestRentalDepositLink)
			authed.GET("/bookings/:id/transactions", bookingHandler.ListBookingTransactions)
		}

		// Staff counter endpoints
		staff := v1.Group("/staff")
		staff.Use(middleware.AuthMiddleware(jwtService), middleware.RequireStaff())
		{
			staff.POST("/bookings/:id/confirm-holding", staffHandler.ConfirmHoldingDeposit)
			staff.POST("/bookings/:id/confirm-rental", staffHandler.ConfirmRentalDeposit)
			staff.PUT("/vehicles/:id/status", catalogHandler.SetVehicleStatus)
			staff.GET("/payments/:orderCode/audit", staffHandler.ListPaymentAudit)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	logger.Info("Stopping cron service...")
	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		entry := logger.WithFields(fields)
		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
		} else if c.Writer.Status() >= 500 {
			entry.Error("Request completed")
		} else {
			entry.Info("Request completed")
		}
	}
}

// healthCheckHandler reports process and database health
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": version,
		})
	}
}
