package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Payment  PaymentConfig
	Booking  BookingConfig
	Sweeper  SweeperConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds token verification configuration. Tokens are issued by the
// external auth service; this backend only verifies them.
type JWTConfig struct {
	Secret      string
	TokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// PaymentConfig holds PayOS gateway configuration
type PaymentConfig struct {
	BaseURL     string // PayOS API base URL
	ClientID    string
	APIKey      string
	ChecksumKey string // SECRET - signs outbound requests and verifies webhooks
	ReturnURL   string // redirect after successful payment (app deep link)
	CancelURL   string // redirect after cancelled payment
}

// BookingConfig holds booking business-rule configuration
type BookingConfig struct {
	HoldingDeposit    int64         // VND, fixed amount confirming a reservation
	RentalDepositRate int           // percent of vehicle value
	MinDuration       time.Duration // minimum rental length
	BookingHorizon    time.Duration // start time must fall within now..now+horizon
	MinBatteryLevel   int           // percent, vehicles below are not rentable
	PaymentTimeout    time.Duration // PENDING bookings older than this are reclaimed
}

// SweeperConfig holds the cron specs for the background reclaim jobs
type SweeperConfig struct {
	PendingReclaimSpec string // cron spec with seconds, default every 5 minutes
	NoShowReclaimSpec  string // cron spec with seconds, default hourly
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", ""),
			TokenExpiry: time.Duration(getEnvAsInt("JWT_TOKEN_EXPIRY_HOURS", 24)) * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Payment: PaymentConfig{
			BaseURL:     getEnv("PAYOS_BASE_URL", "https://api-merchant.payos.vn"),
			ClientID:    getEnv("PAYOS_CLIENT_ID", ""),
			APIKey:      getEnv("PAYOS_API_KEY", ""),
			ChecksumKey: getEnv("PAYOS_CHECKSUM_KEY", ""),
			ReturnURL:   getEnv("PAYOS_RETURN_URL", ""),
			CancelURL:   getEnv("PAYOS_CANCEL_URL", ""),
		},
		Booking: BookingConfig{
			HoldingDeposit:    getEnvAsInt64("BOOKING_HOLDING_DEPOSIT", 50000),
			RentalDepositRate: getEnvAsInt("BOOKING_RENTAL_DEPOSIT_RATE", 30),
			MinDuration:       time.Duration(getEnvAsInt("BOOKING_MIN_DURATION_MINUTES", 60)) * time.Minute,
			BookingHorizon:    time.Duration(getEnvAsInt("BOOKING_HORIZON_HOURS", 48)) * time.Hour,
			MinBatteryLevel:   getEnvAsInt("BOOKING_MIN_BATTERY_LEVEL", 85),
			PaymentTimeout:    time.Duration(getEnvAsInt("BOOKING_PAYMENT_TIMEOUT_MINUTES", 30)) * time.Minute,
		},
		Sweeper: SweeperConfig{
			PendingReclaimSpec: getEnv("SWEEPER_PENDING_SPEC", "0 */5 * * * *"),
			NoShowReclaimSpec:  getEnv("SWEEPER_NOSHOW_SPEC", "0 0 * * * *"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that required configuration is present
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Server.Environment == "production" {
		if c.Payment.ClientID == "" || c.Payment.APIKey == "" || c.Payment.ChecksumKey == "" {
			return fmt.Errorf("PAYOS_CLIENT_ID, PAYOS_API_KEY and PAYOS_CHECKSUM_KEY are required in production")
		}
	}
	if c.Booking.MinBatteryLevel < 0 || c.Booking.MinBatteryLevel > 100 {
		return fmt.Errorf("BOOKING_MIN_BATTERY_LEVEL must be between 0 and 100")
	}
	if c.Booking.RentalDepositRate <= 0 || c.Booking.RentalDepositRate > 100 {
		return fmt.Errorf("BOOKING_RENTAL_DEPOSIT_RATE must be between 1 and 100")
	}
	return nil
}

// getEnv retrieves an environment variable with a default value
func getEnv(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsInt64 retrieves an environment variable as an int64
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsSlice retrieves an environment variable as a comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
