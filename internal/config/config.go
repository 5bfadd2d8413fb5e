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
	AppMode   string
	Port      string
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Lender    LenderConfig
	Financing FinancingConfig
	Cookie    CookieConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	RefreshSecret    string
	AccessTokenMins  int
	RefreshTokenDays int
}

// RedisConfig holds quote cache configuration
type RedisConfig struct {
	Addr     string
	Password string
	Enabled  bool
}

// LenderConfig holds external credit provider configuration
type LenderConfig struct {
	BaseURL       string
	APIKey        string
	CallbackToken string
	Timeout       time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
	SweepSpec     string
	StaleAfter    time.Duration
}

// FinancingConfig holds the provisional financing policy knobs
type FinancingConfig struct {
	MaxAmountFactor float64
}

// CookieConfig holds cookie settings for auth tokens
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	config := &Config{
		AppMode:   appMode,
		Port:      getEnv("PORT", "3000"),
		Database:  loadDatabaseConfig(appMode),
		JWT:       loadJWTConfig(appMode),
		Redis:     loadRedisConfig(),
		Lender:    loadLenderConfig(),
		Financing: loadFinancingConfig(),
		Cookie:    loadCookieConfig(appMode),
	}

	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "clinicpay"),
	}
}

func loadJWTConfig(mode string) JWTConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "15"))
	refreshDays, _ := strconv.Atoi(getEnv("REFRESH_TOKEN_DAYS", "7"))

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", "default_secret"),
		RefreshSecret:    getEnv(prefix+"JWT_REFRESH_SECRET", "default_refresh_secret"),
		AccessTokenMins:  accessMins,
		RefreshTokenDays: refreshDays,
	}
}

func loadRedisConfig() RedisConfig {
	addr := getEnv("REDIS_ADDR", "")
	return RedisConfig{
		Addr:     addr,
		Password: getEnv("REDIS_PASSWORD", ""),
		Enabled:  addr != "",
	}
}

func loadLenderConfig() LenderConfig {
	timeoutSecs, _ := strconv.Atoi(getEnv("LENDER_TIMEOUT_SECONDS", "10"))
	maxAttempts, _ := strconv.Atoi(getEnv("LENDER_MAX_ATTEMPTS", "3"))
	backoffSecs, _ := strconv.Atoi(getEnv("LENDER_RETRY_BACKOFF_SECONDS", "2"))
	staleMins, _ := strconv.Atoi(getEnv("LENDER_STALE_AFTER_MINUTES", "10"))

	return LenderConfig{
		BaseURL:       getEnv("LENDER_BASE_URL", "http://localhost:4000"),
		APIKey:        getEnv("LENDER_API_KEY", ""),
		CallbackToken: getEnv("LENDER_CALLBACK_TOKEN", ""),
		Timeout:       time.Duration(timeoutSecs) * time.Second,
		MaxAttempts:   maxAttempts,
		RetryBackoff:  time.Duration(backoffSecs) * time.Second,
		SweepSpec:     getEnv("LENDER_SWEEP_SPEC", "@every 5m"),
		StaleAfter:    time.Duration(staleMins) * time.Minute,
	}
}

func loadFinancingConfig() FinancingConfig {
	factor, err := strconv.ParseFloat(getEnv("FINANCING_MAX_AMOUNT_FACTOR", "2.0"), 64)
	if err != nil || factor <= 0 {
		factor = 2.0
	}
	return FinancingConfig{MaxAmountFactor: factor}
}

func loadCookieConfig(mode string) CookieConfig {
	return CookieConfig{
		Secure:   mode == "prod",
		SameSite: getEnv("COOKIE_SAMESITE", "Lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://app.clinicpay.io"
	}
	return origins
}
