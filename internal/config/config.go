package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Identity provider
	IdentityJwtSecret string

	// Payment processor callback
	PaymentWebhookSecret string

	// Server
	ApiPort string

	// Listing rules
	MaxUnpaidActiveListings int
	MinListingImages        int

	// Store
	OpTimeout        time.Duration
	StoreMaxRetries  int
	AreaCountTTL     time.Duration
	DefaultPageLimit int
	MaxPageLimit     int

	// Valuation
	ValuationCurrency string

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	ImageBaseS3URL     string

	// App Defaults
	AppName string

	// Rate Limiting Defaults
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "listd")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.IdentityJwtSecret, err = getRequiredEnv("IDENTITY_JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.PaymentWebhookSecret = getEnv("PAYMENT_WEBHOOK_SECRET", "")
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.ImageBaseS3URL = getEnv("IMAGE_BASE_S3_URL", "")
	cfg.AppName = getEnv("APP_NAME", "Listd")
	cfg.ValuationCurrency = getEnv("VALUATION_CURRENCY", "PHP")

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.MaxUnpaidActiveListings, err = strconv.Atoi(getEnv("MAX_UNPAID_ACTIVE_LISTINGS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UNPAID_ACTIVE_LISTINGS: %w", err)
	}

	cfg.MinListingImages, err = strconv.Atoi(getEnv("MIN_LISTING_IMAGES", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_LISTING_IMAGES: %w", err)
	}

	opTimeoutMS, err := strconv.ParseInt(getEnv("STORE_OP_TIMEOUT_MS", "5000"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_OP_TIMEOUT_MS: %w", err)
	}
	cfg.OpTimeout = time.Duration(opTimeoutMS) * time.Millisecond

	cfg.StoreMaxRetries, err = strconv.Atoi(getEnv("STORE_MAX_RETRIES", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_MAX_RETRIES: %w", err)
	}

	areaCountTTLSeconds, err := strconv.ParseInt(getEnv("AREA_COUNT_TTL_SECONDS", "60"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid AREA_COUNT_TTL_SECONDS: %w", err)
	}
	cfg.AreaCountTTL = time.Duration(areaCountTTLSeconds) * time.Second

	cfg.DefaultPageLimit, err = strconv.Atoi(getEnv("DEFAULT_PAGE_LIMIT", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_PAGE_LIMIT: %w", err)
	}

	cfg.MaxPageLimit, err = strconv.Atoi(getEnv("MAX_PAGE_LIMIT", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_PAGE_LIMIT: %w", err)
	}

	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
