package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/joho/godotenv"
)

// Default upstream base URLs of the FastTech Foods API gateway
const (
	DefaultIdentityAPIURL = "https://apim-hackathon-fiap.azure-api.net/identity/api"
	DefaultKitchenAPIURL  = "https://apim-hackathon-fiap.azure-api.net/kitchen/api"
	DefaultCatalogAPIURL  = "https://apim-hackathon-fiap.azure-api.net/menu/api"
)

// Config holds all application configuration
type Config struct {
	Port        string
	GoEnv       string
	DatabaseURL string
	LogLevel    string

	IdentityAPIURL    string
	CatalogAPIURL     string
	KitchenAPIURL     string
	HTTPClientTimeout time.Duration

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	RedisURL    string
	SessionTTL  time.Duration
	RabbitMQURL string

	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	UploadDir          string

	CancellationPolicy     models.CancellationPolicy
	DeliveryCodeRequired   bool
	OrderSimulationEnabled bool
	CORSAllowedOrigins     []string
}

var current *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		// Deployed environments set variables directly, so missing files are fine
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	policy, err := models.ParseCancellationPolicy(getEnv("CANCELLATION_POLICY", string(models.CancelPendingOnly)))
	if err != nil {
		return nil, err
	}

	goEnv := getEnv("GO_ENV", "development")
	config := &Config{
		Port:        getEnv("PORT", "8080"),
		GoEnv:       goEnv,
		DatabaseURL: getEnv("DATABASE_URL", "backoffice.db"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		IdentityAPIURL:    strings.TrimRight(getEnv("IDENTITY_API_URL", DefaultIdentityAPIURL), "/"),
		CatalogAPIURL:     strings.TrimRight(getEnv("CATALOG_API_URL", DefaultCatalogAPIURL), "/"),
		KitchenAPIURL:     strings.TrimRight(getEnv("KITCHEN_API_URL", DefaultKitchenAPIURL), "/"),
		HTTPClientTimeout: time.Duration(getEnvInt("HTTP_CLIENT_TIMEOUT", 10)) * time.Second,

		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTIssuer:   getEnv("JWT_ISSUER", "fasttech-identity"),
		JWTAudience: getEnv("JWT_AUDIENCE", "fasttech-backoffice"),

		RedisURL:    getEnv("REDIS_URL", ""),
		SessionTTL:  time.Duration(getEnvInt("SESSION_TTL", 24)) * time.Hour,
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:        getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		UploadDir:          getEnv("UPLOAD_DIR", "./uploads"),

		CancellationPolicy:     policy,
		DeliveryCodeRequired:   getEnvBool("DELIVERY_CODE_REQUIRED", true),
		OrderSimulationEnabled: getEnvBool("ORDER_SIMULATION_ENABLED", goEnv == "development"),
		CORSAllowedOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8080")),
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	current = config
	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	upstreams := map[string]string{
		"IDENTITY_API_URL": c.IdentityAPIURL,
		"CATALOG_API_URL":  c.CatalogAPIURL,
		"KITCHEN_API_URL":  c.KitchenAPIURL,
	}
	for key, raw := range upstreams {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
		}
	}
	if c.HTTPClientTimeout <= 0 {
		return fmt.Errorf("HTTP_CLIENT_TIMEOUT must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// BearerAuthEnabled reports whether stateless JWT callers are accepted
func (c *Config) BearerAuthEnabled() bool {
	return c.JWTSecret != ""
}

// S3Enabled reports whether product images go to S3 instead of the upload directory
func (c *Config) S3Enabled() bool {
	return c.AWSS3Bucket != ""
}

// GetConfig returns the most recently loaded configuration
func GetConfig() *Config {
	return current
}

// SetConfig replaces the loaded configuration (primarily for testing)
func SetConfig(cfg *Config) {
	current = cfg
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Invalid integer for %s=%q, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Invalid boolean for %s=%q, using %t", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
