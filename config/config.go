package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DBUrl         string
	JWTSecret     string
	AllowedOrigin string
	// DB Config
	DBMaxConns        int32
	DBMinConns        int32
	DBMaxConnIdleTime time.Duration
	// Notifications (RabbitMQ)
	AmqpURL              string
	NotificationExchange string
	// Cache
	CacheEnumsTTL time.Duration
	// Business Rules
	MaxCartQuantity      int
	ReturnWindowDays     int
	DefaultRefundPercent float64
	DeliveryEstimateDays int
	// Rate limiting
	RateLimitPerSecond float64
	RateLimitBurst     int
}

func LoadConfig() *Config {
	// A specific config file can be requested via env var; otherwise try
	// the standard .env and fall back to system env vars (docker/prod).
	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			log.Printf("Warning: Failed to load config file '%s': %v", configFile, err)
		} else {
			log.Printf("Loaded configuration from %s", configFile)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found or error loading it, relying on system env vars")
		}
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DBUrl:         getEnv("DB_DSN", ""),
		JWTSecret:     getEnv("JWT_SECRET", "default_secret_CHANGE_ME"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),

		DBMaxConns:        getInt32Env("DB_MAX_CONNS", 50),
		DBMinConns:        getInt32Env("DB_MIN_CONNS", 10),
		DBMaxConnIdleTime: getDurationEnv("DB_MAX_CONN_IDLE_TIME", time.Minute*15),

		AmqpURL:              getEnv("AMQP_URL", ""),
		NotificationExchange: getEnv("NOTIFICATION_EXCHANGE", "storefront.notifications"),

		CacheEnumsTTL: getDurationEnv("CACHE_ENUMS_TTL", 30*time.Minute),

		MaxCartQuantity:      getIntEnv("MAX_CART_QUANTITY", 100),
		ReturnWindowDays:     getIntEnv("RETURN_WINDOW_DAYS", 7),
		DefaultRefundPercent: getFloatEnv("DEFAULT_REFUND_PERCENT", 100),
		DeliveryEstimateDays: getIntEnv("DELIVERY_ESTIMATE_DAYS", 5),

		RateLimitPerSecond: getFloatEnv("RATE_LIMIT_PER_SECOND", 50),
		RateLimitBurst:     getIntEnv("RATE_LIMIT_BURST", 100),
	}

	cfg.Validate()
	return cfg
}

func (c *Config) Validate() {
	if c.DBUrl == "" {
		log.Fatal("CRITICAL: DB_DSN environment variable is required")
	}
	if c.JWTSecret == "default_secret_CHANGE_ME" {
		log.Println("WARNING: Using default JWT secret. Setting up for failure in production.")
	}
	if c.DefaultRefundPercent <= 0 || c.DefaultRefundPercent > 100 {
		log.Fatal("CRITICAL: DEFAULT_REFUND_PERCENT must be in (0, 100]")
	}
	if c.ReturnWindowDays < 1 {
		log.Fatal("CRITICAL: RETURN_WINDOW_DAYS must be at least 1")
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s, using fallback", key)
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.Printf("Invalid int for %s, using fallback", key)
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Invalid float for %s, using fallback", key)
	}
	return fallback
}
