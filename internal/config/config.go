package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string
	CORSOrigins string

	// MongoTransactions wraps multi-document writes (the user plan cascade)
	// in a transaction. Requires a replica set.
	MongoTransactions bool

	// CustomIsAdmin lets "custom" user types bypass the gate like super admins.
	CustomIsAdmin bool

	PermissionCacheSize int
	PermissionCacheTTL  time.Duration

	// IntegritySchedule is a cron spec for the orphan sweep; empty disables it.
	IntegritySchedule string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	cacheSize, err := getEnvInt("PERMISSION_CACHE_SIZE", 1024)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getEnvDuration("PERMISSION_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		JWTSecret:           getEnv("JWT_SECRET", "secret"),
		MongoURI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:              getEnv("DB_NAME", "jmkresearch"),
		SkipAuth:            getEnvBool("SKIP_AUTH", false),
		Environment:         getEnv("ENVIRONMENT", "development"),
		AppId:               getEnv("APP_ID", "jmkresearch-backend"),
		CORSOrigins:         getEnv("CORS_ORIGINS", "http://localhost:3000"),
		MongoTransactions:   getEnvBool("MONGO_TRANSACTIONS", true),
		CustomIsAdmin:       getEnvBool("CUSTOM_IS_ADMIN", true),
		PermissionCacheSize: cacheSize,
		PermissionCacheTTL:  cacheTTL,
		IntegritySchedule:   getEnv("INTEGRITY_SCHEDULE", "@every 1h"),
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
