package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	MongoURI        string
	MongoDB         string
	MongoCollection string

	RedisAddr     string
	RedisPassword string
	CacheTTLSec   int

	ListenAddr  string
	Environment string

	// Hosted selects the hosted browser provisioner (constrained
	// environments where the Chrome binary must be resolved at launch).
	Hosted    bool
	ChromeBin string

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:         getEnv("MONGO_DB", "restaurant_db"),
		MongoCollection: getEnv("MONGO_COLLECTION", "restaurants"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CacheTTLSec:   getEnvInt("CACHE_TTL_SEC", 300),

		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		Environment: getEnv("APP_ENV", "development"),

		Hosted:    getEnvBool("HOSTED", false),
		ChromeBin: getEnv("CHROME_BIN", ""),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
