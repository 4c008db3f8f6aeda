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

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Port string

	// postgres | memory
	StorageDriver string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTAccessSecret string

	// ✅ Redis Config
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	DashboardCacheTTL time.Duration

	// ✅ Kafka change feed
	KafkaBrokers []string
	KafkaTopic   string

	RateLimitPerMinute   int
	CORSAllowedOrigins   []string
	UpcomingDefaultLimit int
}

// Load reads environment variables and returns a Config object
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file, using environment variables")
	}

	return &Config{
		Port: getString("PORT", "8080"),

		StorageDriver: strings.ToLower(getString("STORAGE_DRIVER", StorageDriverPostgres)),

		DBHost:     getString("DB_HOST", "localhost"),
		DBPort:     getString("DB_PORT", "5432"),
		DBUser:     getString("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getString("DB_NAME", "eventy"),
		DBSSLMode:  getString("DB_SSLMODE", "disable"),

		JWTAccessSecret: os.Getenv("JWT_ACCESS_SECRET"),

		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getInt("REDIS_DB", 0),
		DashboardCacheTTL: time.Duration(getInt("DASHBOARD_CACHE_TTL_SECONDS", 60)) * time.Second,

		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getString("KAFKA_TOPIC", "event-catalog.changes"),

		RateLimitPerMinute:   getInt("RATE_LIMIT_PER_MINUTE", 100),
		CORSAllowedOrigins:   splitCSV(getString("CORS_ALLOWED_ORIGINS", "http://localhost:4200")),
		UpcomingDefaultLimit: getInt("UPCOMING_DEFAULT_LIMIT", 10),
	}
}

// DSN builds the postgres connection string for gorm.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func splitCSV(csv string) []string {
	var out []string
	for _, v := range strings.Split(csv, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
