package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For session and cache lifetimes

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort       string        // Application port
	DBUser        string        // Database user
	DBPassword    string        // Database password
	DBHost        string        // Database host
	DBPort        string        // Database port
	DBName        string        // Database name
	SessionSecret string        // HMAC key for session cookies
	SessionTTL    time.Duration // Lifetime of a login session
	CacheTTL      time.Duration // Lifetime of a cached bin snapshot
	RedisAddr     string        // Redis server address
	RedisPass     string        // Redis password
	RedisDB       int           // Redis database number
	AdminUsername string        // Username provisioned by the seed
	AdminPassword string        // Password provisioned by the seed
	AutoMigrate   bool          // Run migration and seed at server startup
	IsProd        bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:       getEnv("APP_PORT", "5000"),                     // Application port
		DBUser:        os.Getenv("DB_USER"),                           // Database user
		DBPassword:    os.Getenv("DB_PASSWORD"),                       // Database password
		DBHost:        getEnv("DB_HOST", "127.0.0.1"),                 // Database host
		DBPort:        getEnv("DB_PORT", "3306"),                      // Database port
		DBName:        getEnv("DB_NAME", "smart_bin"),                 // Database name
		SessionSecret: os.Getenv("SESSION_SECRET"),                    // HMAC key for session cookies
		SessionTTL:    getDuration("SESSION_TTL", 30*time.Minute),     // Login session lifetime
		CacheTTL:      getDuration("CACHE_TTL", 10*time.Second),       // Snapshot cache lifetime
		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),         // Redis server address
		RedisPass:     os.Getenv("REDIS_PASS"),                        // Redis password
		RedisDB:       redisDB,                                        // Redis database number
		AdminUsername: getEnv("ADMIN_USERNAME", DefaultAdminUsername), // Seeded admin username
		AdminPassword: getEnv("ADMIN_PASSWORD", DefaultAdminPassword), // Seeded admin password
		AutoMigrate:   os.Getenv("AUTO_MIGRATE") == "true",            // Provision at startup
		IsProd:        os.Getenv("IS_PROD") == "true",                 // Is production environment
	}
}

// Default admin credentials used when none are configured
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "adminpassword"
)

// DSN builds the MySQL Data Source Name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&loc=UTC"
}

// getEnv returns the value of key or fallback when unset
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDuration parses key as a Go duration ("30m", "10s") or returns fallback
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback // Ignore unusable values
	}
	return d
}
