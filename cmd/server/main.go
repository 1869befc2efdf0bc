package main

import (
	"context"                    // context package is needed for Redis operations
	"smart_bin/internal/api"     // Custom package for API handlers
	"smart_bin/internal/auth"    // Session gate
	"smart_bin/internal/cache"   // Snapshot cache
	"smart_bin/internal/config"  // Custom package for configuration
	"smart_bin/internal/db"      // Database connection and provisioning
	"smart_bin/internal/service" // Bin engine

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	// Connect to the database
	gdb, err := db.Open(cfg.DSN(), cfg.IsProd)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Create schema, admin account and default bin on first start
	if cfg.AutoMigrate {
		opts := db.SeedOptions{
			AdminUsername:   cfg.AdminUsername,
			AdminPassword:   cfg.AdminPassword,
			DefaultPassword: config.DefaultAdminPassword,
		}
		if err := db.Provision(gdb, opts); err != nil {
			logrus.Fatalf("failed to provision database: %v", err)
		}
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Sessions signed with a random secret do not survive a restart
	secret := cfg.SessionSecret
	if secret == "" {
		secret, err = auth.RandomSecret()
		if err != nil {
			logrus.Fatalf("failed to generate session secret: %v", err)
		}
		logrus.Warn("SESSION_SECRET is not set, using a random secret; sessions end on restart")
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r := api.NewRouter(api.Deps{
		DB:            gdb,                                                       // Store
		Redis:         redisClient,                                               // Sessions and cache
		Bins:          service.NewBinService(gdb),                                // Bin engine
		Auth:          auth.NewService(gdb, redisClient, secret, cfg.SessionTTL), // Session gate
		Snapshots:     cache.NewSnapshotCache(redisClient, cfg.CacheTTL),         // /level cache
		SecureCookies: cfg.IsProd,                                                // HTTPS only cookies in production
	})

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	logrus.WithField("port", cfg.AppPort).Info("Server running") // Log server start
	// Start the server on port cfg.AppPort
	if err := r.Run(":" + cfg.AppPort); err != nil {
		logrus.Fatalf("server stopped: %v", err)
	}
}
