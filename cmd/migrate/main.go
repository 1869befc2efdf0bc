package main

import (
	"smart_bin/internal/config" // Custom import path (Config)
	"smart_bin/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for migration and seeding
func main() {
	cfg := config.LoadConfig() // Load configuration

	gdb, err := db.Open(cfg.DSN(), cfg.IsProd)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	opts := db.SeedOptions{
		AdminUsername:   cfg.AdminUsername,           // Admin account name
		AdminPassword:   cfg.AdminPassword,           // Admin account password
		DefaultPassword: config.DefaultAdminPassword, // Warn when still in use
	}
	if err := db.Provision(gdb, opts); err != nil {
		logrus.Fatalf("failed to provision database: %v", err)
	}
	logrus.Info("Database ready.")
}
