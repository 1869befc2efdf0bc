package db

import (
	"errors"                    // Error inspection
	"smart_bin/internal/auth"   // Password hashing
	"smart_bin/internal/domain" // Importing domain models
	"strings"                   // Username normalisation
	"time"                      // Seed timestamps

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// SeedOptions controls the provisioned admin account
type SeedOptions struct {
	AdminUsername   string // Username of the admin account
	AdminPassword   string // Plaintext password, hashed before storage
	DefaultPassword string // Password that triggers a warning when still in use
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(&domain.User{}, &domain.Bin{}, &domain.History{}); err != nil {
		return err
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}

// Seed creates the admin user and the default bin when they are missing.
// Running it again leaves existing rows untouched.
func Seed(db *gorm.DB, opts SeedOptions) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := seedAdmin(tx, opts); err != nil {
			return err
		}
		return seedDefaultBin(tx)
	})
}

// Provision runs Migrate followed by Seed
func Provision(db *gorm.DB, opts SeedOptions) error {
	if err := Migrate(db); err != nil {
		return err
	}
	return Seed(db, opts)
}

// seedAdmin creates the admin account only if no user holds its username
func seedAdmin(tx *gorm.DB, opts SeedOptions) error {
	username := strings.ToLower(strings.TrimSpace(opts.AdminUsername)) // Usernames are stored lower-cased
	var existing domain.User
	err := tx.Where("username = ?", username).First(&existing).Error
	if err == nil {
		logrus.WithField("username", username).Info("Admin user already exists")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	hash, err := auth.HashPassword(opts.AdminPassword) // bcrypt hash of the admin password
	if err != nil {
		return err
	}
	if err := tx.Create(&domain.User{Username: username, PasswordHash: hash}).Error; err != nil {
		return err
	}
	entry := logrus.WithField("username", username)
	if opts.DefaultPassword != "" && opts.AdminPassword == opts.DefaultPassword {
		entry.Warn("Admin user created with the default password, change it")
		return nil
	}
	entry.Info("Admin user created")
	return nil
}

// seedDefaultBin makes sure exactly one bin is designated as default
func seedDefaultBin(tx *gorm.DB) error {
	var current domain.Bin
	err := tx.Where("is_default = ?", true).First(&current).Error
	if err == nil {
		logrus.WithField("bin_number", current.BinNumber).Info("Default bin already exists")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	// A bin may already hold the default number; designate it rather than insert a duplicate
	var byNumber domain.Bin
	err = tx.Where("bin_number = ?", domain.DefaultBinNumber).First(&byNumber).Error
	if err == nil {
		if err := tx.Model(&byNumber).Update("is_default", true).Error; err != nil {
			return err
		}
		logrus.WithField("bin_number", byNumber.BinNumber).Info("Existing bin designated as default")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	bin := domain.Bin{
		BinNumber:    domain.DefaultBinNumber,  // Conventional first bin number
		Location:     domain.DefaultBinAddress, // Placeholder address, changed from the dashboard
		CurrentLevel: domain.DefaultBinLevel,   // Initial reading
		LastUpdated:  time.Now().UTC(),         // Creation counts as the first write
		IsDefault:    true,                     // Target of requests without a bin number
	}
	if err := tx.Create(&bin).Error; err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"bin_number": bin.BinNumber, "id": bin.ID}).Info("Default bin created")
	return nil
}
