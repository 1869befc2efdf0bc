package db

import (
	"time" // Connection pool lifetimes

	"gorm.io/driver/mysql" // MySQL driver for GORM
	"gorm.io/gorm"         // GORM ORM library
	"gorm.io/gorm/logger"  // GORM SQL logger
)

// Open connects to MySQL using dsn
func Open(dsn string, isProd bool) (*gorm.DB, error) {
	logLevel := logger.Warn // Only slow queries and errors by default
	if isProd {
		logLevel = logger.Error
	}
	db, err := gorm.Open(mysql.Open(dsn), NewGormConfig(logLevel))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB() // Underlying connection pool
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)                  // Small service, few concurrent writers
	sqlDB.SetMaxIdleConns(5)                   // Keep a few connections warm
	sqlDB.SetConnMaxLifetime(30 * time.Minute) // Recycle before MySQL wait_timeout
	return db, nil
}

// NewGormConfig returns the GORM settings shared by every dialector
func NewGormConfig(level logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,                                         // Surface unique violations as gorm.ErrDuplicatedKey
		NowFunc:        func() time.Time { return time.Now().UTC() }, // Store timestamps in UTC
		Logger:         logger.Default.LogMode(level),                // SQL logging verbosity
	}
}
