// Package testutil builds throwaway stores for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"smart_bin/internal/auth"
	appdb "smart_bin/internal/db"
	"smart_bin/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with the schema migrated.
// Foreign keys are enforced so cascades behave as on MySQL.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := gorm.Open(sqlite.Open(dsn), appdb.NewGormConfig(logger.Silent))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1) // One connection keeps the shared in-memory database alive and serialised
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := appdb.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// NewRedis starts an in-process Redis server and a client bound to it
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// CreateBin inserts a bin with the given number and level
func CreateBin(t *testing.T, db *gorm.DB, number string, level int, isDefault bool) *domain.Bin {
	t.Helper()
	bin := &domain.Bin{
		BinNumber:    number,
		Location:     "1 Rue du Test",
		CurrentLevel: level,
		LastUpdated:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		IsDefault:    isDefault,
	}
	if err := db.Create(bin).Error; err != nil {
		t.Fatalf("create bin %s: %v", number, err)
	}
	return bin
}

// CreateUser inserts a user with a bcrypt hashed password
func CreateUser(t *testing.T, db *gorm.DB, username, password string) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &domain.User{Username: strings.ToLower(username), PasswordHash: hash}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// CountHistory returns the number of history rows for binID
func CountHistory(t *testing.T, db *gorm.DB, binID uint) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&domain.History{}).Where("bin_id = ?", binID).Count(&n).Error; err != nil {
		t.Fatalf("count history: %v", err)
	}
	return n
}

// ReloadBin reads the stored state of bin id
func ReloadBin(t *testing.T, db *gorm.DB, id uint) domain.Bin {
	t.Helper()
	var bin domain.Bin
	if err := db.First(&bin, id).Error; err != nil {
		t.Fatalf("reload bin %d: %v", id, err)
	}
	return bin
}
