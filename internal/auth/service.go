package auth

import (
	"context"                   // Context for store calls
	"crypto/rand"               // Random fallback secret
	"encoding/hex"              // Secret encoding
	"errors"                    // Error inspection
	"fmt"                       // Error wrapping
	"smart_bin/internal/domain" // Importing domain models
	"strings"                   // Username normalisation
	"time"                      // Session lifetimes

	"github.com/google/uuid"       // Session ids
	"github.com/redis/go-redis/v9" // Redis client
	"golang.org/x/crypto/bcrypt"   // Password hashing
	"gorm.io/gorm"                 // GORM ORM library
)

// Service verifies credentials and manages login sessions
type Service struct {
	db     *gorm.DB         // User store
	rdb    redis.Cmdable    // Session registry
	secret []byte           // HMAC key for session tokens
	ttl    time.Duration    // Session lifetime
	now    func() time.Time // Clock, replaceable in tests
}

// NewService creates a session gate; ttl is the absolute session lifetime
func NewService(db *gorm.DB, rdb redis.Cmdable, secret string, ttl time.Duration) *Service {
	return &Service{db: db, rdb: rdb, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the service using now as its clock
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

// TTL is the lifetime given to new sessions
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// RandomSecret returns a fresh 32 byte hex secret for deployments without SESSION_SECRET
func RandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Authenticate checks the credentials and opens a session.
// It returns the session and the signed token to put in the cookie.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Session, string, error) {
	var user domain.User
	// Usernames match case-insensitively
	err := s.db.WithContext(ctx).
		Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}
	// Compare provided password with stored hash
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	now := s.now().UTC()
	sess := &Session{
		ID:        uuid.NewString(), // Unguessable session id
		UserID:    user.ID,          // Authenticated user
		Username:  user.Username,    // Shown on the dashboard
		IssuedAt:  now,              // Login time
		ExpiresAt: now.Add(s.ttl),   // Fixed lifetime from login
	}
	token, err := GenerateToken(sess, s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("sign session: %w", err)
	}
	if err := saveSession(ctx, s.rdb, sess, s.ttl); err != nil {
		return nil, "", fmt.Errorf("register session: %w", err)
	}
	return sess, token, nil
}

// Validate returns the live session behind token.
// ErrUnauthenticated covers missing, forged, expired and logged out tokens.
func (s *Service) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := ParseToken(token, s.secret, s.now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	sess, found, err := loadSession(ctx, s.rdb, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found || sess.UserID != claims.UserID || !s.now().Before(sess.ExpiresAt) {
		return nil, ErrUnauthenticated
	}
	return sess, nil
}

// Logout ends the session behind token. Unknown or expired tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	id, ok := sessionIDFromToken(token, s.secret) // Expired tokens still name a session worth deleting
	if !ok {
		return nil
	}
	return deleteSession(ctx, s.rdb, id)
}
