package auth

import (
	"context"                  // Context for Redis operations
	"smart_bin/internal/cache" // JSON helpers over Redis
	"time"                     // Session lifetimes

	"github.com/redis/go-redis/v9" // Redis client
)

// Session is the server side record of a successful login
type Session struct {
	ID        string    `json:"id"`         // Random session id, also the token jti
	UserID    uint      `json:"user_id"`    // Authenticated user
	Username  string    `json:"username"`   // Username at login time
	IssuedAt  time.Time `json:"issued_at"`  // Login time
	ExpiresAt time.Time `json:"expires_at"` // Absolute end of the session
}

// sessionKey is the Redis key registering a live session
func sessionKey(id string) string {
	return "session:" + id
}

// saveSession registers sess in Redis for ttl
func saveSession(ctx context.Context, rdb redis.Cmdable, sess *Session, ttl time.Duration) error {
	return cache.Set(ctx, rdb, sessionKey(sess.ID), sess, ttl)
}

// loadSession fetches a registered session
func loadSession(ctx context.Context, rdb redis.Cmdable, id string) (*Session, bool, error) {
	var sess Session
	found, err := cache.Get(ctx, rdb, sessionKey(id), &sess)
	if err != nil || !found {
		return nil, false, err
	}
	return &sess, true, nil
}

// deleteSession removes a session registration
func deleteSession(ctx context.Context, rdb redis.Cmdable, id string) error {
	return cache.Delete(ctx, rdb, sessionKey(id))
}
