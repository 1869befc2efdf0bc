package cache

import (
	"context"       // Context for Redis operations
	"encoding/json" // Payload encoding
	"strconv"       // Generation formatting
	"time"          // Snapshot lifetime

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

const (
	DefaultSnapshotKey           = "bin:snapshot:default"     // Cached /level payload of the default bin
	DefaultSnapshotGenerationKey = "bin:snapshot:default:gen" // Bumped by every invalidation
)

// storeIfCurrent writes the payload only while the generation is the one read before the store query
var storeIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Generation identifies the cache state a payload was built against.
// The zero value never matches, so Store skips it.
type Generation struct {
	value string // Generation counter as read from Redis
}

// SnapshotCache is a read-through cache for the default bin payload.
// A nil *SnapshotCache is valid and caches nothing.
type SnapshotCache struct {
	rdb redis.Cmdable // Redis client
	ttl time.Duration // How long a payload stays valid
}

// NewSnapshotCache creates a SnapshotCache; ttl <= 0 disables caching
func NewSnapshotCache(rdb redis.Cmdable, ttl time.Duration) *SnapshotCache {
	if rdb == nil || ttl <= 0 {
		return nil
	}
	return &SnapshotCache{rdb: rdb, ttl: ttl}
}

// Load fills dest from the cache and reports whether it was found.
// On a miss the returned Generation must be handed to Store with the freshly read payload.
// Redis failures count as a miss.
func (c *SnapshotCache) Load(ctx context.Context, dest any) (Generation, bool) {
	if c == nil {
		return Generation{}, false
	}
	// Read the generation first so an invalidation racing the store query is seen by Store
	gen, err := c.rdb.Get(ctx, DefaultSnapshotGenerationKey).Int64()
	if err != nil && err != redis.Nil {
		logrus.WithError(err).Warn("Snapshot cache read failed")
		return Generation{}, false
	}
	current := Generation{value: strconv.FormatInt(gen, 10)} // Missing key reads as 0
	found, err := Get(ctx, c.rdb, DefaultSnapshotKey, dest)
	if err != nil {
		logrus.WithError(err).Warn("Snapshot cache read failed")
		return current, false
	}
	return current, found
}

// Store saves value as the current default bin payload unless the cache was invalidated since gen was read
func (c *SnapshotCache) Store(ctx context.Context, gen Generation, value any) bool {
	if c == nil || gen.value == "" {
		return false
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		logrus.WithError(err).Warn("Snapshot cache write failed")
		return false
	}
	keys := []string{DefaultSnapshotKey, DefaultSnapshotGenerationKey}
	stored, err := storeIfCurrent.Run(ctx, c.rdb, keys, gen.value, b, c.ttl.Milliseconds()).Int()
	if err != nil {
		logrus.WithError(err).Warn("Snapshot cache write failed")
		return false
	}
	return stored == 1
}

// Invalidate drops the cached payload after a bin write.
// Bumping the generation first keeps readers that started before the write from storing their result.
func (c *SnapshotCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.rdb.Incr(ctx, DefaultSnapshotGenerationKey).Err(); err != nil {
		logrus.WithError(err).Warn("Snapshot cache invalidation failed")
	}
	if err := Delete(ctx, c.rdb, DefaultSnapshotKey); err != nil {
		logrus.WithError(err).Warn("Snapshot cache invalidation failed")
	}
}
