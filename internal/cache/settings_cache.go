package cache

import (
	"context"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tbourn/go-modmail/internal/domain"
)

// DefaultSettingsTTL bounds staleness when an invalidation is missed.
const DefaultSettingsTTL = 5 * time.Minute

// SettingsCache caches GuildSettings rows as msgpack blobs.
type SettingsCache struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewSettingsCache returns a cache over redis. A nil redis yields a cache
// that always misses.
func NewSettingsCache(redis *RedisCache, ttl time.Duration) *SettingsCache {
	if ttl <= 0 {
		ttl = DefaultSettingsTTL
	}
	return &SettingsCache{redis: redis, ttl: ttl}
}

func settingsKey(guildID string) string { return "modmail:settings:" + guildID }

// Get returns the cached settings for guildID and whether they were found.
// Decode and transport errors count as misses.
func (sc *SettingsCache) Get(ctx context.Context, guildID string) (*domain.GuildSettings, bool) {
	if sc == nil || sc.redis == nil {
		return nil, false
	}
	data, err := sc.redis.Get(ctx, settingsKey(guildID))
	if err != nil || data == nil {
		return nil, false
	}
	var s domain.GuildSettings
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, false
	}
	return &s, true
}

// Set stores s under its guild id.
func (sc *SettingsCache) Set(ctx context.Context, s *domain.GuildSettings) error {
	if sc == nil || sc.redis == nil || s == nil {
		return nil
	}
	data, err := msgpack.Marshal(s)
	if err != nil {
		return err
	}
	return sc.redis.Set(ctx, settingsKey(s.GuildID), data, sc.ttl)
}

// Invalidate drops the cached settings for guildID.
func (sc *SettingsCache) Invalidate(ctx context.Context, guildID string) error {
	if sc == nil || sc.redis == nil {
		return nil
	}
	return sc.redis.Delete(ctx, settingsKey(guildID))
}
