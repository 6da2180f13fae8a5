package remote

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"fychat/internal/chat"
)

const profileKeyPrefix = "profile:"

// ProfileCache fronts a chat.Profiles implementation with a redis cache.
// Only valid records are cached; a cache failure falls through to the
// wrapped client.
type ProfileCache struct {
	inner chat.Profiles
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

func NewProfileCache(inner chat.Profiles, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *ProfileCache {
	return &ProfileCache{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func (c *ProfileCache) UserInfo(ctx context.Context, id string) (chat.BasicInfo, error) {
	if info, ok := c.cached(ctx, id); ok {
		return info, nil
	}
	info, err := c.inner.UserInfo(ctx, id)
	if err != nil {
		return info, err
	}
	c.put(ctx, info)
	return info, nil
}

func (c *ProfileCache) UsersInfo(ctx context.Context, ids []string) ([]chat.BasicInfo, error) {
	out := make([]chat.BasicInfo, 0, len(ids))
	var misses []string
	for _, id := range ids {
		if info, ok := c.cached(ctx, id); ok {
			out = append(out, info)
		} else {
			misses = append(misses, id)
		}
	}
	if len(misses) == 0 {
		return out, nil
	}
	fetched, err := c.inner.UsersInfo(ctx, misses)
	if err != nil {
		if len(out) == 0 {
			return nil, err
		}
		c.log.Debug().Err(err).Msg("profile batch refresh failed, serving cached subset")
		return out, nil
	}
	for _, info := range fetched {
		c.put(ctx, info)
		out = append(out, info)
	}
	return out, nil
}

func (c *ProfileCache) cached(ctx context.Context, id string) (chat.BasicInfo, bool) {
	raw, err := c.rdb.Get(ctx, profileKeyPrefix+id).Result()
	if err != nil {
		return chat.BasicInfo{}, false
	}
	var info chat.BasicInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return chat.BasicInfo{}, false
	}
	return info, true
}

func (c *ProfileCache) put(ctx context.Context, info chat.BasicInfo) {
	if !info.Valid {
		return
	}
	payload, err := json.Marshal(info)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, profileKeyPrefix+info.ID, payload, c.ttl).Err(); err != nil {
		c.log.Debug().Err(err).Str("user", info.ID).Msg("profile cache write failed")
	}
}
