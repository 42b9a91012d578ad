package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// ChannelCache keeps resolved sales channel ids across worker restarts, so a
// tenant configured with a channel name does not hit the search endpoint on
// every run.
type ChannelCache struct {
	c *redis.Client
}

func NewChannelCache(addr string) *ChannelCache {
	return &ChannelCache{
		c: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func channelKey(tenant string) string { return "dunning:channel:" + tenant }

func (r *ChannelCache) GetChannelID(ctx context.Context, tenant string) (string, bool, error) {
	id, err := r.c.Get(ctx, channelKey(tenant)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "redis get channel")
	}
	return id, true, nil
}

func (r *ChannelCache) SetChannelID(ctx context.Context, tenant, id string, ttl time.Duration) error {
	if err := r.c.Set(ctx, channelKey(tenant), id, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set channel")
	}
	return nil
}
