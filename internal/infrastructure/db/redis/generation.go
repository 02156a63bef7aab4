package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Generation is a collection version counter shared by every console
// instance. Key format: gen:<collection>
type Generation struct {
	client redis.Cmdable
	key    string
}

// NewGeneration returns the counter for collection.
func NewGeneration(client redis.Cmdable, collection string) *Generation {
	return &Generation{client: client, key: "gen:" + collection}
}

// Current returns the counter, 0 when it was never bumped.
func (g *Generation) Current(ctx context.Context) (uint64, error) {
	n, err := g.client.Get(ctx, g.key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", g.key, err)
	}
	return n, nil
}

// Bump increments the counter and returns the new value.
func (g *Generation) Bump(ctx context.Context) (uint64, error) {
	n, err := g.client.Incr(ctx, g.key).Result()
	if err != nil {
		return 0, fmt.Errorf("bump %s: %w", g.key, err)
	}
	return uint64(n), nil
}
