package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/99minutos/admin-console/internal/core/domain"
	"github.com/99minutos/admin-console/internal/core/ports"
)

const defaultUserCacheSize = 512

// UserCache caches registry reads. Entries are keyed by the shared collection
// generation and a local epoch, sampled before their fetch started, so both a
// bump from any instance and a local invalidation make every older entry
// stale. Only the shared generation is handed out as the version token: it is
// the one value all instances agree on.
type UserCache struct {
	gen      ports.Generation
	epoch    atomic.Uint64
	observer ports.Observer

	mu   sync.Mutex
	list *listEntry
	byID *lru.Cache[string, userEntry]

	group singleflight.Group
}

// cacheKey orders samples taken on one instance; both counters only grow.
type cacheKey struct {
	gen   uint64
	epoch uint64
}

func (k cacheKey) before(o cacheKey) bool {
	return k.gen < o.gen || (k.gen == o.gen && k.epoch < o.epoch)
}

type listEntry struct {
	users []*domain.User
	key   cacheKey
}

type userEntry struct {
	user *domain.User // nil records a known absence
	key  cacheKey
}

// NewUserCache builds a cache holding at most size per-id entries.
func NewUserCache(gen ports.Generation, size int, observer ports.Observer) (*UserCache, error) {
	if size <= 0 {
		size = defaultUserCacheSize
	}
	if observer == nil {
		observer = ports.NopObserver{}
	}
	byID, err := lru.New[string, userEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create user cache: %w", err)
	}
	return &UserCache{gen: gen, observer: observer, byID: byID}, nil
}

// Version returns the current shared generation.
func (c *UserCache) Version(ctx context.Context) (uint64, error) {
	g, err := c.gen.Current(ctx)
	if err != nil {
		return 0, fmt.Errorf("read generation: %w", err)
	}
	return g, nil
}

// key samples the epoch first so that an Invalidate racing the read can only
// make the key older, never newer.
func (c *UserCache) key(ctx context.Context) (cacheKey, error) {
	epoch := c.epoch.Load()
	g, err := c.Version(ctx)
	if err != nil {
		return cacheKey{}, err
	}
	return cacheKey{gen: g, epoch: epoch}, nil
}

// Invalidate makes every cached read stale. Local entries are dropped even
// when the shared bump fails; the bump error is returned for reporting.
func (c *UserCache) Invalidate(ctx context.Context) error {
	c.epoch.Add(1)
	c.mu.Lock()
	c.list = nil
	c.mu.Unlock()
	c.byID.Purge()

	if _, err := c.gen.Bump(ctx); err != nil {
		return fmt.Errorf("bump generation: %w", err)
	}
	return nil
}

// List serves the whole collection, calling fetch on a miss. Concurrent
// misses for the same key share one fetch.
func (c *UserCache) List(ctx context.Context, fetch func(context.Context) ([]*domain.User, error)) (ports.UserList, error) {
	key, err := c.key(ctx)
	if err != nil {
		c.observer.Failure("cache.version", err)
		c.observer.CacheLookup("list", "bypass")
		users, ferr := fetch(ctx)
		if ferr != nil {
			return ports.UserList{}, ferr
		}
		return ports.UserList{Users: cloneUsers(users)}, nil
	}

	c.mu.Lock()
	entry := c.list
	c.mu.Unlock()
	if entry != nil && entry.key == key {
		c.observer.CacheLookup("list", "hit")
		return ports.UserList{Users: cloneUsers(entry.users), Generation: key.gen}, nil
	}
	c.observer.CacheLookup("list", "miss")

	v, err, _ := c.group.Do(fmt.Sprintf("list:%d:%d", key.gen, key.epoch), func() (any, error) {
		users, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.list == nil || !key.before(c.list.key) {
			c.list = &listEntry{users: cloneUsers(users), key: key}
		}
		c.mu.Unlock()
		return users, nil
	})
	if err != nil {
		return ports.UserList{}, err
	}
	return ports.UserList{Users: cloneUsers(v.([]*domain.User)), Generation: key.gen}, nil
}

// Get serves one record by id, calling fetch on a miss. A nil user from fetch
// means absent and is cached as such.
func (c *UserCache) Get(ctx context.Context, id string, fetch func(context.Context) (*domain.User, error)) (*domain.User, error) {
	key, err := c.key(ctx)
	if err != nil {
		c.observer.Failure("cache.version", err)
		c.observer.CacheLookup("user", "bypass")
		return fetch(ctx)
	}

	if entry, ok := c.byID.Get(id); ok && entry.key == key {
		c.observer.CacheLookup("user", "hit")
		return entry.user.Clone(), nil
	}
	c.observer.CacheLookup("user", "miss")

	v, err, _ := c.group.Do(fmt.Sprintf("user:%d:%d:%s", key.gen, key.epoch, id), func() (any, error) {
		user, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if prev, ok := c.byID.Peek(id); !ok || !key.before(prev.key) {
			c.byID.Add(id, userEntry{user: user.Clone(), key: key})
		}
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.User).Clone(), nil
}

func cloneUsers(users []*domain.User) []*domain.User {
	out := make([]*domain.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Clone())
	}
	return out
}
