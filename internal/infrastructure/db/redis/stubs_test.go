package redis

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// memClient implements the commands the adapters use over a map. Every other
// redis.Cmdable method panics through the nil embedded interface.
type memClient struct {
	redis.Cmdable

	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error // returned by every command when set
}

func newMemClient() *memClient {
	return &memClient{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memClient) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	v, ok := m.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *memClient) GetDel(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "getdel", key)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	v, ok := m.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	delete(m.data, key)
	delete(m.ttls, key)
	cmd.SetVal(v)
	return cmd
}

func (m *memClient) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key, value)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	switch v := value.(type) {
	case string:
		m.data[key] = v
	default:
		cmd.SetErr(errors.New("memClient: only string values are supported"))
		return cmd
	}
	m.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func (m *memClient) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "incr", key)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	n, _ := strconv.ParseInt(m.data[key], 10, 64)
	n++
	m.data[key] = strconv.FormatInt(n, 10)
	cmd.SetVal(n)
	return cmd
}
