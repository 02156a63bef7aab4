package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/99minutos/admin-console/internal/core/domain"
)

func TestLoginStateStore_TakeOnce(t *testing.T) {
	client := newMemClient()
	s := NewLoginStateStore(client)
	ctx := context.Background()

	if err := s.Save(ctx, "abc", "verifier-1", 10*time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if client.ttls["login:state:abc"] != 10*time.Minute {
		t.Errorf("ttl = %v", client.ttls["login:state:abc"])
	}

	v, err := s.Take(ctx, "abc")
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if v != "verifier-1" {
		t.Errorf("verifier = %q", v)
	}

	if _, err := s.Take(ctx, "abc"); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("second take: expected ErrInvalidState, got %v", err)
	}
}

func TestLoginStateStore_InvalidState(t *testing.T) {
	s := NewLoginStateStore(newMemClient())

	for _, state := range []string{"", "unknown"} {
		if _, err := s.Take(context.Background(), state); !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("state %q: expected ErrInvalidState, got %v", state, err)
		}
	}
}

func TestLoginStateStore_RedisDown(t *testing.T) {
	client := newMemClient()
	client.err = errors.New("connection refused")
	s := NewLoginStateStore(client)

	_, err := s.Take(context.Background(), "abc")
	if err == nil || errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected a transport error, got %v", err)
	}
}
