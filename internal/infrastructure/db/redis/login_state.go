package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/admin-console/internal/core/domain"
)

// LoginStateStore keeps the PKCE verifier of a pending OAuth sign-in.
// Key format: login:state:<state>
type LoginStateStore struct {
	client redis.Cmdable
}

func NewLoginStateStore(client redis.Cmdable) *LoginStateStore {
	return &LoginStateStore{client: client}
}

// Save records verifier under state; it expires after ttl.
func (s *LoginStateStore) Save(ctx context.Context, state, verifier string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(state), verifier, ttl).Err(); err != nil {
		return fmt.Errorf("save login state: %w", err)
	}
	return nil
}

// Take returns the verifier and deletes it, so a state can be redeemed once.
func (s *LoginStateStore) Take(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", domain.ErrInvalidState
	}
	verifier, err := s.client.GetDel(ctx, s.key(state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrInvalidState
	}
	if err != nil {
		return "", fmt.Errorf("take login state: %w", err)
	}
	return verifier, nil
}

func (s *LoginStateStore) key(state string) string {
	return fmt.Sprintf("login:state:%s", state)
}
