package service

import (
	"context"
	"sync"

	"github.com/99minutos/admin-console/internal/core/domain"
)

// SessionCell holds the single process-wide session value. Only the
// Reconciler publishes into it; everybody else reads.
type SessionCell struct {
	mu      sync.RWMutex
	current domain.Session
	version uint64
	changed chan struct{} // closed and replaced on every publish
}

// NewSessionCell returns a cell in the loading state.
func NewSessionCell() *SessionCell {
	return &SessionCell{
		current: domain.LoadingSession(),
		changed: make(chan struct{}),
	}
}

// Session returns a copy of the current value.
func (c *SessionCell) Session() domain.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copySession(c.current)
}

func (c *SessionCell) publish(s domain.Session) {
	c.mu.Lock()
	c.current = copySession(s)
	c.version++
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()
}

func (c *SessionCell) snapshot() (domain.Session, uint64, <-chan struct{}) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copySession(c.current), c.version, c.changed
}

// Version counts publishes; it pairs with AwaitAfter.
func (c *SessionCell) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Await blocks until cond holds for the current value or ctx is done.
func (c *SessionCell) Await(ctx context.Context, cond func(domain.Session) bool) (domain.Session, error) {
	return c.await(ctx, func(s domain.Session, _ uint64) bool { return cond(s) })
}

// AwaitAfter is Await restricted to values published after version, so a
// caller that triggered a notification does not settle on the value that was
// current before it.
func (c *SessionCell) AwaitAfter(ctx context.Context, version uint64, cond func(domain.Session) bool) (domain.Session, error) {
	return c.await(ctx, func(s domain.Session, v uint64) bool { return v > version && cond(s) })
}

func (c *SessionCell) await(ctx context.Context, accept func(domain.Session, uint64) bool) (domain.Session, error) {
	for {
		s, v, changed := c.snapshot()
		if accept(s, v) {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-changed:
		}
	}
}

// Ready waits for the first identity notification to resolve.
func (c *SessionCell) Ready(ctx context.Context) (domain.Session, error) {
	return c.Await(ctx, func(s domain.Session) bool { return !s.Loading })
}

// Watch streams the latest value: the current one immediately, then each new
// one. A slow reader skips intermediate values. The channel closes with ctx.
func (c *SessionCell) Watch(ctx context.Context) <-chan domain.Session {
	out := make(chan domain.Session, 1)
	go func() {
		defer close(out)
		seen := ^uint64(0)
		for {
			s, version, changed := c.snapshot()
			if version != seen {
				select {
				case out <- s:
					seen = version
				case <-ctx.Done():
					return
				}
				continue
			}
			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func copySession(s domain.Session) domain.Session {
	s.User = s.User.Clone()
	return s
}
