package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/99minutos/admin-console/internal/core/domain"
	"github.com/99minutos/admin-console/internal/core/ports"
)

// UserRegistry is the registry access layer. Reads go through the UserCache;
// every successful write invalidates it before returning.
type UserRegistry struct {
	store    ports.UserStore
	creator  ports.UserCreator
	cache    *UserCache
	observer ports.Observer
	log      zerolog.Logger
}

// NewUserRegistry returns a registry that delegates creation to creator
// (normally the Reconciler).
func NewUserRegistry(store ports.UserStore, creator ports.UserCreator, cache *UserCache, observer ports.Observer, log zerolog.Logger) *UserRegistry {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &UserRegistry{
		store:    store,
		creator:  creator,
		cache:    cache,
		observer: observer,
		log:      log.With().Str("component", "registry").Logger(),
	}
}

// List returns every record, in store order.
func (r *UserRegistry) List(ctx context.Context) (ports.UserList, error) {
	list, err := r.cache.List(ctx, r.store.List)
	if err != nil {
		return ports.UserList{}, fmt.Errorf("list users: %w", err)
	}
	return list, nil
}

// GetByID returns (nil, nil) when the id is absent.
func (r *UserRegistry) GetByID(ctx context.Context, id string) (*domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	user, err := r.cache.Get(ctx, id, func(ctx context.Context) (*domain.User, error) {
		u, err := r.store.GetByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return user, nil
}

// Save creates a user. The role is coerced to admin or user.
func (r *UserRegistry) Save(ctx context.Context, in domain.NewUserInput) (*domain.User, error) {
	if strings.TrimSpace(in.Email) == "" {
		return nil, fmt.Errorf("save user: email is required: %w", domain.ErrValidation)
	}
	in.Role = string(domain.NormalizeRole(in.Role))

	user, err := r.creator.CreateUser(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// UpdateRole changes the role of an existing record.
func (r *UserRegistry) UpdateRole(ctx context.Context, id string, role string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("update role: id is required: %w", domain.ErrValidation)
	}
	parsed, err := domain.ParseRole(role)
	if err != nil {
		return fmt.Errorf("update role: unknown role %q: %w", role, err)
	}

	if err := r.store.Update(ctx, id, domain.RoleUpdate(parsed)); err != nil {
		r.observer.Mutation("update_role", "error")
		return fmt.Errorf("update role of %s: %w", id, err)
	}
	r.observer.Mutation("update_role", "ok")
	r.invalidate(ctx)

	r.log.Info().Str("user_id", id).Str("role", string(parsed)).Msg("role updated")
	return nil
}

// Delete removes a record. Deleting an absent id succeeds.
func (r *UserRegistry) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("delete user: id is required: %w", domain.ErrValidation)
	}

	if err := r.store.Delete(ctx, id); err != nil {
		r.observer.Mutation("delete", "error")
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	r.observer.Mutation("delete", "ok")
	r.invalidate(ctx)

	r.log.Info().Str("user_id", id).Msg("user deleted")
	return nil
}

// Generation returns the version token current reads are tagged with.
func (r *UserRegistry) Generation(ctx context.Context) (uint64, error) {
	return r.cache.Version(ctx)
}

// Stale reports whether a result read at generation must be refetched.
// An unreadable generation counts as stale.
func (r *UserRegistry) Stale(ctx context.Context, generation uint64) bool {
	current, err := r.cache.Version(ctx)
	if err != nil {
		return true
	}
	return current != generation
}

// ListAsync fetches the list in the background. After detach is called the
// result is dropped, but the fetch itself runs to completion.
func (r *UserRegistry) ListAsync(ctx context.Context, deliver func(ports.UserList, error)) (detach func()) {
	return runDetached(ctx, r.List, deliver)
}

// GetByIDAsync is the detachable form of GetByID.
func (r *UserRegistry) GetByIDAsync(ctx context.Context, id string, deliver func(*domain.User, error)) (detach func()) {
	return runDetached(ctx, func(ctx context.Context) (*domain.User, error) {
		return r.GetByID(ctx, id)
	}, deliver)
}

func (r *UserRegistry) invalidate(ctx context.Context) {
	if err := r.cache.Invalidate(context.WithoutCancel(ctx)); err != nil {
		r.log.Warn().Err(err).Msg("cache generation bump failed")
		r.observer.Failure("cache.invalidate", err)
	}
}

func runDetached[T any](ctx context.Context, fetch func(context.Context) (T, error), deliver func(T, error)) func() {
	var detached atomic.Bool
	fetchCtx := context.WithoutCancel(ctx)
	go func() {
		v, err := fetch(fetchCtx)
		if detached.Load() {
			return
		}
		deliver(v, err)
	}()
	return func() { detached.Store(true) }
}

// SeedAdmin makes sure email exists as an admin, creating it as the system
// actor when missing. An existing record is left untouched.
func SeedAdmin(ctx context.Context, creator ports.UserCreator, email string) (*domain.User, error) {
	user, err := creator.CreateUser(ctx, domain.NewUserInput{Email: email, Role: string(domain.RoleAdmin)})
	if errors.Is(err, domain.ErrConflict) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	return user, nil
}
