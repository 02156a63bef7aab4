package ports

import (
	"context"

	"github.com/99minutos/admin-console/internal/core/domain"
)

// UserList is a list result tagged with the collection generation it was
// read at. Once UserRegistry.Stale reports true for it, it must be refetched.
type UserList struct {
	Users      []*domain.User
	Generation uint64
}

// UserRegistry is the registry access layer consumed by admin screens.
type UserRegistry interface {
	List(ctx context.Context) (UserList, error)
	// GetByID returns (nil, nil) when the id is absent.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Save(ctx context.Context, in domain.NewUserInput) (*domain.User, error)
	UpdateRole(ctx context.Context, id string, role string) error
	Delete(ctx context.Context, id string) error

	Generation(ctx context.Context) (uint64, error)
	Stale(ctx context.Context, generation uint64) bool
	ListAsync(ctx context.Context, deliver func(UserList, error)) (detach func())
	GetByIDAsync(ctx context.Context, id string, deliver func(*domain.User, error)) (detach func())
}
