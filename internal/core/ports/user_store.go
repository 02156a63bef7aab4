package ports

import (
	"context"

	"github.com/99minutos/admin-console/internal/core/domain"
)

// UserStore is the document collection backing the user registry. It offers
// no multi-document transactions and no uniqueness guarantee on email.
// Transport failures are reported wrapping domain.ErrStoreUnavailable.
type UserStore interface {
	// Find returns every record whose field equals value, in store order.
	Find(ctx context.Context, field domain.UserField, value string) ([]*domain.User, error)
	// GetByID returns domain.ErrNotFound when the id is absent.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// Insert persists a new record and returns the store-assigned id.
	Insert(ctx context.Context, user *domain.User) (string, error)
	// Update merges the allow-listed fields into an existing record. It never
	// creates one: a missing id yields domain.ErrNotFound.
	Update(ctx context.Context, id string, update domain.UserUpdate) error
	// Delete removes the record; deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*domain.User, error)
}

// Generation is a version token for one collection. Mutations bump it,
// cached readers compare against it.
type Generation interface {
	Current(ctx context.Context) (uint64, error)
	Bump(ctx context.Context) (uint64, error)
}
