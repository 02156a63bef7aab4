package ports

import (
	"context"

	"github.com/99minutos/admin-console/internal/core/domain"
)

// SessionReader is the read side of the session cell handed to consumers.
type SessionReader interface {
	Session() domain.Session
}

// SessionWatcher lets a caller wait for the session to reach a given value,
// e.g. for the notification a sign-in triggered to be resolved.
type SessionWatcher interface {
	SessionReader
	Await(ctx context.Context, cond func(domain.Session) bool) (domain.Session, error)
	// Version and AwaitAfter let a caller wait only for values published after
	// a point it sampled.
	Version() uint64
	AwaitAfter(ctx context.Context, version uint64, cond func(domain.Session) bool) (domain.Session, error)
}

// SessionService is the session surface the rest of the application may call.
type SessionService interface {
	SessionReader
	LoginWithGoogle(ctx context.Context, req SignInRequest) (*domain.Identity, error)
	Logout(ctx context.Context) error
	CreateUser(ctx context.Context, in domain.NewUserInput) (*domain.User, error)
}

// UserCreator is the slice of SessionService the registry delegates creation to.
type UserCreator interface {
	CreateUser(ctx context.Context, in domain.NewUserInput) (*domain.User, error)
}
