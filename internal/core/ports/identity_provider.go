package ports

import (
	"context"
	"time"

	"github.com/99minutos/admin-console/internal/core/domain"
)

// SignInRequest carries whatever the interactive sign-in produced. Code and
// CodeVerifier come from an OAuth redirect; Email, DisplayName and PhotoURL
// are only honoured by the local development provider.
type SignInRequest struct {
	Code         string
	CodeVerifier string

	Email       string
	DisplayName string
	PhotoURL    string
}

// IdentityProvider is the external service that authenticates people.
type IdentityProvider interface {
	// SignIn completes an interactive sign-in. Fails with domain.ErrUserCancelled
	// or an error wrapping domain.ErrProvider.
	SignIn(ctx context.Context, req SignInRequest) (*domain.Identity, error)
	// SignOut terminates the provider session and emits a nil notification.
	SignOut(ctx context.Context) error
	// Subscribe registers fn for identity changes. fn first receives the
	// current identity (nil when signed out), then every change in emission
	// order, one call at a time.
	Subscribe(fn func(*domain.Identity)) (unsubscribe func())
}

// RedirectProvider is implemented by providers whose sign-in starts with a
// browser redirect.
type RedirectProvider interface {
	AuthCodeURL(state, verifier string) string
}

// LoginStateStore keeps OAuth state -> PKCE verifier between the redirect and
// the callback.
type LoginStateStore interface {
	Save(ctx context.Context, state, verifier string, ttl time.Duration) error
	// Take returns and forgets the verifier. Unknown or expired states yield
	// domain.ErrInvalidState.
	Take(ctx context.Context, state string) (string, error)
}
