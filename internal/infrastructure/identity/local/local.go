// Package local is a development identity provider. It signs in whoever the
// request names, with no external round trip.
package local

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/admin-console/internal/core/domain"
	"github.com/99minutos/admin-console/internal/core/ports"
	"github.com/99minutos/admin-console/internal/infrastructure/queue"
)

const providerName = "local"

// subjectSpace namespaces the deterministic subject ids.
var subjectSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:admin-console:local"))

type Provider struct {
	notifier *queue.Notifier
	log      zerolog.Logger
}

func New(log zerolog.Logger) *Provider {
	log = log.With().Str("component", "identity").Str("provider", providerName).Logger()
	return &Provider{notifier: queue.NewNotifier(log), log: log}
}

// SignIn asserts req.Email. The same email always maps to the same subject.
func (p *Provider) SignIn(_ context.Context, req ports.SignInRequest) (*domain.Identity, error) {
	email := domain.NormalizeEmail(req.Email)
	if email == "" {
		return nil, fmt.Errorf("local sign-in without email: %w", domain.ErrUserCancelled)
	}

	identity := &domain.Identity{
		Provider:    providerName,
		ProviderID:  uuid.NewSHA1(subjectSpace, []byte(email)).String(),
		Email:       email,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	}
	p.log.Debug().Str("email", email).Msg("local sign-in")
	p.notifier.Publish(identity)
	return identity.Clone(), nil
}

func (p *Provider) SignOut(context.Context) error {
	p.notifier.Publish(nil)
	return nil
}

func (p *Provider) Subscribe(fn func(*domain.Identity)) func() {
	return p.notifier.Subscribe(fn)
}

func (p *Provider) Close() {
	p.notifier.Close()
}
