// Package google signs people in with Google accounts through the OAuth 2.0
// authorization code flow with PKCE, and verifies the returned ID token.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/99minutos/admin-console/internal/core/domain"
	"github.com/99minutos/admin-console/internal/core/ports"
	"github.com/99minutos/admin-console/internal/infrastructure/queue"
)

const (
	providerName  = "google"
	defaultIssuer = "https://accounts.google.com"
)

// Config holds the OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Issuer       string
}

// Provider implements ports.IdentityProvider and ports.RedirectProvider.
type Provider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	notifier    *queue.Notifier
	log         zerolog.Logger
}

// New discovers the issuer's endpoints and returns a signed-out provider.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("init google oidc provider: %w", err)
	}

	log = log.With().Str("component", "identity").Str("provider", providerName).Logger()
	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		notifier: queue.NewNotifier(log),
		log:      log,
	}, nil
}

// AuthCodeURL builds the authorization URL carrying the S256 challenge of
// verifier.
func (p *Provider) AuthCodeURL(state, verifier string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

// SignIn exchanges the authorization code and verifies the ID token. On
// success the identity becomes current and subscribers are notified.
func (p *Provider) SignIn(ctx context.Context, req ports.SignInRequest) (*domain.Identity, error) {
	if req.Code == "" {
		return nil, domain.ErrUserCancelled
	}

	token, err := p.oauthConfig.Exchange(ctx, req.Code, oauth2.VerifierOption(req.CodeVerifier))
	if err != nil {
		return nil, fmt.Errorf("google token exchange: %w: %w", domain.ErrProvider, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("google did not return id_token: %w", domain.ErrProvider)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("google id_token verification: %w: %w", domain.ErrProvider, err)
	}

	var c claims
	if err := idToken.Claims(&c); err != nil {
		return nil, fmt.Errorf("google id_token claims: %w: %w", domain.ErrProvider, err)
	}
	identity, err := c.identity()
	if err != nil {
		return nil, err
	}

	p.log.Debug().
		Str("issuer", idToken.Issuer).
		Bool("email_verified", c.EmailVerified).
		Time("expiry", idToken.Expiry).
		Msg("google id_token verified")

	p.notifier.Publish(identity)
	return identity.Clone(), nil
}

// SignOut forgets the current identity. There is no Google-side session to
// revoke since no refresh token is requested.
func (p *Provider) SignOut(context.Context) error {
	p.notifier.Publish(nil)
	return nil
}

func (p *Provider) Subscribe(fn func(*domain.Identity)) func() {
	return p.notifier.Subscribe(fn)
}

// Close stops notification delivery.
func (p *Provider) Close() {
	p.notifier.Close()
}

type claims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// identity maps verified claims. Unverified emails are refused outright since
// registry matching is by email.
func (c claims) identity() (*domain.Identity, error) {
	if c.Subject == "" || c.Email == "" {
		return nil, fmt.Errorf("google id_token missing required claims: %w", domain.ErrProvider)
	}
	if !c.EmailVerified {
		return nil, fmt.Errorf("google email %s not verified: %w", c.Email, domain.ErrUnauthorized)
	}
	return &domain.Identity{
		Provider:    providerName,
		ProviderID:  c.Subject,
		Email:       c.Email,
		DisplayName: c.Name,
		PhotoURL:    c.Picture,
	}, nil
}
