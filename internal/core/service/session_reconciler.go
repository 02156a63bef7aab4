package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/99minutos/admin-console/internal/core/domain"
	"github.com/99minutos/admin-console/internal/core/ports"
)

const (
	defaultResolveTimeout = 10 * time.Second
	defaultHealTimeout    = 10 * time.Second
)

// Reconciler turns identity-provider notifications into the published
// session. It is the only writer of its SessionCell.
type Reconciler struct {
	store    ports.UserStore
	provider ports.IdentityProvider
	cell     *SessionCell
	cache    *UserCache
	observer ports.Observer
	validate *validator.Validate
	log      zerolog.Logger
	now      func() time.Time

	resolveTimeout time.Duration
	healTimeout    time.Duration

	startOnce   sync.Once
	closeOnce   sync.Once
	mu          sync.Mutex
	unsubscribe func()
	heals       sync.WaitGroup
}

// ReconcilerOption customises a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithObserver sets the observability sink. Defaults to ports.NopObserver.
func WithObserver(o ports.Observer) ReconcilerOption {
	return func(r *Reconciler) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithClock overrides time.Now for createdAt stamps.
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithResolveTimeout bounds the registry lookup of one notification. A lookup
// that takes longer is treated as failed.
func WithResolveTimeout(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.resolveTimeout = d
		}
	}
}

// NewReconciler wires a reconciler. Call Start to subscribe to the provider.
func NewReconciler(
	store ports.UserStore,
	provider ports.IdentityProvider,
	cell *SessionCell,
	cache *UserCache,
	log zerolog.Logger,
	opts ...ReconcilerOption,
) *Reconciler {
	r := &Reconciler{
		store:          store,
		provider:       provider,
		cell:           cell,
		cache:          cache,
		observer:       ports.NopObserver{},
		validate:       validator.New(),
		log:            log.With().Str("component", "session").Logger(),
		now:            time.Now,
		resolveTimeout: defaultResolveTimeout,
		healTimeout:    defaultHealTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start subscribes to identity changes. Calling it again is a no-op.
func (r *Reconciler) Start() {
	r.startOnce.Do(func() {
		unsubscribe := r.provider.Subscribe(r.handleIdentity)
		r.mu.Lock()
		r.unsubscribe = unsubscribe
		r.mu.Unlock()
	})
}

// Close stops listening for identity changes and waits for pending profile
// heals to land.
func (r *Reconciler) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		unsubscribe := r.unsubscribe
		r.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
		r.heals.Wait()
	})
}

// Session returns the current published session.
func (r *Reconciler) Session() domain.Session {
	return r.cell.Session()
}

// handleIdentity resolves one notification. The provider never calls it
// concurrently, so each publish happens before the next notification runs.
func (r *Reconciler) handleIdentity(identity *domain.Identity) {
	if identity == nil {
		r.cell.publish(domain.UnauthenticatedSession())
		r.observer.Outcome(ports.OutcomeSignedOut)
		r.log.Debug().Msg("signed out")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.resolveTimeout)
	defer cancel()

	user, err := r.lookupByEmail(ctx, identity.Email)
	switch {
	case err != nil:
		r.log.Error().Err(err).Str("email", identity.Email).Msg("registry lookup failed, signing out")
		r.observer.Failure("session.resolve", err)
		r.observer.Outcome(ports.OutcomeError)
		r.forceSignOut(ctx)
		r.cell.publish(domain.UnauthenticatedSession())
	case user == nil:
		r.log.Warn().Str("email", identity.Email).Msg("identity has no registry record, signing out")
		r.observer.Outcome(ports.OutcomeUnauthorized)
		r.forceSignOut(ctx)
		r.cell.publish(domain.UnauthenticatedSession())
	default:
		drift := profileDrift(user, identity)
		if !drift.Empty() {
			r.heal(user.ID, drift)
		}
		r.cell.publish(domain.AuthenticatedSession(drift.Apply(user)))
		r.observer.Outcome(ports.OutcomeAuthenticated)
		r.log.Info().Str("email", user.Email).Str("role", string(user.Role)).Msg("session resolved")
	}
}

// profileDrift collects provider values that are set and differ from the
// stored record.
func profileDrift(stored *domain.User, identity *domain.Identity) domain.UserUpdate {
	var displayName, photoURL string
	if identity.DisplayName != "" && identity.DisplayName != stored.DisplayName {
		displayName = identity.DisplayName
	}
	if identity.PhotoURL != "" && identity.PhotoURL != stored.PhotoURL {
		photoURL = identity.PhotoURL
	}
	return domain.ProfileUpdate(displayName, photoURL)
}

// heal writes drifted profile fields without holding up the publish. The
// write outlives the notification that triggered it.
func (r *Reconciler) heal(id string, update domain.UserUpdate) {
	r.heals.Add(1)
	go func() {
		defer r.heals.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.healTimeout)
		defer cancel()

		if err := r.store.Update(ctx, id, update); err != nil {
			r.log.Warn().Err(err).Str("user_id", id).Msg("profile heal failed")
			r.observer.Failure("session.heal", err)
			r.observer.Mutation("heal", "error")
			return
		}
		r.observer.Mutation("heal", "ok")
		r.invalidate(ctx)
		r.log.Debug().Str("user_id", id).Msg("profile healed")
	}()
}

func (r *Reconciler) forceSignOut(ctx context.Context) {
	if err := r.provider.SignOut(context.WithoutCancel(ctx)); err != nil {
		r.log.Error().Err(err).Msg("forced sign-out failed")
		r.observer.Failure("session.signout", err)
	}
}

func (r *Reconciler) invalidate(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx); err != nil {
		r.log.Warn().Err(err).Msg("cache generation bump failed")
		r.observer.Failure("cache.invalidate", err)
	}
}

// lookupByEmail returns (nil, nil) when no record matches. Duplicate records
// can exist after concurrent creates; the oldest one wins.
func (r *Reconciler) lookupByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}

	users, err := r.store.Find(ctx, domain.FieldEmail, email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	if len(users) > 1 {
		r.log.Warn().Str("email", email).Int("records", len(users)).Msg("duplicate registry records for email")
		sort.SliceStable(users, func(i, j int) bool {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		})
	}
	return users[0].Clone(), nil
}

// LoginWithGoogle runs the interactive sign-in and refuses identities that
// have no registry record. The session itself is published by the
// notification that the sign-in triggers.
func (r *Reconciler) LoginWithGoogle(ctx context.Context, req ports.SignInRequest) (*domain.Identity, error) {
	identity, err := r.provider.SignIn(ctx, req)
	if err != nil {
		r.log.Warn().Err(err).Msg("provider sign-in failed")
		return nil, fmt.Errorf("login: %w", err)
	}
	if identity == nil || domain.NormalizeEmail(identity.Email) == "" {
		r.forceSignOut(ctx)
		return nil, fmt.Errorf("login: identity without email: %w", domain.ErrUnauthorized)
	}

	user, err := r.lookupByEmail(ctx, identity.Email)
	if err != nil {
		r.observer.Failure("session.login", err)
		r.forceSignOut(ctx)
		return nil, fmt.Errorf("login: %w: %w", domain.ErrUnauthorized, err)
	}
	if user == nil {
		r.log.Warn().Str("email", identity.Email).Msg("login rejected, identity not registered")
		r.forceSignOut(ctx)
		return nil, fmt.Errorf("login %s: %w", identity.Email, domain.ErrUnauthorized)
	}

	r.log.Info().Str("email", user.Email).Msg("login accepted")
	return identity.Clone(), nil
}

// Logout ends the provider session; the resulting nil notification publishes
// the unauthenticated session.
func (r *Reconciler) Logout(ctx context.Context) error {
	if err := r.provider.SignOut(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// CreateUser registers a new email. The duplicate check is a lookup followed
// by an insert, so two concurrent creates for one email may both succeed
// unless the store enforces uniqueness.
func (r *Reconciler) CreateUser(ctx context.Context, in domain.NewUserInput) (*domain.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := r.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("create user: %w: %s", domain.ErrValidation, validationMessage(err))
	}

	email := domain.NormalizeEmail(in.Email)
	existing, err := r.store.Find(ctx, domain.FieldEmail, email)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("create user %s: %w", email, domain.ErrConflict)
	}

	user := domain.NewUser(in, r.cell.Session().Email(), r.now())
	id, err := r.store.Insert(ctx, user)
	if err != nil {
		r.observer.Mutation("create", "error")
		return nil, fmt.Errorf("create user: %w", err)
	}
	user.ID = id
	r.observer.Mutation("create", "ok")
	r.invalidate(ctx)

	r.log.Info().
		Str("user_id", id).
		Str("email", user.Email).
		Str("role", string(user.Role)).
		Str("created_by", user.CreatedBy).
		Msg("user created")

	return user.Clone(), nil
}
