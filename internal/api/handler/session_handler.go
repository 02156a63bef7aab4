package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/99minutos/admin-console/internal/core/domain"
	"github.com/99minutos/admin-console/internal/core/ports"
)

const (
	loginStateTTL   = 10 * time.Minute
	defaultSettleIn = 5 * time.Second
)

// SessionHandler exposes the session and the sign-in flows.
type SessionHandler struct {
	sessions ports.SessionService
	watcher  ports.SessionWatcher
	states   ports.LoginStateStore
	redirect ports.RedirectProvider
	settle   time.Duration
	log      zerolog.Logger
}

// NewSessionHandler builds the handler. states and redirect may be nil when
// the configured provider has no browser redirect; the Google routes then
// answer 404.
func NewSessionHandler(
	sessions ports.SessionService,
	watcher ports.SessionWatcher,
	states ports.LoginStateStore,
	redirect ports.RedirectProvider,
	log zerolog.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		watcher:  watcher,
		states:   states,
		redirect: redirect,
		settle:   defaultSettleIn,
		log:      log.With().Str("component", "session_handler").Logger(),
	}
}

// Get handles GET /v1/session.
//
// @Summary      Current session
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /v1/session [get]
func (h *SessionHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, toSessionResponse(h.sessions.Session()))
}

// Profile handles GET /v1/profile.
//
// @Summary      Signed-in user's record
// @Tags         session
// @Produce      json
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /v1/profile [get]
func (h *SessionHandler) Profile(c echo.Context) error {
	s := h.sessions.Session()
	if s.User == nil {
		return domain.ErrUnauthorized
	}
	return c.JSON(http.StatusOK, toUserResponse(s.User))
}

// Login handles POST /v1/auth/login, a direct sign-in for providers that take
// the identity from the request (the local development provider).
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Identity to sign in as"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/auth/login [post]
func (h *SessionHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	return h.login(c, ports.SignInRequest{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
}

// GoogleStart handles GET /v1/auth/google/start.
//
// @Summary      Begin Google sign-in
// @Tags         auth
// @Produce      json
// @Success      200  {object}  googleStartResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/auth/google/start [get]
func (h *SessionHandler) GoogleStart(c echo.Context) error {
	if h.redirect == nil || h.states == nil {
		return echo.NewHTTPError(http.StatusNotFound, "google sign-in is not enabled")
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	if err := h.states.Save(c.Request().Context(), state, verifier, loginStateTTL); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, googleStartResponse{
		AuthURL: h.redirect.AuthCodeURL(state, verifier),
		State:   state,
	})
}

// GoogleCallback handles GET /v1/auth/google/callback.
//
// @Summary      Complete Google sign-in
// @Tags         auth
// @Produce      json
// @Param        state  query     string  true   "OAuth state from /v1/auth/google/start"
// @Param        code   query     string  false  "Authorization code"
// @Param        error  query     string  false  "Set by Google when the user declined"
// @Success      200    {object}  sessionResponse
// @Failure      400    {object}  errorResponse
// @Failure      401    {object}  errorResponse
// @Failure      503    {object}  errorResponse
// @Router       /v1/auth/google/callback [get]
func (h *SessionHandler) GoogleCallback(c echo.Context) error {
	if h.redirect == nil || h.states == nil {
		return echo.NewHTTPError(http.StatusNotFound, "google sign-in is not enabled")
	}

	verifier, err := h.states.Take(c.Request().Context(), c.QueryParam("state"))
	if err != nil {
		return err
	}

	code := c.QueryParam("code")
	if c.QueryParam("error") != "" || code == "" {
		h.log.Info().Str("reason", c.QueryParam("error")).Msg("google sign-in cancelled")
		return domain.ErrUserCancelled
	}

	return h.login(c, ports.SignInRequest{Code: code, CodeVerifier: verifier})
}

// Logout handles POST /v1/auth/logout.
//
// @Summary      Sign out
// @Tags         auth
// @Success      204
// @Failure      503  {object}  errorResponse
// @Router       /v1/auth/logout [post]
func (h *SessionHandler) Logout(c echo.Context) error {
	since := h.watcher.Version()
	if err := h.sessions.Logout(c.Request().Context()); err != nil {
		return err
	}
	h.await(c.Request().Context(), since, func(s domain.Session) bool { return s.State() == domain.StateUnauthenticated })
	return c.NoContent(http.StatusNoContent)
}

// login signs in and waits for the notification the sign-in triggered to be
// resolved, so the response carries the session it produced even when the
// same email was already signed in.
func (h *SessionHandler) login(c echo.Context, req ports.SignInRequest) error {
	since := h.watcher.Version()
	identity, err := h.sessions.LoginWithGoogle(c.Request().Context(), req)
	if err != nil {
		return err
	}

	email := domain.NormalizeEmail(identity.Email)
	s := h.await(c.Request().Context(), since, func(s domain.Session) bool {
		return !s.Loading && domain.NormalizeEmail(s.Email()) == email
	})
	return c.JSON(http.StatusOK, toSessionResponse(s))
}

func (h *SessionHandler) await(ctx context.Context, since uint64, cond func(domain.Session) bool) domain.Session {
	ctx, cancel := context.WithTimeout(ctx, h.settle)
	defer cancel()

	s, err := h.watcher.AwaitAfter(ctx, since, cond)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		h.log.Debug().Err(err).Msg("session did not settle")
	}
	return s
}
