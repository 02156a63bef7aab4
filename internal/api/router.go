package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/admin-console/docs"
	"github.com/99minutos/admin-console/internal/api/handler"
	"github.com/99minutos/admin-console/internal/api/middleware"
	"github.com/99minutos/admin-console/internal/core/ports"
)

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Log      zerolog.Logger
	Sessions ports.SessionService
	Watcher  ports.SessionWatcher
	Registry ports.UserRegistry

	// LoginStates and Redirect are nil unless the provider signs in through a
	// browser redirect.
	LoginStates ports.LoginStateStore
	Redirect    ports.RedirectProvider

	// Checks are run by the readiness probe, keyed by dependency name.
	Checks map[string]handler.Check
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddleware("console"))

	// --- Health, metrics and docs (no session required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Checks, d.Sessions)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Session & auth ---
	sessionHandler := handler.NewSessionHandler(d.Sessions, d.Watcher, d.LoginStates, d.Redirect, d.Log)

	v1 := e.Group("/v1")
	v1.GET("/session", sessionHandler.Get)
	v1.POST("/auth/login", sessionHandler.Login)
	v1.GET("/auth/google/start", sessionHandler.GoogleStart)
	v1.GET("/auth/google/callback", sessionHandler.GoogleCallback)
	v1.POST("/auth/logout", sessionHandler.Logout)
	v1.GET("/profile", sessionHandler.Profile, middleware.RequireSession(d.Sessions))

	// --- User registry (admin only) ---
	userHandler := handler.NewUserHandler(d.Registry)

	users := v1.Group("/users", middleware.RequireAdmin(d.Sessions))
	users.GET("", userHandler.List)
	users.POST("", userHandler.Create)
	users.GET("/:id", userHandler.Get)
	users.PATCH("/:id/role", userHandler.UpdateRole)
	users.DELETE("/:id", userHandler.Delete)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	log = log.With().Str("component", "http").Logger()
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
