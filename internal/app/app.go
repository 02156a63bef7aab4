package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/admin-console/internal/api"
	"github.com/99minutos/admin-console/internal/api/metrics"
	"github.com/99minutos/admin-console/internal/core/ports"
	"github.com/99minutos/admin-console/internal/core/service"
	"github.com/99minutos/admin-console/internal/infrastructure/config"
	mongodb "github.com/99minutos/admin-console/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/admin-console/internal/infrastructure/db/redis"
	"github.com/99minutos/admin-console/internal/infrastructure/identity/google"
	"github.com/99minutos/admin-console/internal/infrastructure/identity/local"
)

const readyTimeout = 15 * time.Second

type identityProvider interface {
	ports.IdentityProvider
	Close()
}

// App owns the HTTP server and everything it was built on.
type App struct {
	cfg        *config.Config
	log        zerolog.Logger
	echo       *echo.Echo
	infra      *infra
	provider   identityProvider
	reconciler *service.Reconciler
	stopWatch  context.CancelFunc
}

// New connects to the backing services, starts the session reconciler and
// builds the router. The returned App is not serving yet.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	in, err := setupInfra(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a, err := build(ctx, cfg, in, log)
	if err != nil {
		_ = in.close(ctx)
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg *config.Config, in *infra, log zerolog.Logger) (*App, error) {
	observer := metrics.NewObserver(log)

	store := mongodb.NewUserStore(in.db)
	if err := store.EnsureIndexes(ctx, cfg.Mongo.UniqueEmail); err != nil {
		return nil, err
	}

	var gen ports.Generation = service.NewLocalGeneration()
	if cfg.Cache.Backend == config.CacheRedis {
		gen = redisdb.NewGeneration(in.redis, "users")
	}
	cache, err := service.NewUserCache(gen, cfg.Cache.UserSize, observer)
	if err != nil {
		return nil, err
	}

	var (
		provider    identityProvider
		redirect    ports.RedirectProvider
		loginStates ports.LoginStateStore
	)
	switch cfg.IdentityProvider {
	case config.ProviderGoogle:
		gp, err := google.New(ctx, google.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
			Issuer:       cfg.Google.Issuer,
		}, log)
		if err != nil {
			return nil, err
		}
		provider, redirect = gp, gp
		loginStates = redisdb.NewLoginStateStore(in.redis)
	default:
		provider = local.New(log)
	}

	cell := service.NewSessionCell()
	reconciler := service.NewReconciler(store, provider, cell, cache, log,
		service.WithObserver(observer),
		service.WithResolveTimeout(cfg.ResolveTimeout),
	)
	registry := service.NewUserRegistry(store, reconciler, cache, observer, log)

	if cfg.BootstrapAdminEmail != "" {
		seeded, err := service.SeedAdmin(ctx, reconciler, cfg.BootstrapAdminEmail)
		if err != nil {
			provider.Close()
			return nil, err
		}
		if seeded != nil {
			log.Info().Str("email", seeded.Email).Msg("bootstrap admin created")
		}
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	go func() {
		for s := range cell.Watch(watchCtx) {
			metrics.TrackSession(s.State())
		}
	}()
	reconciler.Start()

	readyCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if s, err := cell.Ready(readyCtx); err != nil {
		log.Warn().Err(err).Msg("session still loading")
	} else {
		log.Info().Str("state", string(s.State())).Msg("session ready")
	}

	e := api.NewRouter(api.Deps{
		Log:         log,
		Sessions:    reconciler,
		Watcher:     cell,
		Registry:    registry,
		LoginStates: loginStates,
		Redirect:    redirect,
		Checks:      in.checks(),
	})

	return &App{
		cfg:        cfg,
		log:        log,
		echo:       e,
		infra:      in,
		provider:   provider,
		reconciler: reconciler,
		stopWatch:  stopWatch,
	}, nil
}

// Run serves HTTP until Shutdown is called.
func (a *App) Run() error {
	a.log.Info().Str("port", a.cfg.Port).Str("provider", a.cfg.IdentityProvider).Msg("http server listening")
	if err := a.echo.Start(":" + a.cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains HTTP, stops the reconciler and closes connections.
func (a *App) Shutdown(ctx context.Context) error {
	httpErr := a.echo.Shutdown(ctx)

	a.reconciler.Close()
	a.provider.Close()
	a.stopWatch()

	infraErr := a.infra.close(ctx)
	return errors.Join(httpErr, infraErr)
}
