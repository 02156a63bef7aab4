package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/99minutos/admin-console/internal/api/handler"
	"github.com/99minutos/admin-console/internal/infrastructure/config"
	mongodb "github.com/99minutos/admin-console/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/admin-console/internal/infrastructure/db/redis"
)

type infra struct {
	mongoClient *mongo.Client
	db          *mongo.Database
	redis       *goredis.Client // nil when nothing needs Redis
}

// needsRedis reports whether the configuration uses Redis at all: for the
// shared cache generation or for pending Google login states.
func needsRedis(cfg *config.Config) bool {
	return cfg.Cache.Backend == config.CacheRedis || cfg.IdentityProvider == config.ProviderGoogle
}

func setupInfra(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*infra, error) {
	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "admin-console",
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("mongo connected")

	in := &infra{mongoClient: client, db: db}
	if !needsRedis(cfg) {
		return in, nil
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		_ = in.close(ctx)
		return nil, err
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
	in.redis = rdb
	return in, nil
}

func (in *infra) checks() map[string]handler.Check {
	checks := map[string]handler.Check{
		"mongodb": func(ctx context.Context) error {
			return in.mongoClient.Ping(ctx, readpref.Primary())
		},
	}
	if in.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return in.redis.Ping(ctx).Err()
		}
	}
	return checks
}

func (in *infra) close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var firstErr error
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			firstErr = fmt.Errorf("close redis: %w", err)
		}
	}
	if err := in.mongoClient.Disconnect(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("disconnect mongo: %w", err)
	}
	return firstErr
}
