package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	ProviderGoogle = "google"
	ProviderLocal  = "local"

	CacheLocal = "local"
	CacheRedis = "redis"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	IdentityProvider    string        `env:"IDENTITY_PROVIDER,     default=local"`
	BootstrapAdminEmail string        `env:"BOOTSTRAP_ADMIN_EMAIL"`
	ResolveTimeout      time.Duration `env:"RESOLVE_TIMEOUT,       default=10s"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Cache  CacheConfig
	Google GoogleConfig
}

type MongoConfig struct {
	URI         string `env:"MONGO_URI,          default=mongodb://localhost:27017"`
	Database    string `env:"MONGO_DB,           default=admin_console"`
	UniqueEmail bool   `env:"MONGO_UNIQUE_EMAIL, default=false"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type CacheConfig struct {
	Backend  string `env:"CACHE_BACKEND,   default=local"`
	UserSize int    `env:"USER_CACHE_SIZE, default=512"`
}

type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_REDIRECT_URL, default=http://localhost:8080/v1/auth/google/callback"`
	Issuer       string `env:"GOOGLE_ISSUER,       default=https://accounts.google.com"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	cfg.IdentityProvider = strings.ToLower(strings.TrimSpace(cfg.IdentityProvider))
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.IdentityProvider {
	case ProviderLocal:
		// trusts the email in the request body
		if !c.IsDevelopment() {
			errs = append(errs, fmt.Errorf("IDENTITY_PROVIDER=local is only allowed with ENV=development, got ENV=%q", c.Env))
		}
	case ProviderGoogle:
		if c.Google.ClientID == "" || c.Google.ClientSecret == "" {
			errs = append(errs, errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required with IDENTITY_PROVIDER=google"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IDENTITY_PROVIDER %q", c.IdentityProvider))
	}
	if c.Cache.Backend != CacheLocal && c.Cache.Backend != CacheRedis {
		errs = append(errs, fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend))
	}
	if c.ResolveTimeout <= 0 {
		errs = append(errs, errors.New("RESOLVE_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// IsDevelopment enables pretty logs and the local identity provider.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
