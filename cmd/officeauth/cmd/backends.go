package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	officeauth "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/cmd/officeauth/internal/appconfig"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/password"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/userstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// openRedis connects to url, or starts an in-process miniredis when url is
// empty so a development server needs no external services.
func openRedis(ctx context.Context, url string, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	if url == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start in-process redis: %w", err)
		}
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		logger.Warn("REDIS_URL not set, using in-process redis; sessions do not survive a restart",
			zap.String("addr", mr.Addr()))
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("connected to redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return client, func() { _ = client.Close() }, nil
}

// openUsers returns the Postgres account store when dsn is set, otherwise an
// in-memory one.
func openUsers(ctx context.Context, dsn string, logger *zap.Logger) (userstore.Store, func(), error) {
	if dsn == "" {
		logger.Warn("DATABASE_URL not set, accounts are kept in memory")
		return userstore.NewMemoryStore(), func() {}, nil
	}

	pool, err := userstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	store := userstore.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	logger.Info("connected to postgres")
	return store, pool.Close, nil
}

func buildEngine(c appconfig.AppConfig, logger *zap.Logger, rdb redis.UniversalClient) (*officeauth.Engine, error) {
	b := officeauth.New().
		WithConfig(c.EngineConfig()).
		WithLogger(logger).
		WithRedis(rdb)
	if c.AuditEnabled {
		b.WithAuditSink(officeauth.NewZapSink(logger.Named("audit")))
	}
	return b.Build()
}

// bootstrapAdmin creates the first SUPER_ADMIN account when it is missing.
func bootstrapAdmin(ctx context.Context, users userstore.Store, hasher *password.Hasher, email, plain string, logger *zap.Logger) error {
	if email == "" {
		return nil
	}
	if plain == "" {
		return errors.New("BOOTSTRAP_ADMIN_PASSWORD is required with BOOTSTRAP_ADMIN_EMAIL")
	}

	if _, err := users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, userstore.ErrNotFound) {
		return fmt.Errorf("look up bootstrap admin: %w", err)
	}

	hash, err := hasher.Hash(plain)
	if err != nil {
		return fmt.Errorf("hash bootstrap admin password: %w", err)
	}
	u := &userstore.User{
		Email:        email,
		Name:         "Administrator",
		PasswordHash: hash,
		Role:         officeauth.RoleSuperAdmin,
		Status:       userstore.StatusActive,
	}
	if err := users.Create(ctx, u); err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			return nil
		}
		return fmt.Errorf("create bootstrap admin: %w", err)
	}

	logger.Info("bootstrap admin created", zap.String("user_id", u.ID), zap.String("email", u.Email))
	return nil
}
