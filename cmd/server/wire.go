package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/equipview/internal/archive"
	"github.com/JonMunkholm/equipview/internal/auth"
	"github.com/JonMunkholm/equipview/internal/config"
	"github.com/JonMunkholm/equipview/internal/core"
	"github.com/JonMunkholm/equipview/internal/events"
	"github.com/JonMunkholm/equipview/internal/store"
)

// openStore connects the configured record store and applies its schema.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		poolConfig, err := pgxpool.ParseConfig(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse database URL: %w", err)
		}
		poolConfig.MaxConns = int32(cfg.MaxConns)
		poolConfig.MinConns = int32(cfg.MinConns)
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		pg := store.NewPostgres(pool)
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		if cfg.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				pg.Close()
				return nil, err
			}
		}

		if u, err := url.Parse(cfg.URL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		} else {
			slog.Info("connected to database")
		}
		return pg, nil

	case config.DriverSQLite:
		s, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("opened sqlite store", "path", cfg.SQLitePath)
		return s, nil

	default:
		slog.Warn("using in-memory store; datasets are lost on restart")
		return store.NewMemory(), nil
	}
}

// sessionStore is the configured auth.Sessions plus the Redis client behind
// it, when there is one, so the rate limiter can share it.
type sessionStore struct {
	auth.Sessions
	redis *redis.Client
}

func (s sessionStore) close() {
	if s.redis != nil {
		s.redis.Close()
	}
}

func openSessions(ctx context.Context, cfg config.SessionConfig) (sessionStore, error) {
	if cfg.Driver != config.SessionRedis {
		return sessionStore{Sessions: auth.NewMemorySessions(cfg.TTL)}, nil
	}

	client, err := auth.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return sessionStore{}, err
	}
	slog.Info("connected to redis", "addr", cfg.RedisAddr)
	return sessionStore{
		Sessions: auth.NewRedisSessions(client, cfg.RedisPrefix, cfg.TTL),
		redis:    client,
	}, nil
}

// serviceOptions builds the optional archive and event collaborators.
// The returned func releases them.
func serviceOptions(ctx context.Context, cfg *config.Config) ([]core.Option, func(), error) {
	var opts []core.Option
	closers := []func(){}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Archive.Enabled {
		arch, err := archive.NewMinIO(ctx, archive.Config{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			UseSSL:    cfg.Archive.UseSSL,
			Region:    cfg.Archive.Region,
		})
		if err != nil {
			return nil, closeAll, err
		}
		slog.Info("upload archive enabled", "endpoint", cfg.Archive.Endpoint, "bucket", cfg.Archive.Bucket)
		opts = append(opts, core.WithArchiver(arch))
	}

	if cfg.Events.Enabled {
		pub, err := events.DialRabbit(cfg.Events.URL, cfg.Events.Exchange)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() {
			if err := pub.Close(); err != nil {
				slog.Warn("close event publisher", "error", err)
			}
		})
		slog.Info("event publishing enabled", "exchange", cfg.Events.Exchange)
		opts = append(opts, core.WithPublisher(pub))
	}

	return opts, closeAll, nil
}
