package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"teamroping/internal/cache"
	"teamroping/internal/config"
	"teamroping/internal/db"
	"teamroping/internal/service"
	"teamroping/internal/store"
)

// App holds the long-lived dependencies shared by the server and the CLIs.
type App struct {
	Service *service.Service
	Redis   *redis.Client
	DB      *sql.DB
}

// New connects storage and cache. MySQL falls back to the in-memory store
// when disabled or unreachable; Redis is optional.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	a := &App{}
	var st store.Store
	if cfg.DBEnabled {
		conn, err := db.NewMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			log.Warn("mysql unavailable, using in-memory store", zap.Error(err))
		} else {
			if err := db.Migrate(ctx, conn); err != nil {
				_ = conn.Close()
				return nil, err
			}
			a.DB = conn
			st = store.NewMySQLStore(conn, log)
			log.Info("mysql connected")
		}
	}
	if st == nil {
		st = store.NewMemoryStore()
	}

	opts := []service.Option{service.WithDefaultEntries(cfg.DefaultEntriesPerRoper)}
	if cfg.RedisEnabled {
		rdb, err := db.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn("redis unavailable, standings cache and admin sessions disabled", zap.Error(err))
		} else {
			a.Redis = rdb
			ttl := time.Duration(cfg.StandingsCacheTTLSec) * time.Second
			opts = append(opts, service.WithCache(cache.NewStandingsCache(rdb, ttl)))
		}
	}
	a.Service = service.New(st, log, opts...)
	return a, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
