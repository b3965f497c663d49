package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mediguru/mediguru-gateway/config"
	"github.com/mediguru/mediguru-gateway/internal/storage/postgres"
)

// OpenRedis connects and pings redis. It returns nil, nil when redis is not
// configured.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

// OpenDB connects to postgres and makes sure the audit table exists. It
// returns all nils when no database host is configured.
func OpenDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, *postgres.PushAuditRepository, error) {
	if !cfg.Enabled() {
		return nil, nil, nil
	}

	db, err := postgres.NewConnection(ctx, &cfg)
	if err != nil {
		return nil, nil, err
	}

	audit := postgres.NewPushAuditRepository(db)
	if err := audit.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	return db, audit, nil
}
