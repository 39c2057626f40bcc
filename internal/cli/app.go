package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/folio/folio/internal/authority"
	"github.com/folio/folio/internal/config"
	"github.com/folio/folio/internal/database"
)

// app holds the shared connections every command starts from
type app struct {
	cfg       *config.Config
	db        *sqlx.DB
	redis     *redis.Client
	authority authority.Client
}

func newApp(ctx context.Context, cfg *config.Config, withRedis bool) (*app, error) {
	db, err := database.Connect(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, db: db, authority: authority.Disabled{}}

	if withRedis {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		a.redis = redis.NewClient(opt)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}

	if cfg.AuthorityEnabled() {
		a.authority = authority.NewHTTPClient(
			cfg.AuthorityBaseURL,
			cfg.AuthorityToken,
			authority.WithTimeout(cfg.AuthorityTimeout),
			authority.WithSigningKey(cfg.AuthoritySigningKey),
		)
	}

	return a, nil
}

// Close releases the connections
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.db.Close()
}
