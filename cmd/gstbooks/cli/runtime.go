package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gstbooks/gstbooks/internal/app"
	"github.com/gstbooks/gstbooks/internal/platform/db"
	"github.com/gstbooks/gstbooks/internal/store"
)

// runtime bundles the dependencies shared by the database commands.
type runtime struct {
	cfg    *app.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	store  *store.Store
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, pool: pool, store: store.New(pool)}, nil
}

func (r *runtime) Close() {
	if r != nil && r.pool != nil {
		r.pool.Close()
	}
}
