package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/opencurb/curb-cli/internal/store"
)

// openStore constructs the configured snapshot store and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var st store.Store

	switch cfg.Store.Driver {
	case "sqlite", "":
		s, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		st = s
	case "postgres":
		pool, err := snapshotPool(ctx)
		if err != nil {
			return nil, err
		}
		st = store.NewPostgres(pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Store.Driver)
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// snapshotPool creates a pgxpool.Pool from cfg.Store.DatabaseURL.
func snapshotPool(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := cfg.Store.DatabaseURL
	if dsn == "" {
		return nil, eris.New("store: no database_url configured (set store.database_url)")
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: parse connection string")
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "store: create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "store: ping database")
	}
	return pool, nil
}
