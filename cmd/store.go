package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/aquanexus/credits-cli/internal/store"
)

// openStore opens the configured backend. Callers own Close.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store.database_url must point at a sqlite file")
		}
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres", "":
		if err := cfg.RequireDatabase(); err != nil {
			return nil, err
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
