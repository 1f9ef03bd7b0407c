package main

import (
	"context"

	"github.com/sells-group/thesis-scout/internal/store"
)

// initStore opens the configured report index and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	sc := cfg.Store
	if (sc.Driver == "" || sc.Driver == "sqlite") && sc.DatabaseURL == "" {
		sc.DatabaseURL = "thesis-scout.db"
	}
	return store.Open(ctx, sc)
}
