package storage

import (
	"context"
	"fmt"

	"prema-client/internal/config"

	"github.com/rs/zerolog/log"
)

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "memory":
		s = NewMemoryStore()
	case "sqlite", "":
		s, err = OpenSQLite(ctx, cfg.Path)
	case "postgres":
		s, err = OpenPostgres(ctx, cfg.Postgres.DSN(), cfg.DeviceID)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	log.Debug().Str("driver", cfg.Driver).Msg("Opened client state store")
	return s, nil
}
