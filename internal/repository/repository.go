// Package repository archives finished matches.
package repository

import (
	"context"
	"fmt"

	"github.com/clonesclash/clash-server-go/internal/game"
	"go.uber.org/zap"
)

// Drivers accepted by Open.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the result store named by driver. The "none" driver
// returns a nil store and no error.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (game.ResultStore, error) {
	switch driver {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		store, err := OpenSQLite(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverPostgres:
		store, err := OpenPostgres(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
