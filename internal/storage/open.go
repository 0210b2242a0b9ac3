package storage

import (
	"context"
	"errors"
	"strings"

	logx "github.com/DeclanJeon/autostory-sub001/pkg/logx"
)

// Store is the minimal persistence API used by the publish core.
type Store interface {
	SaveState(ctx context.Context, st State) error
	LoadState(ctx context.Context) (st State, ok bool, err error)
	AppendHistory(ctx context.Context, e HistoryEntry) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
