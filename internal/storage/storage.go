// Package storage persists per-recipient mute flags across restarts.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"duelbot/internal/kit"
	"duelbot/pkg/logx"
)

// Config configures storage.
//
// Driver values:
//   - "none" (or empty): mute flags live in memory only
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the minimal persistence API used by the mute store.
type Store interface {
	LoadMuted(ctx context.Context) (map[kit.Recipient]bool, error)
	SetMuted(ctx context.Context, r kit.Recipient, muted bool) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return nil, nil
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}
