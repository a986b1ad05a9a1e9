package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"duelbot/internal/kit"
	"duelbot/pkg/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS mute_flags (
	recipient  TEXT PRIMARY KEY,
	muted      INTEGER NOT NULL,
	updated_at TEXT NOT NULL
);
`

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) LoadMuted(ctx context.Context) (map[kit.Recipient]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT recipient, muted FROM mute_flags")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[kit.Recipient]bool{}
	for rows.Next() {
		var r string
		var muted int
		if err := rows.Scan(&r, &muted); err != nil {
			return nil, err
		}
		out[kit.Recipient(r)] = muted != 0
	}
	return out, rows.Err()
}

func (s *sqliteStore) SetMuted(ctx context.Context, r kit.Recipient, muted bool) error {
	v := 0
	if muted {
		v = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mute_flags (recipient, muted, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(recipient) DO UPDATE SET muted = excluded.muted, updated_at = excluded.updated_at`,
		string(r), v, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
