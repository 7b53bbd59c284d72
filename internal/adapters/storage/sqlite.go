package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

const memory = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    datetime INTEGER NOT NULL,
    channel TEXT NOT NULL,
    nick TEXT NOT NULL COLLATE NOCASE,
    message TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_logs_nick ON logs (nick, datetime);
CREATE INDEX IF NOT EXISTS idx_logs_channel ON logs (channel, nick, datetime);
`

// SQLite keeps the message log in a sqlite database.
type SQLite struct {
	conn *sql.DB
	path string
	now  func() time.Time
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}

	if path != memory {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// every connection to ":memory:" is a separate database
	if path == memory {
		conn.SetMaxOpenConns(1)
	} else if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "PRAGMA busy_timeout=30000"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLite{conn: conn, path: path, now: time.Now}, nil
}

func (s *SQLite) Message(ctx context.Context, channel, nick, text string) error {
	_, err := s.conn.ExecContext(ctx,
		"INSERT INTO logs (datetime, channel, nick, message) VALUES (?, ?, ?, ?)",
		s.now().UnixNano(), channel, nick, text)
	if err != nil {
		return fmt.Errorf("failed to log message: %w", err)
	}

	return nil
}

func (s *SQLite) LastSeen(ctx context.Context, nick string) (domain.Seen, bool, error) {
	var (
		seen  domain.Seen
		stamp int64
	)

	err := s.conn.QueryRowContext(ctx,
		"SELECT nick, channel, datetime FROM logs WHERE nick = ? ORDER BY datetime DESC, id DESC LIMIT 1",
		nick).Scan(&seen.Nick, &seen.Channel, &stamp)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Seen{}, false, nil
	}
	if err != nil {
		return domain.Seen{}, false, fmt.Errorf("failed to query last seen: %w", err)
	}

	seen.Time = time.Unix(0, stamp)

	return seen, true, nil
}

func (s *SQLite) Strike(ctx context.Context, channel, nick string, count int) (int, error) {
	if count < 0 {
		count = 0
	}

	res, err := s.conn.ExecContext(ctx, `
DELETE FROM logs WHERE id IN (
    SELECT id FROM logs WHERE channel = ? AND nick = ? ORDER BY datetime DESC, id DESC LIMIT ?
)`, channel, nick, count+1)
	if err != nil {
		return 0, fmt.Errorf("failed to strike messages: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count struck messages: %w", err)
	}

	return struck(removed), nil
}

func (s *SQLite) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
