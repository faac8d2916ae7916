package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nijaru/yt-audio/errors"
	"github.com/sirupsen/logrus"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS video_info (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    thumbnail_url TEXT NOT NULL,
    blur_thumbnail_url TEXT NOT NULL,
    duration INTEGER NOT NULL,
    like_count INTEGER,
    view_count INTEGER NOT NULL,
    channel_id TEXT NOT NULL DEFAULT '',
    channel_name TEXT NOT NULL DEFAULT '',
    channel_avatar_url TEXT NOT NULL DEFAULT '',
    channel_description TEXT NOT NULL DEFAULT '',
    mp3_file_path TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS playlist_videos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    short_url TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_video_info_status ON video_info(status);
CREATE INDEX IF NOT EXISTS idx_playlist_videos_short_url ON playlist_videos(short_url);
`

type DBConfig struct {
	MaxRetries         int
	RetryDelay         time.Duration
	BusyTimeout        time.Duration
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

func DefaultDBConfig() DBConfig {
	return DBConfig{
		MaxRetries:         3,
		RetryDelay:         100 * time.Millisecond,
		BusyTimeout:        5 * time.Second,
		MaxConnections:     10,
		MaxIdleConnections: 5,
		ConnMaxLifetime:    time.Hour,
	}
}

// DB wraps the connection pool and its prepared statements.
type DB struct {
	conn       *sql.DB
	statements *PreparedStatements
	config     DBConfig
	logger     *logrus.Logger
}

// Open creates the database file if needed, applies the schema and prepares
// statements.
func Open(ctx context.Context, path string, cfg DBConfig, logger *logrus.Logger) (*DB, error) {
	const op = "sqlite.Open"

	if logger == nil {
		logger = logrus.StandardLogger()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Internal(op, err, "failed to create database directory")
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL",
		path, cfg.BusyTimeout.Milliseconds())

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Internal(op, err, "failed to open database")
	}

	conn.SetMaxOpenConns(cfg.MaxConnections)
	conn.SetMaxIdleConns(cfg.MaxIdleConnections)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := configurePragmas(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}

	if err := execSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}

	stmts := &PreparedStatements{}
	if err := stmts.Prepare(ctx, conn); err != nil {
		stmts.Close()
		conn.Close()
		return nil, err
	}

	logger.WithField("path", path).Info("Database ready")

	return &DB{
		conn:       conn,
		statements: stmts,
		config:     cfg,
		logger:     logger,
	}, nil
}

func (db *DB) Close() error {
	const op = "sqlite.Close"

	stmtErr := db.statements.Close()
	if err := db.conn.Close(); err != nil {
		return errors.Internal(op, err, "failed to close database")
	}
	if stmtErr != nil {
		return errors.Internal(op, stmtErr, "failed to close statements")
	}
	return nil
}

func configurePragmas(ctx context.Context, db *sql.DB) error {
	const op = "sqlite.configurePragmas"

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -2000", // Use up to 2MB of memory for cache
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return errors.Internal(op, err, fmt.Sprintf("failed to set pragma: %s", pragma))
		}
	}

	return nil
}

func execSchema(ctx context.Context, db *sql.DB) error {
	const op = "sqlite.execSchema"

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Internal(op, err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Internal(
				op,
				err,
				fmt.Sprintf("failed to execute schema statement: %s", stmt),
			)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Internal(op, err, "failed to commit schema transaction")
	}

	return nil
}

// withRetry repeats fn while SQLite reports lock contention.
func (db *DB) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for i := 0; i <= db.config.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return errors.Internal(op, ctx.Err(), "context cancelled")
			case <-time.After(db.config.RetryDelay * time.Duration(i)):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isLockError(lastErr) {
			return lastErr
		}

		db.logger.WithFields(logrus.Fields{
			"op":      op,
			"attempt": i + 1,
		}).Warn("Database locked, retrying")
	}
	return lastErr
}

func isLockError(err error) bool {
	return strings.Contains(err.Error(), "database is locked") ||
		strings.Contains(err.Error(), "busy")
}
