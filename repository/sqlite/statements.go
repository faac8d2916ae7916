package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nijaru/yt-audio/errors"
)

const (
	createVideoQuery = `
        INSERT INTO video_info (
            title, description, thumbnail_url, blur_thumbnail_url,
            duration, like_count, view_count,
            channel_id, channel_name, channel_avatar_url, channel_description,
            mp3_file_path, status, created_at, deleted_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	createPlaylistEntryQuery = `
        INSERT INTO playlist_videos (title, short_url, created_at)
        VALUES (?, ?, ?)
    `
)

type PreparedStatements struct {
	createVideo         *sql.Stmt
	createPlaylistEntry *sql.Stmt
}

func (stmts *PreparedStatements) Prepare(ctx context.Context, db *sql.DB) error {
	const op = "PreparedStatements.Prepare"

	var err error

	if stmts.createVideo, err = db.PrepareContext(ctx, createVideoQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare createVideo statement")
	}

	if stmts.createPlaylistEntry, err = db.PrepareContext(ctx, createPlaylistEntryQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare createPlaylistEntry statement")
	}

	return nil
}

func (stmts *PreparedStatements) Close() error {
	var errs []error

	statements := [...]*sql.Stmt{
		stmts.createVideo,
		stmts.createPlaylistEntry,
	}

	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to close prepared statements: %v", errs)
	}

	return nil
}
