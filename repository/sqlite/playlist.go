package sqlite

import (
	"context"
	"time"

	"github.com/nijaru/yt-audio/errors"
	"github.com/nijaru/yt-audio/models"
)

func (r *Repository) CreatePlaylistEntry(ctx context.Context, entry *models.PlaylistEntry) (int64, error) {
	const op = "SQLiteRepository.CreatePlaylistEntry"

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var id int64
	err := r.db.withRetry(ctx, op, func() error {
		res, err := r.db.statements.createPlaylistEntry.ExecContext(ctx,
			entry.Title,
			entry.ShortURL,
			createdAt,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, errors.Internal(op, err, "Failed to save playlist video")
	}

	return id, nil
}
