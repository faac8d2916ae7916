package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/nijaru/yt-audio/errors"
	"github.com/nijaru/yt-audio/models"
)

type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateVideo(ctx context.Context, video *models.VideoRecord) (int64, error) {
	const op = "SQLiteRepository.CreateVideo"

	if video.CreatedAt.IsZero() {
		video.CreatedAt = time.Now().UTC()
	}

	var id int64
	err := r.db.withRetry(ctx, op, func() error {
		res, err := r.db.statements.createVideo.ExecContext(ctx,
			video.Title,
			video.Description,
			video.ThumbnailURL,
			video.BlurThumbnailURL,
			video.Duration,
			nullInt64(video.LikeCount),
			video.ViewCount,
			video.ChannelID,
			video.ChannelName,
			video.ChannelAvatarURL,
			video.ChannelDescription,
			video.ArtifactPath,
			string(video.Status),
			video.CreatedAt,
			nullTime(video.DeletedAt),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, errors.Internal(op, err, "Failed to save video info")
	}

	video.ID = id
	return id, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
