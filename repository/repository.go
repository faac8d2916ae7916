package repository

import (
	"context"

	"github.com/nijaru/yt-audio/models"
)

type VideoRepository interface {
	CreateVideo(ctx context.Context, video *models.VideoRecord) (int64, error)
}

type PlaylistRepository interface {
	CreatePlaylistEntry(ctx context.Context, entry *models.PlaylistEntry) (int64, error)
}
