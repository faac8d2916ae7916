package video

import (
	"context"
	"io"
	"time"

	"github.com/nijaru/yt-audio/models"
	"github.com/nijaru/yt-audio/repository"
	"github.com/nijaru/yt-audio/ytdlp"
)

type Service interface {
	// Fetch retrieves and normalizes metadata for url, records it and starts
	// audio extraction in the background.
	Fetch(ctx context.Context, url string) (*models.VideoMetadata, error)
}

type Repository = repository.VideoRepository

// Extractor reads metadata and audio from the video provider.
type Extractor interface {
	VideoInfo(ctx context.Context, url string) (*ytdlp.VideoInfo, error)
	AudioStream(ctx context.Context, url string) (io.ReadCloser, error)
}

// Uploader copies a finished artifact to remote storage and removes copies
// whose local file expired while they were uploading.
type Uploader interface {
	UploadArtifact(ctx context.Context, key, path string) error
	DeleteArtifact(ctx context.Context, key string) error
}

type Config struct {
	// TempDir is where artifacts are written
	TempDir string `json:"temp_dir"`

	// AppURL is the public base URL artifacts are served from
	AppURL string `json:"app_url"`

	// ArtifactTTL is how long an artifact lives after its job is launched
	ArtifactTTL time.Duration `json:"artifact_ttl"`

	// ProcessTimeout bounds a single extraction job. Zero means no limit.
	ProcessTimeout time.Duration `json:"process_timeout"`
}
