package video

import (
	"context"
	"os"

	"github.com/nijaru/yt-audio/artifact"
	"github.com/nijaru/yt-audio/errors"
	"github.com/nijaru/yt-audio/models"
	"github.com/nijaru/yt-audio/retry"
	"github.com/nijaru/yt-audio/ytdlp"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type service struct {
	repo      Repository
	extractor Extractor
	fetcher   *retry.Fetcher
	queue     *JobQueue
	lifecycle artifact.Lifecycle
	uploader  Uploader
	config    Config
	logger    *logrus.Logger
}

type Option func(*service)

// WithUploader mirrors every completed artifact through u.
func WithUploader(u Uploader) Option {
	return func(s *service) {
		s.uploader = u
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// NewService wires the retriever and starts the queue's workers on the
// extraction job.
func NewService(
	repo Repository,
	extractor Extractor,
	fetcher *retry.Fetcher,
	queue *JobQueue,
	lifecycle artifact.Lifecycle,
	config Config,
	opts ...Option,
) Service {
	s := &service{
		repo:      repo,
		extractor: extractor,
		fetcher:   fetcher,
		queue:     queue,
		lifecycle: lifecycle,
		config:    config,
		logger:    logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.config.ArtifactTTL <= 0 {
		s.config.ArtifactTTL = artifact.DefaultTTL
	}

	queue.Start(s.extract)
	return s
}

func (s *service) Fetch(ctx context.Context, url string) (*models.VideoMetadata, error) {
	const op = "VideoService.Fetch"
	logger := s.logger.WithFields(logrus.Fields{
		"op":  op,
		"url": url,
	})
	logger.Info("Fetching video info")

	info, err := retry.Call(ctx, s.fetcher, func(ctx context.Context) (*ytdlp.VideoInfo, error) {
		return s.extractor.VideoInfo(ctx, url)
	})
	if err != nil {
		logger.WithError(err).Error("Failed to retrieve video info")
		return nil, errors.Upstream(op, err)
	}

	meta, err := normalize(info)
	if err != nil {
		logger.WithError(err).Error("Failed to normalize video info")
		return nil, errors.Upstream(op, err)
	}

	name := artifact.NewName()
	path := artifact.Path(s.config.TempDir, name)

	meta.ArtifactURL, err = artifact.PublicURL(s.config.AppURL, name)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to build artifact url")
	}
	meta.Status = models.StatusProcessing

	id, err := s.repo.CreateVideo(ctx, models.NewVideoRecord(meta, path))
	if err != nil {
		logger.WithError(err).Error("Failed to save video info")
		return nil, err
	}

	logger = logger.WithFields(logrus.Fields{
		"record_id":   id,
		"artifact_id": artifact.ID(name),
	})

	// The file exists before the timer is armed so expiry always has
	// something to remove; jobs only ever open it.
	placeholderErr := createPlaceholder(path)
	s.lifecycle.ScheduleDeletion(path, s.config.ArtifactTTL)

	if placeholderErr != nil {
		logger.WithError(placeholderErr).Error("Failed to create artifact file, extraction skipped")
		return meta, nil
	}

	if err := s.queue.Submit(NewExtractionJob(artifact.ID(name), url, path)); err != nil {
		logger.WithError(err).WithField("dropped_total", s.queue.Dropped()).Error("Extraction job dropped")
		return meta, nil
	}

	logger.Info("Video info retrieved, extraction started")
	return meta, nil
}

func createPlaceholder(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return pkgerrors.Wrap(err, "create artifact")
	}
	return f.Close()
}
