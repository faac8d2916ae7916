package playlist

import (
	"context"
	"sync"

	"github.com/nijaru/yt-audio/errors"
	"github.com/nijaru/yt-audio/models"
	"github.com/nijaru/yt-audio/repository"
	"github.com/nijaru/yt-audio/retry"
	"github.com/sirupsen/logrus"
)

type Service interface {
	// Fetch lists the playlist at url and records every member.
	Fetch(ctx context.Context, url string) (*models.PlaylistSummary, error)
}

type Repository = repository.PlaylistRepository

// Lister enumerates playlist members in provider order.
type Lister interface {
	PlaylistEntries(ctx context.Context, url string) ([]models.PlaylistEntry, error)
}

type service struct {
	repo    Repository
	lister  Lister
	fetcher *retry.Fetcher
	logger  *logrus.Logger
}

func NewService(repo Repository, lister Lister, fetcher *retry.Fetcher, logger *logrus.Logger) Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &service{
		repo:    repo,
		lister:  lister,
		fetcher: fetcher,
		logger:  logger,
	}
}

func (s *service) Fetch(ctx context.Context, url string) (*models.PlaylistSummary, error) {
	const op = "PlaylistService.Fetch"
	logger := s.logger.WithFields(logrus.Fields{
		"op":  op,
		"url": url,
	})

	entries, err := retry.Call(ctx, s.fetcher, func(ctx context.Context) ([]models.PlaylistEntry, error) {
		return s.lister.PlaylistEntries(ctx, url)
	})
	if err != nil {
		logger.WithError(err).Error("Failed to retrieve playlist")
		return nil, errors.Upstream(op, err)
	}

	if err := s.saveAll(ctx, entries); err != nil {
		logger.WithError(err).Error("Failed to save playlist videos")
		return nil, errors.Internal(op, err, "Failed to save playlist videos")
	}

	logger.WithField("count", len(entries)).Info("Playlist saved")
	return models.NewPlaylistSummary(len(entries)), nil
}

// saveAll writes every entry concurrently and waits for all writes. The
// first error is returned; the others are logged.
func (s *service) saveAll(ctx context.Context, entries []models.PlaylistEntry) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i := range entries {
		wg.Add(1)
		go func(entry *models.PlaylistEntry) {
			defer wg.Done()

			if _, err := s.repo.CreatePlaylistEntry(ctx, entry); err != nil {
				mu.Lock()
				defer mu.Unlock()
				if firstErr == nil {
					firstErr = err
				} else {
					s.logger.WithError(err).WithField("short_url", entry.ShortURL).Warn("Additional playlist write failed")
				}
			}
		}(&entries[i])
	}

	wg.Wait()
	return firstErr
}
