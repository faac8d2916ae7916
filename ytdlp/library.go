package ytdlp

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/nijaru/yt-audio/models"
	"github.com/nijaru/yt-audio/proxy"
	"github.com/nijaru/yt-audio/retry"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ytget "github.com/ytget/ytdlp/v2"
)

// ErrNoPlaylistID is returned when a URL carries no list parameter.
var ErrNoPlaylistID = errors.New("could not extract playlist id from url")

// LibraryLister enumerates playlists with the pure-Go ytget client instead of
// the yt-dlp binary. Requests go through ep when a proxy is configured.
type LibraryLister struct {
	client *http.Client
	logger *logrus.Logger
	// limit caps the number of items fetched; zero fetches all.
	limit int
}

func NewLibraryLister(ep proxy.Endpoint, logger *logrus.Logger) *LibraryLister {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LibraryLister{
		client: ep.HTTPClient(),
		logger: logger,
	}
}

func (l *LibraryLister) downloader() *ytget.Downloader {
	d := ytget.New()
	if l.client != nil {
		d = d.WithHTTPClient(l.client)
	}
	return d
}

func (l *LibraryLister) PlaylistEntries(ctx context.Context, rawURL string) ([]models.PlaylistEntry, error) {
	const op = "ytdlp.LibraryLister.PlaylistEntries"

	playlistID, err := PlaylistID(rawURL)
	if err != nil {
		return nil, newExtractorError(op, err, "invalid playlist url", "")
	}

	l.logger.WithFields(logrus.Fields{
		"op":          op,
		"playlist_id": playlistID,
	}).Debug("Fetching playlist items")

	items, err := l.downloader().GetPlaylistItemsAll(ctx, playlistID, l.limit)
	if err != nil {
		if isRateLimitText(err.Error()) {
			return nil, newExtractorError(op, retry.ErrRateLimited, err.Error(), "")
		}
		return nil, newExtractorError(op, errors.Wrap(err, "get playlist items"), "failed to list playlist", "")
	}

	entries := make([]models.PlaylistEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, models.PlaylistEntry{
			Title:    it.Title,
			ShortURL: WatchURLPrefix + it.VideoID,
		})
	}

	return entries, nil
}

// PlaylistID extracts the list parameter from a playlist or watch URL.
func PlaylistID(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", errors.Wrap(err, "parse url")
	}

	id := u.Query().Get("list")
	if id == "" {
		return "", ErrNoPlaylistID
	}
	return id, nil
}
