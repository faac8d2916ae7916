package video

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/nijaru/yt-audio/models"
	"github.com/nijaru/yt-audio/ytdlp"
	"github.com/pkg/errors"
)

var (
	ErrParse        = errors.New("failed to parse provider metadata")
	ErrNoThumbnails = errors.New("provider returned no thumbnails")
)

// normalize maps raw extractor output onto VideoMetadata. Thumbnails are
// positional: the first is the display image and the last the placeholder.
func normalize(info *ytdlp.VideoInfo) (*models.VideoMetadata, error) {
	if len(info.Thumbnails) == 0 {
		return nil, ErrNoThumbnails
	}

	duration, err := parseInteger(info.Duration)
	if err != nil {
		return nil, errors.Wrapf(ErrParse, "duration: %v", err)
	}

	views, err := parseInteger(info.ViewCount)
	if err != nil {
		return nil, errors.Wrapf(ErrParse, "view count: %v", err)
	}

	return &models.VideoMetadata{
		Title:            info.Title,
		Description:      info.Description,
		ThumbnailURL:     info.Thumbnails[0].URL,
		BlurThumbnailURL: info.Thumbnails[len(info.Thumbnails)-1].URL,
		Duration:         duration,
		LikeCount:        parseOptionalInteger(info.LikeCount),
		ViewCount:        views,
		Channel: models.Channel{
			ID:          info.ChannelID,
			Name:        info.ChannelName(),
			AvatarURL:   "", // not present in yt-dlp metadata
			Description: info.UploaderURL,
		},
		Status: models.StatusProcessing,
	}, nil
}

// parseInteger accepts a JSON number or a numeric string. Fractions are
// truncated.
func parseInteger(raw json.RawMessage) (int64, error) {
	s := string(bytes.TrimSpace(raw))
	if s == "" || s == "null" {
		return 0, errors.New("missing value")
	}

	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return 0, err
		}
		s = strings.TrimSpace(unquoted)
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.Errorf("non-finite value %q", s)
	}
	return int64(f), nil
}

// parseOptionalInteger returns nil for absent or non-numeric values.
func parseOptionalInteger(raw json.RawMessage) *int64 {
	n, err := parseInteger(raw)
	if err != nil {
		return nil
	}
	return &n
}
