package models

import (
	"time"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Channel describes the uploader. yt-dlp's -J output carries no channel
// avatar, so AvatarURL is always empty; Description holds the uploader's
// profile URL.
type Channel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatarUrl"`
	Description string `json:"description"`
}

// VideoMetadata is the normalized description of a single video returned to
// API callers.
type VideoMetadata struct {
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	ThumbnailURL     string  `json:"thumbnailUrl"`
	BlurThumbnailURL string  `json:"blurThumbnailUrl"`
	Duration         int64   `json:"duration"`
	LikeCount        *int64  `json:"likeCount"`
	ViewCount        int64   `json:"viewCount"`
	Channel          Channel `json:"channel"`
	ArtifactURL      string  `json:"artifactUrl"`
	Status           Status  `json:"status"`
}

// VideoRecord is the persisted form of VideoMetadata. It stores the artifact
// filesystem path rather than its public URL.
type VideoRecord struct {
	ID                 int64
	Title              string
	Description        string
	ThumbnailURL       string
	BlurThumbnailURL   string
	Duration           int64
	LikeCount          *int64
	ViewCount          int64
	ChannelID          string
	ChannelName        string
	ChannelAvatarURL   string
	ChannelDescription string
	ArtifactPath       string
	Status             Status
	CreatedAt          time.Time
	DeletedAt          *time.Time
}

// NewVideoRecord flattens metadata into a record pointing at artifactPath.
func NewVideoRecord(m *VideoMetadata, artifactPath string) *VideoRecord {
	return &VideoRecord{
		Title:              m.Title,
		Description:        m.Description,
		ThumbnailURL:       m.ThumbnailURL,
		BlurThumbnailURL:   m.BlurThumbnailURL,
		Duration:           m.Duration,
		LikeCount:          m.LikeCount,
		ViewCount:          m.ViewCount,
		ChannelID:          m.Channel.ID,
		ChannelName:        m.Channel.Name,
		ChannelAvatarURL:   m.Channel.AvatarURL,
		ChannelDescription: m.Channel.Description,
		ArtifactPath:       artifactPath,
		Status:             m.Status,
		CreatedAt:          time.Now().UTC(),
	}
}
