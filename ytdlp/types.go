package ytdlp

import (
	"encoding/json"
	"time"

	"github.com/nijaru/yt-audio/proxy"
)

const (
	DefaultPath = "yt-dlp"

	// WatchURLPrefix turns a video id into a short watch URL.
	WatchURLPrefix = "https://www.youtube.com/watch?v="
)

// Config holds the settings shared by every yt-dlp invocation.
type Config struct {
	Path      string         // Path to the yt-dlp executable
	Proxy     proxy.Endpoint // Outbound proxy, skipped when not enabled
	ExtraArgs []string       // Appended before the target URL
	// MetadataTimeout bounds metadata and playlist calls. Zero means no limit.
	MetadataTimeout time.Duration
}

func (c Config) path() string {
	if c.Path != "" {
		return c.Path
	}
	return DefaultPath
}

type Thumbnail struct {
	URL    string `json:"url"`
	ID     string `json:"id,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// VideoInfo is the subset of `yt-dlp -J` output the service consumes.
// Numeric fields are kept raw because yt-dlp emits floats, ints or null
// depending on the extractor.
type VideoInfo struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Thumbnails  []Thumbnail     `json:"thumbnails"`
	Duration    json.RawMessage `json:"duration"`
	ViewCount   json.RawMessage `json:"view_count"`
	LikeCount   json.RawMessage `json:"like_count"`
	Channel     string          `json:"channel"`
	ChannelID   string          `json:"channel_id"`
	ChannelURL  string          `json:"channel_url"`
	Uploader    string          `json:"uploader"`
	UploaderURL string          `json:"uploader_url"`
}

// ChannelName prefers the channel field and falls back to the uploader.
func (v *VideoInfo) ChannelName() string {
	if v.Channel != "" {
		return v.Channel
	}
	return v.Uploader
}

// flatEntry is one line of `--flat-playlist --dump-json` output.
type flatEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

func (e flatEntry) shortURL() string {
	if e.URL != "" {
		return e.URL
	}
	return WatchURLPrefix + e.ID
}
