package models

import "time"

// PlaylistEntry is one member of a playlist as returned by the provider.
type PlaylistEntry struct {
	ID        int64     `json:"-"`
	Title     string    `json:"title"`
	ShortURL  string    `json:"shortUrl"`
	CreatedAt time.Time `json:"-"`
}

const PlaylistSavedMessage = "Videos saved successfully"

// PlaylistSummary is the aggregate result of a playlist retrieval.
type PlaylistSummary struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

func NewPlaylistSummary(count int) *PlaylistSummary {
	return &PlaylistSummary{
		Message: PlaylistSavedMessage,
		Count:   count,
	}
}
