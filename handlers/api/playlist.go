package api

import (
	"net/http"

	"github.com/nijaru/yt-audio/services/playlist"
	"github.com/nijaru/yt-audio/validation"
	"github.com/sirupsen/logrus"
)

type PlaylistHandler struct {
	service   playlist.Service
	validator *validation.Validator
	logger    *logrus.Logger
}

func NewPlaylistHandler(service playlist.Service, validator *validation.Validator, logger *logrus.Logger) *PlaylistHandler {
	return &PlaylistHandler{
		service:   service,
		validator: validator,
		logger:    logger,
	}
}

// HandleGetPlaylist handles GET /youtube/playlist
func (h *PlaylistHandler) HandleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	url, err := h.validator.RequiredQuery(r, "url")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	summary, err := h.service.Fetch(r.Context(), url)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, r, http.StatusOK, summary)
}
