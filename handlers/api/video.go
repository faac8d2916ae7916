package api

import (
	"net/http"

	"github.com/nijaru/yt-audio/services/video"
	"github.com/nijaru/yt-audio/validation"
	"github.com/sirupsen/logrus"
)

type VideoHandler struct {
	service   video.Service
	validator *validation.Validator
	logger    *logrus.Logger
}

func NewVideoHandler(service video.Service, validator *validation.Validator, logger *logrus.Logger) *VideoHandler {
	return &VideoHandler{
		service:   service,
		validator: validator,
		logger:    logger,
	}
}

// HandleGetVideoInfo handles GET /youtube/video/info
func (h *VideoHandler) HandleGetVideoInfo(w http.ResponseWriter, r *http.Request) {
	url, err := h.validator.RequiredQuery(r, "url")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	meta, err := h.service.Fetch(r.Context(), url)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, r, http.StatusOK, meta)
}
