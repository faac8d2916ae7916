package api

import (
	"encoding/json"
	"net/http"

	"github.com/nijaru/yt-audio/errors"
	"github.com/nijaru/yt-audio/middleware"
	"github.com/sirupsen/logrus"
)

const statusSuccess = "success"

// Response is the envelope for successful API calls.
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("Failed to encode response")
	}
}

func respondJSON(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	writeJSON(w, code, Response{
		Status: statusSuccess,
		Data:   data,
	})
}

// respondError maps AppErrors to their status; anything else is a 500
// carrying the error text.
func respondError(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, err error) {
	code := http.StatusInternalServerError
	msg := err.Error()

	if appErr, ok := errors.As(err); ok {
		code = appErr.Code
		msg = appErr.Message
	}
	if msg == "" {
		msg = "Internal server error"
	}

	entry := logger.WithFields(logrus.Fields{
		"error":      err,
		"status":     code,
		"request_id": middleware.GetRequestID(r.Context()),
		"path":       r.URL.Path,
		"method":     r.Method,
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request error")
	} else {
		entry.Warn("Request rejected")
	}

	writeJSON(w, code, ErrorResponse{Message: msg})
}
