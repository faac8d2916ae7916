package ytdlp

import (
	"fmt"
	"strings"

	"github.com/nijaru/yt-audio/retry"
)

// ExtractorError describes a failed yt-dlp invocation.
type ExtractorError struct {
	Op      string
	Err     error
	Message string
	Stderr  string
}

func (e *ExtractorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ExtractorError) Unwrap() error {
	return e.Err
}

func newExtractorError(op string, err error, message, stderr string) *ExtractorError {
	return &ExtractorError{
		Op:      op,
		Err:     err,
		Message: message,
		Stderr:  stderr,
	}
}

var rateLimitMarkers = []string{
	"http error 429",
	"too many requests",
	"rate-limit",
	"rate limit",
}

// isRateLimitText reports whether an error message or stderr dump looks like
// provider throttling.
func isRateLimitText(s string) bool {
	s = strings.ToLower(s)
	for _, marker := range rateLimitMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// classify maps a failed run onto an ExtractorError, marking throttling with
// retry.ErrRateLimited.
func classify(op string, err error, stderr string) error {
	msg := strings.TrimSpace(stderr)
	if isRateLimitText(msg) || isRateLimitText(err.Error()) {
		return newExtractorError(op, retry.ErrRateLimited, lastLine(msg), msg)
	}
	if msg == "" {
		msg = "yt-dlp failed"
	}
	return newExtractorError(op, err, lastLine(msg), msg)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
