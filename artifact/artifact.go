// Package artifact names ephemeral audio files and removes them once their
// time-to-live has elapsed.
package artifact

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	Extension = ".mp3"

	// PublicPrefix is the URL path segment artifacts are served under.
	PublicPrefix = "temp"

	mirrorPrefix = "artifacts/"
)

// NewName returns a fresh artifact file name built from a random UUID.
func NewName() string {
	return uuid.NewString() + Extension
}

// ID strips the extension from an artifact name or path.
func ID(nameOrPath string) string {
	return strings.TrimSuffix(filepath.Base(nameOrPath), Extension)
}

// Path returns the location of name under the temp root.
func Path(root, name string) string {
	return filepath.Join(root, name)
}

// PublicURL joins the configured base URL with the public artifact path.
func PublicURL(base, name string) (string, error) {
	return url.JoinPath(base, PublicPrefix, name)
}

// MirrorKey is the object key used for the remote copy of name.
func MirrorKey(name string) string {
	return mirrorPrefix + filepath.Base(name)
}
