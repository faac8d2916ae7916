package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/nijaru/yt-audio/artifact"
	"github.com/nijaru/yt-audio/errors"
)

// handleArtifact serves GET /temp/{name} from the temp root. Artifacts
// disappear once their TTL fires.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	const op = "Server.handleArtifact"

	name := r.PathValue("name")
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, artifact.Extension) {
		respondError(w, r, s.logger, errors.NotFound(op, nil, "Artifact not found"))
		return
	}

	path := artifact.Path(s.config.TempDir, name)
	if !fileExists(path) {
		respondError(w, r, s.logger, errors.NotFound(op, nil, "Artifact not found"))
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, path)
}
