package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"

	"github.com/nijaru/yt-audio/models"
	"github.com/pkg/errors"
)

const maxLineSize = 1024 * 1024

// PlaylistEntries lists the members of a playlist in provider order.
func (r *Runner) PlaylistEntries(ctx context.Context, url string) ([]models.PlaylistEntry, error) {
	const op = "ytdlp.PlaylistEntries"

	out, err := r.run(ctx, op, r.buildArgs(url, "--flat-playlist", "--dump-json", "--yes-playlist"))
	if err != nil {
		return nil, err
	}

	entries, err := parseFlatPlaylist(out)
	if err != nil {
		return nil, newExtractorError(op, err, "invalid playlist output", "")
	}

	return entries, nil
}

func parseFlatPlaylist(out []byte) ([]models.PlaylistEntry, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	entries := make([]models.PlaylistEntry, 0)
	for line := 1; scanner.Scan(); line++ {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var e flatEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, errors.Wrapf(err, "decode playlist line %d", line)
		}
		if e.ID == "" && e.URL == "" {
			continue
		}

		entries = append(entries, models.PlaylistEntry{
			Title:    e.Title,
			ShortURL: e.shortURL(),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read playlist output")
	}

	return entries, nil
}
