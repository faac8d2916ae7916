package ytdlp

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// VideoInfo dumps the metadata of a single video without downloading it.
func (r *Runner) VideoInfo(ctx context.Context, url string) (*VideoInfo, error) {
	const op = "ytdlp.VideoInfo"

	out, err := r.run(ctx, op, r.buildArgs(url, "-J", "--no-playlist", "--skip-download"))
	if err != nil {
		return nil, err
	}

	var info VideoInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, newExtractorError(op, errors.Wrap(err, "decode yt-dlp output"), "invalid metadata", "")
	}

	return &info, nil
}
