package ytdlp

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"sync"

	"github.com/pkg/errors"
)

// AudioStream starts yt-dlp writing the best available audio to stdout. The
// returned reader must be closed; Close waits for the process and reports
// its failure, if any.
func (r *Runner) AudioStream(ctx context.Context, url string) (io.ReadCloser, error) {
	const op = "ytdlp.AudioStream"

	cmd := r.command(ctx, r.buildArgs(url, "-f", "bestaudio", "--no-playlist", "-o", "-"))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, newExtractorError(op, errors.Wrap(err, "stdout pipe"), "failed to open stream", "")
	}

	stream := &audioStream{op: op, ctx: ctx, cmd: cmd, stdout: stdout}
	cmd.Stderr = &stream.stderr

	if err := cmd.Start(); err != nil {
		return nil, newExtractorError(op, errors.Wrap(err, "start yt-dlp"), "failed to start yt-dlp", "")
	}

	return stream, nil
}

type audioStream struct {
	op     string
	ctx    context.Context
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer

	eof      bool
	once     sync.Once
	closeErr error
}

func (s *audioStream) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if err == io.EOF {
		s.eof = true
	}
	return n, err
}

func (s *audioStream) Close() error {
	s.once.Do(func() {
		if !s.eof && s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}

		err := s.cmd.Wait()
		switch {
		case err == nil:
		case !s.eof:
			s.closeErr = newExtractorError(s.op, err, "stream closed before completion", s.stderr.String())
		case s.ctx.Err() != nil:
			s.closeErr = newExtractorError(s.op, s.ctx.Err(), "yt-dlp interrupted", s.stderr.String())
		default:
			s.closeErr = classify(s.op, err, s.stderr.String())
		}
	})
	return s.closeErr
}
