// Package ytdlp drives the yt-dlp binary as a subprocess to read video
// metadata, enumerate playlists and stream audio.
package ytdlp

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/sirupsen/logrus"
)

type Runner struct {
	config Config
	logger *logrus.Logger
}

func NewRunner(cfg Config, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{config: cfg, logger: logger}
}

// baseArgs are prepended to every invocation.
func (r *Runner) baseArgs() []string {
	args := []string{"--no-warnings", "--ignore-config"}

	if r.config.Proxy.Enabled() {
		args = append(args, "--proxy", r.config.Proxy.ProxyURL())
	}
	if ua := r.config.Proxy.UserAgent; ua != "" {
		args = append(args, "--user-agent", ua)
	}

	return args
}

func (r *Runner) buildArgs(url string, flags ...string) []string {
	args := r.baseArgs()
	args = append(args, flags...)
	args = append(args, r.config.ExtraArgs...)
	return append(args, "--", url)
}

func (r *Runner) command(ctx context.Context, args []string) *exec.Cmd {
	r.logger.WithFields(logrus.Fields{
		"binary": r.config.path(),
		"args":   redactArgs(args),
	}).Debug("Executing yt-dlp")

	return exec.CommandContext(ctx, r.config.path(), args...)
}

// run executes yt-dlp to completion and returns stdout.
func (r *Runner) run(ctx context.Context, op string, args []string) ([]byte, error) {
	if r.config.MetadataTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.MetadataTimeout)
		defer cancel()
	}

	cmd := r.command(ctx, args)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, newExtractorError(op, ctx.Err(), "yt-dlp interrupted", stderr.String())
		}

		r.logger.WithFields(logrus.Fields{
			"op":     op,
			"stderr": stderr.String(),
		}).WithError(err).Warn("yt-dlp execution failed")

		return nil, classify(op, err, stderr.String())
	}

	return stdout.Bytes(), nil
}

// redactArgs hides proxy credentials from logs.
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "--proxy" {
			out[i+1] = "[redacted]"
		}
	}
	return out
}
