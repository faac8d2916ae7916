package video

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/nijaru/yt-audio/artifact"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const writeBufferSize = 64 * 1024

// extract streams the job's audio into its artifact file. Failures are
// reported to the queue, which logs them; the caller never sees them.
func (s *service) extract(ctx context.Context, job *ExtractionJob) error {
	logger := s.logger.WithFields(logrus.Fields{
		"artifact_id": job.ID,
		"path":        job.Path,
	})

	written, err := s.writeArtifact(ctx, job)
	if err != nil {
		return err
	}

	logger.WithField("bytes", written).Info("Artifact written")

	if s.uploader == nil {
		return nil
	}
	if !artifactExists(job.Path) {
		logger.Warn("Artifact expired before upload, mirror skipped")
		return nil
	}

	key := artifact.MirrorKey(job.Path)
	if err := s.uploader.UploadArtifact(ctx, key, job.Path); err != nil {
		logger.WithError(err).Error("Failed to mirror artifact")
		return nil
	}

	// Expiry during the upload already ran its mirror delete.
	if !artifactExists(job.Path) {
		if err := s.uploader.DeleteArtifact(ctx, key); err != nil {
			logger.WithError(err).Error("Failed to remove expired mirror copy")
		}
	}

	return nil
}

func artifactExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (s *service) writeArtifact(ctx context.Context, job *ExtractionJob) (int64, error) {
	// No O_CREATE: once the TTL removed the file it must stay gone.
	f, err := os.OpenFile(job.Path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return 0, errors.Wrap(err, "open artifact")
	}
	defer f.Close()

	stream, err := s.extractor.AudioStream(ctx, job.URL)
	if err != nil {
		return 0, errors.Wrap(err, "open audio stream")
	}

	w := bufio.NewWriterSize(f, writeBufferSize)
	written, copyErr := io.Copy(w, stream)
	closeErr := stream.Close()

	if copyErr != nil {
		return written, errors.Wrap(copyErr, "write artifact")
	}
	if closeErr != nil {
		return written, errors.Wrap(closeErr, "audio stream")
	}

	if err := w.Flush(); err != nil {
		return written, errors.Wrap(err, "flush artifact")
	}
	if err := f.Close(); err != nil {
		return written, errors.Wrap(err, "close artifact")
	}

	return written, nil
}
