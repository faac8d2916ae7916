package artifact

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultTTL = 60 * time.Second

	mirrorDeleteTimeout = 30 * time.Second
)

// Lifecycle schedules removal of an artifact after ttl. Scheduling never
// fails and never blocks.
type Lifecycle interface {
	ScheduleDeletion(path string, ttl time.Duration)
}

// Mirror is a remote copy of artifacts that must be removed alongside the
// local file.
type Mirror interface {
	DeleteArtifact(ctx context.Context, key string) error
}

type pending struct {
	timer *time.Timer
}

// TTLLifecycle removes files with one-shot timers. Deletion is unconditional:
// it does not wait for, or know about, the job writing the file.
type TTLLifecycle struct {
	logger *logrus.Logger
	mirror Mirror

	mu     sync.Mutex
	timers map[string]*pending
}

func NewTTLLifecycle(logger *logrus.Logger, mirror Mirror) *TTLLifecycle {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TTLLifecycle{
		logger: logger,
		mirror: mirror,
		timers: make(map[string]*pending),
	}
}

// ScheduleDeletion arms a timer that removes path after ttl. Scheduling the
// same path again replaces the earlier timer.
func (l *TTLLifecycle) ScheduleDeletion(path string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	p := &pending{}

	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.timers[path]; ok {
		prev.timer.Stop()
	}
	p.timer = time.AfterFunc(ttl, func() { l.expire(path, p) })
	l.timers[path] = p

	l.logger.WithFields(logrus.Fields{
		"path": path,
		"ttl":  ttl.String(),
	}).Debug("Artifact deletion scheduled")
}

func (l *TTLLifecycle) expire(path string, p *pending) {
	l.mu.Lock()
	if l.timers[path] == p {
		delete(l.timers, path)
	}
	l.mu.Unlock()

	logger := l.logger.WithFields(logrus.Fields{
		"path":        path,
		"artifact_id": ID(path),
	})

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			logger.Warn("Artifact already gone at expiry")
		} else {
			logger.WithError(err).Error("Failed to delete artifact")
		}
	} else {
		logger.Info("Artifact deleted")
	}

	if l.mirror == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), mirrorDeleteTimeout)
	defer cancel()

	if err := l.mirror.DeleteArtifact(ctx, MirrorKey(path)); err != nil {
		logger.WithError(err).Error("Failed to delete mirrored artifact")
	}
}

// Pending reports how many deletions are still armed.
func (l *TTLLifecycle) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

// Stop disarms every pending deletion. Files already scheduled are left on
// disk.
func (l *TTLLifecycle) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for path, p := range l.timers {
		p.timer.Stop()
		delete(l.timers, path)
	}
}
