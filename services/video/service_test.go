package video

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nijaru/yt-audio/artifact"
	apperrors "github.com/nijaru/yt-audio/errors"
	"github.com/nijaru/yt-audio/models"
	"github.com/nijaru/yt-audio/retry"
	"github.com/nijaru/yt-audio/ytdlp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeExtractor struct {
	mu        sync.Mutex
	infoCalls int
	infoErrs  []error
	info      *ytdlp.VideoInfo
	audio     string
	streamErr error
	// release, when set, holds AudioStream until it is closed.
	release chan struct{}
}

func (f *fakeExtractor) VideoInfo(ctx context.Context, url string) (*ytdlp.VideoInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.infoCalls++
	if len(f.infoErrs) > 0 {
		err := f.infoErrs[0]
		f.infoErrs = f.infoErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.info, nil
}

func (f *fakeExtractor) AudioStream(ctx context.Context, url string) (io.ReadCloser, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return io.NopCloser(strings.NewReader(f.audio)), nil
}

func (f *fakeExtractor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.infoCalls
}

type fakeRepo struct {
	mu      sync.Mutex
	records []*models.VideoRecord
	err     error
}

func (r *fakeRepo) CreateVideo(ctx context.Context, video *models.VideoRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	r.records = append(r.records, video)
	return int64(len(r.records)), nil
}

type scheduled struct {
	path string
	ttl  time.Duration
}

type fakeLifecycle struct {
	mu    sync.Mutex
	calls []scheduled
}

func (l *fakeLifecycle) ScheduleDeletion(path string, ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, scheduled{path, ttl})
}

type fakeUploader struct {
	mu      sync.Mutex
	keys    []string
	deleted []string
}

func (u *fakeUploader) UploadArtifact(ctx context.Context, key, path string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.keys = append(u.keys, key)
	return nil
}

func (u *fakeUploader) DeleteArtifact(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) uploaded() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.keys)
}

func sampleInfo() *ytdlp.VideoInfo {
	return &ytdlp.VideoInfo{
		ID:          "abc",
		Title:       "Title",
		Description: "Desc",
		Thumbnails: []ytdlp.Thumbnail{
			{URL: "default.jpg"},
			{URL: "medium.jpg"},
			{URL: "maxres.jpg"},
		},
		Duration:    json.RawMessage(`212`),
		ViewCount:   json.RawMessage(`"1000"`),
		LikeCount:   json.RawMessage(`42`),
		Channel:     "Chan",
		ChannelID:   "UC1",
		UploaderURL: "https://www.youtube.com/@chan",
	}
}

type testEnv struct {
	svc       Service
	extractor *fakeExtractor
	repo      *fakeRepo
	lifecycle *fakeLifecycle
	queue     *JobQueue
	uploader  *fakeUploader
	tempDir   string
}

func newTestEnv(t *testing.T, extractor *fakeExtractor) *testEnv {
	t.Helper()

	env := &testEnv{
		extractor: extractor,
		repo:      &fakeRepo{},
		lifecycle: &fakeLifecycle{},
		queue:     NewJobQueue(1, 10, 0, quietLogger()),
		uploader:  &fakeUploader{},
		tempDir:   t.TempDir(),
	}
	t.Cleanup(env.queue.Close)

	env.svc = NewService(
		env.repo,
		extractor,
		retry.New(retry.DefaultMaxRetries, 0, quietLogger()),
		env.queue,
		env.lifecycle,
		Config{
			TempDir:     env.tempDir,
			AppURL:      "http://localhost:3000",
			ArtifactTTL: time.Minute,
		},
		WithLogger(quietLogger()),
		WithUploader(env.uploader),
	)
	return env
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestFetch_Success(t *testing.T) {
	env := newTestEnv(t, &fakeExtractor{info: sampleInfo(), audio: "ID3-audio"})

	meta, err := env.svc.Fetch(context.Background(), "https://www.youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if meta.ThumbnailURL != "default.jpg" || meta.BlurThumbnailURL != "maxres.jpg" {
		t.Errorf("thumbnails = %q / %q", meta.ThumbnailURL, meta.BlurThumbnailURL)
	}
	if meta.Duration != 212 || meta.ViewCount != 1000 {
		t.Errorf("duration/views = %d/%d", meta.Duration, meta.ViewCount)
	}
	if meta.LikeCount == nil || *meta.LikeCount != 42 {
		t.Errorf("LikeCount = %v, want 42", meta.LikeCount)
	}
	if meta.Channel.ID != "UC1" || meta.Channel.Name != "Chan" {
		t.Errorf("Channel = %+v", meta.Channel)
	}
	if meta.Status != models.StatusProcessing {
		t.Errorf("Status = %q, want processing", meta.Status)
	}
	if !strings.HasPrefix(meta.ArtifactURL, "http://localhost:3000/temp/") || !strings.HasSuffix(meta.ArtifactURL, ".mp3") {
		t.Errorf("ArtifactURL = %q", meta.ArtifactURL)
	}

	if len(env.repo.records) != 1 {
		t.Fatalf("persisted %d records, want 1", len(env.repo.records))
	}
	rec := env.repo.records[0]
	name := filepath.Base(meta.ArtifactURL)
	wantPath := filepath.Join(env.tempDir, name)
	if rec.ArtifactPath != wantPath {
		t.Errorf("record path = %q, want %q", rec.ArtifactPath, wantPath)
	}
	if rec.Status != models.StatusProcessing {
		t.Errorf("record status = %q, want processing", rec.Status)
	}

	if len(env.lifecycle.calls) != 1 || env.lifecycle.calls[0].path != wantPath || env.lifecycle.calls[0].ttl != time.Minute {
		t.Errorf("lifecycle calls = %+v", env.lifecycle.calls)
	}

	waitFor(t, func() bool {
		data, err := os.ReadFile(wantPath)
		return err == nil && string(data) == "ID3-audio"
	})
	waitFor(t, func() bool { return env.uploader.uploaded() == 1 })

	waitFor(t, func() bool {
		info, ok := env.queue.Status(strings.TrimSuffix(name, ".mp3"))
		return ok && info.Status == JobCompleted
	})
}

func TestFetch_SingleThumbnail(t *testing.T) {
	info := sampleInfo()
	info.Thumbnails = []ytdlp.Thumbnail{{URL: "only.jpg"}}
	env := newTestEnv(t, &fakeExtractor{info: info})

	meta, err := env.svc.Fetch(context.Background(), "u")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if meta.ThumbnailURL != "only.jpg" || meta.BlurThumbnailURL != "only.jpg" {
		t.Errorf("thumbnails = %q / %q, want both only.jpg", meta.ThumbnailURL, meta.BlurThumbnailURL)
	}
}

func TestFetch_NoThumbnails(t *testing.T) {
	info := sampleInfo()
	info.Thumbnails = nil
	env := newTestEnv(t, &fakeExtractor{info: info})

	_, err := env.svc.Fetch(context.Background(), "u")
	if !errors.Is(err, ErrNoThumbnails) {
		t.Errorf("Fetch() error = %v, want ErrNoThumbnails", err)
	}
	if len(env.repo.records) != 0 {
		t.Error("record persisted after failure")
	}
}

func TestFetch_ParseFailure(t *testing.T) {
	info := sampleInfo()
	info.Duration = json.RawMessage(`"three minutes"`)
	env := newTestEnv(t, &fakeExtractor{info: info})

	_, err := env.svc.Fetch(context.Background(), "u")
	if !errors.Is(err, ErrParse) {
		t.Errorf("Fetch() error = %v, want ErrParse", err)
	}
	if len(env.repo.records) != 0 {
		t.Error("record persisted after parse failure")
	}
}

func TestFetch_UpstreamFailure(t *testing.T) {
	upstream := errors.New("proxy unreachable")
	env := newTestEnv(t, &fakeExtractor{info: sampleInfo(), infoErrs: []error{upstream}})

	_, err := env.svc.Fetch(context.Background(), "u")

	appErr, ok := apperrors.As(err)
	if !ok || appErr.Code != 500 {
		t.Fatalf("Fetch() error = %v, want 500 AppError", err)
	}
	if appErr.Message != "proxy unreachable" {
		t.Errorf("Message = %q, want upstream text", appErr.Message)
	}
	if env.extractor.calls() != 1 {
		t.Errorf("made %d calls, want 1 (no retry)", env.extractor.calls())
	}
	if len(env.repo.records) != 0 || len(env.lifecycle.calls) != 0 {
		t.Error("side effects after upstream failure")
	}
}

func TestFetch_RateLimitedThenSuccess(t *testing.T) {
	env := newTestEnv(t, &fakeExtractor{
		info:     sampleInfo(),
		infoErrs: []error{retry.ErrRateLimited, retry.ErrRateLimited},
	})

	if _, err := env.svc.Fetch(context.Background(), "u"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if env.extractor.calls() != 3 {
		t.Errorf("made %d calls, want 3", env.extractor.calls())
	}
}

func TestFetch_RateLimitedExhausted(t *testing.T) {
	errs := make([]error, retry.DefaultMaxRetries+1)
	for i := range errs {
		errs[i] = retry.ErrRateLimited
	}
	env := newTestEnv(t, &fakeExtractor{info: sampleInfo(), infoErrs: errs})

	_, err := env.svc.Fetch(context.Background(), "u")
	if !errors.Is(err, retry.ErrRateLimited) {
		t.Errorf("Fetch() error = %v, want ErrRateLimited", err)
	}
	if env.extractor.calls() != retry.DefaultMaxRetries+1 {
		t.Errorf("made %d calls, want %d", env.extractor.calls(), retry.DefaultMaxRetries+1)
	}
}

func TestFetch_PersistenceFailure(t *testing.T) {
	env := newTestEnv(t, &fakeExtractor{info: sampleInfo()})
	env.repo.err = apperrors.Internal("test", errors.New("disk full"), "Failed to save video info")

	_, err := env.svc.Fetch(context.Background(), "u")
	if err == nil {
		t.Fatal("Fetch() expected error")
	}
	if len(env.lifecycle.calls) != 0 {
		t.Error("deletion scheduled after persistence failure")
	}
	entries, _ := os.ReadDir(env.tempDir)
	if len(entries) != 0 {
		t.Errorf("temp dir has %d files after persistence failure, want 0", len(entries))
	}
}

func TestFetch_ExtractionFailureInvisible(t *testing.T) {
	env := newTestEnv(t, &fakeExtractor{info: sampleInfo(), streamErr: errors.New("stream reset")})

	meta, err := env.svc.Fetch(context.Background(), "u")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	id := strings.TrimSuffix(filepath.Base(meta.ArtifactURL), ".mp3")
	waitFor(t, func() bool {
		info, ok := env.queue.Status(id)
		return ok && info.Status == JobFailed
	})

	if env.uploader.uploaded() != 0 {
		t.Error("failed artifact was mirrored")
	}
	if len(env.lifecycle.calls) != 1 {
		t.Error("deletion must be scheduled regardless of extraction outcome")
	}
}

func TestFetch_CreatesArtifactBeforeJobRuns(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	env := newTestEnv(t, &fakeExtractor{info: sampleInfo(), audio: "ID3", release: release})

	// The single worker blocks on the first job; the second stays queued.
	if _, err := env.svc.Fetch(context.Background(), "first"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	meta, err := env.svc.Fetch(context.Background(), "second")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(env.tempDir, filepath.Base(meta.ArtifactURL)))
	if err != nil {
		t.Fatalf("artifact file missing while job is queued: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("queued artifact size = %d, want 0", info.Size())
	}
}

func TestFetch_QueuedJobPastTTLLeavesNoArtifact(t *testing.T) {
	const ttl = 50 * time.Millisecond

	release := make(chan struct{})
	extractor := &fakeExtractor{info: sampleInfo(), audio: "ID3-audio", release: release}
	queue := NewJobQueue(1, 10, 0, quietLogger())
	t.Cleanup(queue.Close)
	lifecycle := artifact.NewTTLLifecycle(quietLogger(), nil)
	t.Cleanup(lifecycle.Stop)
	uploader := &fakeUploader{}
	tempDir := t.TempDir()

	svc := NewService(
		&fakeRepo{},
		extractor,
		retry.New(retry.DefaultMaxRetries, 0, quietLogger()),
		queue,
		lifecycle,
		Config{
			TempDir:     tempDir,
			AppURL:      "http://localhost:3000",
			ArtifactTTL: ttl,
		},
		WithLogger(quietLogger()),
		WithUploader(uploader),
	)

	first, err := svc.Fetch(context.Background(), "first")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	second, err := svc.Fetch(context.Background(), "second")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	firstName := filepath.Base(first.ArtifactURL)
	secondName := filepath.Base(second.ArtifactURL)
	firstPath := filepath.Join(tempDir, firstName)
	secondPath := filepath.Join(tempDir, secondName)

	// Both expire while the worker is still blocked on the first job.
	waitFor(t, func() bool { return !artifactExists(firstPath) && !artifactExists(secondPath) })
	close(release)

	waitFor(t, func() bool {
		info, ok := queue.Status(artifact.ID(secondName))
		return ok && info.Status == JobFailed
	})
	waitFor(t, func() bool {
		info, ok := queue.Status(artifact.ID(firstName))
		return ok && (info.Status == JobCompleted || info.Status == JobFailed)
	})

	for _, path := range []string{firstPath, secondPath} {
		if artifactExists(path) {
			t.Errorf("artifact %s present after TTL", filepath.Base(path))
		}
	}
	if uploader.uploaded() != 0 {
		t.Errorf("uploaded %d expired artifacts, want 0", uploader.uploaded())
	}
	if lifecycle.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", lifecycle.Pending())
	}
}

// expiringUploader removes the local file mid-upload, as an expiring TTL would.
type expiringUploader struct {
	fakeUploader
}

func (u *expiringUploader) UploadArtifact(ctx context.Context, key, path string) error {
	os.Remove(path)
	return u.fakeUploader.UploadArtifact(ctx, key, path)
}

func TestExtract_RemovesMirrorCopyExpiredDuringUpload(t *testing.T) {
	uploader := &expiringUploader{}
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "a.mp3")
	if err := createPlaceholder(path); err != nil {
		t.Fatalf("createPlaceholder() error = %v", err)
	}

	s := &service{
		extractor: &fakeExtractor{audio: "ID3"},
		uploader:  uploader,
		logger:    quietLogger(),
	}
	if err := s.extract(context.Background(), NewExtractionJob("a", "u", path)); err != nil {
		t.Fatalf("extract() error = %v", err)
	}

	uploader.mu.Lock()
	defer uploader.mu.Unlock()
	if len(uploader.deleted) != 1 || uploader.deleted[0] != artifact.MirrorKey(path) {
		t.Errorf("deleted = %v, want [%s]", uploader.deleted, artifact.MirrorKey(path))
	}
}

func TestExtract_MissingFileFails(t *testing.T) {
	s := &service{
		extractor: &fakeExtractor{audio: "ID3"},
		logger:    quietLogger(),
	}
	path := filepath.Join(t.TempDir(), "gone.mp3")

	if err := s.extract(context.Background(), NewExtractionJob("gone", "u", path)); err == nil {
		t.Fatal("extract() expected error for expired artifact")
	}
	if artifactExists(path) {
		t.Error("extract recreated an expired artifact")
	}
}

func TestFetch_QueueFullLogsDroppedLaunch(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	logger, hook := test.NewNullLogger()
	queue := NewJobQueue(1, 1, 0, quietLogger())
	t.Cleanup(queue.Close)
	lifecycle := &fakeLifecycle{}

	svc := NewService(
		&fakeRepo{},
		&fakeExtractor{info: sampleInfo(), release: release},
		retry.New(retry.DefaultMaxRetries, 0, quietLogger()),
		queue,
		lifecycle,
		Config{TempDir: t.TempDir(), AppURL: "http://localhost:3000"},
		WithLogger(logger),
	)

	// One job running, one buffered, the third has nowhere to go.
	if _, err := svc.Fetch(context.Background(), "first"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	waitFor(t, func() bool {
		info, ok := queue.Status(queuedID(t, lifecycle, 0))
		return ok && info.Status == JobRunning
	})
	for _, u := range []string{"second", "third"} {
		if _, err := svc.Fetch(context.Background(), u); err != nil {
			t.Fatalf("Fetch(%s) error = %v", u, err)
		}
	}

	if queue.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", queue.Dropped())
	}

	var found bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Extraction job dropped" {
			found = true
			if entry.Level != logrus.ErrorLevel {
				t.Errorf("level = %s, want error", entry.Level)
			}
			if entry.Data["dropped_total"] != int64(1) {
				t.Errorf("dropped_total = %v, want 1", entry.Data["dropped_total"])
			}
		}
	}
	if !found {
		t.Error("dropped launch was not logged")
	}

	lifecycle.mu.Lock()
	defer lifecycle.mu.Unlock()
	if len(lifecycle.calls) != 3 {
		t.Errorf("scheduled %d deletions, want 3", len(lifecycle.calls))
	}
}

func queuedID(t *testing.T, l *fakeLifecycle, i int) string {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.calls) <= i {
		t.Fatalf("no deletion scheduled at %d", i)
	}
	return artifact.ID(l.calls[i].path)
}
