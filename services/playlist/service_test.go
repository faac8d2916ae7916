package playlist

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	apperrors "github.com/nijaru/yt-audio/errors"
	"github.com/nijaru/yt-audio/models"
	"github.com/nijaru/yt-audio/retry"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeLister struct {
	entries []models.PlaylistEntry
	errs    []error
	calls   int
}

func (l *fakeLister) PlaylistEntries(ctx context.Context, url string) ([]models.PlaylistEntry, error) {
	l.calls++
	if len(l.errs) > 0 {
		err := l.errs[0]
		l.errs = l.errs[1:]
		return nil, err
	}
	return l.entries, nil
}

type fakeRepo struct {
	mu      sync.Mutex
	entries []models.PlaylistEntry
	failOn  string
}

func (r *fakeRepo) CreatePlaylistEntry(ctx context.Context, entry *models.PlaylistEntry) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ShortURL == r.failOn {
		return 0, errors.New("constraint failed")
	}
	r.entries = append(r.entries, *entry)
	return int64(len(r.entries)), nil
}

func newService(lister Lister, repo Repository) Service {
	return NewService(repo, lister, retry.New(retry.DefaultMaxRetries, 0, quietLogger()), quietLogger())
}

func TestFetch(t *testing.T) {
	tests := []struct {
		name    string
		entries []models.PlaylistEntry
	}{
		{"empty", []models.PlaylistEntry{}},
		{"two entries", []models.PlaylistEntry{
			{Title: "A", ShortURL: "a"},
			{Title: "B", ShortURL: "b"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{}
			svc := newService(&fakeLister{entries: tt.entries}, repo)

			summary, err := svc.Fetch(context.Background(), "https://www.youtube.com/playlist?list=PL1")
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if summary.Message != "Videos saved successfully" {
				t.Errorf("Message = %q", summary.Message)
			}
			if summary.Count != len(tt.entries) {
				t.Errorf("Count = %d, want %d", summary.Count, len(tt.entries))
			}
			if len(repo.entries) != len(tt.entries) {
				t.Fatalf("saved %d rows, want %d", len(repo.entries), len(tt.entries))
			}

			saved := map[string]string{}
			for _, e := range repo.entries {
				saved[e.ShortURL] = e.Title
			}
			for _, e := range tt.entries {
				if saved[e.ShortURL] != e.Title {
					t.Errorf("entry %q not saved with title %q", e.ShortURL, e.Title)
				}
			}
		})
	}
}

func TestFetch_PersistenceFailure(t *testing.T) {
	repo := &fakeRepo{failOn: "b"}
	svc := newService(&fakeLister{entries: []models.PlaylistEntry{
		{Title: "A", ShortURL: "a"},
		{Title: "B", ShortURL: "b"},
		{Title: "C", ShortURL: "c"},
	}}, repo)

	_, err := svc.Fetch(context.Background(), "u")

	appErr, ok := apperrors.As(err)
	if !ok || appErr.Code != 500 {
		t.Errorf("Fetch() error = %v, want 500 AppError", err)
	}
}

func TestFetch_RateLimitedThenSuccess(t *testing.T) {
	lister := &fakeLister{
		entries: []models.PlaylistEntry{{Title: "A", ShortURL: "a"}},
		errs:    []error{retry.ErrRateLimited},
	}
	svc := newService(lister, &fakeRepo{})

	summary, err := svc.Fetch(context.Background(), "u")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if summary.Count != 1 || lister.calls != 2 {
		t.Errorf("count = %d, calls = %d, want 1 and 2", summary.Count, lister.calls)
	}
}

func TestFetch_UpstreamFailure(t *testing.T) {
	lister := &fakeLister{errs: []error{errors.New("playlist does not exist")}}
	repo := &fakeRepo{}
	svc := newService(lister, repo)

	_, err := svc.Fetch(context.Background(), "u")

	appErr, ok := apperrors.As(err)
	if !ok || appErr.Message != "playlist does not exist" {
		t.Errorf("Fetch() error = %v", err)
	}
	if lister.calls != 1 || len(repo.entries) != 0 {
		t.Errorf("calls = %d, rows = %d, want 1 and 0", lister.calls, len(repo.entries))
	}
}
