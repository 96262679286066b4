package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streamtweet/backend/internal/models"
)

type viewStoreStub struct {
	mu        sync.Mutex
	views     map[string]int
	entries   []models.WatchEntry
	incErr    error
	appendErr error
}

func newViewStoreStub() *viewStoreStub {
	return &viewStoreStub{views: make(map[string]int)}
}

func (s *viewStoreStub) IncrementViews(_ context.Context, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.incErr != nil {
		return s.incErr
	}
	s.views[videoID]++
	return nil
}

func (s *viewStoreStub) AppendWatchEntry(_ context.Context, entry models.WatchEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *viewStoreStub) snapshot() (map[string]int, []models.WatchEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	views := make(map[string]int, len(s.views))
	for k, v := range s.views {
		views[k] = v
	}
	return views, append([]models.WatchEntry(nil), s.entries...)
}

func TestRecorderRecordsViewAndHistory(t *testing.T) {
	store := newViewStoreStub()
	rec := NewRecorder(store, RecorderConfig{QueueSize: 8, Workers: 1}, nil)

	watchedAt := time.Now().UTC()
	rec.Record("video-1", "user-1", watchedAt)
	rec.Record("video-1", "user-1", watchedAt.Add(time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rec.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	views, entries := store.snapshot()
	if views["video-1"] != 2 {
		t.Fatalf("expected 2 views, got %d", views["video-1"])
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 history entries (no write-time dedup), got %d", len(entries))
	}
}

func TestRecorderAnonymousViewSkipsHistory(t *testing.T) {
	store := newViewStoreStub()
	rec := NewRecorder(store, RecorderConfig{QueueSize: 8, Workers: 1}, nil)

	rec.Record("video-1", "", time.Now().UTC())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rec.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	views, entries := store.snapshot()
	if views["video-1"] != 1 {
		t.Fatalf("expected view counter to increment for anonymous view, got %d", views["video-1"])
	}
	if len(entries) != 0 {
		t.Fatalf("anonymous views must not append history, got %+v", entries)
	}
}

func TestRecorderSwallowsStoreFailures(t *testing.T) {
	store := newViewStoreStub()
	store.incErr = errors.New("boom")
	store.appendErr = errors.New("boom")

	rec := NewRecorder(store, RecorderConfig{QueueSize: 8, Workers: 1}, nil)

	// Must not panic or block the caller.
	rec.Record("video-1", "user-1", time.Now().UTC())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rec.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestRecorderIgnoresBlankVideo(t *testing.T) {
	store := newViewStoreStub()
	rec := NewRecorder(store, RecorderConfig{QueueSize: 1, Workers: 1}, nil)

	rec.Record("", "user-1", time.Now().UTC())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rec.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	views, entries := store.snapshot()
	if len(views) != 0 || len(entries) != 0 {
		t.Fatal("expected no writes for blank video id")
	}
}
