package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/streamtweet/backend/internal/models"
)

// ViewStore persists the side effects of a video view: the monotonic view
// counter and the append-only watch-history log.
type ViewStore interface {
	IncrementViews(ctx context.Context, videoID string) error
	AppendWatchEntry(ctx context.Context, entry models.WatchEntry) error
}

// RecorderConfig controls the concurrency characteristics of the recorder.
type RecorderConfig struct {
	QueueSize int
	Workers   int
}

// Recorder applies view side effects off the request path. A view increments
// the video's counter on every event; a watch-history row is appended only
// when the viewer was identified. Failures are logged and never surfaced to
// the request that produced them.
type Recorder struct {
	store  ViewStore
	logger *slog.Logger

	events chan viewEvent
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type viewEvent struct {
	videoID   string
	viewerID  string
	watchedAt time.Time
}

// NewRecorder constructs a background worker pool that records view events.
func NewRecorder(store ViewStore, cfg RecorderConfig, logger *slog.Logger) *Recorder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	rec := &Recorder{
		store:  store,
		logger: logger,
		events: make(chan viewEvent, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	rec.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go rec.worker()
	}

	return rec
}

// Record enqueues a view event without blocking. viewerID may be empty for
// anonymous views. When the queue is full the event is dropped and logged;
// the read that triggered it must never wait or fail.
func (r *Recorder) Record(videoID, viewerID string, watchedAt time.Time) {
	if videoID == "" {
		return
	}

	event := viewEvent{videoID: videoID, viewerID: viewerID, watchedAt: watchedAt}

	select {
	case <-r.ctx.Done():
	case r.events <- event:
	default:
		r.logger.Warn("view event dropped, queue full", "videoId", videoID)
	}
}

// Shutdown waits for the worker pool to drain outstanding events.
func (r *Recorder) Shutdown(ctx context.Context) error {
	r.once.Do(func() {
		r.cancel()
		close(r.events)
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for event := range r.events {
		r.handle(event)
	}
}

func (r *Recorder) handle(event viewEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.store.IncrementViews(ctx, event.videoID); err != nil {
		r.logger.Error("increment views", "videoId", event.videoID, "error", err)
	}

	if event.viewerID == "" {
		return
	}

	entry := models.WatchEntry{
		UserID:    event.viewerID,
		VideoID:   event.videoID,
		WatchedAt: event.watchedAt,
	}
	if err := r.store.AppendWatchEntry(ctx, entry); err != nil {
		r.logger.Error("append watch history", "videoId", event.videoID, "userId", event.viewerID, "error", err)
	}
}
