package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streamtweet/backend/internal/auth"
	"github.com/streamtweet/backend/internal/config"
	"github.com/streamtweet/backend/internal/db"
	"github.com/streamtweet/backend/internal/handlers"
	"github.com/streamtweet/backend/internal/history"
	"github.com/streamtweet/backend/internal/middleware"
	"github.com/streamtweet/backend/internal/repositories"
	"github.com/streamtweet/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains the view recorder and must be called
// after the HTTP server has stopped accepting requests.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	users := repositories.NewPostgresUserRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)
	tweets := repositories.NewPostgresTweetRepository(pool)

	media, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure media storage: %w", err)
	}

	recorder := history.NewRecorder(videos, history.RecorderConfig{
		QueueSize: cfg.HistoryQueueSize,
		Workers:   cfg.HistoryWorkers,
	}, logger)

	deps := handlers.Dependencies{
		Users:          users,
		Sessions:       auth.NewManager(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, users),
		Videos:         videos,
		Tweets:         tweets,
		Recorder:       recorder,
		Media:          media,
		Limiter:        middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute),
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	return deps, recorder.Shutdown, nil
}
