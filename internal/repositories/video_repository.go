package repositories

import (
	"context"

	"github.com/streamtweet/backend/internal/models"
)

// VideoRepository exposes data access for videos, their like member set, the
// view counter, and the append-only watch-history log.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	ListPublished(ctx context.Context) ([]models.Video, error)
	UpdateDetails(ctx context.Context, id, title, description, thumbnailURL string) (models.Video, error)
	Delete(ctx context.Context, id string) error
	SetLikes(ctx context.Context, id string, likedBy []string) error

	IncrementViews(ctx context.Context, videoID string) error
	AppendWatchEntry(ctx context.Context, entry models.WatchEntry) error
	WatchEntriesForUser(ctx context.Context, userID string) ([]models.WatchEntry, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Video, error)
}
