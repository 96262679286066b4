package repositories

import (
	"context"

	"github.com/streamtweet/backend/internal/models"
)

// TweetRepository defines data access for tweets and their like member set.
type TweetRepository interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	List(ctx context.Context) ([]models.Tweet, error)
	Delete(ctx context.Context, id string) error
	SetLikes(ctx context.Context, id string, likedBy []string) error
}
