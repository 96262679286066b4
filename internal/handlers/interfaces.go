package handlers

import (
	"context"
	"io"
	"time"

	"github.com/streamtweet/backend/internal/models"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	UpdateAccount(ctx context.Context, id, fullName, email string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) (models.User, error)
	SetSubscribers(ctx context.Context, channelID string, subscriberIDs []string) error
}

// SessionManager issues, refreshes, and revokes authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, userID string) error
	Verify(accessToken string) (string, error)
}

// VideoStore captures persistence for videos and the watch-history log.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	ListPublished(ctx context.Context) ([]models.Video, error)
	UpdateDetails(ctx context.Context, id, title, description, thumbnailURL string) (models.Video, error)
	Delete(ctx context.Context, id string) error
	SetLikes(ctx context.Context, id string, likedBy []string) error
	WatchEntriesForUser(ctx context.Context, userID string) ([]models.WatchEntry, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Video, error)
}

// TweetStore captures persistence for tweets.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	List(ctx context.Context) ([]models.Tweet, error)
	Delete(ctx context.Context, id string) error
	SetLikes(ctx context.Context, id string, likedBy []string) error
}

// ViewRecorder schedules best-effort view side effects off the request path.
type ViewRecorder interface {
	Record(videoID, viewerID string, watchedAt time.Time)
}

// MediaStore saves uploaded media files and returns their public location.
type MediaStore interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}
