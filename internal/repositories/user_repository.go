package repositories

import (
	"context"

	"github.com/streamtweet/backend/internal/models"
)

// UserRepository defines the data access contract for users, including the
// subscriber member set and the persisted refresh token.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	UpdateAccount(ctx context.Context, id, fullName, email string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) (models.User, error)
	SetSubscribers(ctx context.Context, channelID string, subscriberIDs []string) error

	SetRefreshToken(ctx context.Context, userID, token string) error
	RefreshTokenFor(ctx context.Context, userID string) (string, error)
}
