package models

import "time"

// User represents an account within the StreamTweet platform. SubscriberIDs
// holds the ids of users subscribed to this user's channel; SubscriberCount
// is derived from it and never maintained independently.
type User struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Password        string    `json:"-"`
	FullName        string    `json:"fullName"`
	AvatarURL       string    `json:"avatar"`
	CoverURL        string    `json:"coverImage"`
	RefreshToken    string    `json:"-"`
	SubscriberIDs   []string  `json:"-"`
	SubscriberCount int       `json:"subscriberCount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Video is an uploaded video. LikedBy is a member set of user ids; LikesCount
// must always equal len(LikedBy).
type Video struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VideoURL     string    `json:"videoFile"`
	ThumbnailURL string    `json:"thumbnail"`
	Duration     float64   `json:"duration"`
	Views        int64     `json:"views"`
	LikedBy      []string  `json:"-"`
	LikesCount   int       `json:"likesCount"`
	IsPublished  bool      `json:"isPublished"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// Owner summary fields are filled by list/detail queries so responses can
	// show the channel without a second lookup.
	OwnerUsername  string `json:"ownerUsername,omitempty"`
	OwnerAvatarURL string `json:"ownerAvatar,omitempty"`
}

// Tweet is a short post. Content length is enforced at the API layer, not here.
type Tweet struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner"`
	Content    string    `json:"content"`
	LikedBy    []string  `json:"-"`
	LikesCount int       `json:"likesCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	OwnerUsername string `json:"ownerUsername,omitempty"`
}

// WatchEntry is one row of the append-only watch history log.
type WatchEntry struct {
	UserID    string    `json:"-"`
	VideoID   string    `json:"videoId"`
	WatchedAt time.Time `json:"watchedAt"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
