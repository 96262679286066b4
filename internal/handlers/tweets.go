package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamtweet/backend/internal/engagement"
	"github.com/streamtweet/backend/internal/middleware"
	"github.com/streamtweet/backend/internal/models"
)

const maxTweetLength = 280

// TweetHandler implements the micro-blogging endpoints.
type TweetHandler struct {
	Tweets  TweetStore
	NowFunc func() time.Time
}

type createTweetRequest struct {
	Content string `json:"content"`
}

type likedTweetResponse struct {
	models.Tweet
	Liked *bool `json:"liked,omitempty"`
}

// Create handles POST /api/v1/tweet/.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, unauthorized("authentication required"), "")
		return
	}

	var req createTweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, badRequest("invalid request body"), "")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, badRequest("content is required"), "")
		return
	}
	if len([]rune(content)) > maxTweetLength {
		respondError(ctx, w, badRequest("content exceeds 280 characters"), "")
		return
	}

	now := h.now()
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   userID,
		Content:   content,
		LikedBy:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Tweets.Create(ctx, tweet); err != nil {
		respondError(ctx, w, fmt.Errorf("create tweet: %w", err), "")
		return
	}

	respondData(ctx, w, http.StatusCreated, tweet, "Tweet created successfully")
}

// List handles GET /api/v1/tweet/: all tweets, newest first.
func (h TweetHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tweets, err := h.Tweets.List(ctx)
	if err != nil {
		respondError(ctx, w, fmt.Errorf("list tweets: %w", err), "")
		return
	}

	respondData(ctx, w, http.StatusOK, tweets, "Tweets fetched successfully")
}

// Like handles POST /api/v1/tweet/{id}/like with toggle semantics.
func (h TweetHandler) Like(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, unauthorized("authentication required"), "")
		return
	}

	tweetID, err := parseTweetID(r)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	tweet, err := h.Tweets.FindByID(ctx, tweetID)
	if err != nil {
		respondError(ctx, w, err, "tweet not found")
		return
	}

	set, liked := engagement.Toggle(tweet.LikedBy, userID)
	if err := h.Tweets.SetLikes(ctx, tweetID, set); err != nil {
		respondError(ctx, w, err, "tweet not found")
		return
	}

	tweet.LikedBy = set
	tweet.LikesCount = len(set)

	message := "Tweet unliked"
	if liked {
		message = "Tweet liked"
	}
	respondData(ctx, w, http.StatusOK, likedTweetResponse{Tweet: tweet, Liked: &liked}, message)
}

// Delete handles DELETE /api/v1/tweet/{id}. Only the owner may delete.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, unauthorized("authentication required"), "")
		return
	}

	tweetID, err := parseTweetID(r)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	tweet, err := h.Tweets.FindByID(ctx, tweetID)
	if err != nil {
		respondError(ctx, w, err, "tweet not found")
		return
	}
	if tweet.OwnerID != userID {
		respondError(ctx, w, forbidden("you do not own this tweet"), "")
		return
	}

	if err := h.Tweets.Delete(ctx, tweetID); err != nil {
		respondError(ctx, w, err, "tweet not found")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "Tweet deleted successfully")
}

func parseTweetID(r *http.Request) (string, error) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", badRequest("invalid tweet id")
	}
	return id.String(), nil
}

func (h TweetHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
