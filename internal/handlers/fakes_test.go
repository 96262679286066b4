package handlers

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/streamtweet/backend/internal/models"
	"github.com/streamtweet/backend/internal/repositories"
)

type inMemoryUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{users: make(map[string]models.User)}
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) FindByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) UpdateAccount(_ context.Context, id, fullName, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	for otherID, other := range s.users {
		if otherID != id && other.Email == email {
			return models.User{}, repositories.ErrConflict
		}
	}
	user.FullName = fullName
	user.Email = email
	s.users[id] = user
	return user, nil
}

func (s *inMemoryUserStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.Password = passwordHash
	s.users[id] = user
	return nil
}

func (s *inMemoryUserStore) UpdateAvatar(_ context.Context, id, avatarURL string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.AvatarURL = avatarURL
	s.users[id] = user
	return user, nil
}

func (s *inMemoryUserStore) SetSubscribers(_ context.Context, channelID string, subscriberIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[channelID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.SubscriberIDs = subscriberIDs
	user.SubscriberCount = len(subscriberIDs)
	s.users[channelID] = user
	return nil
}

type inMemoryVideoStore struct {
	mu      sync.Mutex
	videos  map[string]models.Video
	entries []models.WatchEntry
}

func newInMemoryVideoStore() *inMemoryVideoStore {
	return &inMemoryVideoStore{videos: make(map[string]models.Video)}
}

func (s *inMemoryVideoStore) Create(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = video
	return nil
}

func (s *inMemoryVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *inMemoryVideoStore) ListPublished(_ context.Context) ([]models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Video
	for _, video := range s.videos {
		if video.IsPublished {
			out = append(out, video)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *inMemoryVideoStore) UpdateDetails(_ context.Context, id, title, description, thumbnailURL string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	if title != "" {
		video.Title = title
	}
	if description != "" {
		video.Description = description
	}
	if thumbnailURL != "" {
		video.ThumbnailURL = thumbnailURL
	}
	s.videos[id] = video
	return video, nil
}

func (s *inMemoryVideoStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.videos, id)
	return nil
}

func (s *inMemoryVideoStore) SetLikes(_ context.Context, id string, likedBy []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	video.LikedBy = likedBy
	video.LikesCount = len(likedBy)
	s.videos[id] = video
	return nil
}

func (s *inMemoryVideoStore) WatchEntriesForUser(_ context.Context, userID string) ([]models.WatchEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WatchEntry
	for _, entry := range s.entries {
		if entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *inMemoryVideoStore) FindByIDs(_ context.Context, ids []string) (map[string]models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]models.Video, len(ids))
	for _, id := range ids {
		if video, ok := s.videos[id]; ok {
			out[id] = video
		}
	}
	return out, nil
}

type inMemoryTweetStore struct {
	mu     sync.Mutex
	tweets map[string]models.Tweet
}

func newInMemoryTweetStore() *inMemoryTweetStore {
	return &inMemoryTweetStore{tweets: make(map[string]models.Tweet)}
}

func (s *inMemoryTweetStore) Create(_ context.Context, tweet models.Tweet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tweets[tweet.ID] = tweet
	return nil
}

func (s *inMemoryTweetStore) FindByID(_ context.Context, id string) (models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tweet, ok := s.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	return tweet, nil
}

func (s *inMemoryTweetStore) List(_ context.Context) ([]models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Tweet
	for _, tweet := range s.tweets {
		out = append(out, tweet)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *inMemoryTweetStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tweets[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.tweets, id)
	return nil
}

func (s *inMemoryTweetStore) SetLikes(_ context.Context, id string, likedBy []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tweet, ok := s.tweets[id]
	if !ok {
		return repositories.ErrNotFound
	}
	tweet.LikedBy = likedBy
	tweet.LikesCount = len(likedBy)
	s.tweets[id] = tweet
	return nil
}

type fakeMediaStore struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (s *fakeMediaStore) Save(_ context.Context, key, _ string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return fmt.Sprintf("https://media.test/%s", key), nil
}

type recordedView struct {
	VideoID   string
	ViewerID  string
	WatchedAt time.Time
}

type recorderStub struct {
	mu    sync.Mutex
	views []recordedView
}

func (r *recorderStub) Record(videoID, viewerID string, watchedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, recordedView{VideoID: videoID, ViewerID: viewerID, WatchedAt: watchedAt})
}
