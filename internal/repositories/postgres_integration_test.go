package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamtweet/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "alice")

	dup := user
	dup.ID = uuid.NewString()
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate username, got %v", err)
	}

	byEmail, err := repo.FindByIdentifier(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	byUsername, err := repo.FindByIdentifier(ctx, "alice")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if byEmail.ID != user.ID || byUsername.ID != user.ID {
		t.Fatalf("expected both identifiers to resolve %s, got %s and %s", user.ID, byEmail.ID, byUsername.ID)
	}

	if _, err := repo.FindByIdentifier(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresUserRepository_RefreshTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "alice")

	token, err := repo.RefreshTokenFor(ctx, user.ID)
	if err != nil {
		t.Fatalf("refresh token for new user: %v", err)
	}
	if token != "" {
		t.Fatalf("expected empty token before login, got %q", token)
	}

	if err := repo.SetRefreshToken(ctx, user.ID, "opaque-token"); err != nil {
		t.Fatalf("set refresh token: %v", err)
	}
	token, err = repo.RefreshTokenFor(ctx, user.ID)
	if err != nil {
		t.Fatalf("refresh token after set: %v", err)
	}
	if token != "opaque-token" {
		t.Fatalf("expected stored token, got %q", token)
	}

	// Revocation stores the empty string, which round-trips as NULL.
	if err := repo.SetRefreshToken(ctx, user.ID, ""); err != nil {
		t.Fatalf("clear refresh token: %v", err)
	}
	token, err = repo.RefreshTokenFor(ctx, user.ID)
	if err != nil {
		t.Fatalf("refresh token after clear: %v", err)
	}
	if token != "" {
		t.Fatalf("expected cleared token, got %q", token)
	}
}

func TestPostgresUserRepository_Subscribers(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	channel := createTestUser(t, repo, "channel")
	viewer := createTestUser(t, repo, "viewer")

	if err := repo.SetSubscribers(ctx, channel.ID, []string{viewer.ID}); err != nil {
		t.Fatalf("set subscribers: %v", err)
	}

	fetched, err := repo.FindByID(ctx, channel.ID)
	if err != nil {
		t.Fatalf("find channel: %v", err)
	}
	if len(fetched.SubscriberIDs) != 1 || fetched.SubscriberIDs[0] != viewer.ID {
		t.Fatalf("expected subscriber %s, got %v", viewer.ID, fetched.SubscriberIDs)
	}
	if fetched.SubscriberCount != 1 {
		t.Fatalf("expected derived subscriber count 1, got %d", fetched.SubscriberCount)
	}
}

func TestPostgresVideoRepository_LifecycleAndLikes(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "owner")

	repo := NewPostgresVideoRepository(testPool)
	video := createTestVideo(t, repo, owner.ID, "First", true)
	createTestVideo(t, repo, owner.ID, "Draft", false)

	published, err := repo.ListPublished(ctx)
	if err != nil {
		t.Fatalf("list published: %v", err)
	}
	if len(published) != 1 || published[0].ID != video.ID {
		t.Fatalf("expected only the published video, got %+v", published)
	}
	if published[0].OwnerUsername != "owner" {
		t.Fatalf("expected owner summary to be joined in, got %q", published[0].OwnerUsername)
	}

	if err := repo.SetLikes(ctx, video.ID, []string{owner.ID}); err != nil {
		t.Fatalf("set likes: %v", err)
	}
	fetched, err := repo.FindByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("find video: %v", err)
	}
	if fetched.LikesCount != 1 || len(fetched.LikedBy) != 1 {
		t.Fatalf("expected one like, got count=%d set=%v", fetched.LikesCount, fetched.LikedBy)
	}

	if err := repo.IncrementViews(ctx, video.ID); err != nil {
		t.Fatalf("increment views: %v", err)
	}
	fetched, err = repo.FindByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("find video: %v", err)
	}
	if fetched.Views != 1 {
		t.Fatalf("expected one view, got %d", fetched.Views)
	}

	updated, err := repo.UpdateDetails(ctx, video.ID, "Renamed", "", "")
	if err != nil {
		t.Fatalf("update details: %v", err)
	}
	if updated.Title != "Renamed" || updated.Description != video.Description {
		t.Fatalf("expected partial update, got %+v", updated)
	}

	if err := repo.Delete(ctx, video.ID); err != nil {
		t.Fatalf("delete video: %v", err)
	}
	if _, err := repo.FindByID(ctx, video.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPostgresVideoRepository_WatchHistory(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "owner")
	viewer := createTestUser(t, userRepo, "viewer")

	repo := NewPostgresVideoRepository(testPool)
	first := createTestVideo(t, repo, owner.ID, "First", true)
	second := createTestVideo(t, repo, owner.ID, "Second", true)

	base := time.Now().UTC().Truncate(time.Millisecond)
	watches := []models.WatchEntry{
		{UserID: viewer.ID, VideoID: first.ID, WatchedAt: base},
		{UserID: viewer.ID, VideoID: second.ID, WatchedAt: base.Add(time.Minute)},
		{UserID: viewer.ID, VideoID: first.ID, WatchedAt: base.Add(2 * time.Minute)},
		{UserID: owner.ID, VideoID: first.ID, WatchedAt: base.Add(3 * time.Minute)},
	}
	for _, entry := range watches {
		if err := repo.AppendWatchEntry(ctx, entry); err != nil {
			t.Fatalf("append watch entry: %v", err)
		}
	}

	entries, err := repo.WatchEntriesForUser(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("watch entries: %v", err)
	}
	// The raw log keeps every event, including repeats.
	if len(entries) != 3 {
		t.Fatalf("expected 3 raw entries for viewer, got %d", len(entries))
	}

	videos, err := repo.FindByIDs(ctx, []string{first.ID, second.ID, uuid.NewString()})
	if err != nil {
		t.Fatalf("find by ids: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 videos resolved, got %d", len(videos))
	}
}

func TestPostgresTweetRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "owner")

	repo := NewPostgresTweetRepository(testPool)

	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   owner.ID,
		Content:   "hello world",
		LikedBy:   []string{},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, tweet); err != nil {
		t.Fatalf("create tweet: %v", err)
	}

	tweets, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list tweets: %v", err)
	}
	if len(tweets) != 1 || tweets[0].OwnerUsername != "owner" {
		t.Fatalf("expected one tweet with owner summary, got %+v", tweets)
	}

	if err := repo.SetLikes(ctx, tweet.ID, []string{owner.ID}); err != nil {
		t.Fatalf("set likes: %v", err)
	}
	fetched, err := repo.FindByID(ctx, tweet.ID)
	if err != nil {
		t.Fatalf("find tweet: %v", err)
	}
	if fetched.LikesCount != 1 {
		t.Fatalf("expected one like, got %d", fetched.LikesCount)
	}

	if err := repo.Delete(ctx, tweet.ID); err != nil {
		t.Fatalf("delete tweet: %v", err)
	}
	if _, err := repo.FindByID(ctx, tweet.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE watch_history, tweets, videos, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, username string) models.User {
	t.Helper()
	user := models.User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         username + "@example.com",
		Password:      "password-hash",
		SubscriberIDs: []string{},
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func createTestVideo(t *testing.T, repo *PostgresVideoRepository, ownerID, title string, published bool) models.Video {
	t.Helper()
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Description: "a description",
		VideoURL:    "https://media.test/videos/" + title + ".mp4",
		LikedBy:     []string{},
		IsPublished: published,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), video); err != nil {
		t.Fatalf("create test video: %v", err)
	}
	return video
}
