package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/streamtweet/backend/internal/db"
	"github.com/streamtweet/backend/internal/history"
	"github.com/streamtweet/backend/internal/models"
)

const videoColumns = `v.id, v.owner_id, v.title, v.description, v.video_url, v.thumbnail_url,
        v.duration, v.views, v.liked_by, v.likes_count, v.is_published, v.created_at, v.updated_at,
        u.username, u.avatar_url`

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos,
// their like sets, the view counter, and the watch-history log.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	likedBy := video.LikedBy
	if likedBy == nil {
		likedBy = []string{}
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, video_url, thumbnail_url, duration, views, liked_by, likes_count, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.VideoURL, video.ThumbnailURL,
		video.Duration, video.Views, likedBy, len(likedBy), video.IsPublished, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a video with its owner summary.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+videoColumns+`
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.id = $1
    `, id)

	return scanVideo(row)
}

// ListPublished returns published videos in reverse chronological order.
func (r *PostgresVideoRepository) ListPublished(ctx context.Context) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+`
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.is_published
        ORDER BY v.created_at DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("query published videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate published videos: %w", err)
	}

	return videos, nil
}

// UpdateDetails modifies title, description, and thumbnail, returning the
// updated record. Blank title/description leave the stored value in place.
func (r *PostgresVideoRepository) UpdateDetails(ctx context.Context, id, title, description, thumbnailURL string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET title = COALESCE(NULLIF($2, ''), title),
            description = COALESCE(NULLIF($3, ''), description),
            thumbnail_url = COALESCE(NULLIF($4, ''), thumbnail_url),
            updated_at = NOW()
        WHERE id = $1
    `, id, title, description, thumbnailURL)
	if err != nil {
		return models.Video{}, fmt.Errorf("update video details: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.Video{}, ErrNotFound
	}

	return r.FindByID(ctx, id)
}

// Delete removes a video and its watch-history rows.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SetLikes writes the like member set and the derived count in one statement.
func (r *PostgresVideoRepository) SetLikes(ctx context.Context, id string, likedBy []string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if likedBy == nil {
		likedBy = []string{}
	}

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET liked_by = $2, likes_count = $3, updated_at = NOW()
        WHERE id = $1
    `, id, likedBy, len(likedBy))
	if err != nil {
		return fmt.Errorf("update video likes: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// IncrementViews bumps the monotonic view counter. Repeat views all count.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, videoID)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// AppendWatchEntry adds a row to the append-only watch-history log. The log
// is never deduplicated at write time.
func (r *PostgresVideoRepository) AppendWatchEntry(ctx context.Context, entry models.WatchEntry) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, watched_at)
        VALUES ($1, $2, $3)
    `, entry.UserID, entry.VideoID, entry.WatchedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert watch entry: %w", err)
	}

	return nil
}

// WatchEntriesForUser returns the raw, uncollapsed log for the user.
func (r *PostgresVideoRepository) WatchEntriesForUser(ctx context.Context, userID string) ([]models.WatchEntry, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT user_id, video_id, watched_at
        FROM watch_history
        WHERE user_id = $1
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	var entries []models.WatchEntry
	for rows.Next() {
		var entry models.WatchEntry
		if err := rows.Scan(&entry.UserID, &entry.VideoID, &entry.WatchedAt); err != nil {
			return nil, fmt.Errorf("scan watch entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history: %w", err)
	}

	return entries, nil
}

// FindByIDs fetches the given videos keyed by id. Missing ids are simply
// absent from the result.
func (r *PostgresVideoRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Video, error) {
	if len(ids) == 0 {
		return map[string]models.Video{}, nil
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+`
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.id = ANY($1)
    `, ids)
	if err != nil {
		return nil, fmt.Errorf("query videos by ids: %w", err)
	}
	defer rows.Close()

	videos := make(map[string]models.Video, len(ids))
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos[video.ID] = video
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos by ids: %w", err)
	}

	return videos, nil
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	err := row.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description, &video.VideoURL,
		&video.ThumbnailURL, &video.Duration, &video.Views, &video.LikedBy, &video.LikesCount,
		&video.IsPublished, &video.CreatedAt, &video.UpdatedAt, &video.OwnerUsername, &video.OwnerAvatarURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("scan video: %w", err)
	}

	return video, nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
var _ history.ViewStore = (*PostgresVideoRepository)(nil)
