package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/streamtweet/backend/internal/db"
	"github.com/streamtweet/backend/internal/models"
)

const tweetColumns = `t.id, t.owner_id, t.content, t.liked_by, t.likes_count, t.created_at, t.updated_at, u.username`

// PostgresTweetRepository provides PostgreSQL-backed persistence for tweets.
type PostgresTweetRepository struct {
	pool db.Pool
}

// NewPostgresTweetRepository constructs a tweet repository backed by PostgreSQL.
func NewPostgresTweetRepository(pool db.Pool) *PostgresTweetRepository {
	return &PostgresTweetRepository{pool: pool}
}

// Create stores a new tweet.
func (r *PostgresTweetRepository) Create(ctx context.Context, tweet models.Tweet) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	likedBy := tweet.LikedBy
	if likedBy == nil {
		likedBy = []string{}
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO tweets (id, owner_id, content, liked_by, likes_count, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, tweet.ID, tweet.OwnerID, tweet.Content, likedBy, len(likedBy), tweet.CreatedAt, tweet.UpdatedAt)
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
		return fmt.Errorf("insert tweet: %w", err)
	}

	return nil
}

// FindByID fetches a tweet with its owner summary.
func (r *PostgresTweetRepository) FindByID(ctx context.Context, id string) (models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+tweetColumns+`
        FROM tweets t
        JOIN users u ON u.id = t.owner_id
        WHERE t.id = $1
    `, id)

	return scanTweet(row)
}

// List returns all tweets in reverse chronological order.
func (r *PostgresTweetRepository) List(ctx context.Context) ([]models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+tweetColumns+`
        FROM tweets t
        JOIN users u ON u.id = t.owner_id
        ORDER BY t.created_at DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("query tweets: %w", err)
	}
	defer rows.Close()

	var tweets []models.Tweet
	for rows.Next() {
		tweet, err := scanTweet(rows)
		if err != nil {
			return nil, err
		}
		tweets = append(tweets, tweet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tweets: %w", err)
	}

	return tweets, nil
}

// Delete removes a tweet.
func (r *PostgresTweetRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM tweets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tweet: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SetLikes writes the like member set and the derived count in one statement.
func (r *PostgresTweetRepository) SetLikes(ctx context.Context, id string, likedBy []string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if likedBy == nil {
		likedBy = []string{}
	}

	tag, err := conn.Exec(ctx, `
        UPDATE tweets
        SET liked_by = $2, likes_count = $3, updated_at = NOW()
        WHERE id = $1
    `, id, likedBy, len(likedBy))
	if err != nil {
		return fmt.Errorf("update tweet likes: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanTweet(row pgx.Row) (models.Tweet, error) {
	var tweet models.Tweet
	err := row.Scan(&tweet.ID, &tweet.OwnerID, &tweet.Content, &tweet.LikedBy, &tweet.LikesCount,
		&tweet.CreatedAt, &tweet.UpdatedAt, &tweet.OwnerUsername)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Tweet{}, ErrNotFound
		}
		return models.Tweet{}, fmt.Errorf("scan tweet: %w", err)
	}

	return tweet, nil
}

var _ TweetRepository = (*PostgresTweetRepository)(nil)
