package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// SQLitePostRepository persists normalized posts fetched through the API.
type SQLitePostRepository struct {
	db *DB
}

var _ PostRepository = (*SQLitePostRepository)(nil)
var _ StatsRepository = (*SQLitePostRepository)(nil)

func NewPostRepository(db *DB) *SQLitePostRepository {
	return &SQLitePostRepository{db: db}
}

func (r *SQLitePostRepository) UpsertPost(post ArchivedPost) error {
	id := post.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := r.db.Exec(`
		INSERT INTO archived_posts (
			id, post_id, author_handle, text, created_at, url, media_count, source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (post_id) DO UPDATE SET
			author_handle = excluded.author_handle,
			text = excluded.text,
			url = excluded.url,
			media_count = excluded.media_count
	`, id, post.PostID, post.AuthorHandle, post.Text, post.CreatedAt,
		post.URL, post.MediaCount, post.Source)

	if err != nil {
		return fmt.Errorf("failed to archive post: %w", err)
	}

	return nil
}

func (r *SQLitePostRepository) GetPostCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM archived_posts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count archived posts: %w", err)
	}
	return count, nil
}

func (r *SQLitePostRepository) GetRecentPosts(limit int) ([]ArchivedPost, error) {
	rows, err := r.db.Query(`
		SELECT id, post_id, author_handle, text, created_at, url, media_count, source, archived_at
		FROM archived_posts
		ORDER BY archived_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent posts: %w", err)
	}
	defer rows.Close()

	var posts []ArchivedPost
	for rows.Next() {
		var post ArchivedPost
		var createdAt sql.NullTime
		err := rows.Scan(&post.ID, &post.PostID, &post.AuthorHandle, &post.Text,
			&createdAt, &post.URL, &post.MediaCount, &post.Source, &post.ArchivedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan archived post: %w", err)
		}
		if createdAt.Valid {
			post.CreatedAt = &createdAt.Time
		}
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

func (r *SQLitePostRepository) GetStats() (*ArchiveStats, error) {
	stats := &ArchiveStats{}

	err := r.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN media_count > 0 THEN 1 ELSE 0 END), 0)
		FROM archived_posts
	`).Scan(&stats.Posts, &stats.PostsWithMedia)
	if err != nil {
		return nil, fmt.Errorf("failed to get post stats: %w", err)
	}

	err = r.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN succeeded = 0 THEN 1 ELSE 0 END), 0)
		FROM bootstrap_attempts
	`).Scan(&stats.BootstrapAttempts, &stats.BootstrapFailures)
	if err != nil {
		return nil, fmt.Errorf("failed to get bootstrap stats: %w", err)
	}

	return stats, nil
}
