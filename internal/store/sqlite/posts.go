package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"inkwell/internal/store"
)

const postColumns = "id, title, slug, summary, content, view_count, read_time_minutes, featured, created_at, updated_at"

func (s *Store) CreatePost(ctx context.Context, post *store.Post, tagIDs []int64) (int64, error) {
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = post.CreatedAt

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
INSERT INTO posts (title, slug, summary, content, view_count, read_time_minutes, featured, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, post.Title, post.Slug, post.Summary, post.Content, post.ViewCount, post.ReadTimeMinutes,
		boolToInt(post.Featured), post.CreatedAt.Unix(), post.UpdatedAt.Unix())
	if err != nil {
		return 0, mapConstraintErr(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := replacePostTags(ctx, tx, id, tagIDs); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	post.ID = id
	return id, nil
}

func (s *Store) GetPost(ctx context.Context, id int64) (store.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	post, err := scanPost(row)
	if err != nil {
		return store.Post{}, err
	}
	post.Tags, err = s.loadPostTags(ctx, post.ID)
	return post, err
}

func (s *Store) GetPostBySlug(ctx context.Context, slug string) (store.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug)
	post, err := scanPost(row)
	if err != nil {
		return store.Post{}, err
	}
	post.Tags, err = s.loadPostTags(ctx, post.ID)
	return post, err
}

func (s *Store) ListPosts(ctx context.Context, opts store.ListOpts) ([]store.Post, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT `+postColumns+` FROM posts
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`, clampLimit(opts.Limit), opts.Offset)
	if err != nil {
		return nil, 0, err
	}
	posts, err := s.collectPosts(ctx, rows)
	return posts, total, err
}

func (s *Store) SearchPosts(ctx context.Context, query string, opts store.ListOpts) ([]store.Post, int, error) {
	pattern := "%" + escapeLike(query) + "%"

	var total int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM posts
WHERE title LIKE ? ESCAPE '\' OR summary LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\'
`, pattern, pattern, pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT `+postColumns+` FROM posts
WHERE title LIKE ? ESCAPE '\' OR summary LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\'
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`, pattern, pattern, pattern, clampLimit(opts.Limit), opts.Offset)
	if err != nil {
		return nil, 0, err
	}
	posts, err := s.collectPosts(ctx, rows)
	return posts, total, err
}

func (s *Store) UpdatePost(ctx context.Context, post *store.Post, tagIDs []int64) error {
	post.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
UPDATE posts
SET title = ?, slug = ?, summary = ?, content = ?, read_time_minutes = ?, featured = ?, updated_at = ?
WHERE id = ?
`, post.Title, post.Slug, post.Summary, post.Content, post.ReadTimeMinutes,
		boolToInt(post.Featured), post.UpdatedAt.Unix(), post.ID)
	if err != nil {
		return mapConstraintErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	if err := replacePostTags(ctx, tx, post.ID, tagIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) IncrementViewCount(ctx context.Context, slug string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE posts SET view_count = view_count + 1 WHERE slug = ?`, slug)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func replacePostTags(ctx context.Context, tx *sql.Tx, postID int64, tagIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, postID); err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO post_tags (post_id, tag_id) VALUES (?, ?)`, postID, tagID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadPostTags(ctx context.Context, postID int64) ([]store.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT t.id, t.name, t.slug
FROM tags t
JOIN post_tags pt ON pt.tag_id = t.id
WHERE pt.post_id = ?
ORDER BY t.name
`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []store.Tag{}
	for rows.Next() {
		var t store.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *Store) collectPosts(ctx context.Context, rows *sql.Rows) ([]store.Post, error) {
	defer rows.Close()

	posts := []store.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range posts {
		tags, err := s.loadPostTags(ctx, posts[i].ID)
		if err != nil {
			return nil, err
		}
		posts[i].Tags = tags
	}
	return posts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (store.Post, error) {
	var (
		post                 store.Post
		featured             int
		createdAt, updatedAt int64
	)
	err := row.Scan(&post.ID, &post.Title, &post.Slug, &post.Summary, &post.Content,
		&post.ViewCount, &post.ReadTimeMinutes, &featured, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Post{}, store.ErrNotFound
	}
	if err != nil {
		return store.Post{}, err
	}
	post.Featured = featured != 0
	post.CreatedAt = time.Unix(createdAt, 0).UTC()
	post.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return post, nil
}

// escapeLike escapes LIKE wildcards in user-supplied search terms.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
