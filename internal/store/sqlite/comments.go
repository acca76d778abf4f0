package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"inkwell/internal/store"
)

const commentColumns = "id, post_id, parent_id, author_name, author_email, content, like_count, created_at"

func (s *Store) CreateComment(ctx context.Context, comment *store.Comment) (int64, error) {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, comment.PostID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	if comment.ParentID != nil {
		var parentPostID int64
		var parentParentID sql.NullInt64
		err = tx.QueryRowContext(ctx, `SELECT post_id, parent_id FROM comments WHERE id = ?`, *comment.ParentID).
			Scan(&parentPostID, &parentParentID)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		if err != nil {
			return 0, err
		}
		if parentPostID != comment.PostID {
			return 0, store.ErrParentMismatch
		}
		// Replies to replies are not allowed; the thread is two levels deep.
		if parentParentID.Valid {
			return 0, store.ErrMaxDepth
		}
	}

	res, err := tx.ExecContext(ctx, `
INSERT INTO comments (post_id, parent_id, author_name, author_email, content, like_count, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, comment.PostID, comment.ParentID, comment.AuthorName, comment.AuthorEmail,
		comment.Content, comment.LikeCount, comment.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	comment.ID = id
	return id, nil
}

func (s *Store) GetComment(ctx context.Context, id int64) (store.Comment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id)
	comment, err := scanComment(row)
	if err != nil {
		return store.Comment{}, err
	}
	comment.Replies, err = s.loadReplies(ctx, comment.ID)
	return comment, err
}

// ListCommentsByPost returns top-level comments for a post, oldest
// first, each carrying its replies. The total counts top-level
// comments only.
func (s *Store) ListCommentsByPost(ctx context.Context, postID int64, opts store.ListOpts) ([]store.Comment, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE post_id = ? AND parent_id IS NULL`, postID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT `+commentColumns+` FROM comments
WHERE post_id = ? AND parent_id IS NULL
ORDER BY created_at ASC, id ASC
LIMIT ? OFFSET ?
`, postID, clampLimit(opts.Limit), opts.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	comments := []store.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, 0, err
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range comments {
		replies, err := s.loadReplies(ctx, comments[i].ID)
		if err != nil {
			return nil, 0, err
		}
		comments[i].Replies = replies
	}
	return comments, total, nil
}

func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
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

func (s *Store) AdjustCommentLikes(ctx context.Context, id int64, delta int) (store.Comment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Comment{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE comments SET like_count = MAX(0, like_count + ?) WHERE id = ?`, delta, id)
	if err != nil {
		return store.Comment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return store.Comment{}, err
	}
	if affected == 0 {
		return store.Comment{}, store.ErrNotFound
	}

	row := tx.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id)
	comment, err := scanComment(row)
	if err != nil {
		return store.Comment{}, err
	}
	if err := tx.Commit(); err != nil {
		return store.Comment{}, err
	}
	return comment, nil
}

func (s *Store) loadReplies(ctx context.Context, parentID int64) ([]store.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+commentColumns+` FROM comments
WHERE parent_id = ?
ORDER BY created_at ASC, id ASC
`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	replies := []store.Comment{}
	for rows.Next() {
		reply, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		replies = append(replies, reply)
	}
	return replies, rows.Err()
}

func scanComment(row rowScanner) (store.Comment, error) {
	var (
		comment   store.Comment
		parentID  sql.NullInt64
		createdAt int64
	)
	err := row.Scan(&comment.ID, &comment.PostID, &parentID, &comment.AuthorName,
		&comment.AuthorEmail, &comment.Content, &comment.LikeCount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Comment{}, store.ErrNotFound
	}
	if err != nil {
		return store.Comment{}, err
	}
	if parentID.Valid {
		comment.ParentID = &parentID.Int64
	}
	comment.CreatedAt = time.Unix(createdAt, 0).UTC()
	return comment, nil
}
