// Package store defines the record store consumed by the HTTP layer:
// posts, tags, and comments with their interaction counters. The
// interfaces stay abstract so a distributed deployment can swap the
// sqlite implementation without touching handlers or the guard.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateSlug = errors.New("duplicate slug")
	ErrDuplicateName = errors.New("duplicate name")
	// ErrMaxDepth rejects replies whose parent is itself a reply.
	ErrMaxDepth = errors.New("maximum comment depth reached")
	// ErrParentMismatch rejects replies whose parent belongs to another post.
	ErrParentMismatch = errors.New("parent comment belongs to a different post")
)

type Post struct {
	ID              int64
	Title           string
	Slug            string
	Summary         string
	Content         string
	ViewCount       int
	ReadTimeMinutes int
	Featured        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Tags            []Tag
}

type Tag struct {
	ID   int64
	Name string
	Slug string
}

type Comment struct {
	ID          int64
	PostID      int64
	ParentID    *int64
	AuthorName  string
	AuthorEmail string
	Content     string
	LikeCount   int
	CreatedAt   time.Time
	Replies     []Comment
}

// ListOpts is offset/limit pagination shared by list queries.
type ListOpts struct {
	Offset int
	Limit  int
}

type PostStore interface {
	CreatePost(ctx context.Context, post *Post, tagIDs []int64) (int64, error)
	GetPost(ctx context.Context, id int64) (Post, error)
	GetPostBySlug(ctx context.Context, slug string) (Post, error)
	ListPosts(ctx context.Context, opts ListOpts) ([]Post, int, error)
	SearchPosts(ctx context.Context, query string, opts ListOpts) ([]Post, int, error)
	UpdatePost(ctx context.Context, post *Post, tagIDs []int64) error
	DeletePost(ctx context.Context, id int64) error

	// IncrementViewCount bumps the view counter for a slug. The guard
	// decides whether this runs at all; the store just applies it.
	IncrementViewCount(ctx context.Context, slug string) error
}

type TagStore interface {
	CreateTag(ctx context.Context, tag *Tag) (int64, error)
	GetTag(ctx context.Context, id int64) (Tag, error)
	ListTags(ctx context.Context) ([]Tag, error)
	UpdateTag(ctx context.Context, tag *Tag) error
	DeleteTag(ctx context.Context, id int64) error
}

type CommentStore interface {
	CreateComment(ctx context.Context, comment *Comment) (int64, error)
	GetComment(ctx context.Context, id int64) (Comment, error)
	ListCommentsByPost(ctx context.Context, postID int64, opts ListOpts) ([]Comment, int, error)
	DeleteComment(ctx context.Context, id int64) error

	// AdjustCommentLikes applies a like/dislike delta, floored at zero,
	// and returns the updated comment.
	AdjustCommentLikes(ctx context.Context, id int64, delta int) (Comment, error)
}

type Store interface {
	PostStore
	TagStore
	CommentStore
	Close() error
}
