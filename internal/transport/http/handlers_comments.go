package http

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"inkwell/internal/guard"
	"inkwell/internal/idempotency"
	"inkwell/internal/ratelimit"
	"inkwell/internal/store"
	httpjson "inkwell/internal/transport/http/json"
	dErrors "inkwell/pkg/domain-errors"
)

const maxCommentLength = 2000

type CommentHandler struct {
	store  store.CommentStore
	guard  *guard.Guard
	logger *slog.Logger
}

func NewCommentHandler(s store.CommentStore, g *guard.Guard, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{store: s, guard: g, logger: logger}
}

func (h *CommentHandler) Register(r chi.Router) {
	r.Get("/comments/{id}", h.HandleGetComment)
	r.Get("/comments/post/{postID}", h.HandleListCommentsByPost)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.PublicMutation(ratelimit.CategoryComment))
		r.Post("/comments", h.HandleCreateComment)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.guard.PublicMutation(ratelimit.CategoryReaction))
		r.Post("/comments/{id}/like", h.HandleLikeComment)
		r.Post("/comments/{id}/dislike", h.HandleDislikeComment)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin)
		r.Delete("/comments/{id}", h.HandleDeleteComment)
	})
}

type commentRequest struct {
	PostID      int64  `json:"post_id"`
	ParentID    *int64 `json:"parent_id"`
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
	Content     string `json:"content"`
}

func (r *commentRequest) Validate() error {
	if r.PostID <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "post_id is required")
	}
	if strings.TrimSpace(r.AuthorName) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "author_name is required")
	}
	if _, err := mail.ParseAddress(r.AuthorEmail); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "author_email is not a valid address")
	}
	body := strings.TrimSpace(r.Content)
	if body == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "content is required")
	}
	if len(body) > maxCommentLength {
		return dErrors.New(dErrors.CodeInvalidInput, "content exceeds maximum length")
	}
	return nil
}

type commentResponse struct {
	ID         int64             `json:"id"`
	PostID     int64             `json:"post_id"`
	ParentID   *int64            `json:"parent_id,omitempty"`
	AuthorName string            `json:"author_name"`
	Content    string            `json:"content"`
	LikeCount  int               `json:"like_count"`
	CreatedAt  time.Time         `json:"created_at"`
	Replies    []commentResponse `json:"replies,omitempty"`
}

func toCommentResponse(c store.Comment) commentResponse {
	var replies []commentResponse
	for _, reply := range c.Replies {
		replies = append(replies, toCommentResponse(reply))
	}
	// The author email stays internal; it never leaves the API.
	return commentResponse{
		ID:         c.ID,
		PostID:     c.PostID,
		ParentID:   c.ParentID,
		AuthorName: c.AuthorName,
		Content:    c.Content,
		LikeCount:  c.LikeCount,
		CreatedAt:  c.CreatedAt,
		Replies:    replies,
	}
}

func (h *CommentHandler) HandleGetComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	comment, err := h.store.GetComment(r.Context(), id)
	if err != nil {
		httpjson.WriteError(w, storeError(err))
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, toCommentResponse(comment))
}

func (h *CommentHandler) HandleListCommentsByPost(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "postID")
	if !ok {
		return
	}

	comments, total, err := h.store.ListCommentsByPost(r.Context(), postID, listOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list comments failed", "error", err, "post_id", postID)
		httpjson.WriteError(w, storeError(err))
		return
	}
	out := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, toCommentResponse(c))
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]any{"comments": out, "total": total})
}

func (h *CommentHandler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httpjson.DecodeAndValidate[commentRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}

	comment := store.Comment{
		PostID:      req.PostID,
		ParentID:    req.ParentID,
		AuthorName:  strings.TrimSpace(req.AuthorName),
		AuthorEmail: strings.TrimSpace(req.AuthorEmail),
		Content:     strings.TrimSpace(req.Content),
	}
	if _, err := h.store.CreateComment(ctx, &comment); err != nil {
		h.logger.ErrorContext(ctx, "create comment failed", "error", err, "post_id", req.PostID)
		httpjson.WriteError(w, storeError(err))
		return
	}
	httpjson.WriteJSON(w, http.StatusCreated, toCommentResponse(comment))
}

func (h *CommentHandler) HandleLikeComment(w http.ResponseWriter, r *http.Request) {
	h.adjustLikes(w, r, idempotency.ActionLike, 1)
}

func (h *CommentHandler) HandleDislikeComment(w http.ResponseWriter, r *http.Request) {
	h.adjustLikes(w, r, idempotency.ActionDislike, -1)
}

// adjustLikes applies the reaction only on the first occurrence per
// client within the idempotency window. Either way the response body
// carries the comment's current state.
func (h *CommentHandler) adjustLikes(w http.ResponseWriter, r *http.Request, action idempotency.Action, delta int) {
	ctx := r.Context()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var (
		comment store.Comment
		err     error
	)
	if h.guard.FirstOccurrence(ctx, action, strconv.FormatInt(id, 10)) {
		comment, err = h.store.AdjustCommentLikes(ctx, id, delta)
	} else {
		comment, err = h.store.GetComment(ctx, id)
	}
	if err != nil {
		httpjson.WriteError(w, storeError(err))
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, toCommentResponse(comment))
}

func (h *CommentHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteComment(r.Context(), id); err != nil {
		httpjson.WriteError(w, storeError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
