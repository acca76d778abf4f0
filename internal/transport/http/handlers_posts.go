package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"inkwell/internal/content"
	"inkwell/internal/guard"
	"inkwell/internal/idempotency"
	"inkwell/internal/store"
	httpjson "inkwell/internal/transport/http/json"
	dErrors "inkwell/pkg/domain-errors"
)

type PostHandler struct {
	store  store.PostStore
	guard  *guard.Guard
	logger *slog.Logger
}

func NewPostHandler(s store.PostStore, g *guard.Guard, logger *slog.Logger) *PostHandler {
	return &PostHandler{store: s, guard: g, logger: logger}
}

func (h *PostHandler) Register(r chi.Router) {
	r.Get("/posts", h.HandleListPosts)
	r.Get("/posts/search", h.HandleSearchPosts)
	r.Get("/posts/{id}", h.HandleGetPost)
	r.Get("/posts/slug/{slug}", h.HandleGetPostBySlug)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin)
		r.Post("/posts", h.HandleCreatePost)
		r.Put("/posts/{id}", h.HandleUpdatePost)
		r.Delete("/posts/{id}", h.HandleDeletePost)
	})
}

type postRequest struct {
	Title    string  `json:"title"`
	Slug     string  `json:"slug"`
	Summary  string  `json:"summary"`
	Content  string  `json:"content"`
	Featured bool    `json:"featured"`
	TagIDs   []int64 `json:"tag_ids"`
}

func (r *postRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "title is required")
	}
	if strings.TrimSpace(r.Content) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "content is required")
	}
	return nil
}

type postResponse struct {
	ID              int64         `json:"id"`
	Title           string        `json:"title"`
	Slug            string        `json:"slug"`
	Summary         string        `json:"summary"`
	Content         string        `json:"content"`
	ViewCount       int           `json:"view_count"`
	ReadTimeMinutes int           `json:"read_time_minutes"`
	Featured        bool          `json:"featured"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Tags            []tagResponse `json:"tags"`
}

type postListResponse struct {
	Posts []postResponse `json:"posts"`
	Total int            `json:"total"`
}

func toPostResponse(p store.Post) postResponse {
	tags := make([]tagResponse, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, toTagResponse(t))
	}
	return postResponse{
		ID:              p.ID,
		Title:           p.Title,
		Slug:            p.Slug,
		Summary:         p.Summary,
		Content:         p.Content,
		ViewCount:       p.ViewCount,
		ReadTimeMinutes: p.ReadTimeMinutes,
		Featured:        p.Featured,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		Tags:            tags,
	}
}

func toPostListResponse(posts []store.Post, total int) postListResponse {
	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostResponse(p))
	}
	return postListResponse{Posts: out, Total: total}
}

func (h *PostHandler) HandleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, total, err := h.store.ListPosts(r.Context(), listOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list posts failed", "error", err)
		httpjson.WriteError(w, storeError(err))
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, toPostListResponse(posts, total))
}

func (h *PostHandler) HandleSearchPosts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "query parameter q is required"))
		return
	}

	posts, total, err := h.store.SearchPosts(r.Context(), query, listOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "search posts failed", "error", err)
		httpjson.WriteError(w, storeError(err))
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, toPostListResponse(posts, total))
}

func (h *PostHandler) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	post, err := h.store.GetPost(r.Context(), id)
	if err != nil {
		httpjson.WriteError(w, storeError(err))
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, toPostResponse(post))
}

// HandleGetPostBySlug serves the public reading path. The first view
// per client within the idempotency window bumps the view counter;
// repeats serve the post without counting.
func (h *PostHandler) HandleGetPostBySlug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")

	if h.guard.FirstOccurrence(ctx, idempotency.ActionView, slug) {
		if err := h.store.IncrementViewCount(ctx, slug); err != nil && !errors.Is(err, store.ErrNotFound) {
			h.logger.ErrorContext(ctx, "view count increment failed", "error", err, "slug", slug)
		}
	}

	post, err := h.store.GetPostBySlug(ctx, slug)
	if err != nil {
		httpjson.WriteError(w, storeError(err))
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, toPostResponse(post))
}

func (h *PostHandler) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httpjson.DecodeAndValidate[postRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}

	post := postFromRequest(req)
	if _, err := h.store.CreatePost(ctx, &post, req.TagIDs); err != nil {
		h.logger.ErrorContext(ctx, "create post failed", "error", err)
		httpjson.WriteError(w, storeError(err))
		return
	}
	httpjson.WriteJSON(w, http.StatusCreated, toPostResponse(post))
}

func (h *PostHandler) HandleUpdatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	req, ok := httpjson.DecodeAndValidate[postRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}

	post := postFromRequest(req)
	post.ID = id
	if err := h.store.UpdatePost(ctx, &post, req.TagIDs); err != nil {
		h.logger.ErrorContext(ctx, "update post failed", "error", err, "post_id", id)
		httpjson.WriteError(w, storeError(err))
		return
	}

	updated, err := h.store.GetPost(ctx, id)
	if err != nil {
		httpjson.WriteError(w, storeError(err))
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, toPostResponse(updated))
}

func (h *PostHandler) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeletePost(r.Context(), id); err != nil {
		httpjson.WriteError(w, storeError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func postFromRequest(req *postRequest) store.Post {
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = content.Slugify(req.Title)
	}
	return store.Post{
		Title:           strings.TrimSpace(req.Title),
		Slug:            slug,
		Summary:         strings.TrimSpace(req.Summary),
		Content:         req.Content,
		ReadTimeMinutes: content.ReadTime(req.Content),
		Featured:        req.Featured,
	}
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid "+param))
		return 0, false
	}
	return id, true
}

func listOpts(r *http.Request) store.ListOpts {
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	return store.ListOpts{Offset: offset, Limit: limit}
}

// storeError maps record store sentinels onto domain error codes.
func storeError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "resource not found")
	case errors.Is(err, store.ErrDuplicateSlug):
		return dErrors.Wrap(err, dErrors.CodeConflict, "slug already in use")
	case errors.Is(err, store.ErrDuplicateName):
		return dErrors.Wrap(err, dErrors.CodeConflict, "name already in use")
	case errors.Is(err, store.ErrMaxDepth):
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "replies cannot be nested further")
	case errors.Is(err, store.ErrParentMismatch):
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "parent comment belongs to a different post")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "")
	}
}
