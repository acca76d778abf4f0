package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"inkwell/internal/content"
	"inkwell/internal/guard"
	"inkwell/internal/store"
	httpjson "inkwell/internal/transport/http/json"
	dErrors "inkwell/pkg/domain-errors"
)

type TagHandler struct {
	store  store.TagStore
	guard  *guard.Guard
	logger *slog.Logger
}

func NewTagHandler(s store.TagStore, g *guard.Guard, logger *slog.Logger) *TagHandler {
	return &TagHandler{store: s, guard: g, logger: logger}
}

func (h *TagHandler) Register(r chi.Router) {
	r.Get("/tags", h.HandleListTags)
	r.Get("/tags/{id}", h.HandleGetTag)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin)
		r.Post("/tags", h.HandleCreateTag)
		r.Put("/tags/{id}", h.HandleUpdateTag)
		r.Delete("/tags/{id}", h.HandleDeleteTag)
	})
}

type tagRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (r *tagRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	return nil
}

type tagResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func toTagResponse(t store.Tag) tagResponse {
	return tagResponse{ID: t.ID, Name: t.Name, Slug: t.Slug}
}

func (h *TagHandler) HandleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.ListTags(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list tags failed", "error", err)
		httpjson.WriteError(w, storeError(err))
		return
	}
	out := make([]tagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, toTagResponse(t))
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]any{"tags": out})
}

func (h *TagHandler) HandleGetTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	tag, err := h.store.GetTag(r.Context(), id)
	if err != nil {
		httpjson.WriteError(w, storeError(err))
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, toTagResponse(tag))
}

func (h *TagHandler) HandleCreateTag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httpjson.DecodeAndValidate[tagRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}

	tag := tagFromRequest(req)
	if _, err := h.store.CreateTag(ctx, &tag); err != nil {
		h.logger.ErrorContext(ctx, "create tag failed", "error", err)
		httpjson.WriteError(w, storeError(err))
		return
	}
	httpjson.WriteJSON(w, http.StatusCreated, toTagResponse(tag))
}

func (h *TagHandler) HandleUpdateTag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	req, ok := httpjson.DecodeAndValidate[tagRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}

	tag := tagFromRequest(req)
	tag.ID = id
	if err := h.store.UpdateTag(ctx, &tag); err != nil {
		h.logger.ErrorContext(ctx, "update tag failed", "error", err, "tag_id", id)
		httpjson.WriteError(w, storeError(err))
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, toTagResponse(tag))
}

func (h *TagHandler) HandleDeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteTag(r.Context(), id); err != nil {
		httpjson.WriteError(w, storeError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func tagFromRequest(req *tagRequest) store.Tag {
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = content.Slugify(req.Name)
	}
	return store.Tag{Name: strings.TrimSpace(req.Name), Slug: slug}
}
