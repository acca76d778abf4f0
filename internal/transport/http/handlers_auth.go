package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"inkwell/internal/guard"
	httpjson "inkwell/internal/transport/http/json"
)

// TokenIssuer exchanges admin credentials for a signed bearer token.
type TokenIssuer interface {
	Issue(ctx context.Context, username, password string) (string, error)
}

type AuthHandler struct {
	tokens TokenIssuer
	guard  *guard.Guard
	logger *slog.Logger
}

func NewAuthHandler(tokens TokenIssuer, g *guard.Guard, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, guard: g, logger: logger}
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/token", h.HandleIssueToken)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// HandleIssueToken exchanges form-encoded credentials for a token. Any
// failure answers the same generic 401 with a bearer challenge.
func (h *AuthHandler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		h.unauthorized(w, ctx, "malformed form body")
		return
	}

	token, err := h.tokens.Issue(ctx, r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		h.unauthorized(w, ctx, "credential check failed")
		return
	}

	h.guard.RecordAuthSuccess()
	httpjson.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

func (h *AuthHandler) unauthorized(w http.ResponseWriter, ctx context.Context, reason string) {
	h.guard.RecordAuthFailure()
	if h.logger != nil {
		h.logger.WarnContext(ctx, "token issuance refused", "reason", reason)
	}
	w.Header().Set("WWW-Authenticate", "Bearer")
	httpjson.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
}
