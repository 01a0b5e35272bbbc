package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Collector/internal/auth"
	"github.com/MikeSquared-Agency/Collector/internal/store"
)

// Registrar creates users.
type Registrar interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*store.User, error)
}

type AuthHandler struct {
	directory auth.Directory
	registrar Registrar
	tokens    *auth.TokenService
	store     store.Store
	logger    *slog.Logger
}

func NewAuthHandler(d auth.Directory, reg Registrar, tokens *auth.TokenService, s store.Store, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{directory: d, registrar: reg, tokens: tokens, store: s, logger: logger}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        *store.User `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}

	ctx := auth.WithClientIP(r.Context(), clientIP(r))
	u, err := h.directory.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	token, err := h.tokens.Issue(u)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.tokens.TTL() / time.Second),
		User:        u,
	})
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	resp := map[string]interface{}{
		"valid":    true,
		"user_id":  claims.UserID,
		"username": claims.Username,
		"role":     claims.Role,
	}
	if claims.Agency != "" {
		resp["agency"] = claims.Agency
	}
	if claims.ExpiresAt != nil {
		resp["expires_at"] = claims.ExpiresAt.Time
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := h.registrar.Register(r.Context(), req)
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeErr(w, h.logger, err)
		return
	}
	if users == nil {
		users = []*store.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && claims.UserID == id {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		writeErr(w, h.logger, err)
		return
	}
	h.logger.Info("user deleted", "user_id", id)
	w.WriteHeader(http.StatusNoContent)
}
