package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tvtracker/internal/models"
	"tvtracker/internal/store"
)

// UserStore defines the account persistence needed by the auth handlers.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.UserAccount, error)
	GetUserByUsername(ctx context.Context, username string) (*models.UserAccount, error)
	UserExists(ctx context.Context, username string) (bool, error)
}

// Handler holds the sign-up and authenticate HTTP handlers.
type Handler struct {
	users  UserStore
	tokens *Service
	log    *zap.Logger
}

func NewHandler(users UserStore, tokens *Service, log *zap.Logger) *Handler {
	return &Handler{users: users, tokens: tokens, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// SignUp creates a new account and returns its first session token.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	exists, err := h.users.UserExists(r.Context(), req.Username)
	if err != nil {
		h.log.Error("user exists check", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "username already exists")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("password hash", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if _, err := h.users.CreateUser(r.Context(), req.Username, string(hashed)); err != nil {
		// The existence check above is advisory only; the insert itself is
		// what enforces uniqueness when two sign-ups race.
		if errors.Is(err, store.ErrDuplicateUsername) {
			writeError(w, http.StatusConflict, "username already exists")
			return
		}
		h.log.Error("create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := h.tokens.Issue(r.Context(), req.Username)
	if err != nil {
		h.log.Error("issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, models.TokenResponse{Token: token})
}

// Authenticate verifies the username/password pair and rotates the session
// token. Any previously issued token for the username stops validating.
func (h *Handler) Authenticate(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	password := r.URL.Query().Get("password")
	if username == "" || password == "" {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	user, err := h.users.GetUserByUsername(r.Context(), username)
	if err != nil {
		// An unknown username and a wrong password produce the same
		// response, so callers cannot probe for registered accounts.
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.Error("get user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokens.Issue(r.Context(), username)
	if err != nil {
		h.log.Error("issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, models.TokenResponse{Token: token})
}
