package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"tvtracker/internal/models"
	"tvtracker/internal/store"
)

// maxPosterSize caps poster uploads at 5 MiB.
const maxPosterSize = 5 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// MediaStore defines the entry persistence used by the handlers.
type MediaStore interface {
	Insert(ctx context.Context, entry *models.MediaEntry) error
	ListByUsername(ctx context.Context, username string) ([]models.MediaEntry, error)
	GetByID(ctx context.Context, id string) (*models.MediaEntry, error)
	Update(ctx context.Context, entry *models.MediaEntry) error
	Delete(ctx context.Context, id string) error
	SetPosterKey(ctx context.Context, id, key string) error
}

// PosterStore defines the object storage for entry poster images.
type PosterStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// Handler holds the media entry HTTP handlers. Every route served here sits
// behind the token middleware, which has already validated the token and put
// the username into the request context.
type Handler struct {
	entries MediaStore
	posters PosterStore
	log     *zap.Logger
}

func NewHandler(entries MediaStore, posters PosterStore, log *zap.Logger) *Handler {
	return &Handler{entries: entries, posters: posters, log: log}
}

func authedUsername(r *http.Request) string {
	return r.Context().Value("username").(string)
}

// List returns every entry owned by the authenticated user, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	username := authedUsername(r)

	entries, err := h.entries.ListByUsername(r.Context(), username)
	if err != nil {
		h.log.Error("list entries", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if entries == nil {
		entries = []models.MediaEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Create persists a new entry owned by the authenticated user.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	username := authedUsername(r)

	var entry models.MediaEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if entry.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	// Ownership comes from the validated token, never from the body.
	entry.Username = username
	entry.PosterKey = ""

	if err := h.entries.Insert(r.Context(), &entry); err != nil {
		h.log.Error("create entry", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Update edits an existing entry. The entry must belong to the authenticated
// user: a foreign entry is an authorization failure, an absent one a bad
// request.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	username := authedUsername(r)

	var entry models.MediaEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if entry.EntryID.IsZero() {
		writeError(w, http.StatusBadRequest, "entryId is required")
		return
	}
	if entry.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	if h.loadOwned(w, r, entry.EntryID.Hex(), username) == nil {
		return
	}

	if err := h.entries.Update(r.Context(), &entry); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "no such entry")
			return
		}
		h.log.Error("update entry", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
}

// Delete removes an entry and its poster image. Deleting an id that no
// longer exists is a bad request, never a fault.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	username := authedUsername(r)
	id := r.URL.Query().Get("entryId")
	if id == "" {
		writeError(w, http.StatusBadRequest, "entryId is required")
		return
	}

	existing := h.loadOwned(w, r, id, username)
	if existing == nil {
		return
	}

	if existing.PosterKey != "" {
		if err := h.posters.Remove(r.Context(), existing.PosterKey); err != nil {
			h.log.Warn("remove poster", zap.String("key", existing.PosterKey), zap.Error(err))
		}
	}

	if err := h.entries.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "no such entry")
			return
		}
		h.log.Error("delete entry", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// UploadPoster stores a poster image for an entry owned by the user.
func (h *Handler) UploadPoster(w http.ResponseWriter, r *http.Request) {
	username := authedUsername(r)
	id := r.URL.Query().Get("entryId")
	if id == "" {
		writeError(w, http.StatusBadRequest, "entryId is required")
		return
	}

	existing := h.loadOwned(w, r, id, username)
	if existing == nil {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPosterSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "poster unreadable or too large")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "poster body is empty")
		return
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("%s/%s", username, id)
	if err := h.posters.Upload(r.Context(), key, data, contentType); err != nil {
		h.log.Error("upload poster", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.entries.SetPosterKey(r.Context(), id, key); err != nil {
		h.log.Error("set poster key", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "poster uploaded"})
}

// GetPoster streams the poster image for an entry owned by the user.
func (h *Handler) GetPoster(w http.ResponseWriter, r *http.Request) {
	username := authedUsername(r)
	id := r.URL.Query().Get("entryId")
	if id == "" {
		writeError(w, http.StatusBadRequest, "entryId is required")
		return
	}

	existing := h.loadOwned(w, r, id, username)
	if existing == nil {
		return
	}
	if existing.PosterKey == "" {
		writeError(w, http.StatusNotFound, "no poster for entry")
		return
	}

	data, contentType, err := h.posters.Download(r.Context(), existing.PosterKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no poster for entry")
			return
		}
		h.log.Error("download poster", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// loadOwned fetches an entry and enforces that it belongs to username. When
// the entry is absent, foreign, or the lookup faults, it writes the response
// itself and returns nil.
func (h *Handler) loadOwned(w http.ResponseWriter, r *http.Request, id, username string) *models.MediaEntry {
	existing, err := h.entries.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "no such entry")
			return nil
		}
		h.log.Error("get entry", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil
	}
	if existing.Username != username {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return nil
	}
	return existing
}
