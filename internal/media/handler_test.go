package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"tvtracker/internal/auth"
	"tvtracker/internal/middleware"
	"tvtracker/internal/models"
	"tvtracker/internal/store"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type fakeMediaStore struct {
	mu      sync.Mutex
	entries map[string]models.MediaEntry
	listErr error
}

func newFakeMediaStore() *fakeMediaStore {
	return &fakeMediaStore{entries: make(map[string]models.MediaEntry)}
}

func (f *fakeMediaStore) Insert(ctx context.Context, entry *models.MediaEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.EntryID = primitive.NewObjectID()
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	f.entries[entry.EntryID.Hex()] = *entry
	return nil
}

func (f *fakeMediaStore) ListByUsername(ctx context.Context, username string) ([]models.MediaEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.MediaEntry
	for _, e := range f.entries {
		if e.Username == username {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeMediaStore) GetByID(ctx context.Context, id string) (*models.MediaEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (f *fakeMediaStore) Update(ctx context.Context, entry *models.MediaEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := entry.EntryID.Hex()
	existing, ok := f.entries[id]
	if !ok {
		return store.ErrNotFound
	}
	existing.Title = entry.Title
	existing.MediaType = entry.MediaType
	existing.Platform = entry.Platform
	existing.Status = entry.Status
	existing.Description = entry.Description
	existing.UpdatedAt = time.Now()
	f.entries[id] = existing
	return nil
}

func (f *fakeMediaStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeMediaStore) SetPosterKey(ctx context.Context, id, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.entries[id]
	if !ok {
		return store.ErrNotFound
	}
	existing.PosterKey = key
	f.entries[id] = existing
	return nil
}

// put seeds an entry directly, bypassing the handlers.
func (f *fakeMediaStore) put(username, title string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := primitive.NewObjectID()
	f.entries[id.Hex()] = models.MediaEntry{EntryID: id, Username: username, Title: title}
	return id.Hex()
}

type fakePosterStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakePosterStore() *fakePosterStore {
	return &fakePosterStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakePosterStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakePosterStore) Download(ctx context.Context, key string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, "", store.ErrNotFound
	}
	return data, f.types[key], nil
}

func (f *fakePosterStore) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	delete(f.types, key)
	return nil
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.UserAccount
}

func (f *fakeUserStore) CreateUser(ctx context.Context, username, passwordHash string) (*models.UserAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[username]; ok {
		return nil, store.ErrDuplicateUsername
	}
	u := &models.UserAccount{Username: username, PasswordHash: passwordHash}
	f.users[username] = u
	return u, nil
}

func (f *fakeUserStore) GetUserByUsername(ctx context.Context, username string) (*models.UserAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) UserExists(ctx context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[username]
	return ok, nil
}

// ---------------------------------------------------------------------------
// test server wiring, mirrors the router in cmd/server
// ---------------------------------------------------------------------------

type testEnv struct {
	router  http.Handler
	tokens  *auth.Service
	entries *fakeMediaStore
	posters *fakePosterStore
}

func newTestEnv() *testEnv {
	logger := zap.NewNop()
	tokens := auth.NewService(auth.NewMemoryTokenStore())
	users := &fakeUserStore{users: make(map[string]*models.UserAccount)}
	entries := newFakeMediaStore()
	posters := newFakePosterStore()

	authHandler := auth.NewHandler(users, tokens, logger)
	mediaHandler := NewHandler(entries, posters, logger)

	r := chi.NewRouter()
	r.Post("/signUp", authHandler.SignUp)
	r.Get("/authenticate", authHandler.Authenticate)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireToken(tokens, logger))
		r.Get("/getMediaEntries", mediaHandler.List)
		r.Post("/addMediaEntry", mediaHandler.Create)
		r.Put("/editMediaEntry", mediaHandler.Update)
		r.Delete("/removeMediaEntry", mediaHandler.Delete)
		r.Post("/addPoster", mediaHandler.UploadPoster)
		r.Get("/getPoster", mediaHandler.GetPoster)
	})

	return &testEnv{router: r, tokens: tokens, entries: entries, posters: posters}
}

func (e *testEnv) do(method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signUp(t *testing.T, username, password string) string {
	t.Helper()
	rec := e.do(http.MethodPost, "/signUp",
		strings.NewReader(`{"username":"`+username+`","password":"`+password+`"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeToken(t, rec)
}

func decodeToken(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.TokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// ---------------------------------------------------------------------------
// tests
// ---------------------------------------------------------------------------

// TestFullSessionLifecycle walks the whole flow: sign-up, failed and
// successful authentication, token rotation, entry creation, stale-token
// rejection, listing, and idempotent-looking repeated deletion.
func TestFullSessionLifecycle(t *testing.T) {
	env := newTestEnv()

	t1 := env.signUp(t, "alice", "pw1")

	rec := env.do(http.MethodGet, "/authenticate?username=alice&password=wrong", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/authenticate?username=alice&password=pw1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	t2 := decodeToken(t, rec)
	require.NotEqual(t, t1, t2)

	rec = env.do(http.MethodPost, "/addMediaEntry?username=alice&token="+t2,
		strings.NewReader(`{"title":"Dark","mediaType":"show","status":"watching"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.MediaEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.False(t, created.EntryID.IsZero())
	require.Equal(t, "alice", created.Username)

	// Stale token from before the re-authentication.
	rec = env.do(http.MethodGet, "/getMediaEntries?username=alice&token="+t1, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/getMediaEntries?username=alice&token="+t2, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.MediaEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	require.Len(t, listed, 1)
	require.Equal(t, "Dark", listed[0].Title)

	id := created.EntryID.Hex()
	rec = env.do(http.MethodDelete, "/removeMediaEntry?entryId="+id+"&username=alice&token="+t2, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodDelete, "/removeMediaEntry?entryId="+id+"&username=alice&token="+t2, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv()
	env.signUp(t, "alice", "pw1")

	rec := env.do(http.MethodGet, "/getMediaEntries?username=alice", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/getMediaEntries?username=alice&token=bogus", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestTokenBoundToUsername(t *testing.T) {
	env := newTestEnv()
	aliceToken := env.signUp(t, "alice", "pw1")
	env.signUp(t, "bob", "pw2")

	// Alice's token presented with Bob's username must not authorize.
	rec := env.do(http.MethodGet, "/getMediaEntries?username=bob&token="+aliceToken, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateRequiresTitle(t *testing.T) {
	env := newTestEnv()
	token := env.signUp(t, "alice", "pw1")

	rec := env.do(http.MethodPost, "/addMediaEntry?username=alice&token="+token,
		strings.NewReader(`{"status":"watching"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateIgnoresBodyOwner(t *testing.T) {
	env := newTestEnv()
	token := env.signUp(t, "alice", "pw1")

	rec := env.do(http.MethodPost, "/addMediaEntry?username=alice&token="+token,
		strings.NewReader(`{"title":"Dark","username":"bob"}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.MediaEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.Equal(t, "alice", created.Username)
}

func TestUpdateForeignEntryIsUnauthorized(t *testing.T) {
	env := newTestEnv()
	token := env.signUp(t, "alice", "pw1")
	bobID := env.entries.put("bob", "Bob's show")

	rec := env.do(http.MethodPut, "/editMediaEntry?username=alice&token="+token,
		strings.NewReader(`{"entryId":"`+bobID+`","title":"hijacked"}`))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	entry, err := env.entries.GetByID(context.Background(), bobID)
	require.NoError(t, err)
	require.Equal(t, "Bob's show", entry.Title)
}

func TestUpdateMissingEntry(t *testing.T) {
	env := newTestEnv()
	token := env.signUp(t, "alice", "pw1")

	rec := env.do(http.MethodPut, "/editMediaEntry?username=alice&token="+token,
		strings.NewReader(`{"entryId":"`+primitive.NewObjectID().Hex()+`","title":"x"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPut, "/editMediaEntry?username=alice&token="+token,
		strings.NewReader(`{"title":"no id"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRewritesDescriptiveFields(t *testing.T) {
	env := newTestEnv()
	token := env.signUp(t, "alice", "pw1")
	id := env.entries.put("alice", "Dark")

	rec := env.do(http.MethodPut, "/editMediaEntry?username=alice&token="+token,
		strings.NewReader(`{"entryId":"`+id+`","title":"Dark","status":"finished"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	entry, err := env.entries.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "finished", entry.Status)
	require.Equal(t, "alice", entry.Username)
}

func TestDeleteForeignEntryIsUnauthorized(t *testing.T) {
	env := newTestEnv()
	token := env.signUp(t, "alice", "pw1")
	bobID := env.entries.put("bob", "Bob's show")

	rec := env.do(http.MethodDelete, "/removeMediaEntry?entryId="+bobID+"&username=alice&token="+token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	_, err := env.entries.GetByID(context.Background(), bobID)
	require.NoError(t, err)
}

func TestListStoreFault(t *testing.T) {
	env := newTestEnv()
	token := env.signUp(t, "alice", "pw1")
	env.entries.listErr = errors.New("mongo down")

	rec := env.do(http.MethodGet, "/getMediaEntries?username=alice&token="+token, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListEmptyIsJSONArray(t *testing.T) {
	env := newTestEnv()
	token := env.signUp(t, "alice", "pw1")

	rec := env.do(http.MethodGet, "/getMediaEntries?username=alice&token="+token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestPosterLifecycle(t *testing.T) {
	env := newTestEnv()
	token := env.signUp(t, "alice", "pw1")
	id := env.entries.put("alice", "Dark")

	poster := []byte("fake-png-bytes")
	req := httptest.NewRequest(http.MethodPost, "/addPoster?entryId="+id+"&username=alice&token="+token, bytes.NewReader(poster))
	req.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodGet, "/getPoster?entryId="+id+"&username=alice&token="+token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.Equal(t, poster, rec.Body.Bytes())

	// Deleting the entry removes its poster object.
	rec = env.do(http.MethodDelete, "/removeMediaEntry?entryId="+id+"&username=alice&token="+token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, env.posters.objects)
}

func TestGetPosterWithoutUpload(t *testing.T) {
	env := newTestEnv()
	token := env.signUp(t, "alice", "pw1")
	id := env.entries.put("alice", "Dark")

	rec := env.do(http.MethodGet, "/getPoster?entryId="+id+"&username=alice&token="+token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
