package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threej-in/virtualfeed/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.SQLiteStore) {
	t.Helper()
	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, nil, "", 0, zap.NewNop()), st
}

func testRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/videos", s.handleListVideos)
	r.Get("/api/v1/videos/{id}", s.handleGetVideo)
	r.Post("/api/v1/videos/{id}/view", s.handleView)
	r.Get("/api/v1/sources", s.handleSources)
	return r
}

func seedVideo(t *testing.T, st *store.SQLiteStore, id string, adult bool) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, st.UpsertVideo(context.Background(), &store.Video{
		ID:         id,
		Title:      "clip " + id,
		VideoURL:   "https://v.redd.it/" + id + "/DASH",
		Source:     "aivideo",
		Tags:       []string{"aivideo"},
		IsAdult:    adult,
		Format:     "mp4",
		PostedAt:   now,
		IngestedAt: now,
		UpdatedAt:  now,
	}))
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()

	testRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleListVideosExcludesAdultByDefault(t *testing.T) {
	s, st := newTestServer(t)
	seedVideo(t, st, "safe", false)
	seedVideo(t, st, "nsfw", true)

	rec := httptest.NewRecorder()
	testRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data  []store.Video `json:"data"`
		Count int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "safe", resp.Data[0].ID)

	rec = httptest.NewRecorder()
	testRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/videos?adult=1", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
}

func TestHandleGetVideoNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	testRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/videos/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleViewIncrements(t *testing.T) {
	s, st := newTestServer(t)
	seedVideo(t, st, "abc", false)

	rec := httptest.NewRecorder()
	testRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/videos/abc/view", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	v, err := st.GetVideo(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, v.ViewCount)
}
