package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mednotes/internal/analytics"
	"mednotes/internal/assistant"
	"mednotes/internal/auth"
	"mednotes/internal/bookmark"
	"mednotes/internal/catalog"
	"mednotes/internal/config"
	"mednotes/internal/jobs"
	"mednotes/internal/progress"
	"mednotes/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	queue   *jobs.MemoryQueue
	notes   *catalog.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	notes := catalog.NewMemoryStore(0)
	notes.Seed([]catalog.Note{
		{ID: 1, Title: "Upper Limb", Description: "Brachial plexus", Subject: catalog.Anatomy, PageCount: 20, FreePages: 3, ViewCount: 5, CreatedAt: created},
		{ID: 2, Title: "Epithelium", Description: "Tissue types", Subject: catalog.Histology, PageCount: 10, FreePages: 3, ViewCount: 50, CreatedAt: created.Add(time.Hour)},
		{ID: 3, Title: "Gastrulation", Description: "Week three", Subject: catalog.Embryology, PageCount: 8, FreePages: 2, ViewCount: 1, CreatedAt: created.Add(2 * time.Hour)},
	})

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	users := auth.NewMemoryUserStore(0)
	users.Seed([]auth.User{
		{ID: 1, Name: "Ana", Email: "ana@example.com", PasswordHash: hash, Role: auth.RoleStandard, CreatedAt: created},
		{ID: 2, Name: "Ben", Email: "ben@example.com", PasswordHash: hash, Role: auth.RoleStandard, CreatedAt: created},
	})

	marks := bookmark.NewMemoryStore(0)
	prog := progress.NewMemoryStore(0)
	queue := jobs.NewMemoryQueue()

	cfg := config.Config{AdminUsername: "admin", AdminPassword: "admin123"}
	h := NewRouter(cfg, Deps{
		Catalog:   notes,
		Bookmarks: marks,
		Progress:  prog,
		Sessions:  session.NewManager(users, session.NewMemorySlot()),
		JWT:       auth.NewJWT("test-secret"),
		Views:     jobs.NewRecorder(queue),
		Assistant: assistant.NewCannedResponder(0),
		Analytics: analytics.NewService(notes, prog, nil, nil),
	})
	return &testServer{t: t, handler: h, queue: queue, notes: notes}
}

type call struct {
	method  string
	path    string
	body    any
	token   string
	headers map[string]string
}

func (s *testServer) do(c call) *httptest.ResponseRecorder {
	s.t.Helper()
	var body bytes.Buffer
	if c.body != nil {
		require.NoError(s.t, json.NewEncoder(&body).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type authBody struct {
	Token  string `json:"token"`
	Viewer struct {
		ID        uint64 `json:"id"`
		Kind      string `json:"kind"`
		IsPremium bool   `json:"isPremium"`
		Name      string `json:"name"`
	} `json:"viewer"`
}

func (s *testServer) login(email string) string {
	s.t.Helper()
	rec := s.do(call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": email, "password": "password123"}})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[authBody](s.t, rec).Token
}

func TestHealth(t *testing.T) {
	rec := newTestServer(t).do(call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "ana@example.com", "password": "nope-nope"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: "/auth/signup", body: map[string]string{"name": "Ana", "email": "ANA@example.com", "password": "password123"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: "/auth/signup", body: map[string]string{"name": "Cat", "email": "cat@example.com", "password": "short"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "password")

	rec = s.do(call{method: http.MethodPost, path: "/auth/signup", body: map[string]string{"name": "Cat", "email": "cat@example.com", "password": "password123"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	signed := decode[authBody](t, rec)
	assert.Equal(t, "standard", signed.Viewer.Kind)

	rec = s.do(call{method: http.MethodGet, path: "/me", token: signed.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cat@example.com")
	assert.NotContains(t, rec.Body.String(), "$2a$")

	rec = s.do(call{method: http.MethodPatch, path: "/me", token: signed.Token, body: map[string]string{"name": "Catherine"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Catherine")

	rec = s.do(call{method: http.MethodPost, path: "/me/upgrade", token: signed.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"premium"`)

	rec = s.do(call{method: http.MethodPost, path: "/auth/logout", token: signed.Token})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(call{method: http.MethodGet, path: "/me", token: signed.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "token of a logged out session")

	rec = s.do(call{method: http.MethodGet, path: "/me", token: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestErrorsAreJSON(t *testing.T) {
	s := newTestServer(t)

	type errBody struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}

	rec := s.do(call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "ana@example.com"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode[errBody](t, rec)
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Fields, "password")
	assert.NotContains(t, body.Fields, "email")

	rec = s.do(call{method: http.MethodGet, path: "/notes/abc"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errBody](t, rec).Fields, "id")

	rec = s.do(call{method: http.MethodGet, path: "/notes/1/pages/x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errBody](t, rec).Fields, "page")
}

func TestNotesListing(t *testing.T) {
	s := newTestServer(t)

	ids := func(rec *httptest.ResponseRecorder) []uint64 {
		var out []struct {
			ID uint64 `json:"id"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		got := make([]uint64, 0, len(out))
		for _, n := range out {
			got = append(got, n.ID)
		}
		return got
	}

	rec := s.do(call{method: http.MethodGet, path: "/notes"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uint64{3, 2, 1}, ids(rec))
	assert.NotContains(t, rec.Body.String(), "bookmarked")

	rec = s.do(call{method: http.MethodGet, path: "/notes?sort=popular"})
	assert.Equal(t, []uint64{2, 1, 3}, ids(rec))

	rec = s.do(call{method: http.MethodGet, path: "/notes?subject=Anatomy"})
	assert.Equal(t, []uint64{1}, ids(rec))

	rec = s.do(call{method: http.MethodGet, path: "/notes?subject=Anatomy&q=tissue"})
	assert.Equal(t, []uint64{2}, ids(rec), "query wins over subject")

	rec = s.do(call{method: http.MethodGet, path: "/notes?sort=random"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	token := s.login("ana@example.com")
	rec = s.do(call{method: http.MethodPost, path: "/bookmarks", token: token, body: map[string]any{"noteId": 1, "pageNumber": 2}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(call{method: http.MethodGet, path: "/notes?sort=bookmarked", token: token})
	assert.Equal(t, []uint64{1, 3, 2}, ids(rec))
	assert.Contains(t, rec.Body.String(), `"bookmarked":true`)

	rec = s.do(call{method: http.MethodGet, path: "/subjects"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `{"name":"Anatomy","noteCount":1}`)
}

type pageBody struct {
	Page     int    `json:"page"`
	Allowed  bool   `json:"allowed"`
	Reason   string `json:"reason"`
	Preview  bool   `json:"preview"`
	Progress *struct {
		CompletionPercent int `json:"completionPercent"`
		LastViewedPage    int `json:"lastViewedPage"`
	} `json:"progress"`
}

func TestUpgradeReachesOtherSessions(t *testing.T) {
	s := newTestServer(t)
	laptop := s.login("ana@example.com")
	phone := s.login("ana@example.com")

	rec := s.do(call{method: http.MethodGet, path: "/notes/1/pages/10", token: phone})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[pageBody](t, rec).Allowed)

	rec = s.do(call{method: http.MethodPost, path: "/me/upgrade", token: laptop})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(call{method: http.MethodGet, path: "/notes/1/pages/10", token: phone})
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[pageBody](t, rec)
	assert.True(t, p.Allowed)
	assert.False(t, p.Preview)

	rec = s.do(call{method: http.MethodGet, path: "/me", token: phone})
	assert.Contains(t, rec.Body.String(), `"kind":"premium"`)
}

func TestReaderFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(call{method: http.MethodGet, path: "/notes/1"})
	require.Equal(t, http.StatusOK, rec.Code)
	sid := rec.Header().Get("X-Reader-Session")
	require.NotEmpty(t, sid)
	assert.Len(t, s.queue.Jobs(), 1)

	headers := map[string]string{"X-Reader-Session": sid}
	rec = s.do(call{method: http.MethodGet, path: "/notes/1/pages/3", headers: headers})
	p := decode[pageBody](t, rec)
	assert.True(t, p.Allowed)
	assert.True(t, p.Preview)
	require.NotNil(t, p.Progress)
	assert.Equal(t, 15, p.Progress.CompletionPercent)

	rec = s.do(call{method: http.MethodGet, path: "/notes/1/pages/4", headers: headers})
	p = decode[pageBody](t, rec)
	assert.False(t, p.Allowed)
	assert.Equal(t, "paywalled", p.Reason)
	assert.Nil(t, p.Progress)

	rec = s.do(call{method: http.MethodGet, path: "/progress", headers: headers})
	assert.Contains(t, rec.Body.String(), `"lastViewedPage":3`)

	rec = s.do(call{method: http.MethodGet, path: "/notes/1/pages/99", headers: headers})
	p = decode[pageBody](t, rec)
	assert.Equal(t, 20, p.Page)

	token := s.login("ben@example.com")
	rec = s.do(call{method: http.MethodPost, path: "/me/upgrade", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(call{method: http.MethodGet, path: "/notes/1/pages/12", token: token})
	p = decode[pageBody](t, rec)
	assert.True(t, p.Allowed)
	assert.Equal(t, "premium", p.Reason)
	assert.False(t, p.Preview)

	rec = s.do(call{method: http.MethodGet, path: "/notes/1", token: token})
	p = decode[pageBody](t, rec)
	assert.Equal(t, 12, p.Page, "resumes at the last viewed page")

	rec = s.do(call{method: http.MethodGet, path: "/notes/404"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(call{method: http.MethodGet, path: "/notes/abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookmarks(t *testing.T) {
	s := newTestServer(t)
	ana := s.login("ana@example.com")
	ben := s.login("ben@example.com")

	rec := s.do(call{method: http.MethodGet, path: "/bookmarks"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: "/bookmarks", token: ana, body: map[string]any{"noteId": 1, "pageNumber": 21}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: "/bookmarks", token: ana, body: map[string]any{"noteId": 9, "pageNumber": 1}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: "/bookmarks", token: ana, body: map[string]any{"noteId": 1, "pageNumber": 2}})
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[struct {
		ID uint64 `json:"id"`
	}](t, rec)

	rec = s.do(call{method: http.MethodPost, path: "/bookmarks", token: ana, body: map[string]any{"noteId": 1, "pageNumber": 7}})
	require.Equal(t, http.StatusOK, rec.Code)
	moved := decode[struct {
		ID         uint64 `json:"id"`
		PageNumber int    `json:"pageNumber"`
	}](t, rec)
	assert.Equal(t, first.ID, moved.ID)
	assert.Equal(t, 7, moved.PageNumber)

	rec = s.do(call{method: http.MethodPost, path: "/bookmarks", token: ben, body: map[string]any{"noteId": 1, "pageNumber": 3}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(call{method: http.MethodGet, path: "/notes/1/bookmarks", token: ana})
	mine := decode[[]struct {
		PageNumber int `json:"pageNumber"`
	}](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, 7, mine[0].PageNumber)

	path := "/bookmarks/" + jsonNumber(first.ID)
	rec = s.do(call{method: http.MethodDelete, path: path, token: ben})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(call{method: http.MethodDelete, path: path, token: ana})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(call{method: http.MethodDelete, path: path, token: ana})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func jsonNumber(id uint64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestAssistant(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(call{method: http.MethodPost, path: "/assistant/messages", body: map[string]string{"message": "give me a summary"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "summarize")

	rec = s.do(call{method: http.MethodPost, path: "/assistant/messages", body: map[string]string{"message": " "}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(call{method: http.MethodGet, path: "/assistant/welcome"})
	assert.Contains(t, rec.Body.String(), "AI study assistant")
}

func TestAdmin(t *testing.T) {
	s := newTestServer(t)
	basic := func(user, pass string) map[string]string {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.SetBasicAuth(user, pass)
		return map[string]string{"Authorization": req.Header.Get("Authorization")}
	}

	rec := s.do(call{method: http.MethodGet, path: "/admin/analytics"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(call{method: http.MethodGet, path: "/admin/analytics", headers: basic("admin", "wrong")})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	admin := basic("admin", "admin123")
	rec = s.do(call{method: http.MethodGet, path: "/admin/analytics", headers: admin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "readersPerNote")

	rec = s.do(call{method: http.MethodPost, path: "/admin/notes", headers: admin, body: map[string]any{
		"title": "Pharyngeal Arches", "description": "Derivatives", "subject": "Embryology", "pageCount": 12, "freePages": 2,
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		ID        uint64 `json:"id"`
		ViewCount int64  `json:"viewCount"`
	}](t, rec)
	assert.Equal(t, uint64(4), created.ID)
	assert.Zero(t, created.ViewCount)

	rec = s.do(call{method: http.MethodPost, path: "/admin/notes", headers: admin, body: map[string]any{
		"title": "Bad", "description": "x", "subject": "Physiology", "pageCount": 3, "freePages": 5,
	}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "subject")

	rec = s.do(call{method: http.MethodPatch, path: "/admin/notes/4", headers: admin, body: map[string]any{"freePages": 4}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"freePages":4`)

	rec = s.do(call{method: http.MethodDelete, path: "/admin/notes/4", headers: admin})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: "/admin/notes", headers: admin, body: map[string]any{
		"title": "Pharyngeal Pouches", "description": "Derivatives", "subject": "Embryology", "pageCount": 12, "freePages": 2,
	}})
	require.Equal(t, http.StatusCreated, rec.Code)
	again := decode[struct {
		ID uint64 `json:"id"`
	}](t, rec)
	assert.Equal(t, uint64(5), again.ID, "ids are never reused")
}
