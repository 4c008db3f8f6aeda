package event

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mehdiessalah/eventyBackend/config"
	"github.com/mehdiessalah/eventyBackend/internal/auditlog"
	"github.com/mehdiessalah/eventyBackend/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerSecret = "handler-secret"

type fixedCounter int64

func (f fixedCounter) CountSubscribers(context.Context, uuid.UUID) (int64, error) {
	return int64(f), nil
}

type handlerEnv struct {
	router *gin.Engine
	svc    *Service
	audit  auditlog.Service
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, _, _ := newTestService(t)
	audit := auditlog.NewService(auditlog.NewMemoryRepository())
	h := NewHandler(svc, fixedCounter(4), audit, 2)
	h.now = func() time.Time { return baseTime }

	auth := middleware.AuthMiddleware(&config.Config{JWTAccessSecret: handlerSecret})

	r := gin.New()
	r.Use(middleware.AuditMiddleware())
	api := r.Group("/api/v1")
	api.GET("/events", h.ListEvents)
	api.GET("/events/upcoming", h.GetUpcomingEvents)
	api.GET("/events/category/:category", h.GetEventsByCategory)
	api.GET("/events/tag/:tag", h.GetEventsByTag)
	api.GET("/events/:id", h.GetEventByID)
	api.POST("/events", auth, h.CreateEvent)
	api.PUT("/events/:id", auth, h.UpdateEvent)
	api.PATCH("/events/:id/dates", auth, h.UpdateEventDates)
	api.DELETE("/events/:id", auth, h.DeleteEvent)
	api.GET("/me/events", auth, h.GetMyEvents)

	return &handlerEnv{router: r, svc: svc, audit: audit}
}

func bearer(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(handlerSecret))
	require.NoError(t, err)
	return "Bearer " + tok
}

func (env *handlerEnv) do(t *testing.T, method, path string, user uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "192.0.2.10")
	if user != uuid.Nil {
		req.Header.Set("Authorization", bearer(t, user))
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func eventBody(title string, start time.Time, public bool, tags ...string) map[string]any {
	return map[string]any{
		"title":     title,
		"start":     start.Format(time.RFC3339),
		"is_public": public,
		"tags":      tags,
		"category":  "Tech",
	}
}

func decodeEvent(t *testing.T, w *httptest.ResponseRecorder) Event {
	t.Helper()
	var e Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func TestHandler_CreateAndGet(t *testing.T) {
	env := newHandlerEnv(t)
	owner := uuid.New()

	w := env.do(t, http.MethodPost, "/api/v1/events", owner, eventBody("Go Day", baseTime.Add(time.Hour), true, "Go", "GO"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeEvent(t, w)
	assert.Equal(t, owner, created.OwnerUserID)
	assert.Equal(t, []string{"go"}, []string(created.Tags))

	w = env.do(t, http.MethodGet, "/api/v1/events/"+created.ID.String(), uuid.Nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeEvent(t, w)
	assert.Equal(t, "Go Day", got.Title)
	assert.Equal(t, 4, got.SubscriberCount)

	logs, err := env.audit.GetAuditLogs(context.Background(), auditlog.AuditLogFilter{UserID: &owner})
	require.NoError(t, err)
	require.Len(t, logs.Data, 1)
	assert.Equal(t, auditlog.ActionEventCreated, logs.Data[0].Action)
	assert.Equal(t, created.ID, *logs.Data[0].EventID)
	assert.Equal(t, "192.0.2.10", logs.Data[0].IPAddress)
}

func TestHandler_CreateRequiresAuthAndValidBody(t *testing.T) {
	env := newHandlerEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/events", uuid.Nil, eventBody("x", baseTime, true))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/events", uuid.New(), map[string]any{"title": "no start"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := eventBody("img", baseTime, true)
	body["images"] = []map[string]any{{"url": "   "}}
	w = env.do(t, http.MethodPost, "/api/v1/events", uuid.New(), body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "images[0].url")
}

func TestHandler_PrivateEventIsNotFound(t *testing.T) {
	env := newHandlerEnv(t)
	owner := uuid.New()

	w := env.do(t, http.MethodPost, "/api/v1/events", owner, eventBody("secret", baseTime, false))
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeEvent(t, w)

	w = env.do(t, http.MethodGet, "/api/v1/events/"+created.ID.String(), uuid.Nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/me/events", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)

	w = env.do(t, http.MethodDelete, "/api/v1/events/"+created.ID.String(), uuid.New(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_OnlyOwnerMutates(t *testing.T) {
	env := newHandlerEnv(t)
	owner, other := uuid.New(), uuid.New()

	w := env.do(t, http.MethodPost, "/api/v1/events", owner, eventBody("mine", baseTime, true))
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeEvent(t, w)
	path := "/api/v1/events/" + created.ID.String()

	w = env.do(t, http.MethodPut, path, other, eventBody("stolen", baseTime, true))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPut, path, owner, eventBody("renamed", baseTime, true, "New"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "renamed", decodeEvent(t, w).Title)

	w = env.do(t, http.MethodPatch, path+"/dates", owner, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	newStart := baseTime.Add(48 * time.Hour)
	w = env.do(t, http.MethodPatch, path+"/dates", owner, map[string]any{"start": newStart.Format(time.RFC3339)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, newStart.Equal(decodeEvent(t, w).Start))

	w = env.do(t, http.MethodDelete, path, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, path, owner, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, path, owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Listings(t *testing.T) {
	env := newHandlerEnv(t)
	owner := uuid.New()

	for i, title := range []string{"third", "first", "second"} {
		start := baseTime.Add(time.Duration([]int{3, 1, 2}[i]) * time.Hour)
		w := env.do(t, http.MethodPost, "/api/v1/events", owner, eventBody(title, start, true, "Tech"))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	titles := func(w *httptest.ResponseRecorder) []string {
		var events []Event
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
		out := []string{}
		for _, e := range events {
			out = append(out, e.Title)
		}
		return out
	}

	// default limit is 2
	w := env.do(t, http.MethodGet, "/api/v1/events/upcoming", uuid.Nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"first", "second"}, titles(w))

	w = env.do(t, http.MethodGet, "/api/v1/events/upcoming?limit=0", uuid.Nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, titles(w))

	w = env.do(t, http.MethodGet, "/api/v1/events/upcoming?limit=abc", uuid.Nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/events/tag/TECH", uuid.Nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"third", "first", "second"}, titles(w))

	w = env.do(t, http.MethodGet, "/api/v1/events/category/tech", uuid.Nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, titles(w), 3)

	w = env.do(t, http.MethodGet, "/api/v1/events?q=SEC", uuid.Nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"second"}, titles(w))

	from := baseTime.Add(90 * time.Minute).Format(time.RFC3339)
	to := baseTime.Add(3 * time.Hour).Format(time.RFC3339)
	w = env.do(t, http.MethodGet, "/api/v1/events?from="+from+"&to="+to, uuid.Nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"second", "third"}, titles(w))

	w = env.do(t, http.MethodGet, "/api/v1/events?from=yesterday", uuid.Nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/events/not-a-uuid", uuid.Nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
