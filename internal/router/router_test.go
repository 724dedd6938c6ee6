package router

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folklore/luck-server-go/internal/config"
	"github.com/folklore/luck-server-go/internal/database"
	"github.com/folklore/luck-server-go/internal/handler"
	"github.com/folklore/luck-server-go/internal/middleware"
	"github.com/folklore/luck-server-go/internal/repository"
	"github.com/folklore/luck-server-go/internal/service"
)

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("down") }

func setupRouter(t *testing.T, mutate func(*Options)) http.Handler {
	t.Helper()
	db, err := database.Connect(config.DriverSQLite, filepath.Join(t.TempDir(), "router_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.InitSchema(context.Background()))

	interactions := repository.NewInteractionRepository(db.DB)
	sessions := repository.NewSessionRepository(db.DB)

	opts := Options{
		API: handler.NewAPIHandler(
			service.NewLuckService(db, interactions, sessions),
			service.NewStatsService(interactions, sessions),
		),
		DB:          db,
		MaxBodySize: config.MaxBodySize,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return New(opts)
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_CORS(t *testing.T) {
	h := setupRouter(t, nil)

	t.Run("preflight on any path", func(t *testing.T) {
		for _, target := range []string{"/api/record", "/api/stats", "/anything/else"} {
			rec := serve(h, http.MethodOptions, target, "")
			assert.Equal(t, http.StatusOK, rec.Code, target)
			assert.Empty(t, rec.Body.String(), target)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
		}
	})

	t.Run("headers on success and error", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "/api/stats", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

		rec = serve(h, http.MethodGet, "/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRouter_NotFound(t *testing.T) {
	h := setupRouter(t, nil)

	tests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/"},
		{http.MethodGet, "/api"},
		{http.MethodGet, "/api/unknown"},
		{http.MethodGet, "/api/record"},
		{http.MethodPost, "/api/stats"},
		{http.MethodPost, "/api/luck"},
		{http.MethodPut, "/api/history"},
		{http.MethodPost, "/health"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := serve(h, tt.method, tt.target, "")
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.JSONEq(t, `{"error":"not found","code":"NOT_FOUND","success":false}`, rec.Body.String())
		})
	}
}

func TestRouter_RecordRoundTrip(t *testing.T) {
	h := setupRouter(t, nil)

	rec := serve(h, http.MethodPost, "/api/record",
		`{"superstition":"black_cat","outcome":"misfortune","luck_change":-5,"session_id":"s1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"current_luck":-5}`, rec.Body.String())

	rec = serve(h, http.MethodGet, "/api/luck?session_id=s1", "")
	assert.JSONEq(t, `{"luck":-5,"session_id":"s1"}`, rec.Body.String())
}

func TestRouter_BodyLimit(t *testing.T) {
	h := setupRouter(t, func(o *Options) { o.MaxBodySize = 64 })

	body := `{"superstition":"` + strings.Repeat("x", 200) + `","outcome":"fortune","session_id":"s1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/record", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), `"PAYLOAD_TOO_LARGE"`)
}

func TestRouter_RateLimit(t *testing.T) {
	h := setupRouter(t, func(o *Options) {
		o.RecordLimiter = middleware.NewRateLimiter()
		o.RateLimitPerMin = 2
	})

	record := `{"superstition":"a","outcome":"fortune","luck_change":1,"session_id":"rl"}`
	for i := 0; i < 2; i++ {
		rec := serve(h, http.MethodPost, "/api/record", record)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := serve(h, http.MethodPost, "/api/record", record)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"RATE_LIMIT_EXCEEDED"`)

	// reads are never limited
	for i := 0; i < 5; i++ {
		rec = serve(h, http.MethodGet, "/api/luck?session_id=rl", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.JSONEq(t, `{"luck":2,"session_id":"rl"}`, rec.Body.String())
}

func TestRouter_Health(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		h := setupRouter(t, nil)

		rec := serve(h, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	})

	t.Run("degraded", func(t *testing.T) {
		h := setupRouter(t, func(o *Options) { o.DB = failingPinger{} })

		rec := serve(h, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	})
}
