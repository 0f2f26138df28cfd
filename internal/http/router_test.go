package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/remindly/go-reminder-backend/internal/config"
	"github.com/remindly/go-reminder-backend/internal/dbpool"
	"github.com/remindly/go-reminder-backend/internal/repo"
	"github.com/remindly/go-reminder-backend/internal/whatsapp"
)

type nullSender struct{}

func (nullSender) SendMessage(context.Context, string, string) (*whatsapp.SendResult, error) {
	return &whatsapp.SendResult{IDMessage: "x"}, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "router_test.db")
	boot, err := repo.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(boot); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if sqlDB, err := boot.DB(); err == nil {
		_ = sqlDB.Close()
	}
	pool := dbpool.New(repo.NewSQLiteFactory(path), dbpool.Options{Capacity: 2}, zerolog.Nop())
	t.Cleanup(func() { _ = pool.Close() })
	uow := repo.NewUnitOfWork(pool, zerolog.Nop())

	cfg := config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     100,
		RateBurst:   100,
		ReceiptTTL:  time.Hour,
	}

	r := gin.New()
	RegisterRoutes(r, uow, nullSender{}, cfg)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthAndBanner(t *testing.T) {
	r := newTestRouter(t)

	if w := do(r, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodGet, "/", ""); w.Code != http.StatusOK {
		t.Fatalf("banner: expected 200, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/metrics", ""); w.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", w.Code)
	}
}

func TestRouter_FallbackEnvelopes(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/no/such/route", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["code"] != "not_found" {
		t.Fatalf("expected not_found code, got %v", body["code"])
	}

	w = do(r, http.MethodDelete, "/health", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestRouter_SecurityAndCorrelationHeaders(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/health", "")
	h := w.Header()
	if h.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
	if h.Get("X-Frame-Options") != "DENY" {
		t.Fatalf("missing frame options header")
	}
	if h.Get("X-Request-ID") == "" {
		t.Fatalf("missing correlation id header")
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS must not be set for plain HTTP")
	}
}

func TestRouter_UserLifecycle(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/v1/users",
		`{"first_name":"Maria","last_name":"P","phone_number":"+306912345678"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// Same phone again conflicts.
	w = do(r, http.MethodPost, "/api/v1/users",
		`{"first_name":"Maria","last_name":"P","phone_number":"+306912345678"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", w.Code)
	}

	w = do(r, http.MethodGet, "/api/v1/users/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}

	// Event for the user, then confirm it.
	w = do(r, http.MethodPost, "/api/v1/users/1/events",
		`{"description":"dentist","event_time":"2031-01-02T10:00:00Z"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("event create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodPost, "/api/v1/events/1/confirm", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("confirm: expected 204, got %d", w.Code)
	}
}
