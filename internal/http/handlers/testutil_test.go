package handlers

import (
	"context"
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
	"github.com/remindly/go-reminder-backend/internal/domain"
	"github.com/remindly/go-reminder-backend/internal/repo"
	"github.com/remindly/go-reminder-backend/internal/services"
	"github.com/remindly/go-reminder-backend/internal/whatsapp"
)

// ---- stubs to satisfy handlers.New() dependencies ----

type stubUsers struct {
	register func(ctx context.Context, first, last, phone, tz, lang string) (*domain.User, error)
	get      func(ctx context.Context, id uint) (*domain.User, error)
	byPhone  func(ctx context.Context, phone string) (*domain.User, error)
	list     func(ctx context.Context) ([]domain.User, error)
}

func (s stubUsers) Register(ctx context.Context, first, last, phone, tz, lang string) (*domain.User, error) {
	if s.register != nil {
		return s.register(ctx, first, last, phone, tz, lang)
	}
	return &domain.User{ID: 1, FirstName: first, LastName: last, PhoneNumber: phone}, nil
}

func (s stubUsers) Get(ctx context.Context, id uint) (*domain.User, error) {
	if s.get != nil {
		return s.get(ctx, id)
	}
	return &domain.User{ID: id}, nil
}

func (s stubUsers) LookupByPhone(ctx context.Context, phone string) (*domain.User, error) {
	if s.byPhone != nil {
		return s.byPhone(ctx, phone)
	}
	return nil, services.ErrUserNotFound
}

func (s stubUsers) List(ctx context.Context) ([]domain.User, error) {
	if s.list != nil {
		return s.list(ctx)
	}
	return nil, nil
}

type stubEvents struct {
	create   func(ctx context.Context, in services.CreateEventInput) (*domain.Event, error)
	get      func(ctx context.Context, id uint) (*domain.Event, error)
	upcoming func(ctx context.Context, userID uint, from, to time.Time, limit int) ([]domain.Event, error)
	confirm  func(ctx context.Context, id uint) error
}

func (s stubEvents) Create(ctx context.Context, in services.CreateEventInput) (*domain.Event, error) {
	if s.create != nil {
		return s.create(ctx, in)
	}
	return &domain.Event{ID: 1, UserID: in.UserID, Description: in.Description}, nil
}

func (s stubEvents) Get(ctx context.Context, id uint) (*domain.Event, error) {
	if s.get != nil {
		return s.get(ctx, id)
	}
	return &domain.Event{ID: id}, nil
}

func (s stubEvents) Upcoming(ctx context.Context, userID uint, from, to time.Time, limit int) ([]domain.Event, error) {
	if s.upcoming != nil {
		return s.upcoming(ctx, userID, from, to, limit)
	}
	return nil, nil
}

func (s stubEvents) Confirm(ctx context.Context, id uint) error {
	if s.confirm != nil {
		return s.confirm(ctx, id)
	}
	return nil
}

type stubMsgs struct {
	record  func(ctx context.Context, userID uint, sentBy, text string, followUp bool, eventID *uint) (*domain.Message, error)
	history func(ctx context.Context, userID uint, n int) ([]domain.Message, error)
}

func (s stubMsgs) Record(ctx context.Context, userID uint, sentBy, text string, followUp bool, eventID *uint) (*domain.Message, error) {
	if s.record != nil {
		return s.record(ctx, userID, sentBy, text, followUp, eventID)
	}
	return &domain.Message{ID: 1, UserID: userID, SentBy: sentBy, MessageText: text}, nil
}

func (s stubMsgs) History(ctx context.Context, userID uint, n int) ([]domain.Message, error) {
	if s.history != nil {
		return s.history(ctx, userID, n)
	}
	return nil, nil
}

type stubAgent struct {
	reply string
}

func (s stubAgent) Reply(context.Context, domain.User, string) string {
	if s.reply == "" {
		return "ok"
	}
	return s.reply
}

type stubSender struct {
	sent []sentMessage
	fail bool
}

type sentMessage struct {
	Phone   string
	Message string
}

func (s *stubSender) SendMessage(_ context.Context, phone, message string) (*whatsapp.SendResult, error) {
	if s.fail {
		return nil, whatsapp.ErrSendFailed
	}
	s.sent = append(s.sent, sentMessage{Phone: phone, Message: message})
	return &whatsapp.SendResult{IDMessage: "out-1"}, nil
}

// newTestUoW builds a unit of work over a pooled file-backed SQLite database
// for handlers that touch persistence directly (webhook dedup, health).
func newTestUoW(t *testing.T) *repo.UnitOfWork {
	t.Helper()
	path := filepath.Join(t.TempDir(), "handlers_test.db")

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
	return repo.NewUnitOfWork(pool, zerolog.Nop())
}

func testConfig() config.Config {
	return config.Config{ReceiptTTL: time.Hour}
}

func perform(r *gin.Engine, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}
