package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/remindly/go-reminder-backend/internal/domain"
	"github.com/remindly/go-reminder-backend/internal/services"
)

func newEventRouter(events stubEvents) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(stubUsers{}, events, stubMsgs{}, stubAgent{}, &stubSender{}, nil, testConfig())
	r := gin.New()
	r.POST("/users/:id/events", h.CreateEvent)
	r.GET("/users/:id/events", h.ListEvents)
	r.GET("/events/:id", h.GetEvent)
	r.POST("/events/:id/confirm", h.ConfirmEvent)
	return r
}

func TestCreateEvent_Created(t *testing.T) {
	var got services.CreateEventInput
	r := newEventRouter(stubEvents{
		create: func(_ context.Context, in services.CreateEventInput) (*domain.Event, error) {
			got = in
			return &domain.Event{ID: 42, UserID: in.UserID, Description: in.Description}, nil
		},
	})

	body := `{
		"description": "Take medication",
		"event_time": "2026-09-01T09:00:00Z",
		"is_recurring": true,
		"recurrence_frequency": "weekly",
		"recurrence_days_of_week": "0,2,4"
	}`
	w := perform(r, http.MethodPost, "/users/3/events", body, nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if got.UserID != 3 {
		t.Fatalf("expected user id 3 from path, got %d", got.UserID)
	}
	if !got.IsRecurring || got.RecurrenceFrequency != "weekly" || got.RecurrenceDaysOfWeek != "0,2,4" {
		t.Fatalf("recurrence fields not passed through: %+v", got)
	}
	wantTime := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	if !got.EventTime.Equal(wantTime) {
		t.Fatalf("expected event time %v, got %v", wantTime, got.EventTime)
	}
}

func TestCreateEvent_ErrorMappings(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"user_not_found", services.ErrUserNotFound, http.StatusNotFound},
		{"bad_recurrence", services.ErrInvalidRecurrence, http.StatusBadRequest},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			r := newEventRouter(stubEvents{
				create: func(context.Context, services.CreateEventInput) (*domain.Event, error) {
					return nil, tc.err
				},
			})
			body := `{"description":"x","event_time":"2026-09-01T09:00:00Z"}`
			w := perform(r, http.MethodPost, "/users/3/events", body, nil)
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, w.Code)
			}
		})
	}
}

func TestCreateEvent_BindingError(t *testing.T) {
	r := newEventRouter(stubEvents{
		create: func(context.Context, services.CreateEventInput) (*domain.Event, error) {
			t.Fatal("service should not be called on binding error")
			return nil, nil
		},
	})
	w := perform(r, http.MethodPost, "/users/3/events", `{"description":"no time"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListEvents_WindowAndLimit(t *testing.T) {
	var gotFrom, gotTo time.Time
	var gotLimit int
	r := newEventRouter(stubEvents{
		upcoming: func(_ context.Context, userID uint, from, to time.Time, limit int) ([]domain.Event, error) {
			gotFrom, gotTo, gotLimit = from, to, limit
			return []domain.Event{{ID: 1, UserID: userID}}, nil
		},
	})

	w := perform(r, http.MethodGet, "/users/3/events?days=2&limit=5", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotLimit != 5 {
		t.Fatalf("expected limit 5, got %d", gotLimit)
	}
	if window := gotTo.Sub(gotFrom); window != 48*time.Hour {
		t.Fatalf("expected 48h window, got %v", window)
	}

	var resp ListEventsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(resp.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(resp.Events))
	}
}

func TestListEvents_DefaultWindow(t *testing.T) {
	var gotFrom, gotTo time.Time
	r := newEventRouter(stubEvents{
		upcoming: func(_ context.Context, _ uint, from, to time.Time, _ int) ([]domain.Event, error) {
			gotFrom, gotTo = from, to
			return nil, nil
		},
	})
	w := perform(r, http.MethodGet, "/users/3/events", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if window := gotTo.Sub(gotFrom); window != defaultUpcomingWindow {
		t.Fatalf("expected default window %v, got %v", defaultUpcomingWindow, window)
	}
}

func TestGetEvent_NotFound(t *testing.T) {
	r := newEventRouter(stubEvents{
		get: func(context.Context, uint) (*domain.Event, error) {
			return nil, services.ErrEventNotFound
		},
	})
	w := perform(r, http.MethodGet, "/events/99", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestConfirmEvent(t *testing.T) {
	t.Run("no_content", func(t *testing.T) {
		var confirmed uint
		r := newEventRouter(stubEvents{
			confirm: func(_ context.Context, id uint) error {
				confirmed = id
				return nil
			},
		})
		w := perform(r, http.MethodPost, "/events/42/confirm", "", nil)
		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
		if confirmed != 42 {
			t.Fatalf("expected id 42, got %d", confirmed)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		r := newEventRouter(stubEvents{
			confirm: func(context.Context, uint) error { return services.ErrEventNotFound },
		})
		w := perform(r, http.MethodPost, "/events/42/confirm", "", nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("bad_id", func(t *testing.T) {
		r := newEventRouter(stubEvents{})
		w := perform(r, http.MethodPost, "/events/nope/confirm", "", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}
