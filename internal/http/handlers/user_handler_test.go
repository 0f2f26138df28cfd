package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/remindly/go-reminder-backend/internal/domain"
	"github.com/remindly/go-reminder-backend/internal/services"
)

func newUserRouter(users stubUsers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(users, stubEvents{}, stubMsgs{}, stubAgent{}, &stubSender{}, nil, testConfig())
	r := gin.New()
	r.POST("/users", h.RegisterUser)
	r.GET("/users", h.ListUsers)
	r.GET("/users/:id", h.GetUser)
	return r
}

func TestRegisterUser_Created(t *testing.T) {
	var gotPhone string
	r := newUserRouter(stubUsers{
		register: func(_ context.Context, first, last, phone, tz, lang string) (*domain.User, error) {
			gotPhone = phone
			return &domain.User{ID: 7, FirstName: first, LastName: last, PhoneNumber: phone}, nil
		},
	})

	w := perform(r, http.MethodPost, "/users",
		`{"first_name":"Maria","last_name":"Papadopoulou","phone_number":"+306912345678"}`, nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if gotPhone != "+306912345678" {
		t.Fatalf("phone not passed through, got %q", gotPhone)
	}
	var u domain.User
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatalf("json: %v", err)
	}
	if u.ID != 7 {
		t.Fatalf("expected id 7, got %d", u.ID)
	}
}

func TestRegisterUser_BindingError(t *testing.T) {
	r := newUserRouter(stubUsers{
		register: func(context.Context, string, string, string, string, string) (*domain.User, error) {
			t.Fatal("service should not be called on binding error")
			return nil, nil
		},
	})

	w := perform(r, http.MethodPost, "/users", `{"first_name":"Maria"}`, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.Code != ErrCodeBadRequest {
		t.Fatalf("expected code %q, got %q", ErrCodeBadRequest, er.Code)
	}
}

func TestRegisterUser_DuplicatePhone(t *testing.T) {
	r := newUserRouter(stubUsers{
		register: func(context.Context, string, string, string, string, string) (*domain.User, error) {
			return nil, services.ErrDuplicateUser
		},
	})

	w := perform(r, http.MethodPost, "/users",
		`{"first_name":"Maria","last_name":"P","phone_number":"+306912345678"}`, nil)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if er.Code != ErrCodeConflict {
		t.Fatalf("expected code %q, got %q", ErrCodeConflict, er.Code)
	}
}

func TestGetUser_ErrorMappings(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not_found", "/users/5", services.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"bad_id", "/users/abc", nil, http.StatusBadRequest, ErrCodeBadRequest},
		{"zero_id", "/users/0", nil, http.StatusBadRequest, ErrCodeBadRequest},
		{"internal", "/users/5", context.DeadlineExceeded, http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			r := newUserRouter(stubUsers{
				get: func(context.Context, uint) (*domain.User, error) {
					return nil, tc.err
				},
			})
			w := perform(r, http.MethodGet, tc.path, "", nil)
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, w.Code)
			}
			var er ErrorResponse
			_ = json.Unmarshal(w.Body.Bytes(), &er)
			if er.Code != tc.wantCode {
				t.Fatalf("expected code %q, got %q", tc.wantCode, er.Code)
			}
		})
	}
}

func TestListUsers_OK(t *testing.T) {
	r := newUserRouter(stubUsers{
		list: func(context.Context) ([]domain.User, error) {
			return []domain.User{{ID: 1}, {ID: 2}}, nil
		},
	})

	w := perform(r, http.MethodGet, "/users", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp ListUsersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(resp.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(resp.Users))
	}
}
