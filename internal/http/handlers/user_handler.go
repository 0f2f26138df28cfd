// User HTTP handlers.
//
// This file exposes REST endpoints for user resources:
//   - POST /users       (register)
//   - GET  /users       (list)
//   - GET  /users/{id}  (fetch)
//
// It also declares the service contracts consumed by all handlers in this
// package and the shared Handlers wiring. Handlers are transport-thin: they
// validate input, call application services, and translate results into HTTP
// responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/remindly/go-reminder-backend/internal/config"
	"github.com/remindly/go-reminder-backend/internal/domain"
	"github.com/remindly/go-reminder-backend/internal/repo"
	"github.com/remindly/go-reminder-backend/internal/services"
	"github.com/remindly/go-reminder-backend/internal/whatsapp"
)

//
// Service contracts (context-aware)
//

// UserService defines user lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type UserService interface {
	// Register creates a user keyed by a normalized phone number.
	Register(ctx context.Context, firstName, lastName, phone, timezone, language string) (*domain.User, error)
	// Get fetches a user by id.
	Get(ctx context.Context, id uint) (*domain.User, error)
	// LookupByPhone resolves a user from a normalized phone number.
	LookupByPhone(ctx context.Context, phone string) (*domain.User, error)
	// List returns all registered users.
	List(ctx context.Context) ([]domain.User, error)
}

// EventService defines event operations consumed by HTTP handlers.
type EventService interface {
	// Create persists a one-off event or a recurring template.
	Create(ctx context.Context, in services.CreateEventInput) (*domain.Event, error)
	// Get fetches an event by id.
	Get(ctx context.Context, id uint) (*domain.Event, error)
	// Upcoming lists remindable events for a user within [from, to).
	Upcoming(ctx context.Context, userID uint, from, to time.Time, limit int) ([]domain.Event, error)
	// Confirm marks an event as acknowledged by the user.
	Confirm(ctx context.Context, id uint) error
}

// MessageService defines conversation history operations.
type MessageService interface {
	// Record appends a message to a user's conversation history.
	Record(ctx context.Context, userID uint, sentBy, text string, followUp bool, eventID *uint) (*domain.Message, error)
	// History returns the most recent messages for a user, newest first.
	History(ctx context.Context, userID uint, n int) ([]domain.Message, error)
}

// Sender delivers outbound WhatsApp messages.
type Sender interface {
	SendMessage(ctx context.Context, phone, message string) (*whatsapp.SendResult, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for users, events, messages, health,
// and the inbound WhatsApp webhook. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	users  UserService
	events EventService
	msgs   MessageService
	agent  services.Agent
	sender Sender
	uow    *repo.UnitOfWork
	cfg    config.Config
}

// New constructs a Handlers instance bound to the given services.
func New(users UserService, events EventService, msgs MessageService, agent services.Agent, sender Sender, uow *repo.UnitOfWork, cfg config.Config) *Handlers {
	return &Handlers{
		users:  users,
		events: events,
		msgs:   msgs,
		agent:  agent,
		sender: sender,
		uow:    uow,
		cfg:    cfg,
	}
}

// idParam parses the named numeric path parameter. The second return is
// false when the parameter is missing or not a positive integer; the caller
// is expected to have already written a 400 via the third helper below.
func idParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

//
// DTOs
//

// RegisterUserRequest is the JSON payload for registering a user.
type RegisterUserRequest struct {
	FirstName   string `json:"first_name" binding:"required,min=1,max=100" example:"Maria"`
	LastName    string `json:"last_name" binding:"required,min=1,max=100" example:"Papadopoulou"`
	PhoneNumber string `json:"phone_number" binding:"required,min=5,max=20" example:"+306912345678"`
	Timezone    string `json:"timezone" example:"Europe/Athens"`
	Language    string `json:"language" example:"el"`
}

// ListUsersResponse wraps the user collection.
type ListUsersResponse struct {
	Users []domain.User `json:"users"`
}

//
// Handlers
//

// RegisterUser godoc
// @ID          registerUser
// @Summary     Register a new user
// @Description Creates a user keyed by phone number and returns the resource.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RegisterUserRequest  true  "Registration payload"
//
// @Success     201  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Phone already registered"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users [post]
func (h *Handlers) RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "first_name, last_name and phone_number are required")
		return
	}

	u, err := h.users.Register(c.Request.Context(), req.FirstName, req.LastName, req.PhoneNumber, req.Timezone, req.Language)
	switch {
	case errors.Is(err, services.ErrDuplicateUser):
		fail(c, http.StatusConflict, ErrCodeConflict, "phone number already registered")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, u)
}

// GetUser godoc
// @ID          getUser
// @Summary     Fetch a user
// @Tags        Users
// @Produce     json
//
// @Param       id  path  int  true  "User ID"  example(1)
//
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be a positive integer")
		return
	}

	u, err := h.users.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, u)
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List users
// @Tags        Users
// @Produce     json
//
// @Success     200  {object}  handlers.ListUsersResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListUsersResponse{Users: users})
}
