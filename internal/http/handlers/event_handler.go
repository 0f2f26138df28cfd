// Event HTTP handlers.
//
// This file exposes REST endpoints for event resources:
//   - POST /users/{id}/events      (create one-off or recurring)
//   - GET  /users/{id}/events      (upcoming, bounded window)
//   - GET  /events/{id}            (fetch)
//   - POST /events/{id}/confirm    (acknowledge a reminder)
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/remindly/go-reminder-backend/internal/domain"
	"github.com/remindly/go-reminder-backend/internal/services"
	"github.com/remindly/go-reminder-backend/internal/utils"
)

// defaultUpcomingWindow bounds GET /users/{id}/events when no "days" query
// parameter is supplied.
const defaultUpcomingWindow = 7 * 24 * time.Hour

// maxUpcomingDays caps the requested window to keep result sets bounded.
const maxUpcomingDays = 365

// CreateEventRequest is the JSON payload for creating an event.
//
// Recurring events set is_recurring and a frequency; days_of_week applies to
// weekly frequencies and uses Monday=0 indices (e.g. "0,2,4" for Mon/Wed/Fri).
type CreateEventRequest struct {
	Description          string     `json:"description" binding:"required,min=1,max=500" example:"Take blood pressure medication"`
	EventTime            time.Time  `json:"event_time" binding:"required" example:"2026-09-01T09:00:00Z"`
	IsRecurring          bool       `json:"is_recurring"`
	RecurrenceFrequency  string     `json:"recurrence_frequency" example:"weekly"`
	RecurrenceInterval   int        `json:"recurrence_interval" example:"1"`
	RecurrenceEndDate    *time.Time `json:"recurrence_end_date"`
	RecurrenceDaysOfWeek string     `json:"recurrence_days_of_week" example:"0,2,4"`
}

// ListEventsResponse wraps the upcoming-events collection.
type ListEventsResponse struct {
	Events []domain.Event `json:"events"`
}

// CreateEvent godoc
// @ID          createEvent
// @Summary     Create an event
// @Description Creates a one-off event or a recurring template for the user.
// @Tags        Events
// @Accept      json
// @Produce     json
//
// @Param       id    path  int  true  "User ID"  example(1)
// @Param       body  body  handlers.CreateEventRequest  true  "Event payload"
//
// @Success     201  {object}  domain.Event
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users/{id}/events [post]
func (h *Handlers) CreateEvent(c *gin.Context) {
	userID, valid := idParam(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be a positive integer")
		return
	}

	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "description and event_time are required")
		return
	}

	ev, err := h.events.Create(c.Request.Context(), services.CreateEventInput{
		UserID:               userID,
		Description:          req.Description,
		EventTime:            req.EventTime,
		IsRecurring:          req.IsRecurring,
		RecurrenceFrequency:  req.RecurrenceFrequency,
		RecurrenceInterval:   req.RecurrenceInterval,
		RecurrenceEndDate:    req.RecurrenceEndDate,
		RecurrenceDaysOfWeek: req.RecurrenceDaysOfWeek,
	})
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		return
	case errors.Is(err, services.ErrInvalidRecurrence), errors.Is(err, services.ErrEmptyDescription):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, ev)
}

// ListEvents godoc
// @ID          listEvents
// @Summary     List upcoming events
// @Description Returns the user's remindable events (one-off events and
// @Description recurring instances, never templates) inside the window.
// @Tags        Events
// @Produce     json
//
// @Param       id     path   int  true   "User ID"                     example(1)
// @Param       days   query  int  false  "Window size in days"         minimum(1) maximum(365) default(7)
// @Param       limit  query  int  false  "Maximum events to return"    minimum(1) default(50)
//
// @Success     200  {object}  handlers.ListEventsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users/{id}/events [get]
func (h *Handlers) ListEvents(c *gin.Context) {
	userID, valid := idParam(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be a positive integer")
		return
	}

	days := utils.AtoiDefault(c.Query("days"), 0)
	if days > maxUpcomingDays {
		days = maxUpcomingDays
	}
	window := defaultUpcomingWindow
	if days > 0 {
		window = time.Duration(days) * 24 * time.Hour
	}
	limit := utils.AtoiDefault(c.Query("limit"), 50)
	if limit < 1 {
		limit = 1
	}

	now := time.Now().UTC()
	events, err := h.events.Upcoming(c.Request.Context(), userID, now, now.Add(window), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListEventsResponse{Events: events})
}

// GetEvent godoc
// @ID          getEvent
// @Summary     Fetch an event
// @Tags        Events
// @Produce     json
//
// @Param       id  path  int  true  "Event ID"  example(42)
//
// @Success     200  {object}  domain.Event
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Event not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /events/{id} [get]
func (h *Handlers) GetEvent(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "event id must be a positive integer")
		return
	}

	ev, err := h.events.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrEventNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "event not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, ev)
}

// ConfirmEvent godoc
// @ID          confirmEvent
// @Summary     Confirm an event
// @Description Marks the event as acknowledged so no further reminders are sent.
// @Tags        Events
// @Produce     json
//
// @Param       id  path  int  true  "Event ID"  example(42)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Event not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /events/{id}/confirm [post]
func (h *Handlers) ConfirmEvent(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "event id must be a positive integer")
		return
	}

	err := h.events.Confirm(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrEventNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "event not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeConfirmFailed, err.Error())
		return
	}
	noContent(c)
}
