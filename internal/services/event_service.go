// Package services – EventService
//
// Owns the event lifecycle: one-off reminders, recurring templates, and the
// expansion of templates into concrete instances. Only instances and one-off
// events are ever reminded; templates exist to be expanded.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/remindly/go-reminder-backend/internal/domain"
	"github.com/remindly/go-reminder-backend/internal/repo"
)

// CreateEventInput carries the fields accepted when creating an event.
type CreateEventInput struct {
	UserID               uint
	Description          string
	EventTime            time.Time
	IsRecurring          bool
	RecurrenceFrequency  string
	RecurrenceInterval   int
	RecurrenceEndDate    *time.Time
	RecurrenceDaysOfWeek string
}

// EventService provides event-level operations.
type EventService struct {
	UoW *repo.UnitOfWork
}

// NewEventService constructs an EventService.
func NewEventService(uow *repo.UnitOfWork) *EventService {
	return &EventService{UoW: uow}
}

// Create validates in and persists a new event. Recurring events must carry
// a supported frequency; recurrence fields on one-off events are dropped.
func (s *EventService) Create(ctx context.Context, in CreateEventInput) (*domain.Event, error) {
	if in.Description == "" {
		return nil, ErrEmptyDescription
	}
	ev := &domain.Event{
		Description: in.Description,
		EventTime:   in.EventTime.UTC(),
		UserID:      in.UserID,
		IsRecurring: in.IsRecurring,
	}
	if in.IsRecurring {
		if !domain.ValidFrequency(in.RecurrenceFrequency) {
			return nil, ErrInvalidRecurrence
		}
		freq := in.RecurrenceFrequency
		ev.RecurrenceFrequency = &freq
		interval := in.RecurrenceInterval
		if interval < 1 {
			interval = 1
		}
		ev.RecurrenceInterval = &interval
		ev.RecurrenceEndDate = in.RecurrenceEndDate
		if in.RecurrenceDaysOfWeek != "" {
			days := in.RecurrenceDaysOfWeek
			ev.RecurrenceDaysOfWeek = &days
		}
	}

	err := s.UoW.Do(ctx, func(tx *gorm.DB) error {
		if _, err := repo.GetUser(ctx, tx, in.UserID); err != nil {
			return err
		}
		_, err := repo.CreateEvent(ctx, tx, ev)
		return err
	})
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// Get fetches an event, or ErrEventNotFound.
func (s *EventService) Get(ctx context.Context, id uint) (*domain.Event, error) {
	var out *domain.Event
	err := s.UoW.View(ctx, func(db *gorm.DB) error {
		ev, err := repo.GetEvent(ctx, db, id)
		if err != nil {
			return err
		}
		out = ev
		return nil
	})
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Upcoming lists remindable events for a user from `from` onward.
func (s *EventService) Upcoming(ctx context.Context, userID uint, from, to time.Time, limit int) ([]domain.Event, error) {
	var out []domain.Event
	err := s.UoW.View(ctx, func(db *gorm.DB) error {
		if _, err := repo.GetUser(ctx, db, userID); err != nil {
			return err
		}
		events, err := repo.ListUpcomingEvents(ctx, db, userID, from, to, limit)
		if err != nil {
			return err
		}
		out = events
		return nil
	})
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return out, err
}

// Confirm marks an event as acknowledged by its owner.
func (s *EventService) Confirm(ctx context.Context, id uint) error {
	err := s.UoW.Do(ctx, func(tx *gorm.DB) error {
		return repo.ConfirmEvent(ctx, tx, id)
	})
	if errors.Is(err, repo.ErrNotFound) {
		return ErrEventNotFound
	}
	return err
}

// MarkMessageSent flags an event's initial reminder as delivered.
func (s *EventService) MarkMessageSent(ctx context.Context, id uint) error {
	err := s.UoW.Do(ctx, func(tx *gorm.DB) error {
		return repo.MarkMessageSent(ctx, tx, id)
	})
	if errors.Is(err, repo.ErrNotFound) {
		return ErrEventNotFound
	}
	return err
}

// GenerateInstances expands the template templateID into concrete instances
// inside [start, end], skipping dates that already have one. The template's
// end date truncates the range. It returns the instances it created.
func (s *EventService) GenerateInstances(ctx context.Context, templateID uint, start, end time.Time) ([]domain.Event, error) {
	var created []domain.Event
	err := s.UoW.Do(ctx, func(tx *gorm.DB) error {
		tmpl, err := repo.GetEvent(ctx, tx, templateID)
		if err != nil {
			return err
		}
		if !tmpl.IsTemplate() {
			return ErrNotTemplate
		}

		effectiveEnd := end
		if tmpl.RecurrenceEndDate != nil && tmpl.RecurrenceEndDate.Before(end) {
			effectiveEnd = *tmpl.RecurrenceEndDate
		}

		for cur := start; !cur.After(effectiveEnd); cur = nextOccurrenceStep(tmpl, cur) {
			if !occursOn(tmpl, cur) {
				continue
			}
			at := atTemplateTime(tmpl.EventTime, cur)
			exists, err := repo.InstanceExists(ctx, tx, tmpl.ID, at)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			inst, err := repo.CreateEvent(ctx, tx, &domain.Event{
				Description:   tmpl.Description,
				EventTime:     at,
				UserID:        tmpl.UserID,
				ParentEventID: &tmpl.ID,
			})
			if err != nil {
				return err
			}
			created = append(created, *inst)
		}
		return nil
	})
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// mondayWeekday maps Go's Sunday-based weekday to a Monday-based index,
// matching the stored day-of-week sets.
func mondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// occursOn reports whether the template produces an occurrence on the date
// of cur.
func occursOn(tmpl *domain.Event, cur time.Time) bool {
	freq := ""
	if tmpl.RecurrenceFrequency != nil {
		freq = *tmpl.RecurrenceFrequency
	}
	switch freq {
	case domain.FreqDaily:
		return true
	case domain.FreqWeekly:
		if days := tmpl.Weekdays(); len(days) > 0 {
			wd := mondayWeekday(cur)
			for _, d := range days {
				if d == wd {
					return true
				}
			}
			return false
		}
		return cur.Weekday() == tmpl.EventTime.Weekday()
	case domain.FreqMonthly:
		return cur.Day() == tmpl.EventTime.Day()
	case domain.FreqYearly:
		return cur.Month() == tmpl.EventTime.Month() && cur.Day() == tmpl.EventTime.Day()
	}
	return false
}

// nextOccurrenceStep advances the generation cursor: daily templates jump by
// their interval, everything else walks day by day and lets occursOn pick
// the matching dates.
func nextOccurrenceStep(tmpl *domain.Event, cur time.Time) time.Time {
	if tmpl.RecurrenceFrequency != nil && *tmpl.RecurrenceFrequency == domain.FreqDaily {
		interval := 1
		if tmpl.RecurrenceInterval != nil && *tmpl.RecurrenceInterval > 0 {
			interval = *tmpl.RecurrenceInterval
		}
		return cur.AddDate(0, 0, interval)
	}
	return cur.AddDate(0, 0, 1)
}

// atTemplateTime places the template's time of day onto the date of cur.
func atTemplateTime(tmplTime, cur time.Time) time.Time {
	return time.Date(cur.Year(), cur.Month(), cur.Day(),
		tmplTime.Hour(), tmplTime.Minute(), tmplTime.Second(), 0, time.UTC)
}
