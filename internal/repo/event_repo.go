// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Event
// model: one-off reminders, recurring templates, and generated instances.
//
// Remindable events are one-off rows or generated instances; recurring
// templates only exist to spawn instances and are excluded from every
// reminder-facing query.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/remindly/go-reminder-backend/internal/domain"
)

// CreateEvent inserts ev and returns it with its assigned ID.
func CreateEvent(ctx context.Context, db *gorm.DB, ev *domain.Event) (*domain.Event, error) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(ev).Error; err != nil {
		return nil, err
	}
	return ev, nil
}

// GetEvent fetches an event by primary key, or ErrNotFound.
func GetEvent(ctx context.Context, db *gorm.DB, id uint) (*domain.Event, error) {
	var ev domain.Event
	if err := db.WithContext(ctx).First(&ev, id).Error; err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListUpcomingEvents returns remindable events for a user inside the
// [from, to] window, ordered by event time ascending. A zero `to` leaves
// the window open-ended.
func ListUpcomingEvents(ctx context.Context, db *gorm.DB, userID uint, from, to time.Time, limit int) ([]domain.Event, error) {
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("event_time >= ?", from).
		Where("is_recurring = ? OR parent_event_id IS NOT NULL", false)
	if !to.IsZero() {
		q = q.Where("event_time <= ?", to)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.Event
	err := q.Order("event_time asc").Find(&out).Error
	return out, err
}

// ListTemplates returns every recurring template row.
func ListTemplates(ctx context.Context, db *gorm.DB) ([]domain.Event, error) {
	var out []domain.Event
	err := db.WithContext(ctx).
		Where("is_recurring = ? AND parent_event_id IS NULL", true).
		Find(&out).Error
	return out, err
}

// InstanceExists reports whether an instance of template parentID already
// exists at the exact time at.
func InstanceExists(ctx context.Context, db *gorm.DB, parentID uint, at time.Time) (bool, error) {
	var cnt int64
	err := db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("parent_event_id = ? AND event_time = ?", parentID, at).
		Count(&cnt).Error
	return cnt > 0, err
}

// ListEventsDueInitialReminder returns unconfirmed one-off events and
// instances whose event time falls inside [now, now+lookahead] and whose
// first reminder has not gone out yet. Recurring templates are never
// reminded directly.
func ListEventsDueInitialReminder(ctx context.Context, db *gorm.DB, now time.Time, lookahead time.Duration) ([]domain.Event, error) {
	var out []domain.Event
	err := db.WithContext(ctx).
		Where("is_confirmed = ? AND is_message_sent = ?", false, false).
		Where("event_time >= ? AND event_time <= ?", now, now.Add(lookahead)).
		Where("is_recurring = ? OR parent_event_id IS NOT NULL", false).
		Order("event_time asc").
		Find(&out).Error
	return out, err
}

// ListEventsDueEscalation returns unconfirmed one-off events and instances
// already reminded whose event time passed within the last `window`.
func ListEventsDueEscalation(ctx context.Context, db *gorm.DB, now time.Time, window time.Duration) ([]domain.Event, error) {
	var out []domain.Event
	err := db.WithContext(ctx).
		Where("is_confirmed = ? AND is_message_sent = ?", false, true).
		Where("event_time >= ? AND event_time <= ?", now.Add(-window), now).
		Where("is_recurring = ? OR parent_event_id IS NOT NULL", false).
		Order("event_time asc").
		Find(&out).Error
	return out, err
}

// MarkMessageSent flags the event's initial reminder as delivered.
// Returns ErrNotFound if the event does not exist.
func MarkMessageSent(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_message_sent": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ConfirmEvent marks the event as acknowledged by the user.
// Returns ErrNotFound if the event does not exist.
func ConfirmEvent(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_confirmed": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
