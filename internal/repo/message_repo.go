// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model, the stored WhatsApp conversation history.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/remindly/go-reminder-backend/internal/domain"
)

// CreateMessage records one message. eventID may be nil for messages not
// tied to a reminder.
func CreateMessage(ctx context.Context, db *gorm.DB, userID uint, sentBy, text string, followUp bool, eventID *uint) (*domain.Message, error) {
	m := &domain.Message{
		SentBy:           sentBy,
		Timestamp:        time.Now().UTC(),
		RequiredFollowUp: followUp,
		MessageText:      text,
		UserID:           userID,
		EventID:          eventID,
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ListRecentMessages returns the last n messages for a user, most recent
// first.
func ListRecentMessages(ctx context.Context, db *gorm.DB, userID uint, n int) ([]domain.Message, error) {
	if n <= 0 {
		n = 10
	}
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp desc").
		Limit(n).
		Find(&out).Error
	return out, err
}

// CountRemindersSent counts assistant messages already delivered for an
// event. The escalation pass uses this to pick the tone and to cap the
// total attempts.
func CountRemindersSent(ctx context.Context, db *gorm.DB, eventID uint) (int64, error) {
	var cnt int64
	err := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("event_id = ? AND sent_by = ?", eventID, domain.SenderAI).
		Count(&cnt).Error
	return cnt, err
}
