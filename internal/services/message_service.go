// Package services – MessageService
//
// Records the WhatsApp conversation history and serves it back to the API.
// Every stored message belongs to a registered user; reminder messages also
// reference the event they chase.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/remindly/go-reminder-backend/internal/domain"
	"github.com/remindly/go-reminder-backend/internal/repo"
)

// MessageService coordinates message persistence and retrieval.
type MessageService struct {
	UoW *repo.UnitOfWork
}

// NewMessageService constructs a MessageService.
func NewMessageService(uow *repo.UnitOfWork) *MessageService {
	return &MessageService{UoW: uow}
}

// Record validates and persists one message. When eventID is set the event
// must exist.
func (s *MessageService) Record(ctx context.Context, userID uint, sentBy, text string, followUp bool, eventID *uint) (*domain.Message, error) {
	if sentBy != domain.SenderAI && sentBy != domain.SenderUser {
		return nil, ErrInvalidSender
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	var out *domain.Message
	err := s.UoW.Do(ctx, func(tx *gorm.DB) error {
		if _, err := repo.GetUser(ctx, tx, userID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if eventID != nil {
			if _, err := repo.GetEvent(ctx, tx, *eventID); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return ErrEventNotFound
				}
				return err
			}
		}
		m, err := repo.CreateMessage(ctx, tx, userID, sentBy, text, followUp, eventID)
		if err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// History returns the last n messages for a user, most recent first.
func (s *MessageService) History(ctx context.Context, userID uint, n int) ([]domain.Message, error) {
	var out []domain.Message
	err := s.UoW.View(ctx, func(db *gorm.DB) error {
		if _, err := repo.GetUser(ctx, db, userID); err != nil {
			return err
		}
		msgs, err := repo.ListRecentMessages(ctx, db, userID, n)
		if err != nil {
			return err
		}
		out = msgs
		return nil
	})
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return out, err
}
