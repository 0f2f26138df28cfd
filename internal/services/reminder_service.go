// Package services – ReminderService
//
// Implements the two reminder passes that the background worker runs on
// every tick. The initial pass chases one-off events and recurring
// instances coming up inside the lookahead window; the escalation pass
// chases those whose time passed recently without a confirmation, with the
// tone sharpening on every attempt up to a hard cap.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/remindly/go-reminder-backend/internal/config"
	"github.com/remindly/go-reminder-backend/internal/domain"
	"github.com/remindly/go-reminder-backend/internal/logging"
	"github.com/remindly/go-reminder-backend/internal/repo"
	"github.com/remindly/go-reminder-backend/internal/whatsapp"
)

// Sender delivers a composed reminder. Satisfied by *whatsapp.Client.
type Sender interface {
	SendMessage(ctx context.Context, phone, message string) (*whatsapp.SendResult, error)
}

// PassResult summarizes one reminder pass.
type PassResult struct {
	Candidates int
	Sent       int
	Failed     int
	Skipped    int
}

// ReminderService runs the reminder passes.
type ReminderService struct {
	UoW      *repo.UnitOfWork
	Sender   Sender
	Composer Composer
	Cfg      config.ReminderConfig
	Log      zerolog.Logger

	// Now overrides the clock in tests. Nil means time.Now.
	Now func() time.Time
}

// NewReminderService constructs a ReminderService with the default
// composer.
func NewReminderService(uow *repo.UnitOfWork, sender Sender, cfg config.ReminderConfig, log zerolog.Logger) *ReminderService {
	return &ReminderService{
		UoW:      uow,
		Sender:   sender,
		Composer: TemplateComposer{},
		Cfg:      cfg,
		Log:      log,
	}
}

func (s *ReminderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// InitialPass sends the first reminder for unconfirmed instances due within
// the lookahead window. A delivery failure skips the event; it stays
// eligible for the next tick.
func (s *ReminderService) InitialPass(ctx context.Context) (PassResult, error) {
	tr := otel.Tracer("services/ReminderService")
	ctx, span := tr.Start(ctx, "InitialPass")
	defer span.End()

	now := s.now()
	var res PassResult

	var due []domain.Event
	err := s.UoW.View(ctx, func(db *gorm.DB) error {
		events, err := repo.ListEventsDueInitialReminder(ctx, db, now, s.Cfg.Lookahead)
		if err != nil {
			return err
		}
		due = events
		return nil
	})
	if err != nil {
		return res, err
	}
	res.Candidates = len(due)
	span.SetAttributes(attribute.Int("reminders.candidates", len(due)))

	for _, ev := range due {
		if err := s.remind(ctx, ev, 1, now); err != nil {
			res.Failed++
			s.Log.Error().Err(err).Uint("event_id", ev.ID).Msg("initial reminder failed")
			continue
		}
		res.Sent++
	}

	s.Log.Info().
		Int("candidates", res.Candidates).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Msg("initial reminder pass completed")
	return res, nil
}

// EscalationPass re-chases instances that were reminded but not confirmed,
// for events whose time passed within the escalation window. Each event
// gets at most MaxRemindersPerEvent messages in total.
func (s *ReminderService) EscalationPass(ctx context.Context) (PassResult, error) {
	tr := otel.Tracer("services/ReminderService")
	ctx, span := tr.Start(ctx, "EscalationPass")
	defer span.End()

	now := s.now()
	var res PassResult

	maxMessages := s.Cfg.MaxMessages
	if maxMessages <= 0 {
		maxMessages = MaxRemindersPerEvent
	}

	var due []domain.Event
	err := s.UoW.View(ctx, func(db *gorm.DB) error {
		events, err := repo.ListEventsDueEscalation(ctx, db, now, s.Cfg.EscalationWindow)
		if err != nil {
			return err
		}
		due = events
		return nil
	})
	if err != nil {
		return res, err
	}
	res.Candidates = len(due)
	span.SetAttributes(attribute.Int("reminders.candidates", len(due)))

	for _, ev := range due {
		var sent int64
		err := s.UoW.View(ctx, func(db *gorm.DB) error {
			n, err := repo.CountRemindersSent(ctx, db, ev.ID)
			sent = n
			return err
		})
		if err != nil {
			res.Failed++
			s.Log.Error().Err(err).Uint("event_id", ev.ID).Msg("counting reminders failed")
			continue
		}
		if sent >= int64(maxMessages) {
			res.Skipped++
			s.Log.Debug().Uint("event_id", ev.ID).Int64("sent", sent).Msg("reminder cap reached, skipping")
			continue
		}

		attempt := int(sent) + 1
		if err := s.remind(ctx, ev, attempt, now); err != nil {
			res.Failed++
			s.Log.Error().Err(err).Uint("event_id", ev.ID).Int("attempt", attempt).Msg("escalating reminder failed")
			continue
		}
		res.Sent++
	}

	s.Log.Info().
		Int("candidates", res.Candidates).
		Int("sent", res.Sent).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("escalation pass completed")
	return res, nil
}

// remind composes, delivers, and records one reminder for ev, then marks
// the event on the first attempt. The database write happens only after a
// successful delivery.
func (s *ReminderService) remind(ctx context.Context, ev domain.Event, attempt int, now time.Time) error {
	tr := otel.Tracer("services/ReminderService")
	ctx, span := tr.Start(ctx, "remind",
		trace.WithAttributes(
			attribute.Int("event.id", int(ev.ID)),
			attribute.Int("reminder.attempt", attempt),
		),
	)
	defer span.End()

	var user *domain.User
	err := s.UoW.View(ctx, func(db *gorm.DB) error {
		u, err := repo.GetUser(ctx, db, ev.UserID)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return err
	}

	text := s.Composer.Compose(*user, ev, attempt, now)
	s.Log.Debug().
		Uint("event_id", ev.ID).
		Int("attempt", attempt).
		Str("message", logging.Clip(text)).
		Msg("sending reminder")
	if _, err := s.Sender.SendMessage(ctx, user.PhoneNumber, text); err != nil {
		return err
	}

	return s.UoW.Do(ctx, func(tx *gorm.DB) error {
		if _, err := repo.CreateMessage(ctx, tx, user.ID, domain.SenderAI, text, true, &ev.ID); err != nil {
			return err
		}
		if attempt == 1 {
			return repo.MarkMessageSent(ctx, tx, ev.ID)
		}
		return nil
	})
}
