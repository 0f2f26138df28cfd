package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/remindly/go-reminder-backend/internal/domain"
	"github.com/remindly/go-reminder-backend/internal/logging"
	"github.com/remindly/go-reminder-backend/internal/repo"
	"github.com/remindly/go-reminder-backend/internal/services"
)

// InstanceWorker expands every recurring template into concrete instances
// over a rolling horizon, once per interval.
type InstanceWorker struct {
	UoW      *repo.UnitOfWork
	Events   *services.EventService
	Interval time.Duration
	Horizon  time.Duration
	Log      zerolog.Logger

	// Now overrides the clock in tests. Nil means time.Now.
	Now func() time.Time
}

// NewInstanceWorker constructs an InstanceWorker.
func NewInstanceWorker(uow *repo.UnitOfWork, events *services.EventService, interval, horizon time.Duration, log zerolog.Logger) *InstanceWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if horizon <= 0 {
		horizon = 7 * 24 * time.Hour
	}
	return &InstanceWorker{UoW: uow, Events: events, Interval: interval, Horizon: horizon, Log: log}
}

func (w *InstanceWorker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now().UTC()
}

// Run blocks until ctx is cancelled, expanding templates immediately and
// then once per interval.
func (w *InstanceWorker) Run(ctx context.Context) {
	w.Log.Info().Dur("interval", w.Interval).Dur("horizon", w.Horizon).Msg("instance worker started")
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.Cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			w.Log.Info().Msg("instance worker stopped")
			return
		case <-ticker.C:
			w.Cycle(ctx)
		}
	}
}

// Cycle expands all templates once. Failures on one template do not stop
// the rest.
func (w *InstanceWorker) Cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logging.Exception(&w.Log, recoveredError(r), "instance cycle panicked")
		}
	}()

	var templates []domain.Event
	err := w.UoW.View(ctx, func(db *gorm.DB) error {
		tms, err := repo.ListTemplates(ctx, db)
		if err != nil {
			return err
		}
		templates = tms
		return nil
	})
	if err != nil {
		w.Log.Error().Err(err).Msg("listing templates failed")
		return
	}

	now := w.now()
	total := 0
	for _, tmpl := range templates {
		created, err := w.Events.GenerateInstances(ctx, tmpl.ID, now, now.Add(w.Horizon))
		if err != nil {
			w.Log.Error().Err(err).Uint("template_id", tmpl.ID).Msg("instance generation failed")
			continue
		}
		total += len(created)
	}
	w.Log.Info().Int("templates", len(templates)).Int("created", total).Msg("instance generation completed")
}
