// Package worker hosts the background loops: the reminder worker that runs
// the two reminder passes on a fixed tick, and the instance worker that
// keeps recurring templates expanded over a rolling horizon.
//
// Both loops are context-cancellable and survive failures inside a cycle:
// errors are logged and the next tick proceeds.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/remindly/go-reminder-backend/internal/logging"
	"github.com/remindly/go-reminder-backend/internal/services"
)

// ReminderRunner is the slice of ReminderService the worker needs.
type ReminderRunner interface {
	InitialPass(ctx context.Context) (services.PassResult, error)
	EscalationPass(ctx context.Context) (services.PassResult, error)
}

// ReminderWorker runs the reminder passes on every tick.
type ReminderWorker struct {
	Runner   ReminderRunner
	Interval time.Duration
	Log      zerolog.Logger
}

// NewReminderWorker constructs a ReminderWorker.
func NewReminderWorker(runner ReminderRunner, interval time.Duration, log zerolog.Logger) *ReminderWorker {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &ReminderWorker{Runner: runner, Interval: interval, Log: log}
}

// Run blocks until ctx is cancelled, executing one cycle immediately and
// then one per interval.
func (w *ReminderWorker) Run(ctx context.Context) {
	w.Log.Info().Dur("interval", w.Interval).Msg("reminder worker started")
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			w.Log.Info().Msg("reminder worker stopped")
			return
		case <-ticker.C:
			w.cycle(ctx)
		}
	}
}

// cycle runs both passes once. A panic inside a pass is logged with its
// stack and the loop keeps going.
func (w *ReminderWorker) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logging.Exception(&w.Log, recoveredError(r), "reminder cycle panicked")
		}
	}()

	if _, err := w.Runner.InitialPass(ctx); err != nil {
		w.Log.Error().Err(err).Msg("initial reminder pass failed")
	}
	if _, err := w.Runner.EscalationPass(ctx); err != nil {
		w.Log.Error().Err(err).Msg("escalation pass failed")
	}
}

// recoveredError normalizes a recover() value into an error.
func recoveredError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
