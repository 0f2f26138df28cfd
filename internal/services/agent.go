// Package services – webhook reply agent
//
// The Agent decides how to answer an inbound WhatsApp message. The default
// implementation is rule-based: it understands "remind me" captures,
// confirmations, and event listings, and points everything else at the
// help text.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/remindly/go-reminder-backend/internal/domain"
)

const helpReply = `I can help with your reminders. Try:
- "remind me <what> at 18:00" or "remind me <what> in 2 hours" to set one
- "confirm <id>" to acknowledge a reminder
- "list" to see your upcoming events`

const capturePrompt = `Tell me when: "remind me <what> at 18:00" or "remind me <what> in 2 hours".`

// Agent produces the reply for an inbound message from a known user.
type Agent interface {
	Reply(ctx context.Context, user domain.User, text string) string
}

// RuleAgent is the default rule-based Agent.
type RuleAgent struct {
	Events *EventService

	// Now overrides the clock in tests. Nil means time.Now.
	Now func() time.Time
}

// NewRuleAgent constructs a RuleAgent over events.
func NewRuleAgent(events *EventService) *RuleAgent {
	return &RuleAgent{Events: events}
}

// Reply routes the message to a command handler, falling back to the help
// text for anything it does not recognize.
func (a *RuleAgent) Reply(ctx context.Context, user domain.User, text string) string {
	trimmed := strings.TrimSpace(text)
	const prefix = "remind me"
	if len(trimmed) >= len(prefix) && strings.EqualFold(trimmed[:len(prefix)], prefix) &&
		(len(trimmed) == len(prefix) || trimmed[len(prefix)] == ' ') {
		return a.capture(ctx, user, strings.TrimSpace(trimmed[len(prefix):]))
	}

	fields := strings.Fields(strings.ToLower(trimmed))
	if len(fields) == 0 {
		return helpReply
	}

	switch fields[0] {
	case "confirm", "ok", "done":
		if len(fields) < 2 {
			return "Which one? Reply \"confirm <id>\" with the event number."
		}
		return a.confirm(ctx, user, fields[1])
	case "list", "events", "upcoming":
		return a.list(ctx, user)
	}
	return helpReply
}

func (a *RuleAgent) capture(ctx context.Context, user domain.User, text string) string {
	now := time.Now().UTC()
	if a.Now != nil {
		now = a.Now()
	}
	loc := userLocation(user)

	desc, when, ok := parseReminder(text, now, loc)
	if !ok {
		return capturePrompt
	}
	ev, err := a.Events.Create(ctx, CreateEventInput{
		UserID:      user.ID,
		Description: desc,
		EventTime:   when,
	})
	if err != nil {
		return "I could not save that reminder. Try again in a bit."
	}
	return fmt.Sprintf("Got it. #%d %q on %s.", ev.ID, ev.Description, when.In(loc).Format("Mon 02 Jan 15:04"))
}

// parseReminder extracts a description and an absolute time from free text
// of the form "<what> in <n> <unit>" or "<what> [tomorrow] at <HH:MM>".
// Clock times resolve in loc and roll to the next day when already past.
func parseReminder(text string, now time.Time, loc *time.Location) (string, time.Time, bool) {
	lower := strings.ToLower(text)

	if idx := strings.LastIndex(lower, " in "); idx > 0 {
		if d, ok := parseDelay(lower[idx+4:]); ok {
			return strings.TrimSpace(text[:idx]), now.Add(d), true
		}
	}

	idx := strings.LastIndex(lower, " at ")
	if idx <= 0 {
		return "", time.Time{}, false
	}
	clock, err := time.Parse("15:04", strings.TrimSpace(text[idx+4:]))
	if err != nil {
		return "", time.Time{}, false
	}

	desc := strings.TrimSpace(text[:idx])
	local := now.In(loc)
	when := time.Date(local.Year(), local.Month(), local.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)

	const tomorrow = " tomorrow"
	if len(desc) > len(tomorrow) && strings.EqualFold(desc[len(desc)-len(tomorrow):], tomorrow) {
		desc = strings.TrimSpace(desc[:len(desc)-len(tomorrow)])
		when = when.AddDate(0, 0, 1)
	} else if !when.After(local) {
		when = when.AddDate(0, 0, 1)
	}
	if desc == "" {
		return "", time.Time{}, false
	}
	return desc, when.UTC(), true
}

func parseDelay(tail string) (time.Duration, bool) {
	fields := strings.Fields(tail)
	if len(fields) != 2 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0, false
	}
	switch strings.TrimSuffix(fields[1], "s") {
	case "minute", "min":
		return time.Duration(n) * time.Minute, true
	case "hour", "hr":
		return time.Duration(n) * time.Hour, true
	case "day":
		return time.Duration(n) * 24 * time.Hour, true
	}
	return 0, false
}

func userLocation(user domain.User) *time.Location {
	if user.Timezone != "" {
		if loc, err := time.LoadLocation(user.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

func (a *RuleAgent) confirm(ctx context.Context, user domain.User, rawID string) string {
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		return fmt.Sprintf("%q does not look like an event number.", rawID)
	}

	ev, err := a.Events.Get(ctx, uint(id))
	if err != nil || ev.UserID != user.ID {
		return fmt.Sprintf("I could not find event %d on your list.", id)
	}
	if err := a.Events.Confirm(ctx, uint(id)); err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return fmt.Sprintf("I could not find event %d on your list.", id)
		}
		return "Something went wrong confirming that. Try again in a bit."
	}
	return fmt.Sprintf("Confirmed %q. I will stop nagging you about it.", ev.Description)
}

func (a *RuleAgent) list(ctx context.Context, user domain.User) string {
	now := time.Now().UTC()
	events, err := a.Events.Upcoming(ctx, user.ID, now, now.AddDate(0, 0, 7), 10)
	if err != nil {
		return "I could not fetch your events right now. Try again in a bit."
	}
	if len(events) == 0 {
		return "Nothing on your list for the next 7 days."
	}

	var b strings.Builder
	b.WriteString("Coming up:\n")
	for _, ev := range events {
		fmt.Fprintf(&b, "- #%d %s at %s\n", ev.ID, ev.Description, ev.EventTime.Format("Mon 02 Jan 15:04"))
	}
	return strings.TrimRight(b.String(), "\n")
}
