package services

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/remindly/go-reminder-backend/internal/domain"
)

func TestRuleAgent_Confirm(t *testing.T) {
	uow := newUoW(t)
	events := NewEventService(uow)
	agent := NewRuleAgent(events)
	ctx := context.Background()

	owner := mustUser(t, uow, "306900000001")
	other := mustUser(t, uow, "306900000002")
	ev := mustEvent(t, uow, &domain.Event{
		Description: "dentist", EventTime: time.Now().UTC().Add(time.Hour), UserID: owner.ID,
	})

	reply := agent.Reply(ctx, *owner, "confirm "+itoa(ev.ID))
	if !strings.Contains(reply, "Confirmed") || !strings.Contains(reply, "dentist") {
		t.Fatalf("unexpected confirm reply: %q", reply)
	}
	got, err := events.Get(ctx, ev.ID)
	if err != nil || !got.IsConfirmed {
		t.Fatalf("event not confirmed: %+v, %v", got, err)
	}

	// Someone else's event stays untouchable.
	reply = agent.Reply(ctx, *other, "confirm "+itoa(ev.ID))
	if !strings.Contains(reply, "could not find") {
		t.Fatalf("expected ownership rejection, got %q", reply)
	}

	if reply := agent.Reply(ctx, *owner, "confirm"); !strings.Contains(reply, "Which one") {
		t.Fatalf("expected id prompt, got %q", reply)
	}
	if reply := agent.Reply(ctx, *owner, "confirm banana"); !strings.Contains(reply, "does not look like") {
		t.Fatalf("expected parse rejection, got %q", reply)
	}
}

func TestRuleAgent_ListAndHelp(t *testing.T) {
	uow := newUoW(t)
	events := NewEventService(uow)
	agent := NewRuleAgent(events)
	ctx := context.Background()

	u := mustUser(t, uow, "306900000003")

	reply := agent.Reply(ctx, *u, "list")
	if !strings.Contains(reply, "Nothing on your list") {
		t.Fatalf("expected empty list reply, got %q", reply)
	}

	mustEvent(t, uow, &domain.Event{
		Description: "dentist", EventTime: time.Now().UTC().Add(2 * time.Hour), UserID: u.ID,
	})
	reply = agent.Reply(ctx, *u, "LIST")
	if !strings.Contains(reply, "dentist") {
		t.Fatalf("expected listed event, got %q", reply)
	}

	for _, msg := range []string{"", "what can you do", "hello"} {
		if reply := agent.Reply(ctx, *u, msg); !strings.Contains(reply, "confirm <id>") {
			t.Fatalf("expected help reply for %q, got %q", msg, reply)
		}
	}
}

func TestRuleAgent_CapturesReminders(t *testing.T) {
	uow := newUoW(t)
	events := NewEventService(uow)
	agent := NewRuleAgent(events)
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	agent.Now = func() time.Time { return now }
	ctx := context.Background()

	u := mustUser(t, uow, "306900000004")

	reply := agent.Reply(ctx, *u, "Remind me pay rent in 2 hours")
	if !strings.Contains(reply, "Got it") || !strings.Contains(reply, "pay rent") {
		t.Fatalf("unexpected capture reply: %q", reply)
	}
	upcoming, err := events.Upcoming(ctx, u.ID, now, now.AddDate(0, 0, 1), 10)
	if err != nil || len(upcoming) != 1 {
		t.Fatalf("expected one captured event, got %v, %v", upcoming, err)
	}
	if got := upcoming[0].EventTime.UTC(); !got.Equal(now.Add(2 * time.Hour)) {
		t.Fatalf("expected event at %v, got %v", now.Add(2*time.Hour), got)
	}
	if upcoming[0].Description != "pay rent" {
		t.Fatalf("expected description %q, got %q", "pay rent", upcoming[0].Description)
	}

	// Clock times resolve on the user's day, rolling past hours forward.
	reply = agent.Reply(ctx, *u, "remind me call mom at 18:00")
	if !strings.Contains(reply, "Got it") {
		t.Fatalf("unexpected clock capture reply: %q", reply)
	}
	upcoming, err = events.Upcoming(ctx, u.ID, now, now.AddDate(0, 0, 2), 10)
	if err != nil || len(upcoming) != 2 {
		t.Fatalf("expected two captured events, got %v, %v", upcoming, err)
	}
	want := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	if got := upcoming[1].EventTime.UTC(); !got.Equal(want) {
		t.Fatalf("expected event at %v, got %v", want, got)
	}

	reply = agent.Reply(ctx, *u, "remind me dentist tomorrow at 08:30")
	if !strings.Contains(reply, "Got it") || !strings.Contains(reply, "dentist") {
		t.Fatalf("unexpected tomorrow capture reply: %q", reply)
	}
	upcoming, err = events.Upcoming(ctx, u.ID, now, now.AddDate(0, 0, 2), 10)
	if err != nil || len(upcoming) != 3 {
		t.Fatalf("expected three captured events, got %v, %v", upcoming, err)
	}
	want = time.Date(2026, 9, 2, 8, 30, 0, 0, time.UTC)
	if got := upcoming[2].EventTime.UTC(); !got.Equal(want) {
		t.Fatalf("expected event at %v, got %v", want, got)
	}

	// No usable time: ask for one instead of guessing.
	for _, msg := range []string{"remind me", "remind me later", "remind me at noon"} {
		if reply := agent.Reply(ctx, *u, msg); !strings.Contains(reply, "Tell me when") {
			t.Fatalf("expected time prompt for %q, got %q", msg, reply)
		}
	}
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
