// Package domain defines the persistence models for users, events, and
// WhatsApp messages. These types are mapped with GORM and form the core
// data layer of the reminder application.
package domain

import (
	"strconv"
	"strings"
	"time"
)

// Sender identifies who authored a message.
const (
	SenderAI   = "ai"
	SenderUser = "user"
)

// Recurrence frequencies accepted on event templates.
const (
	FreqDaily   = "daily"
	FreqWeekly  = "weekly"
	FreqMonthly = "monthly"
	FreqYearly  = "yearly"
)

// ValidFrequency reports whether f is one of the supported recurrence
// frequencies.
func ValidFrequency(f string) bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
		return true
	}
	return false
}

// User represents a WhatsApp contact that receives reminders. The phone
// number is the external identity and must be unique.
//
// Fields:
//   - ID: autoincrement primary key.
//   - FirstName / LastName: display name used when composing messages.
//   - PhoneNumber: E.164-style digits; indexed and unique.
//   - Timezone: IANA zone name, defaults to UTC.
//   - Language: BCP 47 tag for message composition, defaults to "en".
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID          uint      `json:"id"           gorm:"primaryKey;autoIncrement"`
	FirstName   string    `json:"first_name"   gorm:"type:varchar(100);not null"`
	LastName    string    `json:"last_name"    gorm:"type:varchar(100);not null"`
	PhoneNumber string    `json:"phone_number" gorm:"type:varchar(20);not null;uniqueIndex:ux_users_phone"`
	Timezone    string    `json:"timezone"     gorm:"type:varchar(50);not null;default:'UTC'"`
	Language    string    `json:"language"     gorm:"type:varchar(10);not null;default:'en'"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// FullName joins the first and last name for message composition.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Event is either a one-off reminder, a recurring template, or an instance
// generated from a template. Templates carry the recurrence fields and are
// never reminded directly; instances reference their template through
// ParentEventID.
//
// Fields:
//   - ID: autoincrement primary key.
//   - Description: what the user is being reminded about.
//   - EventTime: when the event happens; indexed for the reminder scans.
//   - IsMessageSent: the initial reminder for this event went out.
//   - IsConfirmed: the user acknowledged the reminder.
//   - UserID: owner; cascade-deleted with the user.
//   - IsRecurring: marks a template.
//   - RecurrenceFrequency: daily, weekly, monthly, or yearly.
//   - RecurrenceInterval: step between occurrences (every N days, etc).
//   - RecurrenceEndDate: optional stop date for instance generation.
//   - RecurrenceDaysOfWeek: comma-separated weekday numbers for weekly
//     templates, "0" being Monday (e.g. "0,2,4" for Mon, Wed, Fri).
//   - ParentEventID: set on generated instances, pointing at the template.
type Event struct {
	ID            uint      `json:"id"              gorm:"primaryKey;autoIncrement"`
	Description   string    `json:"description"     gorm:"type:varchar(500);not null"`
	EventTime     time.Time `json:"event_time"      gorm:"not null;index:idx_events_time"`
	IsMessageSent bool      `json:"is_message_sent" gorm:"not null;default:false"`
	IsConfirmed   bool      `json:"is_confirmed"    gorm:"not null;default:false"`
	UserID        uint      `json:"user_id"         gorm:"not null;index:idx_events_user"`

	IsRecurring          bool       `json:"is_recurring"                      gorm:"not null;default:false"`
	RecurrenceFrequency  *string    `json:"recurrence_frequency,omitempty"    gorm:"type:varchar(10)"`
	RecurrenceInterval   *int       `json:"recurrence_interval,omitempty"`
	RecurrenceEndDate    *time.Time `json:"recurrence_end_date,omitempty"`
	RecurrenceDaysOfWeek *string    `json:"recurrence_days_of_week,omitempty" gorm:"type:varchar(20)"`

	ParentEventID *uint `json:"parent_event_id,omitempty" gorm:"index:idx_events_parent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// User is the owner. Events are cascade-deleted with their user.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	// ParentEvent is the recurring template this instance was generated
	// from. Instances are cascade-deleted with their template.
	ParentEvent *Event `json:"-" gorm:"foreignKey:ParentEventID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Event.
func (Event) TableName() string { return "events" }

// IsTemplate reports whether the event is a recurring template, i.e. a row
// that spawns instances and must never be reminded directly.
func (e Event) IsTemplate() bool { return e.IsRecurring && e.ParentEventID == nil }

// IsInstance reports whether the event was generated from a template.
func (e Event) IsInstance() bool { return e.ParentEventID != nil }

// Weekdays parses RecurrenceDaysOfWeek ("0,2,4") into weekday numbers,
// Monday being 0. Malformed entries are skipped.
func (e Event) Weekdays() []int {
	if e.RecurrenceDaysOfWeek == nil || *e.RecurrenceDaysOfWeek == "" {
		return nil
	}
	parts := strings.Split(*e.RecurrenceDaysOfWeek, ",")
	days := make([]int, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || d < 0 || d > 6 {
			continue
		}
		days = append(days, d)
	}
	return days
}

// Message is a single WhatsApp message exchanged with a user, authored
// either by the assistant ("ai") or the user. Reminder messages reference
// the event they concern so escalation can count prior attempts.
//
// Fields:
//   - ID: autoincrement primary key.
//   - SentBy: "ai" or "user" (enforced by DB constraint).
//   - Timestamp: send/receive time; indexed for escalation scans.
//   - RequiredFollowUp: an "ai" reminder still awaiting a reply.
//   - MessageText: full text content.
//   - UserID: conversation partner; cascade-deleted with the user.
//   - EventID: optional link to the reminded event; nulled if the event
//     is removed so the conversation history survives.
type Message struct {
	ID               uint      `json:"id"                 gorm:"primaryKey;autoIncrement"`
	SentBy           string    `json:"sent_by"            gorm:"type:varchar(8);not null;check:sent_by IN ('ai','user')"`
	Timestamp        time.Time `json:"timestamp"          gorm:"not null;index:idx_messages_time"`
	RequiredFollowUp bool      `json:"required_follow_up" gorm:"not null;default:false"`
	MessageText      string    `json:"message_text"       gorm:"type:text;not null"`
	UserID           uint      `json:"user_id"            gorm:"not null;index:idx_messages_user"`
	EventID          *uint     `json:"event_id,omitempty" gorm:"index:idx_messages_event"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	User  User   `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Event *Event `json:"-" gorm:"foreignKey:EventID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// AllModels lists every persisted type for migrations.
func AllModels() []any {
	return []any{&User{}, &Event{}, &Message{}, &WebhookReceipt{}}
}
