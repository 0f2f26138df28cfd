// Package services – reminder composition
//
// The Composer turns an event and its escalation level into the text that
// goes out over WhatsApp. The default implementation is template-based with
// a tone ladder that sharpens as reminders go unacknowledged; the greeting
// is localized through language matching on the user's preferred tag.
package services

import (
	"fmt"
	"time"

	"golang.org/x/text/language"

	"github.com/remindly/go-reminder-backend/internal/domain"
)

// MaxRemindersPerEvent caps the total reminders chased for one event.
const MaxRemindersPerEvent = 5

// Composer produces reminder text for an event. Attempt is 1 for the
// initial reminder and 2..MaxRemindersPerEvent for escalations.
type Composer interface {
	Compose(user domain.User, event domain.Event, attempt int, now time.Time) string
}

// toneLines maps the escalation attempt to its register. Attempt 1 is the
// friendly nudge; 5 is the final notice.
var toneLines = map[int]string{
	2: "Still waiting on a confirmation here.",
	3: "Third reminder. This is becoming a pattern.",
	4: "Seriously, this is reminder number four.",
	5: "Final notice. After this one you are on your own.",
}

var greetings = map[language.Tag]string{
	language.English: "Hey",
	language.Greek:   "Γεια σου",
	language.Spanish: "Hola",
	language.German:  "Hallo",
	language.French:  "Salut",
}

var greetingMatcher = language.NewMatcher([]language.Tag{
	language.English, // fallback
	language.Greek,
	language.Spanish,
	language.German,
	language.French,
})

// greetingFor picks the closest supported greeting for a stored language
// tag. Unknown or empty tags fall back to English.
func greetingFor(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return greetings[language.English]
	}
	_, idx, _ := greetingMatcher.Match(tag)
	matched := []language.Tag{
		language.English, language.Greek, language.Spanish, language.German, language.French,
	}[idx]
	return greetings[matched]
}

// TemplateComposer is the default rule-based Composer.
type TemplateComposer struct{}

// Compose renders the reminder line for the given attempt.
func (TemplateComposer) Compose(user domain.User, event domain.Event, attempt int, now time.Time) string {
	greeting := greetingFor(user.Language)
	name := user.FirstName
	if name == "" {
		name = user.FullName()
	}

	if attempt <= 1 {
		minutes := int(event.EventTime.Sub(now).Minutes())
		if minutes < 0 {
			minutes = 0
		}
		return fmt.Sprintf("%s %s! %q is coming up in %d minutes. Reply \"confirm %d\" so I can stop worrying.",
			greeting, name, event.Description, minutes, event.ID)
	}

	minutesAgo := int(now.Sub(event.EventTime).Minutes())
	if minutesAgo < 0 {
		minutesAgo = 0
	}
	tone := toneLines[attempt]
	if tone == "" {
		tone = toneLines[MaxRemindersPerEvent]
	}
	return fmt.Sprintf("%s %s. %s %q was %d minutes ago. Reply \"confirm %d\".",
		greeting, name, tone, event.Description, minutesAgo, event.ID)
}
