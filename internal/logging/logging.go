// Package logging builds the application loggers on top of zerolog. Every
// component logs through a module-scoped child logger; the severity threshold
// comes from the configuration object resolved once at startup and is never
// changed at runtime.
//
// When Config.LogPretty is set (the default), records are rendered as fixed
// text lines on stdout:
//
//	YYYY-MM-DD HH:MM:SS - <module> - <SEVERITY> - <message>
//
// which is the format the hosting platform's log viewer expects. Otherwise
// records are plain zerolog JSON.
package logging

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/remindly/go-reminder-backend/internal/config"
)

const (
	// ModuleFieldName is the structured field carrying the originating module.
	ModuleFieldName = "module"

	// timeLayout renders timestamps as "YYYY-MM-DD HH:MM:SS".
	timeLayout = "2006-01-02 15:04:05"

	// maxFreeTextRunes caps free-text fields (message bodies, event
	// descriptions) included in log output.
	maxFreeTextRunes = 100
)

// Level maps a canonical config level name onto a zerolog level. CRITICAL
// maps to FatalLevel purely as a severity rank; Critical() below emits at
// that rank without terminating the process.
func Level(name string) zerolog.Level {
	switch config.NormalizeLogLevel(name) {
	case config.LevelDebug:
		return zerolog.DebugLevel
	case config.LevelWarning:
		return zerolog.WarnLevel
	case config.LevelError:
		return zerolog.ErrorLevel
	case config.LevelCritical:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// New constructs the root logger writing to out according to cfg. The
// returned logger already carries a timestamp; attach a module with Module().
func New(cfg config.Config, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = timeLayout

	var w io.Writer = out
	if cfg.LogPretty {
		w = NewWriter(out)
	}
	return zerolog.New(w).Level(Level(cfg.LogLevel)).With().Timestamp().Logger()
}

// Setup installs the root logger as the process-wide default (used by the
// HTTP middleware via rs/zerolog/log) and returns it. Called once from main.
func Setup(cfg config.Config) zerolog.Logger {
	lg := New(cfg, os.Stdout)
	zerolog.SetGlobalLevel(Level(cfg.LogLevel))
	log.Logger = Module(lg, "app")
	return lg
}

// Module derives a child logger scoped to the named module.
func Module(parent zerolog.Logger, name string) zerolog.Logger {
	return parent.With().Str(ModuleFieldName, name).Logger()
}

// Critical emits at CRITICAL severity without the os.Exit behavior of Fatal().
func Critical(lg *zerolog.Logger) *zerolog.Event {
	return lg.WithLevel(zerolog.FatalLevel)
}

// Exception logs an unexpected fault at ERROR with the full stack trace text
// appended to the message. Used at module boundaries when a fault escapes the
// normal error path.
func Exception(lg *zerolog.Logger, err error, msg string) {
	lg.Error().Msg(fmt.Sprintf("%s: %v\n%s", msg, err, debug.Stack()))
}

// Clip truncates free text to the logging limit. Idempotent: clipping an
// already-clipped string returns it unchanged.
func Clip(s string) string {
	r := []rune(s)
	if len(r) <= maxFreeTextRunes {
		return s
	}
	return string(r[:maxFreeTextRunes])
}

// NewWriter wraps out in a ConsoleWriter producing the fixed line template.
// Parts are joined with single spaces, so each part except the message ends
// in " -" to yield the literal " - " separators.
func NewWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:           out,
		NoColor:       true,
		TimeFormat:    timeLayout,
		PartsOrder:    []string{zerolog.TimestampFieldName, ModuleFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName},
		FieldsExclude: []string{ModuleFieldName},
		FormatTimestamp: func(i interface{}) string {
			return fmt.Sprintf("%s -", i)
		},
		FormatPartValueByName: func(i interface{}, name string) string {
			if name != ModuleFieldName {
				return fmt.Sprintf("%s", i)
			}
			if s, ok := i.(string); ok && s != "" {
				return s + " -"
			}
			return "app -"
		},
		FormatLevel: func(i interface{}) string {
			return severityName(i) + " -"
		},
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("%s", i)
		},
	}
}

// severityName renders a zerolog level token as its canonical upper-case name.
func severityName(i interface{}) string {
	s, _ := i.(string)
	switch strings.ToLower(s) {
	case "debug":
		return config.LevelDebug
	case "info":
		return config.LevelInfo
	case "warn":
		return config.LevelWarning
	case "error":
		return config.LevelError
	case "fatal", "panic":
		return config.LevelCritical
	default:
		return strings.ToUpper(s)
	}
}
