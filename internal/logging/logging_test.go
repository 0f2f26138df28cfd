package logging

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/remindly/go-reminder-backend/internal/config"
)

// emit writes one record at the named severity through the module logger.
func emit(lg zerolog.Logger, severity, msg string) {
	switch severity {
	case config.LevelDebug:
		lg.Debug().Msg(msg)
	case config.LevelInfo:
		lg.Info().Msg(msg)
	case config.LevelWarning:
		lg.Warn().Msg(msg)
	case config.LevelError:
		lg.Error().Msg(msg)
	case config.LevelCritical:
		Critical(&lg).Msg(msg)
	}
}

func newTestLogger(t *testing.T, level string) (zerolog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := config.Config{LogLevel: level, LogPretty: true}
	return New(cfg, &buf), &buf
}

var lineRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} - [\w.]+ - (DEBUG|INFO|WARNING|ERROR|CRITICAL) - .*$`)

func TestEmit_ThresholdMatrix(t *testing.T) {
	levels := []string{
		config.LevelDebug, config.LevelInfo, config.LevelWarning,
		config.LevelError, config.LevelCritical,
	}
	for ti, threshold := range levels {
		for si, severity := range levels {
			lg, buf := newTestLogger(t, threshold)
			emit(Module(lg, "mod"), severity, "x")
			got := buf.Len() > 0
			want := si >= ti
			if got != want {
				t.Errorf("threshold=%s severity=%s: emitted=%v want=%v",
					threshold, severity, got, want)
			}
		}
	}
}

func TestEmit_LineTemplate(t *testing.T) {
	lg, buf := newTestLogger(t, config.LevelDebug)
	for _, severity := range []string{
		config.LevelDebug, config.LevelInfo, config.LevelWarning,
		config.LevelError, config.LevelCritical,
	} {
		buf.Reset()
		emit(Module(lg, "events.db"), severity, "hello world")
		line := strings.TrimRight(buf.String(), "\n")
		if !lineRE.MatchString(line) {
			t.Errorf("line does not match template: %q", line)
		}
		if !strings.HasSuffix(line, " - "+severity+" - hello world") {
			t.Errorf("line %q missing severity/message tail for %s", line, severity)
		}
		if !strings.Contains(line, " - events.db - ") {
			t.Errorf("line %q missing module part", line)
		}
	}
}

// LOG_LEVEL=WARNING: INFO is dropped, ERROR produces exactly one line.
func TestEmit_WarningThresholdScenario(t *testing.T) {
	lg, buf := newTestLogger(t, config.LevelWarning)
	mod := Module(lg, "mod")

	mod.Info().Msg("hello")
	if buf.Len() != 0 {
		t.Fatalf("INFO below WARNING threshold produced output: %q", buf.String())
	}

	mod.Error().Msg("bad thing")
	out := buf.String()
	if n := strings.Count(out, "\n"); n != 1 {
		t.Fatalf("expected exactly one line, got %d: %q", n, out)
	}
	if !strings.HasSuffix(strings.TrimRight(out, "\n"), "- ERROR - bad thing") {
		t.Fatalf("unexpected line: %q", out)
	}
}

func TestLevel_Mapping(t *testing.T) {
	cases := map[string]zerolog.Level{
		"DEBUG":    zerolog.DebugLevel,
		"info":     zerolog.InfoLevel,
		"Warning":  zerolog.WarnLevel,
		"ERROR":    zerolog.ErrorLevel,
		"critical": zerolog.FatalLevel,
		"bogus":    zerolog.InfoLevel,
		"":         zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := Level(in); got != want {
			t.Errorf("Level(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCritical_DoesNotExit(t *testing.T) {
	lg, buf := newTestLogger(t, config.LevelCritical)
	mod := Module(lg, "mod")
	Critical(&mod).Msg("meltdown")
	// Reaching this line proves no os.Exit; verify the severity name too.
	if !strings.Contains(buf.String(), " - CRITICAL - meltdown") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestException_AppendsStack(t *testing.T) {
	lg, buf := newTestLogger(t, config.LevelError)
	mod := Module(lg, "worker")
	Exception(&mod, errors.New("boom"), "cycle failed")
	out := buf.String()
	if !strings.Contains(out, "cycle failed: boom") {
		t.Fatalf("message/error missing: %q", out)
	}
	if !strings.Contains(out, "goroutine ") {
		t.Fatalf("stack trace missing: %q", out)
	}
}

func TestClip(t *testing.T) {
	short := "hello"
	if got := Clip(short); got != short {
		t.Fatalf("Clip(short) = %q", got)
	}

	long := strings.Repeat("é", 250)
	once := Clip(long)
	if n := len([]rune(once)); n != 100 {
		t.Fatalf("expected 100 runes, got %d", n)
	}
	if twice := Clip(once); twice != once {
		t.Fatalf("Clip is not idempotent: %q vs %q", twice, once)
	}
}
