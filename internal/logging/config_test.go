package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		" DEBUG ": zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"off":     zerolog.Disabled,
		"error":   zerolog.ErrorLevel,
		"info":    zerolog.InfoLevel,
	}
	for raw, want := range cases {
		got, ok := parseLevel(raw)
		if !ok || got != want {
			t.Fatalf("parseLevel(%q)=%v,%v want %v", raw, got, ok, want)
		}
	}
	if _, ok := parseLevel("loud"); ok {
		t.Fatalf("unknown level accepted")
	}
	if _, ok := parseLevel(""); ok {
		t.Fatalf("empty level accepted")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "1")
	t.Setenv(EnvLogBypass, "not-a-bool")

	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel {
		t.Fatalf("level=%v", cfg.Level)
	}
	if cfg.Timestamp {
		t.Fatalf("timestamp override ignored")
	}
	if !cfg.NoColor {
		t.Fatalf("nocolor override ignored")
	}
	if cfg.Bypass {
		t.Fatalf("invalid bypass value applied")
	}
}

func TestDefaultConfigProfiles(t *testing.T) {
	if cfg := defaultConfig(ProfileTest); cfg.Level != zerolog.DebugLevel || cfg.Timestamp {
		t.Fatalf("unexpected test profile: %+v", cfg)
	}
	if cfg := defaultConfig(ProfileRuntime); cfg.Level != zerolog.InfoLevel || !cfg.Timestamp {
		t.Fatalf("unexpected runtime profile: %+v", cfg)
	}
}

func TestNewLoggerBypassWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(Config{Level: zerolog.InfoLevel, Bypass: true}, &buf)
	logger.Info().Str("stream", "abc").Msg("frame")
	out := buf.String()
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"stream":"abc"`) {
		t.Fatalf("unexpected output: %q", out)
	}
	buf.Reset()
	logger.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug event written at info level: %q", buf.String())
	}
}

func TestNewLoggerConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(Config{Level: zerolog.DebugLevel, NoColor: true}, &buf)
	logger.Debug().Str("op", "read").Msg("stream.Read")
	out := buf.String()
	if strings.HasPrefix(out, "{") || !strings.Contains(out, "stream.Read") || !strings.Contains(out, "op=read") {
		t.Fatalf("unexpected console output: %q", out)
	}
}

func TestNewLoggerConsoleWithoutTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(Config{Level: zerolog.InfoLevel, NoColor: true}, &buf)
	logger.Info().Msg("stream.Write")
	out := buf.String()
	if strings.Contains(out, "<nil>") {
		t.Fatalf("missing timestamp rendered as placeholder: %q", out)
	}
	if !strings.HasPrefix(out, "INF") {
		t.Fatalf("expected line to start with level, got %q", out)
	}
}

func TestNewLoggerConsoleWithTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(Config{Level: zerolog.InfoLevel, NoColor: true, Timestamp: true}, &buf)
	logger.Info().Msg("stream.Write")
	out := buf.String()
	if strings.Contains(out, "<nil>") || strings.HasPrefix(out, "INF") {
		t.Fatalf("expected leading timestamp, got %q", out)
	}
}
