package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func plain(buf *bytes.Buffer, opts ...Option) Logger {
	return Make(buf, append([]Option{WithPretty(false), WithTimeLayout("none")}, opts...)...)
}

func TestMake_Defaults(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf)

	if logger.Level() != DefaultLevel {
		t.Errorf("level: got %v, want %v", logger.Level(), DefaultLevel)
	}

	if logger.Format() != DefaultFormat {
		t.Errorf("format: got %v, want %v", logger.Format(), DefaultFormat)
	}

	if logger.caller || !logger.pretty {
		t.Errorf("caller=%v pretty=%v, want false true", logger.caller, logger.pretty)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level Level
		log   func(Logger, string)
		want  bool
	}{
		{LevelTrace, func(l Logger, m string) { l.Trace(m) }, true},
		{LevelDebug, func(l Logger, m string) { l.Trace(m) }, false},
		{LevelDebug, func(l Logger, m string) { l.Debug(m) }, true},
		{LevelInfo, func(l Logger, m string) { l.Debug(m) }, false},
		{LevelInfo, func(l Logger, m string) { l.Info(m) }, true},
		{LevelWarn, func(l Logger, m string) { l.Info(m) }, false},
		{LevelWarn, func(l Logger, m string) { l.Warn(m) }, true},
		{LevelError, func(l Logger, m string) { l.Warn(m) }, false},
		{LevelError, func(l Logger, m string) { l.Error(m) }, true},
	}

	for _, tt := range tests {
		var buf bytes.Buffer

		tt.log(plain(&buf, WithLevel(tt.level)), "message")

		if got := strings.Contains(buf.String(), "message"); got != tt.want {
			t.Errorf("level %v: logged=%v, want %v (%q)", tt.level, got, tt.want, buf.String())
		}
	}
}

func TestLogger_TraceLevelName(t *testing.T) {
	var buf bytes.Buffer

	plain(&buf, WithLevel(LevelTrace)).Trace("deep")

	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("got %q, want level=TRACE", buf.String())
	}
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger := plain(&buf, WithFormat(FormatJSON), WithLevel(LevelInfo))
	logger.Info("parsed", slog.String("file", "a.pro"), slog.Int("statements", 3))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}

	if rec["msg"] != "parsed" || rec["file"] != "a.pro" || rec["statements"] != float64(3) {
		t.Errorf("got %v", rec)
	}

	if rec["level"] != "INFO" {
		t.Errorf("level: got %v, want INFO", rec["level"])
	}

	if _, ok := rec["time"]; ok {
		t.Errorf("time should be omitted: %v", rec)
	}
}

func TestLogger_Caller(t *testing.T) {
	var buf bytes.Buffer

	plain(&buf, WithLevel(LevelInfo), WithCaller(true)).Info("here")

	if !strings.Contains(buf.String(), "log_test.go:") {
		t.Errorf("caller should point at this file: %q", buf.String())
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer

	logger := plain(&buf, WithLevel(LevelInfo)).With(slog.String("script", "demo"))
	logger.Info("run")

	if !strings.Contains(buf.String(), "script=demo") {
		t.Errorf("got %q, want script=demo", buf.String())
	}
}

func TestLogger_Wrap(t *testing.T) {
	var buf bytes.Buffer

	base := plain(&buf, WithLevel(LevelError))
	wrapped := base.Wrap(WithLevel(LevelDebug))

	if base.Level() != LevelError || wrapped.Level() != LevelDebug {
		t.Errorf("got %v and %v, want error and debug", base.Level(), wrapped.Level())
	}

	wrapped.Debug("visible")
	base.Debug("hidden")

	if out := buf.String(); !strings.Contains(out, "visible") || strings.Contains(out, "hidden") {
		t.Errorf("got %q", out)
	}
}

func TestLogger_Enabled(t *testing.T) {
	var buf bytes.Buffer

	logger := plain(&buf, WithLevel(LevelInfo))

	if logger.Enabled(t.Context(), LevelDebug) || !logger.Enabled(t.Context(), LevelWarn) {
		t.Error("Enabled disagrees with the configured level")
	}

	var zero Logger
	if zero.Enabled(t.Context(), LevelError) {
		t.Error("zero logger reports enabled")
	}
}

func TestLogger_ZeroValue(t *testing.T) {
	var logger Logger

	logger.Info("ignored")
	logger.ErrorContext(t.Context(), "ignored")

	if logger.With(slog.Int("k", 1)).Logger != nil {
		t.Error("With on zero logger should stay zero")
	}

	if logger.Level() != DefaultLevel || logger.Format() != DefaultFormat {
		t.Error("zero logger should report defaults")
	}
}

func TestLogger_Concurrent(t *testing.T) {
	var (
		buf bytes.Buffer
		mu  sync.Mutex
		wg  sync.WaitGroup
	)

	logger := Make(writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()

		return buf.Write(p)
	}), WithLevel(LevelInfo), WithPretty(false))

	for i := range 16 {
		wg.Go(func() {
			logger.With(slog.Int("worker", i)).Info("tick")
		})
	}

	wg.Wait()

	if n := strings.Count(buf.String(), "tick"); n != 16 {
		t.Errorf("got %d lines, want 16", n)
	}
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func TestPackageFunctions(t *testing.T) {
	original := defaultLog
	t.Cleanup(func() { defaultLog = original })

	var buf bytes.Buffer

	defaultLog = plain(&buf, WithLevel(LevelTrace), WithFormat(FormatJSON))

	tests := []struct {
		fn    func(string, ...slog.Attr)
		level string
	}{
		{Trace, "TRACE"},
		{Debug, "DEBUG"},
		{Info, "INFO"},
		{Warn, "WARN"},
		{Error, "ERROR"},
		{func(m string, a ...slog.Attr) { InfoContext(t.Context(), m, a...) }, "INFO"},
	}

	for _, tt := range tests {
		buf.Reset()
		tt.fn("message", slog.String("key", "value"))

		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("%s: %v", tt.level, err)
		}

		if rec["level"] != tt.level || rec["key"] != "value" {
			t.Errorf("got %v, want level %s", rec, tt.level)
		}
	}

	Config(WithLevel(LevelError))

	buf.Reset()
	Warn("suppressed")

	if buf.Len() != 0 {
		t.Errorf("Config did not raise the level: %q", buf.String())
	}

	if Default().Level() != LevelError {
		t.Errorf("Default level: got %v", Default().Level())
	}
}
